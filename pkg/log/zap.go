// Package log bridges zap structured logging into the Temporal SDK's
// logger interface so workers, workflows and activities all log through
// one configured backend.
package log

import (
	"go.uber.org/zap"

	sdklog "go.temporal.io/sdk/log"
)

// ZapAdapter adapts a zap logger to Temporal's keyval-style interface.
type ZapAdapter struct {
	sugar *zap.SugaredLogger
}

var _ sdklog.Logger = (*ZapAdapter)(nil)

// NewZapAdapter wraps the given zap logger. The caller keeps ownership of
// the logger and is responsible for syncing it at shutdown.
func NewZapAdapter(logger *zap.Logger) *ZapAdapter {
	// Skip one caller frame so log sites point at the SDK call site.
	return &ZapAdapter{sugar: logger.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

// Debug implements log.Logger.
func (a *ZapAdapter) Debug(msg string, keyvals ...any) { a.sugar.Debugw(msg, keyvals...) }

// Info implements log.Logger.
func (a *ZapAdapter) Info(msg string, keyvals ...any) { a.sugar.Infow(msg, keyvals...) }

// Warn implements log.Logger.
func (a *ZapAdapter) Warn(msg string, keyvals ...any) { a.sugar.Warnw(msg, keyvals...) }

// Error implements log.Logger.
func (a *ZapAdapter) Error(msg string, keyvals ...any) { a.sugar.Errorw(msg, keyvals...) }
