// Command worker runs the Temporal worker hosting the fairness evaluation
// workflows and activities.
package main

import (
	"context"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.temporal.io/sdk/client"
	sdkworker "go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"github.com/fairlens/fairlens/internal/evaluator/configuration"
	"github.com/fairlens/fairlens/internal/worker"
	"github.com/fairlens/fairlens/pkg/log"
)

// Settings is the worker process configuration, loaded from FAIRLENS_*
// environment variables.
type Settings struct {
	TemporalAddress   string `envconfig:"TEMPORAL_ADDRESS" default:"localhost:7233"`
	TemporalNamespace string `envconfig:"TEMPORAL_NAMESPACE" default:"default"`
	TaskQueue         string `envconfig:"TASK_QUEUE" default:"fairlens-jobs"`
	DataDir           string `envconfig:"DATA_DIR" default:"./data"`
	Debug             bool   `envconfig:"DEBUG"`
}

func main() {
	var settings Settings
	if err := envconfig.Process("fairlens", &settings); err != nil {
		panic("failed to load worker settings: " + err.Error())
	}

	var logger *zap.Logger
	var err error
	if settings.Debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic("failed to build logger: " + err.Error())
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush at exit

	store, err := worker.InitializeStore(settings.DataDir)
	if err != nil {
		logger.Fatal("Failed to open job store", zap.Error(err))
	}
	defer store.Close()

	evalCfg := configuration.DefaultConfig()
	judge := worker.InitializeJudgeClient(evalCfg)
	fairness := worker.InitializeFairnessClient(evalCfg)

	// Startup probe is informational only; a down fairness service degrades
	// per-item scores, it does not block the worker.
	probeCtx, cancelProbe := context.WithTimeout(context.Background(), 5*time.Second)
	if fairness.Healthy(probeCtx) {
		logger.Info("Fairness service reachable")
	} else {
		logger.Warn("Fairness service not reachable, secondary scores will be null")
	}
	cancelProbe()

	c, err := client.Dial(client.Options{
		HostPort:  settings.TemporalAddress,
		Namespace: settings.TemporalNamespace,
		Logger:    log.NewZapAdapter(logger),
	})
	if err != nil {
		logger.Fatal("Failed to connect to Temporal", zap.Error(err))
	}
	defer c.Close()

	w := sdkworker.New(c, settings.TaskQueue, sdkworker.Options{})
	worker.RegisterAll(w, store, judge, fairness)

	logger.Info("Worker starting",
		zap.String("task_queue", settings.TaskQueue),
		zap.String("namespace", settings.TemporalNamespace))

	if err := w.Run(sdkworker.InterruptCh()); err != nil {
		logger.Fatal("Worker exited", zap.Error(err))
	}
}
