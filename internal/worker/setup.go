package worker

import (
	"fmt"

	"github.com/fairlens/fairlens/internal/evaluator"
	"github.com/fairlens/fairlens/internal/evaluator/configuration"
	"github.com/fairlens/fairlens/internal/jobstore"
)

// InitializeStore opens the job database under dataDir, creating the
// schema if needed. Must be called during worker startup.
func InitializeStore(dataDir string) (*jobstore.Store, error) {
	store, err := jobstore.Open(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize job store: %w", err)
	}
	return store, nil
}

// InitializeJudgeClient creates the LLM judge client from configuration.
// Returns the client for dependency injection rather than setting global
// state. A missing judge configuration still yields a usable client; its
// results are degraded neutral bundles.
func InitializeJudgeClient(cfg *configuration.Config) evaluator.Client {
	if cfg == nil {
		cfg = configuration.DefaultConfig()
	}
	return evaluator.NewClient(cfg)
}

// InitializeFairnessClient creates the secondary fairness service client
// from configuration. A disabled service yields the explicit disabled
// variant whose results carry null scores with a reason.
func InitializeFairnessClient(cfg *configuration.Config) evaluator.FairnessClient {
	if cfg == nil {
		cfg = configuration.DefaultConfig()
	}
	return evaluator.NewFairnessClient(cfg)
}
