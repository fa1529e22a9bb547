// Package worker provides initialization and setup utilities for Temporal
// workers. Initialization logic lives here so activity packages stay
// focused on pure estimation logic.
package worker

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/mlcoop/contribmeter/internal/configuration"
	"github.com/mlcoop/contribmeter/internal/oracle"
)

// InitializeTrainer creates the training service client shared by all
// estimator activities: the HTTP adapter wrapped with retry on transient
// transport failures. Returns the trainer for dependency injection rather
// than setting global state.
func InitializeTrainer(cfg *configuration.Config) (oracle.Trainer, error) {
	client := &http.Client{Timeout: cfg.Trainer.Timeout}
	httpTrainer := oracle.NewHTTPTrainer(cfg.Trainer.Endpoint, client)

	trainer, err := oracle.NewRetryTrainer(httpTrainer, cfg.Trainer.Retry, slog.Default())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize trainer: %w", err)
	}
	return trainer, nil
}
