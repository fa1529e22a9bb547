// Command worker runs the Temporal worker hosting the contributivity
// workflow and its estimator activities.
package main

import (
	"flag"
	"log/slog"
	"os"

	"go.temporal.io/sdk/client"
	sdkworker "go.temporal.io/sdk/worker"

	"github.com/mlcoop/contribmeter/internal/configuration"
	"github.com/mlcoop/contribmeter/internal/worker"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (optional)")
	flag.Parse()

	cfg, err := configuration.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		logger.Error("Failed to connect to Temporal", "host_port", cfg.Temporal.HostPort, "error", err)
		os.Exit(1)
	}
	defer c.Close()

	w := sdkworker.New(c, cfg.Temporal.TaskQueue, sdkworker.Options{})

	trainer, err := worker.InitializeTrainer(cfg)
	if err != nil {
		logger.Error("Failed to initialize trainer", "error", err)
		os.Exit(1)
	}
	worker.RegisterAll(w, trainer, cfg.Estimator)

	logger.Info("Worker starting",
		"task_queue", cfg.Temporal.TaskQueue,
		"namespace", cfg.Temporal.Namespace,
		"trainer_endpoint", cfg.Trainer.Endpoint)

	if err := w.Run(sdkworker.InterruptCh()); err != nil {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
}

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
