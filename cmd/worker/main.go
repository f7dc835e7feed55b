package main

import (
	"github.com/rs/zerolog/log"

	"github.com/ledgerly/reportflow/internal/pkg/config"
	"github.com/ledgerly/reportflow/internal/pkg/email"
	"github.com/ledgerly/reportflow/internal/pkg/logger"
	"github.com/ledgerly/reportflow/internal/pkg/queue"
)

// The worker drains the email queue filled by the scheduler and the API.
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	logger.Init(cfg.App.Environment, cfg.App.Debug)
	log.Logger = logger.WithService("worker")

	log.Info().
		Str("app", cfg.App.Name).
		Msg("Starting worker service")

	// The worker sends directly, so it never enqueues.
	emailCfg := email.ConfigFrom(&cfg.SMTP, &cfg.Email)
	emailCfg.QueueEnabled = false
	emailSvc := email.NewService(emailCfg, nil)

	server := queue.NewServer(&cfg.Redis, 10)
	email.NewWorker(emailSvc).RegisterHandlers(server.Mux())

	// Run handles SIGINT and SIGTERM itself.
	if err := server.Run(); err != nil {
		log.Fatal().Err(err).Msg("Worker error")
	}
}
