package main

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/ledgerly/reportflow/internal/api"
	"github.com/ledgerly/reportflow/internal/domain/repositories"
	"github.com/ledgerly/reportflow/internal/domain/services"
	"github.com/ledgerly/reportflow/internal/pkg/config"
	"github.com/ledgerly/reportflow/internal/pkg/crypto"
	"github.com/ledgerly/reportflow/internal/pkg/database"
	"github.com/ledgerly/reportflow/internal/pkg/email"
	"github.com/ledgerly/reportflow/internal/pkg/logger"
	"github.com/ledgerly/reportflow/internal/pkg/queue"
	pkgredis "github.com/ledgerly/reportflow/internal/pkg/redis"
	"github.com/ledgerly/reportflow/internal/pkg/storage"
	"github.com/ledgerly/reportflow/internal/scheduler"
	"github.com/ledgerly/reportflow/internal/scheduler/guard"
	"github.com/ledgerly/reportflow/internal/scheduler/metrics"
	"github.com/ledgerly/reportflow/internal/scheduler/pipeline"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	logger.Init(cfg.App.Environment, cfg.App.Debug)
	log.Logger = logger.WithService("api")

	log.Info().
		Str("app", cfg.App.Name).
		Str("env", cfg.App.Environment).
		Msg("Starting API server")

	// Connect to database (migrates when database.auto_migrate is set)
	db, err := database.NewGormDB(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}

	// Connect to Redis
	redisClient, err := pkgredis.NewClient(&cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}

	queueClient := queue.NewClient(&cfg.Redis)
	defer queueClient.Close()

	emailSvc := email.NewService(email.ConfigFrom(&cfg.SMTP, &cfg.Email), queueClient)

	var archive pipeline.Archive
	if cfg.S3.Enabled() {
		s3Archive, err := storage.NewS3Archive(context.Background(), &cfg.S3)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to configure report archive")
		}
		archive = s3Archive
	}

	// Manual sends run through the same pipeline as the scheduler.
	pipe := scheduler.NewPipeline(scheduler.ConfigFrom(&cfg.Scheduler), &scheduler.Dependencies{
		DB:       db,
		Redis:    redisClient,
		Notifier: emailSvc,
		Archive:  archive,
	}, metrics.NewCollector())

	scheduleSvc := services.NewScheduleService(
		repositories.NewReportScheduleRepository(db),
		repositories.NewReportRunRepository(db),
		pipe,
		guard.NewManualTrigger(cfg.Scheduler.ManualCooldown),
		services.WithSendTimeout(cfg.Scheduler.ExecutionTimeout),
	)

	jwtManager := crypto.NewJWTManager(crypto.JWTConfig{
		Secret:       cfg.JWT.Secret,
		AccessExpiry: cfg.JWT.AccessExpiry,
		Issuer:       cfg.JWT.Issuer,
	})

	server := api.NewServer(cfg, scheduleSvc, jwtManager, redisClient, db)

	if err := server.Start(); err != nil {
		log.Fatal().Err(err).Msg("Server error")
	}
}
