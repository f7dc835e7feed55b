package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ledgerly/reportflow/internal/pkg/config"
	"github.com/ledgerly/reportflow/internal/pkg/database"
	"github.com/ledgerly/reportflow/internal/pkg/email"
	"github.com/ledgerly/reportflow/internal/pkg/logger"
	pkgmetrics "github.com/ledgerly/reportflow/internal/pkg/metrics"
	"github.com/ledgerly/reportflow/internal/pkg/queue"
	pkgredis "github.com/ledgerly/reportflow/internal/pkg/redis"
	"github.com/ledgerly/reportflow/internal/pkg/storage"
	"github.com/ledgerly/reportflow/internal/scheduler"
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
	log.Logger = logger.WithService("scheduler")

	log.Info().
		Str("app", cfg.App.Name).
		Msg("Starting scheduler service")

	// Connect to database
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

	schedulerCfg := scheduler.ConfigFrom(&cfg.Scheduler)
	s, err := scheduler.New(schedulerCfg, &scheduler.Dependencies{
		DB:       db,
		Redis:    redisClient,
		Notifier: emailSvc,
		Archive:  archive,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid scheduler configuration")
	}

	// Health and metrics
	exporter := metrics.NewExporter(s.Metrics(), 2*schedulerCfg.SweepInterval)
	mux := http.NewServeMux()
	mux.Handle("/health", exporter.Health())
	mux.Handle("/stats", exporter.Handler())
	mux.Handle("/metrics", pkgmetrics.Handler())
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(s.Health())
	})

	healthServer := &http.Server{
		Addr:              cfg.Scheduler.HealthAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Str("addr", healthServer.Addr).Msg("Starting health server")
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Health server error")
		}
	}()

	// Start scheduler
	if err := s.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Received shutdown signal")

	if err := s.Stop(); err != nil {
		log.Error().Err(err).Msg("Error stopping scheduler")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = healthServer.Shutdown(ctx)

	log.Info().Msg("Scheduler stopped")
}
