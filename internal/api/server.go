package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ledgerly/reportflow/internal/api/handlers"
	"github.com/ledgerly/reportflow/internal/api/middleware"
	"github.com/ledgerly/reportflow/internal/domain/services"
	"github.com/ledgerly/reportflow/internal/pkg/config"
	"github.com/ledgerly/reportflow/internal/pkg/crypto"
	"github.com/ledgerly/reportflow/internal/pkg/metrics"
	pkgredis "github.com/ledgerly/reportflow/internal/pkg/redis"
)

type Server struct {
	cfg        *config.Config
	router     *chi.Mux
	httpServer *http.Server
}

// NewServer wires the report schedule API. redisClient may be nil, in which
// case rate limiting is off and the health check skips redis.
func NewServer(
	cfg *config.Config,
	scheduleSvc *services.ScheduleService,
	jwtManager *crypto.JWTManager,
	redisClient *pkgredis.Client,
	db *gorm.DB,
) *Server {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.Logger())
	router.Use(middleware.Recoverer())
	router.Use(chimiddleware.Timeout(60 * time.Second))
	router.Use(metrics.MetricsMiddleware)

	// CORS - support multiple origins (comma-separated in config)
	allowedOrigins := strings.Split(cfg.App.FrontendURL, ",")
	for i := range allowedOrigins {
		allowedOrigins[i] = strings.TrimSpace(allowedOrigins[i])
	}
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	})
	router.Use(corsHandler.Handler)

	var rawRedis *goredis.Client
	limiter := middleware.NewRateLimiter(nil)
	if redisClient != nil {
		rawRedis = redisClient.Client
		if cfg.RateLimit.Enabled {
			limiter = middleware.NewRateLimiter(redisClient)
		}
	}

	healthHandler := handlers.NewHealthHandler(db, rawRedis)
	scheduleHandler := handlers.NewReportScheduleHandler(scheduleSvc)
	authMiddleware := middleware.NewAuthMiddleware(jwtManager)

	router.Get("/health", healthHandler.Health)
	router.Get("/health/live", healthHandler.Live)
	router.Get("/health/ready", healthHandler.Ready)
	router.Handle("/metrics", metrics.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)
		r.Use(limiter.Limit(cfg.RateLimit.Limit, cfg.RateLimit.Window))

		r.Route("/report-schedules", func(r chi.Router) {
			r.Get("/", scheduleHandler.List)
			r.Post("/", scheduleHandler.Create)
			r.Get("/{id}", scheduleHandler.Get)
			r.Put("/{id}", scheduleHandler.Update)
			r.Delete("/{id}", scheduleHandler.Delete)
			r.Post("/{id}/toggle", scheduleHandler.Toggle)
			r.Post("/{id}/send", scheduleHandler.SendNow)
			r.Get("/{id}/runs", scheduleHandler.ListRuns)
		})
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Server{
		cfg:        cfg,
		router:     router,
		httpServer: httpServer,
	}
}

// Start serves until SIGINT or SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	log.Info().Str("addr", s.httpServer.Addr).Msg("Starting HTTP server")

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-quit:
	}

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	log.Info().Msg("Server stopped")
	return nil
}

func (s *Server) Router() *chi.Mux {
	return s.router
}
