package queue

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ledgerly/reportflow/internal/pkg/config"
)

// Server consumes report delivery tasks. Email deliveries outrank anything
// else that lands on the default queue.
type Server struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

func NewServer(cfg *config.RedisConfig, concurrency int) *Server {
	qlog := log.With().Str("component", "queue").Logger()

	server := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Addr(),
			Password: cfg.Password,
			DB:       cfg.DB,
		},
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				QueueEmails:  6,
				QueueDefault: 3,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				retried, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				taskID, _ := asynq.GetTaskID(ctx)

				event := qlog.Warn()
				if retried >= maxRetry {
					event = qlog.Error().Bool("exhausted", true)
				}
				event.Str("task_type", task.Type()).
					Str("task_id", taskID).
					Int("retried", retried).
					Int("max_retry", maxRetry).
					Err(err).
					Msg("Delivery task failed")
			}),
			Logger: zerologAdapter{l: qlog},
		},
	)

	return &Server{
		server: server,
		mux:    asynq.NewServeMux(),
	}
}

func (s *Server) Mux() *asynq.ServeMux {
	return s.mux
}

// Run blocks until the process receives a termination signal.
func (s *Server) Run() error {
	log.Info().Msg("Starting delivery worker")
	return s.server.Run(s.mux)
}

// zerologAdapter routes asynq's internal logging through zerolog.
type zerologAdapter struct {
	l zerolog.Logger
}

func (a zerologAdapter) Debug(args ...interface{}) { a.l.Debug().Msg(fmt.Sprint(args...)) }
func (a zerologAdapter) Info(args ...interface{})  { a.l.Info().Msg(fmt.Sprint(args...)) }
func (a zerologAdapter) Warn(args ...interface{})  { a.l.Warn().Msg(fmt.Sprint(args...)) }
func (a zerologAdapter) Error(args ...interface{}) { a.l.Error().Msg(fmt.Sprint(args...)) }
func (a zerologAdapter) Fatal(args ...interface{}) { a.l.Fatal().Msg(fmt.Sprint(args...)) }
