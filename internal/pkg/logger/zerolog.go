package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Init(environment string, debug bool) {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.DurationFieldUnit = time.Millisecond

	var output io.Writer = os.Stdout

	if environment == "development" {
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
		}
	}

	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	log.Logger = zerolog.New(output).
		With().
		Timestamp().
		Caller().
		Logger().
		Level(level)
}

func WithService(service string) zerolog.Logger {
	return log.With().Str("service", service).Logger()
}

// WithSchedule tags every entry with the schedule and its owner.
func WithSchedule(scheduleID, ownerID string) zerolog.Logger {
	return log.With().
		Str("schedule_id", scheduleID).
		Str("owner_id", ownerID).
		Logger()
}
