package scheduler

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	pkgconfig "github.com/ledgerly/reportflow/internal/pkg/config"
	"github.com/ledgerly/reportflow/internal/scheduler/cron"
)

type Config struct {
	// Sweeping
	SweepInterval time.Duration
	BatchSize     int

	// Execution
	Workers          int
	ExecutionTimeout time.Duration
	LeaseDuration    time.Duration
	StartsPerSecond  float64
	DeliveryDedupTTL time.Duration
	InstanceID       string

	// Housekeeping
	LeaseRecoverySpec string
	CleanupSpec       string
	RetentionDays     int

	// Shutdown
	ShutdownTimeout time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		SweepInterval:     time.Hour,
		BatchSize:         500,
		Workers:           8,
		ExecutionTimeout:  30 * time.Second,
		LeaseDuration:     2 * time.Minute,
		StartsPerSecond:   20,
		DeliveryDedupTTL:  72 * time.Hour,
		LeaseRecoverySpec: "@every 5m",
		CleanupSpec:       "0 3 * * *",
		RetentionDays:     90,
		ShutdownTimeout:   45 * time.Second,
	}
}

func ConfigFrom(c *pkgconfig.SchedulerConfig) *Config {
	return &Config{
		SweepInterval:     c.SweepInterval,
		BatchSize:         c.BatchSize,
		Workers:           c.Workers,
		ExecutionTimeout:  c.ExecutionTimeout,
		LeaseDuration:     c.LeaseDuration,
		StartsPerSecond:   c.StartsPerSecond,
		DeliveryDedupTTL:  c.DeliveryDedupTTL,
		InstanceID:        c.InstanceID,
		LeaseRecoverySpec: c.LeaseRecoverySpec,
		CleanupSpec:       c.CleanupSpec,
		RetentionDays:     c.RunRetentionDays,
		ShutdownTimeout:   c.ShutdownTimeout,
	}
}

// Validate fills zero values with defaults and rejects broken cron specs.
func (c *Config) Validate() error {
	def := DefaultConfig()
	if c.SweepInterval <= 0 {
		c.SweepInterval = def.SweepInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = def.BatchSize
	}
	if c.Workers <= 0 {
		c.Workers = def.Workers
	}
	if c.ExecutionTimeout <= 0 {
		c.ExecutionTimeout = def.ExecutionTimeout
	}
	if c.LeaseDuration <= c.ExecutionTimeout {
		c.LeaseDuration = c.ExecutionTimeout + time.Minute
	}
	if c.DeliveryDedupTTL <= 0 {
		c.DeliveryDedupTTL = def.DeliveryDedupTTL
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = def.ShutdownTimeout
	}
	if c.InstanceID == "" {
		c.InstanceID = NewInstanceID()
	}

	for _, spec := range []string{c.LeaseRecoverySpec, c.CleanupSpec} {
		if spec == "" {
			continue
		}
		if err := cron.ValidateSpec(spec); err != nil {
			return err
		}
	}
	return nil
}

// NewInstanceID identifies this process in lease columns.
func NewInstanceID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "scheduler"
	}
	return fmt.Sprintf("%s-%s", host, uuid.NewString()[:8])
}
