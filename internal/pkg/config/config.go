package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	S3        S3Config
	SMTP      SMTPConfig
	Email     EmailConfig
	Scheduler SchedulerConfig
	RateLimit RateLimitConfig
}

type AppConfig struct {
	Name        string
	Environment string
	Debug       bool
	URL         string
	FrontendURL string
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Driver          string // postgres or sqlite
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	Path            string // sqlite only
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
	LogQueries      bool
}

func (c *DatabaseConfig) DSN() string {
	if c.Driver == "sqlite" {
		return c.Path
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type JWTConfig struct {
	Secret       string
	AccessExpiry time.Duration
	Issuer       string
}

type S3Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

func (c *S3Config) Enabled() bool {
	return c.Bucket != ""
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

type EmailConfig struct {
	QueueEnabled bool
	Queue        string
	MaxRetry     int
}

type SchedulerConfig struct {
	SweepInterval     time.Duration
	BatchSize         int
	Workers           int
	ExecutionTimeout  time.Duration
	LeaseDuration     time.Duration
	StartsPerSecond   float64
	ManualCooldown    time.Duration
	DeliveryDedupTTL  time.Duration
	RunRetentionDays  int
	CleanupSpec       string
	LeaseRecoverySpec string
	ShutdownTimeout   time.Duration
	HealthAddr        string
	InstanceID        string
}

type RateLimitConfig struct {
	Enabled bool
	Limit   int
	Window  time.Duration
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config

	// App
	cfg.App.Name = viper.GetString("app.name")
	cfg.App.Environment = viper.GetString("app.environment")
	cfg.App.Debug = viper.GetBool("app.debug")
	cfg.App.URL = viper.GetString("app.url")
	cfg.App.FrontendURL = viper.GetString("app.frontend_url")

	// Server
	cfg.Server.Host = viper.GetString("server.host")
	cfg.Server.Port = viper.GetInt("server.port")
	cfg.Server.ReadTimeout = viper.GetDuration("server.read_timeout")
	cfg.Server.WriteTimeout = viper.GetDuration("server.write_timeout")
	cfg.Server.IdleTimeout = viper.GetDuration("server.idle_timeout")

	// Database
	cfg.Database.Driver = viper.GetString("database.driver")
	cfg.Database.Host = viper.GetString("database.host")
	cfg.Database.Port = viper.GetInt("database.port")
	cfg.Database.User = viper.GetString("database.user")
	cfg.Database.Password = viper.GetString("database.password")
	cfg.Database.Name = viper.GetString("database.name")
	cfg.Database.SSLMode = viper.GetString("database.sslmode")
	cfg.Database.Path = viper.GetString("database.path")
	cfg.Database.MaxOpenConns = viper.GetInt("database.max_open_conns")
	cfg.Database.MaxIdleConns = viper.GetInt("database.max_idle_conns")
	cfg.Database.ConnMaxLifetime = viper.GetDuration("database.conn_max_lifetime")
	cfg.Database.AutoMigrate = viper.GetBool("database.auto_migrate")
	cfg.Database.LogQueries = viper.GetBool("database.log_queries")

	// Redis
	cfg.Redis.Host = viper.GetString("redis.host")
	cfg.Redis.Port = viper.GetInt("redis.port")
	cfg.Redis.Password = viper.GetString("redis.password")
	cfg.Redis.DB = viper.GetInt("redis.db")

	// JWT
	cfg.JWT.Secret = viper.GetString("jwt.secret")
	cfg.JWT.AccessExpiry = viper.GetDuration("jwt.access_expiry")
	cfg.JWT.Issuer = viper.GetString("jwt.issuer")

	// S3
	cfg.S3.Endpoint = viper.GetString("s3.endpoint")
	cfg.S3.Region = viper.GetString("s3.region")
	cfg.S3.Bucket = viper.GetString("s3.bucket")
	cfg.S3.Prefix = viper.GetString("s3.prefix")
	cfg.S3.AccessKeyID = viper.GetString("s3.access_key_id")
	cfg.S3.SecretAccessKey = viper.GetString("s3.secret_access_key")
	cfg.S3.UsePathStyle = viper.GetBool("s3.use_path_style")

	// SMTP
	cfg.SMTP.Host = viper.GetString("smtp.host")
	cfg.SMTP.Port = viper.GetInt("smtp.port")
	cfg.SMTP.Username = viper.GetString("smtp.username")
	cfg.SMTP.Password = viper.GetString("smtp.password")
	cfg.SMTP.From = viper.GetString("smtp.from")
	cfg.SMTP.FromName = viper.GetString("smtp.from_name")

	// Email delivery
	cfg.Email.QueueEnabled = viper.GetBool("email.queue_enabled")
	cfg.Email.Queue = viper.GetString("email.queue")
	cfg.Email.MaxRetry = viper.GetInt("email.max_retry")

	// Scheduler
	cfg.Scheduler.SweepInterval = viper.GetDuration("scheduler.sweep_interval")
	cfg.Scheduler.BatchSize = viper.GetInt("scheduler.batch_size")
	cfg.Scheduler.Workers = viper.GetInt("scheduler.workers")
	cfg.Scheduler.ExecutionTimeout = viper.GetDuration("scheduler.execution_timeout")
	cfg.Scheduler.LeaseDuration = viper.GetDuration("scheduler.lease_duration")
	cfg.Scheduler.StartsPerSecond = viper.GetFloat64("scheduler.starts_per_second")
	cfg.Scheduler.ManualCooldown = viper.GetDuration("scheduler.manual_cooldown")
	cfg.Scheduler.DeliveryDedupTTL = viper.GetDuration("scheduler.delivery_dedup_ttl")
	cfg.Scheduler.RunRetentionDays = viper.GetInt("scheduler.run_retention_days")
	cfg.Scheduler.CleanupSpec = viper.GetString("scheduler.cleanup_spec")
	cfg.Scheduler.LeaseRecoverySpec = viper.GetString("scheduler.lease_recovery_spec")
	cfg.Scheduler.ShutdownTimeout = viper.GetDuration("scheduler.shutdown_timeout")
	cfg.Scheduler.HealthAddr = viper.GetString("scheduler.health_addr")
	cfg.Scheduler.InstanceID = viper.GetString("scheduler.instance_id")

	// API rate limiting
	cfg.RateLimit.Enabled = viper.GetBool("ratelimit.enabled")
	cfg.RateLimit.Limit = viper.GetInt("ratelimit.limit")
	cfg.RateLimit.Window = viper.GetDuration("ratelimit.window")

	return &cfg, nil
}

func setDefaults() {
	// App defaults
	viper.SetDefault("app.name", "reportflow")
	viper.SetDefault("app.environment", "development")
	viper.SetDefault("app.debug", true)
	viper.SetDefault("app.url", "http://localhost:8080")
	viper.SetDefault("app.frontend_url", "http://localhost:3000")

	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "60s")
	viper.SetDefault("server.idle_timeout", "60s")

	// Database defaults
	viper.SetDefault("database.driver", "postgres")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.name", "reportflow")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.path", "reportflow.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "5m")
	viper.SetDefault("database.auto_migrate", true)
	viper.SetDefault("database.log_queries", false)

	// Redis defaults
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// JWT defaults
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("jwt.access_expiry", "15m")
	viper.SetDefault("jwt.issuer", "reportflow")

	// S3 defaults
	viper.SetDefault("s3.region", "us-east-1")
	viper.SetDefault("s3.prefix", "reports")

	// SMTP defaults
	viper.SetDefault("smtp.port", 587)
	viper.SetDefault("smtp.from", "reports@localhost")
	viper.SetDefault("smtp.from_name", "Reportflow")

	// Email defaults
	viper.SetDefault("email.queue_enabled", true)
	viper.SetDefault("email.queue", "emails")
	viper.SetDefault("email.max_retry", 3)

	// Scheduler defaults
	viper.SetDefault("scheduler.sweep_interval", "1h")
	viper.SetDefault("scheduler.batch_size", 500)
	viper.SetDefault("scheduler.workers", 8)
	viper.SetDefault("scheduler.execution_timeout", "30s")
	viper.SetDefault("scheduler.lease_duration", "2m")
	viper.SetDefault("scheduler.starts_per_second", 20)
	viper.SetDefault("scheduler.manual_cooldown", "10s")
	viper.SetDefault("scheduler.delivery_dedup_ttl", "72h")
	viper.SetDefault("scheduler.run_retention_days", 90)
	viper.SetDefault("scheduler.cleanup_spec", "0 3 * * *")
	viper.SetDefault("scheduler.lease_recovery_spec", "@every 5m")
	viper.SetDefault("scheduler.shutdown_timeout", "45s")
	viper.SetDefault("scheduler.health_addr", ":9090")

	// Rate limit defaults
	viper.SetDefault("ratelimit.enabled", true)
	viper.SetDefault("ratelimit.limit", 120)
	viper.SetDefault("ratelimit.window", "1m")
}
