package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"
)

var ErrMissingRequired = errors.New("missing required configuration")

// DefaultCollaboratorTimeout matches the COLLABORATOR_TIMEOUT_SECONDS default.
const DefaultCollaboratorTimeout = 30 * time.Second

const (
	StateBackendPostgres = "postgres"
	StateBackendRedis    = "redis"
	StateBackendMemory   = "memory"

	BusBackendNSQ   = "nsq"
	BusBackendLocal = "local"

	MailProviderResend   = "resend"
	MailProviderSendGrid = "sendgrid"
	MailProviderMailgun  = "mailgun"
)

type Config struct {
	ServerPort int `envconfig:"SERVER_PORT" default:"8081"`

	StateBackend string `envconfig:"STATE_BACKEND" default:"postgres"`

	DBHost        string `envconfig:"DB_HOST" default:"postgres"`
	DBPort        int    `envconfig:"DB_PORT" default:"5432"`
	DBUser        string `envconfig:"DB_USER" default:"retitle"`
	DBPass        string `envconfig:"DB_PASS" default:"password"`
	DBName        string `envconfig:"DB_NAME" default:"retitle"`
	MigrationPath string `envconfig:"MIGRATION_PATH" default:"file://migrations"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"redis:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	BusBackend       string `envconfig:"BUS_BACKEND" default:"nsq"`
	NSQLookupd       string `envconfig:"NSQ_LOOKUPD" default:"nsqlookupd:4161"`
	NSQDHost         string `envconfig:"NSQD_HOST" default:"nsqd:4150"`
	NSQDHTTP         string `envconfig:"NSQD_HTTP" default:"nsqd:4151"`
	NSQChannelPrefix string `envconfig:"NSQ_CHANNEL_PREFIX" default:"retitle"`
	NSQConcurrency   int    `envconfig:"NSQ_CONCURRENCY" default:"8"`

	// Identity resolution and item listing
	YouTubeAPIKey string  `envconfig:"YOUTUBE_API_KEY"`
	YouTubeRPS    float64 `envconfig:"YOUTUBE_RPS" default:"5"`
	VideoPageSize int64   `envconfig:"VIDEO_PAGE_SIZE" default:"5"`

	// Generation
	GeminiAPIKey      string  `envconfig:"GEMINI_API_KEY"`
	GeminiModel       string  `envconfig:"GEMINI_MODEL" default:"gemini-2.5-pro"`
	GeminiTemperature float32 `envconfig:"GEMINI_TEMPERATURE" default:"0.7"`

	// Delivery
	MailProvider   string `envconfig:"MAIL_PROVIDER" default:"resend"`
	MailFrom       string `envconfig:"MAIL_FROM"`
	ResendAPIKey   string `envconfig:"RESEND_API_KEY"`
	SendGridAPIKey string `envconfig:"SENDGRID_API_KEY"`
	MailgunAPIKey  string `envconfig:"MAILGUN_API_KEY"`
	MailgunDomain  string `envconfig:"MAILGUN_DOMAIN"`

	// Janitor
	EnableJanitor   bool   `envconfig:"ENABLE_JANITOR" default:"true"`
	RetentionDays   int    `envconfig:"RETENTION_DAYS" default:"7"`
	JanitorSchedule string `envconfig:"JANITOR_SCHEDULE" default:"0 21 * * *"`

	CollaboratorTimeoutSeconds int `envconfig:"COLLABORATOR_TIMEOUT_SECONDS" default:"30"`

	// Resilience
	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`
}

func Load() (*Config, error) {
	// Ignore errors, as env vars might be set in the shell
	_ = godotenv.Load(".env")

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks only what the process cannot start without. Stage
// credentials are checked separately so a missing key disables one stage,
// not the whole pipeline.
func (c *Config) Validate() error {
	switch c.StateBackend {
	case StateBackendPostgres:
		if c.DBHost == "" {
			return fmt.Errorf("%w: DB_HOST", ErrMissingRequired)
		}
		if c.DBUser == "" {
			return fmt.Errorf("%w: DB_USER", ErrMissingRequired)
		}
		if c.DBName == "" {
			return fmt.Errorf("%w: DB_NAME", ErrMissingRequired)
		}
	case StateBackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("%w: REDIS_ADDR", ErrMissingRequired)
		}
	case StateBackendMemory:
	default:
		return fmt.Errorf("unknown STATE_BACKEND %q", c.StateBackend)
	}

	switch c.BusBackend {
	case BusBackendNSQ:
		if c.NSQDHost == "" {
			return fmt.Errorf("%w: NSQD_HOST", ErrMissingRequired)
		}
	case BusBackendLocal:
	default:
		return fmt.Errorf("unknown BUS_BACKEND %q", c.BusBackend)
	}

	if c.RetentionDays <= 0 {
		return fmt.Errorf("RETENTION_DAYS must be positive, got %d", c.RetentionDays)
	}
	if _, err := cron.ParseStandard(c.JanitorSchedule); err != nil {
		return fmt.Errorf("invalid JANITOR_SCHEDULE %q: %w", c.JanitorSchedule, err)
	}
	return nil
}

// YouTubeCredentials reports whether the resolve and fetch stages can run.
func (c *Config) YouTubeCredentials() error {
	if c.YouTubeAPIKey == "" {
		return fmt.Errorf("%w: YOUTUBE_API_KEY", ErrMissingRequired)
	}
	return nil
}

// GeminiCredentials reports whether the generation stage can run.
func (c *Config) GeminiCredentials() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY", ErrMissingRequired)
	}
	return nil
}

// MailCredentials reports whether delivery and failure notices can be sent
// with the configured provider.
func (c *Config) MailCredentials() error {
	if c.MailFrom == "" {
		return fmt.Errorf("%w: MAIL_FROM", ErrMissingRequired)
	}
	switch c.MailProvider {
	case MailProviderResend:
		if c.ResendAPIKey == "" {
			return fmt.Errorf("%w: RESEND_API_KEY", ErrMissingRequired)
		}
	case MailProviderSendGrid:
		if c.SendGridAPIKey == "" {
			return fmt.Errorf("%w: SENDGRID_API_KEY", ErrMissingRequired)
		}
	case MailProviderMailgun:
		if c.MailgunAPIKey == "" {
			return fmt.Errorf("%w: MAILGUN_API_KEY", ErrMissingRequired)
		}
		if c.MailgunDomain == "" {
			return fmt.Errorf("%w: MAILGUN_DOMAIN", ErrMissingRequired)
		}
	default:
		return fmt.Errorf("unknown MAIL_PROVIDER %q", c.MailProvider)
	}
	return nil
}

func (c *Config) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

func (c *Config) CollaboratorTimeout() time.Duration {
	return time.Duration(c.CollaboratorTimeoutSeconds) * time.Second
}
