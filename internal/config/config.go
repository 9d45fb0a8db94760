// Package config loads service settings from the environment and flags.
package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds application level configuration. Environment values are read
// first; command line flags override them.
type Config struct {
	RunAddress      string        `env:"RUN_ADDRESS" envDefault:":8080"`
	DatabaseURI     string        `env:"DATABASE_URI"`
	JWTSecret       string        `env:"JWT_SECRET" envDefault:"change-me-in-production"`
	JWTSecretFile   string        `env:"JWT_SECRET_FILE"`
	TokenTTL        time.Duration `env:"TOKEN_TTL" envDefault:"12h"`
	PasswordCost    int           `env:"PASSWORD_COST"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`

	PendingOrderTTL   time.Duration `env:"PENDING_ORDER_TTL" envDefault:"30m"`
	NumberingAttempts int           `env:"NUMBERING_ATTEMPTS" envDefault:"3"`
	IdempotencyWait   time.Duration `env:"IDEMPOTENCY_WAIT" envDefault:"5s"`
	IdempotencyLease  time.Duration `env:"IDEMPOTENCY_LEASE" envDefault:"1m"`

	AMQPURL           string        `env:"AMQP_URL"`
	EventsExchange    string        `env:"EVENTS_EXCHANGE" envDefault:"snackbar.orders"`
	EventPollInterval time.Duration `env:"EVENT_POLL_INTERVAL" envDefault:"2s"`
	EventBatchSize    int           `env:"EVENT_BATCH_SIZE" envDefault:"32"`
	WorkerPoolSize    int           `env:"WORKER_POOL_SIZE" envDefault:"4"`

	BootstrapLogin    string `env:"BOOTSTRAP_MANAGER_LOGIN"`
	BootstrapPassword string `env:"BOOTSTRAP_MANAGER_PASSWORD"`
}

const (
	defaultRunAddress        = ":8080"
	defaultTokenTTL          = 12 * time.Hour
	defaultShutdownTimeout   = 10 * time.Second
	defaultPendingOrderTTL   = 30 * time.Minute
	defaultNumberingAttempts = 3
	defaultIdempotencyWait   = 5 * time.Second
	defaultIdempotencyLease  = time.Minute
	defaultEventPollInterval = 2 * time.Second
	defaultEventBatchSize    = 32
	defaultWorkerPoolSize    = 4
)

// Load parses configuration from the process environment and arguments.
func Load() (*Config, error) {
	return load(os.Args[1:], env.ToMap(os.Environ()))
}

func load(args []string, environ map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	fs := flag.NewFlagSet("snackbar", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "HTTP server listen address")
	fs.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "PostgreSQL DSN")
	fs.StringVar(&cfg.AMQPURL, "amqp", cfg.AMQPURL, "AMQP broker URL for order events")
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", cfg.JWTSecret, "Secret for signing staff tokens")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level")
	fs.DurationVar(&cfg.TokenTTL, "token-ttl", cfg.TokenTTL, "Staff token lifetime")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "Graceful shutdown timeout")
	fs.DurationVar(&cfg.PendingOrderTTL, "pending-ttl", cfg.PendingOrderTTL, "Lifetime of unaccepted orders")
	fs.IntVar(&cfg.NumberingAttempts, "numbering-attempts", cfg.NumberingAttempts, "Order number allocation attempts")
	fs.DurationVar(&cfg.IdempotencyWait, "idempotency-wait", cfg.IdempotencyWait, "How long duplicates wait for the original request")
	fs.DurationVar(&cfg.IdempotencyLease, "idempotency-lease", cfg.IdempotencyLease, "Age after which an unfinished idempotent request may be taken over")
	fs.DurationVar(&cfg.EventPollInterval, "event-poll-interval", cfg.EventPollInterval, "Interval between outbox polls")
	fs.IntVar(&cfg.EventBatchSize, "event-batch", cfg.EventBatchSize, "Maximum events per outbox poll")
	fs.IntVar(&cfg.WorkerPoolSize, "worker-pool", cfg.WorkerPoolSize, "Number of concurrent event publishers")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	if cfg.JWTSecretFile != "" {
		content, err := os.ReadFile(cfg.JWTSecretFile)
		if err != nil {
			return nil, fmt.Errorf("read jwt secret file: %w", err)
		}
		cfg.JWTSecret = string(content)
	}

	cfg.normalize()

	if cfg.DatabaseURI == "" {
		return nil, fmt.Errorf("database URI must be provided")
	}
	if (cfg.BootstrapLogin == "") != (cfg.BootstrapPassword == "") {
		return nil, fmt.Errorf("bootstrap manager login and password must be set together")
	}

	return cfg, nil
}

func (c *Config) normalize() {
	if c.RunAddress == "" {
		c.RunAddress = defaultRunAddress
	}
	if c.TokenTTL <= 0 {
		c.TokenTTL = defaultTokenTTL
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = defaultShutdownTimeout
	}
	if c.PendingOrderTTL <= 0 {
		c.PendingOrderTTL = defaultPendingOrderTTL
	}
	if c.NumberingAttempts <= 0 {
		c.NumberingAttempts = defaultNumberingAttempts
	}
	if c.IdempotencyWait <= 0 {
		c.IdempotencyWait = defaultIdempotencyWait
	}
	if c.IdempotencyLease <= 0 {
		c.IdempotencyLease = defaultIdempotencyLease
	}
	if c.EventPollInterval <= 0 {
		c.EventPollInterval = defaultEventPollInterval
	}
	if c.EventBatchSize <= 0 {
		c.EventBatchSize = defaultEventBatchSize
	}
	if c.WorkerPoolSize <= 0 {
		c.WorkerPoolSize = defaultWorkerPoolSize
	}
}
