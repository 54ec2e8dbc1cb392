package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Prefix is prepended to every environment variable name.
const Prefix = "RERANKD"

type Config struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	Debug           bool          `envconfig:"DEBUG" default:"false"`
	Environment     string        `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	MaxBodyBytes    int64         `envconfig:"MAX_BODY_BYTES" default:"5242880"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMaxConns  int32  `envconfig:"DB_MAX_CONNS" default:"10"`
	DBMinConns  int32  `envconfig:"DB_MIN_CONNS" default:"1"`

	// Only results from this portal are reordered by feedback.
	PrimaryPortal string `envconfig:"PRIMARY_PORTAL" default:"DataSud"`

	StoreMaxRetries     uint64        `envconfig:"STORE_MAX_RETRIES" default:"3"`
	StoreRetryBaseDelay time.Duration `envconfig:"STORE_RETRY_BASE_DELAY" default:"50ms"`
	StoreRetryMaxDelay  time.Duration `envconfig:"STORE_RETRY_MAX_DELAY" default:"2s"`

	SentryDSN        string  `envconfig:"SENTRY_DSN"`
	SentrySampleRate float64 `envconfig:"SENTRY_TRACES_SAMPLE_RATE" default:"0.1"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"rerankd-exports"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	// ExportInterval > 0 makes serve upload a feedback history dump on a timer.
	ExportInterval time.Duration `envconfig:"EXPORT_INTERVAL" default:"0"`
}

// Load reads an optional .env file, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every inconsistent setting at once.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.PrimaryPortal) == "" {
		errs = append(errs, errors.New("PRIMARY_PORTAL must not be empty"))
	}
	if c.DBMinConns > c.DBMaxConns {
		errs = append(errs, fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns))
	}
	if c.StoreRetryBaseDelay <= 0 {
		errs = append(errs, errors.New("STORE_RETRY_BASE_DELAY must be positive"))
	}
	if c.StoreRetryMaxDelay < c.StoreRetryBaseDelay {
		errs = append(errs, errors.New("STORE_RETRY_MAX_DELAY is below STORE_RETRY_BASE_DELAY"))
	}
	if c.SentrySampleRate < 0 || c.SentrySampleRate > 1 {
		errs = append(errs, errors.New("SENTRY_TRACES_SAMPLE_RATE must be within [0,1]"))
	}
	if c.ExportInterval < 0 {
		errs = append(errs, errors.New("EXPORT_INTERVAL must not be negative"))
	}
	// half-configured S3 is almost always a typo
	set := 0
	for _, v := range []string{c.S3Endpoint, c.S3AccessKey, c.S3SecretKey} {
		if v != "" {
			set++
		}
	}
	if set != 0 && set != 3 {
		errs = append(errs, errors.New("S3_ENDPOINT, S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY must be set together"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// TracesSampleRate samples everything outside production.
func (c *Config) TracesSampleRate() float64 {
	if !c.IsProduction() {
		return 1.0
	}
	return c.SentrySampleRate
}
