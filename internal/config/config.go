// Package config loads process configuration from WEIGHTLOG_ environment variables.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

// Blob drivers.
const (
	DriverFS       = "fs"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverS3       = "s3"
	DriverMemory   = "memory"
)

// Authentication methods.
const (
	AuthPassphrase = "passphrase"
	AuthOIDC       = "oidc"
)

// Config is the full process configuration.
type Config struct {
	Addr   string `env:"ADDR" envDefault:":8080"`
	WebDir string `env:"WEB_DIR"`

	BlobDriver  string `env:"BLOB_DRIVER" envDefault:"fs"`
	DataDir     string `env:"DATA_DIR" envDefault:"./data"`
	SQLitePath  string `env:"SQLITE_PATH"`
	DatabaseURL string `env:"DATABASE_URL"`
	SnapshotKey string `env:"SNAPSHOT_KEY" envDefault:"WeightData"`

	S3 S3 `envPrefix:"S3_"`

	AuthMethod     string        `env:"AUTH_METHOD" envDefault:"passphrase"`
	PassphraseHash string        `env:"PASSPHRASE_HASH"`
	AuthTimeout    time.Duration `env:"AUTH_TIMEOUT" envDefault:"5m"`

	OIDC OIDC `envPrefix:"OIDC_"`

	MetricsEnabled bool   `env:"METRICS_ENABLED" envDefault:"true"`
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat      string `env:"LOG_FORMAT" envDefault:"text"`
}

// S3 configures the s3 blob driver.
type S3 struct {
	Bucket          string `env:"BUCKET"`
	Region          string `env:"REGION" envDefault:"us-east-1"`
	Endpoint        string `env:"ENDPOINT"`
	PathStyle       bool   `env:"PATH_STYLE"`
	Prefix          string `env:"PREFIX"`
	AccessKeyID     string `env:"ACCESS_KEY_ID"`
	SecretAccessKey string `env:"SECRET_ACCESS_KEY"`
}

// OIDC configures the oidc auth method.
type OIDC struct {
	Issuer       string `env:"ISSUER"`
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	Owner        string `env:"OWNER"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "WEIGHTLOG_"}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SQLiteFile returns the database path for the sqlite driver.
func (c Config) SQLiteFile() string {
	if c.SQLitePath != "" {
		return c.SQLitePath
	}
	return filepath.Join(c.DataDir, "weightlog.db")
}

// Validate checks driver and auth settings for consistency.
func (c Config) Validate() error {
	var errs []error

	switch c.BlobDriver {
	case DriverFS:
		if c.DataDir == "" {
			errs = append(errs, errors.New("WEIGHTLOG_DATA_DIR is required for the fs driver"))
		}
	case DriverSQLite, DriverMemory:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("WEIGHTLOG_DATABASE_URL is required for the postgres driver"))
		}
	case DriverS3:
		if c.S3.Bucket == "" {
			errs = append(errs, errors.New("WEIGHTLOG_S3_BUCKET is required for the s3 driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown blob driver %q", c.BlobDriver))
	}

	switch c.AuthMethod {
	case AuthPassphrase, AuthOIDC:
	default:
		errs = append(errs, fmt.Errorf("unknown auth method %q", c.AuthMethod))
	}

	if c.SnapshotKey == "" {
		errs = append(errs, errors.New("WEIGHTLOG_SNAPSHOT_KEY must not be empty"))
	}
	if c.AuthTimeout <= 0 {
		errs = append(errs, errors.New("WEIGHTLOG_AUTH_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}
