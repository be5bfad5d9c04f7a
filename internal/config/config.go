package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds every environment-driven setting from spec.md §6.
type Config struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"sectify"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	HTTPPort    int    `env:"HTTP_PORT" envDefault:"8443"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	EnableTracing bool   `env:"ENABLE_TRACING" envDefault:"false"`
	OTLPEndpoint  string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`

	// MasterSecret seeds every derived key (§4.1) and the token signing
	// key; it must never be logged. It is held for the life of the process
	// and is not zeroed on shutdown.
	MasterSecret string `env:"MASTER_SECRET,notEmpty"`

	UploadRoot string `env:"UPLOAD_ROOT" envDefault:"./data/uploads"`
	HLSRoot    string `env:"HLS_ROOT" envDefault:"./data/hls"`

	DBURL          string        `env:"DB_URL,notEmpty"`
	DBMaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	DBMaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"15"`
	DBConnLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`

	TokenTTLAccessMin int `env:"TOKEN_TTL_ACCESS_MIN" envDefault:"30"`
	TokenTTLMFAMin    int `env:"TOKEN_TTL_MFA_MIN" envDefault:"5"`
	TokenMaxAgeSec    int `env:"TOKEN_MAX_AGE_S" envDefault:"86400"`
	ClockSkewSec      int `env:"CLOCK_SKEW_S" envDefault:"30"`

	ReaperIntervalS int `env:"REAPER_INTERVAL_S" envDefault:"120"`
	ReaperAgeS      int `env:"REAPER_AGE_S" envDefault:"600"`

	AccessGrantTTL time.Duration `env:"ACCESS_GRANT_TTL" envDefault:"5m"`
	KeyAliasTTL    time.Duration `env:"KEY_ALIAS_TTL" envDefault:"5m"`

	SegmentDurationS float64 `env:"SEGMENT_DURATION_S" envDefault:"4"`
	PipelineCapacity int     `env:"PIPELINE_CAPACITY" envDefault:"4"`
	WorkerPoolSize   int     `env:"WORKER_POOL_SIZE" envDefault:"0"` // 0 => NumCPU

	LoginFailThreshold int           `env:"LOGIN_FAIL_THRESHOLD" envDefault:"5"`
	LoginFailWindow    time.Duration `env:"LOGIN_FAIL_WINDOW" envDefault:"60s"`

	// StorageBackend selects where ciphertext/HLS artifacts live, the same
	// local/S3 split the teacher used for media objects.
	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"local"` // "local" or "s3"

	S3Endpoint     string `env:"S3_ENDPOINT"`
	S3Region       string `env:"S3_REGION" envDefault:"us-east-1"`
	S3Bucket       string `env:"S3_BUCKET"`
	S3AccessKeyID  string `env:"S3_ACCESS_KEY_ID"`
	S3SecretKey    string `env:"S3_SECRET_ACCESS_KEY"`
	S3UsePathStyle bool   `env:"S3_USE_PATH_STYLE" envDefault:"true"`
}

// Load parses Config from the process environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}

	cfg.S3Bucket = strings.TrimSpace(cfg.S3Bucket)
	cfg.S3AccessKeyID = strings.TrimSpace(cfg.S3AccessKeyID)
	cfg.S3SecretKey = strings.TrimSpace(cfg.S3SecretKey)
	cfg.S3Endpoint = strings.TrimSpace(cfg.S3Endpoint)

	if len(cfg.MasterSecret) < 32 {
		return nil, fmt.Errorf("MASTER_SECRET must be at least 32 bytes, got %d", len(cfg.MasterSecret))
	}
	if cfg.IsS3Storage() && cfg.S3Bucket == "" {
		return nil, fmt.Errorf("S3_BUCKET is required when STORAGE_BACKEND=s3")
	}
	return cfg, nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string { return fmt.Sprintf(":%d", c.HTTPPort) }

// IsLocalStorage reports whether the local filesystem backend is selected.
func (c *Config) IsLocalStorage() bool {
	return strings.ToLower(strings.TrimSpace(c.StorageBackend)) == "local"
}

// IsS3Storage reports whether the S3-compatible backend is selected.
func (c *Config) IsS3Storage() bool {
	return strings.ToLower(strings.TrimSpace(c.StorageBackend)) == "s3"
}

// AccessTokenTTL returns the access token lifetime.
func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.TokenTTLAccessMin) * time.Minute
}

// MFATokenTTL returns the MFA token lifetime.
func (c *Config) MFATokenTTL() time.Duration {
	return time.Duration(c.TokenTTLMFAMin) * time.Minute
}
