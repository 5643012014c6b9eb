package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Attachment policies accepted by ATTACHMENT_POLICY.
const (
	AttachmentPolicyBestEffort = "best-effort"
	AttachmentPolicyStrict     = "strict"
)

type Config struct {
	Port           string        `mapstructure:"PORT"`
	Env            string        `mapstructure:"ENV"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`
	DatabaseURL    string        `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32         `mapstructure:"DB_MIN_CONNS"`
	MigrationsDir  string        `mapstructure:"MIGRATIONS_DIR"`
	CORSOrigins    []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int           `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	BodyLimit      string        `mapstructure:"BODY_LIMIT"`

	BlobDriver     string        `mapstructure:"BLOB_DRIVER"`
	BlobEndpoint   string        `mapstructure:"BLOB_ENDPOINT"`
	BlobAccessKey  string        `mapstructure:"BLOB_ACCESS_KEY"`
	BlobSecretKey  string        `mapstructure:"BLOB_SECRET_KEY"`
	BlobUseSSL     bool          `mapstructure:"BLOB_USE_SSL"`
	BlobRegion     string        `mapstructure:"BLOB_REGION"`
	BlobPresignTTL time.Duration `mapstructure:"BLOB_PRESIGN_TTL"`

	AttachmentMaxSizeMB         int64  `mapstructure:"ATTACHMENT_MAX_SIZE_MB"`
	AttachmentPolicy            string `mapstructure:"ATTACHMENT_POLICY"`
	AttachmentUploadConcurrency int    `mapstructure:"ATTACHMENT_UPLOAD_CONCURRENCY"`
	AttachmentPurgeOnDelete     bool   `mapstructure:"ATTACHMENT_PURGE_ON_DELETE"`
}

var envKeys = []string{
	"PORT",
	"ENV",
	"LOG_LEVEL",
	"DATABASE_URL",
	"DB_MAX_CONNS",
	"DB_MIN_CONNS",
	"MIGRATIONS_DIR",
	"CORS_ORIGINS",
	"RATE_LIMIT_RPS",
	"RATE_LIMIT_BURST",
	"REQUEST_TIMEOUT",
	"BODY_LIMIT",
	"BLOB_DRIVER",
	"BLOB_ENDPOINT",
	"BLOB_ACCESS_KEY",
	"BLOB_SECRET_KEY",
	"BLOB_USE_SSL",
	"BLOB_REGION",
	"BLOB_PRESIGN_TTL",
	"ATTACHMENT_MAX_SIZE_MB",
	"ATTACHMENT_POLICY",
	"ATTACHMENT_UPLOAD_CONCURRENCY",
	"ATTACHMENT_PURGE_ON_DELETE",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("MIGRATIONS_DIR", "./migrations")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("BODY_LIMIT", "100M")
	v.SetDefault("BLOB_DRIVER", "minio")
	v.SetDefault("BLOB_ENDPOINT", "localhost:9000")
	v.SetDefault("BLOB_REGION", "us-east-1")
	v.SetDefault("BLOB_PRESIGN_TTL", "0s")
	v.SetDefault("ATTACHMENT_MAX_SIZE_MB", 10)
	v.SetDefault("ATTACHMENT_POLICY", AttachmentPolicyBestEffort)
	v.SetDefault("ATTACHMENT_UPLOAD_CONCURRENCY", 1)
	v.SetDefault("ATTACHMENT_PURGE_ON_DELETE", false)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range envKeys {
		v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) <= 1 {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() && cfg.BlobDriver == "memory" {
		log.Println("WARNING: BLOB_DRIVER=memory keeps attachments in process memory; they are lost on restart.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// AttachmentMaxSize returns the per-file upload ceiling in bytes.
func (c *Config) AttachmentMaxSize() int64 {
	return c.AttachmentMaxSizeMB * 1024 * 1024
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	switch c.AttachmentPolicy {
	case AttachmentPolicyBestEffort, AttachmentPolicyStrict:
	default:
		return fmt.Errorf("ATTACHMENT_POLICY must be %q or %q, got %q",
			AttachmentPolicyBestEffort, AttachmentPolicyStrict, c.AttachmentPolicy)
	}

	if c.AttachmentMaxSizeMB <= 0 {
		return fmt.Errorf("ATTACHMENT_MAX_SIZE_MB must be positive, got %d", c.AttachmentMaxSizeMB)
	}
	if c.AttachmentUploadConcurrency < 1 {
		return fmt.Errorf("ATTACHMENT_UPLOAD_CONCURRENCY must be at least 1, got %d", c.AttachmentUploadConcurrency)
	}

	switch c.BlobDriver {
	case "memory":
	case "minio":
		if c.BlobEndpoint == "" {
			return fmt.Errorf("BLOB_ENDPOINT is required when BLOB_DRIVER is \"minio\"")
		}
		if c.BlobAccessKey == "" || c.BlobSecretKey == "" {
			return fmt.Errorf("BLOB_ACCESS_KEY and BLOB_SECRET_KEY are required when BLOB_DRIVER is \"minio\"")
		}
	default:
		return fmt.Errorf("BLOB_DRIVER must be \"minio\" or \"memory\", got %q", c.BlobDriver)
	}

	if c.BlobPresignTTL < 0 {
		return fmt.Errorf("BLOB_PRESIGN_TTL must not be negative")
	}

	return nil
}
