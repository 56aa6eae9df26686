// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrRawBucketRequired is returned when RAW_BUCKET is not set.
	ErrRawBucketRequired = errors.New("config: RAW_BUCKET is required")
	// ErrProcessedBucketRequired is returned when PROCESSED_BUCKET is not set.
	ErrProcessedBucketRequired = errors.New("config: PROCESSED_BUCKET is required")
	// ErrInvalidTargetHeight is returned when TARGET_HEIGHT is not positive.
	ErrInvalidTargetHeight = errors.New("config: TARGET_HEIGHT must be positive")
	// ErrInvalidDuration is returned when a duration setting is negative.
	ErrInvalidDuration = errors.New("config: durations must not be negative")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port               int      `env:"PORT, default=8080" json:"port"`
	RateLimitPerMinute int      `env:"RATE_LIMIT_PER_MINUTE, default=60" json:"rate_limit_per_minute"`
	AllowedOrigins     []string `env:"ALLOWED_ORIGINS, default=*" json:"allowed_origins"`

	// Local stage directories
	RawStageDir       string `env:"RAW_STAGE_DIR, default=./raw-videos" json:"raw_stage_dir"`
	ProcessedStageDir string `env:"PROCESSED_STAGE_DIR, default=./processed-videos" json:"processed_stage_dir"`

	// Object storage settings
	RawBucket          string        `env:"RAW_BUCKET, required" json:"raw_bucket"`
	ProcessedBucket    string        `env:"PROCESSED_BUCKET, required" json:"processed_bucket"`
	S3Region           string        `env:"S3_REGION, default=us-east-1" json:"s3_region"`
	S3Endpoint         string        `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	AWSAccessKeyID     string        `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string        `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON
	UploadURLTTL       time.Duration `env:"UPLOAD_URL_TTL, default=15m" json:"upload_url_ttl"`

	// Transcoding settings
	FFmpegPath       string        `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path"`
	TargetHeight     int           `env:"TARGET_HEIGHT, default=360" json:"target_height"`
	TranscodeTimeout time.Duration `env:"TRANSCODE_TIMEOUT, default=30m" json:"transcode_timeout"`

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// Load reads configuration from environment variables using go-envconfig.
// It returns an error if required variables are not set or values are invalid.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		// Map envconfig errors to our domain errors for required fields
		if strings.Contains(err.Error(), "PROCESSED_BUCKET") {
			return nil, ErrProcessedBucketRequired
		}
		if strings.Contains(err.Error(), "RAW_BUCKET") {
			return nil, ErrRawBucketRequired
		}
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration is present and sane.
func (c *Config) Validate() error {
	if c.RawBucket == "" {
		return ErrRawBucketRequired
	}
	if c.ProcessedBucket == "" {
		return ErrProcessedBucketRequired
	}
	if c.TargetHeight <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidTargetHeight, c.TargetHeight)
	}
	if c.TranscodeTimeout < 0 || c.UploadURLTTL < 0 {
		return ErrInvalidDuration
	}
	return nil
}

// StaticCredentials returns true if an explicit access key pair is configured.
func (c *Config) StaticCredentials() bool {
	return c.AWSAccessKeyID != "" && c.AWSSecretAccessKey != ""
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, RawStageDir: %s, ProcessedStageDir: %s, RawBucket: %s, ProcessedBucket: %s, S3Region: %s, S3Endpoint: %s, FFmpegPath: %s, TargetHeight: %d, TranscodeTimeout: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.RawStageDir,
		c.ProcessedStageDir,
		c.RawBucket,
		c.ProcessedBucket,
		c.S3Region,
		c.S3Endpoint,
		c.FFmpegPath,
		c.TargetHeight,
		c.TranscodeTimeout,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
