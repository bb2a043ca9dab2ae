package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"github.com/wb-go/wbf/zlog"
)

// Config holds the main configuration for the application.
type Config struct {
	Server     Server     `mapstructure:"server"`
	Processing Processing `mapstructure:"processing"`
	Results    Results    `mapstructure:"results"`
	Storage    Storage    `mapstructure:"storage"`
	Kafka      Kafka      `mapstructure:"kafka"`
	Retry      Retry      `mapstructure:"retry"`
	Metrics    Metrics    `mapstructure:"metrics"`
}

// Server holds HTTP server-related configuration.
type Server struct {
	HTTPPort string `mapstructure:"http_port" validate:"required"` // HTTP address to listen on
}

// Processing holds the scheduler and pipeline limits.
type Processing struct {
	MaxConcurrentJobs int           `mapstructure:"max_concurrent_jobs" validate:"min=1"`
	MaxQueueLength    int           `mapstructure:"max_queue_length" validate:"min=0"` // 0 is unbounded
	JobTimeout        time.Duration `mapstructure:"job_timeout" validate:"gte=0"`      // 0 disables the timeout
	MaxImageBytes     int64         `mapstructure:"max_image_bytes" validate:"min=1"`
	MaxImageDimension int           `mapstructure:"max_image_dimension" validate:"min=1"`
	MaxFrames         int           `mapstructure:"max_frames" validate:"min=1"`
	MaxDecodedPixels  int64         `mapstructure:"max_decoded_pixels" validate:"min=1"`
	FrameWorkers      int           `mapstructure:"frame_workers" validate:"min=1"` // goroutines per frame and per LUT build
	LUTCacheSize      int           `mapstructure:"lut_cache_size" validate:"min=1"`
}

// Results holds how long finished job results stay queryable.
type Results struct {
	TTL             time.Duration `mapstructure:"ttl" validate:"gt=0"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" validate:"gt=0"`
}

// Storage holds configuration for the object storage backend.
type Storage struct {
	Enabled    bool   `mapstructure:"enabled"`
	Endpoint   string `mapstructure:"endpoint" validate:"required_if=Enabled true"`
	AccessKey  string `mapstructure:"access_key"`
	SecretKey  string `mapstructure:"secret_key"`
	BucketName string `mapstructure:"bucket_name" validate:"required_if=Enabled true"`
	UseSSL     bool   `mapstructure:"use_ssl"`
}

// Kafka holds configuration for the request and events topics.
type Kafka struct {
	Enabled        bool          `mapstructure:"enabled"`
	GroupID        string        `mapstructure:"group_id" validate:"required_if=Enabled true"` // Consumer group ID
	RequestTopic   string        `mapstructure:"request_topic" validate:"required_if=Enabled true"`
	EventsTopic    string        `mapstructure:"events_topic" validate:"required_if=Enabled true"`
	Brokers        []string      `mapstructure:"brokers" validate:"required_if=Enabled true"` // List of Kafka broker addresses
	PublishTimeout time.Duration `mapstructure:"publish_timeout" validate:"gte=0"`
}

// Retry defines retry policy configuration.
type Retry struct {
	Attempts int           `mapstructure:"attempts" validate:"min=1"` // Number of retry attempts
	Delay    time.Duration `mapstructure:"delay"`                     // Initial delay between retries
	Backoff  float64       `mapstructure:"backoff"`                   // Backoff multiplier for delays
}

// Metrics holds the Prometheus endpoint configuration.
type Metrics struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    string `mapstructure:"port" validate:"required_if=Enabled true"`
}

var defaults = map[string]any{
	"server.http_port": ":8080",

	"processing.max_concurrent_jobs": 4,
	"processing.max_queue_length":    100,
	"processing.job_timeout":         5 * time.Minute,
	"processing.max_image_bytes":     8 << 20,
	"processing.max_image_dimension": 4096,
	"processing.max_frames":          500,
	"processing.max_decoded_pixels":  1 << 26,
	"processing.frame_workers":       4,
	"processing.lut_cache_size":      16,

	"results.ttl":              time.Hour,
	"results.cleanup_interval": 10 * time.Minute,

	"storage.enabled":     false,
	"storage.endpoint":    "",
	"storage.access_key":  "",
	"storage.secret_key":  "",
	"storage.bucket_name": "catppuccinifier",
	"storage.use_ssl":     false,

	"kafka.enabled":         false,
	"kafka.group_id":        "catppuccinifier",
	"kafka.request_topic":   "catppuccinifier.requests",
	"kafka.events_topic":    "catppuccinifier.events",
	"kafka.brokers":         []string{},
	"kafka.publish_timeout": 10 * time.Second,

	"retry.attempts": 3,
	"retry.delay":    100 * time.Millisecond,
	"retry.backoff":  2.0,

	"metrics.enabled": true,
	"metrics.port":    ":9090",
}

// envBindings maps secrets to conventional environment variable names.
var envBindings = map[string]string{
	"storage.access_key": "MINIO_ACCESS_KEY",
	"storage.secret_key": "MINIO_SECRET_KEY",
	"kafka.brokers":      "KAFKA_BROKERS",
}

// Load reads the YAML file at path, applies defaults and environment
// overrides (CATPPUCCINIFIER_PROCESSING_JOB_TIMEOUT and the like) and
// validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()

	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("catppuccinifier")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind env %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads the configuration from the specified file path.
// It panics if the configuration cannot be loaded or is invalid.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		zlog.Logger.Panic().Err(err).Str("path", path).Msg("failed to load config")
	}

	return cfg
}

// Validate checks the field constraints.
func (c Config) Validate() error {
	return validator.New().Struct(c)
}
