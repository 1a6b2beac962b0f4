package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the predictd server.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Feed       FeedConfig
	Predict    PredictConfig
	Pipeline   PipelineConfig
	ModelCache ModelCacheConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

type FeedConfig struct {
	Provider string
	HTTP     HTTPFeedConfig
}

type HTTPFeedConfig struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
}

type PredictConfig struct {
	Provider         string
	InferenceTimeout time.Duration
	ShortTermModel   string
	LongTermModel    string
	HTTP             HTTPPredictConfig
}

type HTTPPredictConfig struct {
	BaseURL string
	Timeout time.Duration
}

type PipelineConfig struct {
	Workers   int
	QueueSize int
}

type ModelCacheConfig struct {
	TTL time.Duration // zero means entries never expire
}

var validProviders = map[string]bool{
	"http": true,
	"mock": true,
}

// Load reads configuration from environment variables and returns a validated
// Config. Returns an error with a descriptive message if any required value is
// missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("PREDICTD_PORT", 8080),
			Env:  envString("PREDICTD_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Feed: FeedConfig{
			Provider: envString("FEED_PROVIDER", "http"),
			HTTP: HTTPFeedConfig{
				BaseURL:  os.Getenv("FEED_BASE_URL"),
				Username: os.Getenv("FEED_USERNAME"),
				Password: os.Getenv("FEED_PASSWORD"),
				Timeout:  envDuration("FEED_TIMEOUT", 30*time.Second),
			},
		},
		Predict: PredictConfig{
			Provider:         envString("PREDICT_PROVIDER", "http"),
			InferenceTimeout: envDuration("PREDICT_INFERENCE_TIMEOUT", 60*time.Second),
			ShortTermModel:   envString("PREDICT_SHORT_TERM_MODEL", "lstm-short-v1"),
			LongTermModel:    envString("PREDICT_LONG_TERM_MODEL", "lstm-long-v1"),
			HTTP: HTTPPredictConfig{
				BaseURL: os.Getenv("PREDICT_BASE_URL"),
				Timeout: envDuration("PREDICT_TIMEOUT", 60*time.Second),
			},
		},
		Pipeline: PipelineConfig{
			Workers:   envInt("PIPELINE_WORKERS", 4),
			QueueSize: envInt("PIPELINE_QUEUE_SIZE", 256),
		},
		ModelCache: ModelCacheConfig{
			TTL: envDuration("MODEL_CACHE_TTL", 0),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if !validProviders[c.Feed.Provider] {
		return fmt.Errorf("FEED_PROVIDER must be one of http, mock; got %q", c.Feed.Provider)
	}
	if c.Feed.Provider == "http" {
		if c.Feed.HTTP.BaseURL == "" {
			return fmt.Errorf("FEED_BASE_URL is required when FEED_PROVIDER is http")
		}
		if !strings.HasPrefix(c.Feed.HTTP.BaseURL, "http://") && !strings.HasPrefix(c.Feed.HTTP.BaseURL, "https://") {
			return fmt.Errorf("FEED_BASE_URL must start with http:// or https://, got %q", c.Feed.HTTP.BaseURL)
		}
	}

	if !validProviders[c.Predict.Provider] {
		return fmt.Errorf("PREDICT_PROVIDER must be one of http, mock; got %q", c.Predict.Provider)
	}
	if c.Predict.Provider == "http" && c.Predict.HTTP.BaseURL == "" {
		return fmt.Errorf("PREDICT_BASE_URL is required when PREDICT_PROVIDER is http")
	}

	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("PIPELINE_WORKERS must be at least 1, got %d", c.Pipeline.Workers)
	}
	if c.Pipeline.QueueSize < 1 {
		return fmt.Errorf("PIPELINE_QUEUE_SIZE must be at least 1, got %d", c.Pipeline.QueueSize)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
