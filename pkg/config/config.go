package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/mealdrop-hq/mealie-importer/pkg/logger"
)

// Config holds the configuration for the importer service
type Config struct {
	MealieBaseURL    string
	MealieAPIToken   string
	MealieTimeout    time.Duration
	PageFetchTimeout time.Duration
	AckTimeout       time.Duration

	OpenAIAPIKey string
	AIModel      string

	DefaultTags []string
	WorkerCount int
	MetricsPort string

	RetryScanInterval time.Duration
	MaxRetryAttempts  int
	RetryStore        string
	RedisAddr         string
	RedisPassword     string
	RedisDB           int

	LoggerConfig LoggerConfig
}

// LoggerConfig holds the configuration for logging
type LoggerConfig struct {
	Level    logger.Level
	Coloring bool
}

// AIEnabled reports whether the AI fallback is configured
func (c *Config) AIEnabled() bool {
	return c.OpenAIAPIKey != ""
}

// LoadConfig loads the configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	mealieBaseURL, err := GetEnvMealieBaseURL()
	if err != nil {
		return nil, err
	}

	mealieTimeout, err := GetEnvMealieTimeout()
	if err != nil {
		return nil, err
	}

	pageFetchTimeout, err := GetEnvPageFetchTimeout()
	if err != nil {
		return nil, err
	}

	ackTimeout, err := GetEnvAckTimeout()
	if err != nil {
		return nil, err
	}

	workerCount, err := GetEnvWorkerCount()
	if err != nil {
		return nil, err
	}

	metricsPort, err := GetEnvMetricsPort()
	if err != nil {
		return nil, err
	}

	retryScanInterval, err := GetEnvRetryScanInterval()
	if err != nil {
		return nil, err
	}

	maxRetryAttempts, err := GetEnvMaxRetryAttempts()
	if err != nil {
		return nil, err
	}

	retryStore, err := GetEnvRetryStore()
	if err != nil {
		return nil, err
	}

	redisDB, err := GetEnvRedisDB()
	if err != nil {
		return nil, err
	}

	logLevel, err := GetEnvLogLevel()
	if err != nil {
		return nil, err
	}

	logColoring, err := GetEnvLogColoring()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		MealieBaseURL:    mealieBaseURL,
		MealieAPIToken:   os.Getenv("MEALIE_API_TOKEN"),
		MealieTimeout:    mealieTimeout,
		PageFetchTimeout: pageFetchTimeout,
		AckTimeout:       ackTimeout,

		OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),
		AIModel:      GetEnvAIModel(),

		DefaultTags: GetEnvDefaultTags(),
		WorkerCount: workerCount,
		MetricsPort: metricsPort,

		RetryScanInterval: retryScanInterval,
		MaxRetryAttempts:  maxRetryAttempts,
		RetryStore:        retryStore,
		RedisAddr:         GetEnvRedisAddr(),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisDB:           redisDB,

		LoggerConfig: LoggerConfig{
			Level:    logLevel,
			Coloring: logColoring,
		},
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if cfg.MealieAPIToken == "" {
		return fmt.Errorf("MEALIE_API_TOKEN environment variable is required")
	}
	if len(cfg.DefaultTags) == 0 {
		return fmt.Errorf("at least one default recipe tag is required")
	}
	return nil
}
