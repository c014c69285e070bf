package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mealdrop-hq/mealie-importer/pkg/logger"
)

const (
	// DefaultMealieTimeout is the default timeout for Mealie API requests.
	// Mealie can take a while to scrape a recipe page.
	DefaultMealieTimeout = 60 * time.Second

	// DefaultPageFetchTimeout is the default timeout for fetching a recipe
	// page for AI extraction
	DefaultPageFetchTimeout = 30 * time.Second

	// DefaultAckTimeout is the deadline for acknowledging an import request
	// to the front-end channel
	DefaultAckTimeout = 3 * time.Second

	// DefaultWorkerCount defines the default number of workers to process imports
	DefaultWorkerCount = 5

	// DefaultRetryScanInterval defines how often the retry queue scans for due tasks
	DefaultRetryScanInterval = 30 * time.Second

	// DefaultMaxRetryAttempts defines how many redrive attempts a task gets
	DefaultMaxRetryAttempts = 3

	// DefaultMetricsPort defines the default port for the health and metrics server
	DefaultMetricsPort = "8080"

	// DefaultRecipeTags are assigned to every imported recipe
	DefaultRecipeTags = "Discord Import,Verify"

	// DefaultAIModel is the model used for AI recipe extraction
	DefaultAIModel = "gpt-4o-mini"

	// DefaultRetryStore selects the retry task store backend
	DefaultRetryStore = "memory"

	// DefaultRedisAddr is the default Redis address for the redis retry store
	DefaultRedisAddr = "localhost:6379"
)

// GetEnvMealieBaseURL returns the Mealie base URL from environment variables
func GetEnvMealieBaseURL() (string, error) {
	baseURL := os.Getenv("MEALIE_BASE_URL")
	if baseURL == "" {
		return "", fmt.Errorf("MEALIE_BASE_URL environment variable is required")
	}

	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("invalid MEALIE_BASE_URL value: %s, must be an http(s) URL", baseURL)
	}
	return strings.TrimRight(baseURL, "/"), nil
}

// GetEnvMealieTimeout returns the Mealie request timeout from environment variables
func GetEnvMealieTimeout() (time.Duration, error) {
	return getEnvDuration("MEALIE_TIMEOUT", DefaultMealieTimeout)
}

// GetEnvPageFetchTimeout returns the page fetch timeout from environment variables
func GetEnvPageFetchTimeout() (time.Duration, error) {
	return getEnvDuration("PAGE_FETCH_TIMEOUT", DefaultPageFetchTimeout)
}

// GetEnvAckTimeout returns the front-end acknowledgement deadline from environment variables
func GetEnvAckTimeout() (time.Duration, error) {
	return getEnvDuration("ACK_TIMEOUT", DefaultAckTimeout)
}

// GetEnvRetryScanInterval returns the retry scan interval from environment variables
func GetEnvRetryScanInterval() (time.Duration, error) {
	return getEnvDuration("RETRY_SCAN_INTERVAL", DefaultRetryScanInterval)
}

// GetEnvMaxRetryAttempts returns the maximum redrive attempts from environment variables
func GetEnvMaxRetryAttempts() (int, error) {
	maxAttempts := os.Getenv("MAX_RETRY_ATTEMPTS")
	if maxAttempts == "" {
		return DefaultMaxRetryAttempts, nil
	}

	n, err := strconv.Atoi(maxAttempts)
	if err != nil {
		return 0, fmt.Errorf("invalid MAX_RETRY_ATTEMPTS value: %s, must be an integer", maxAttempts)
	}
	if n <= 0 {
		return 0, fmt.Errorf("MAX_RETRY_ATTEMPTS must be greater than 0")
	}
	return n, nil
}

// GetEnvWorkerCount returns the number of workers from environment variables
func GetEnvWorkerCount() (int, error) {
	workerCount := os.Getenv("WORKER_COUNT")
	if workerCount == "" {
		return DefaultWorkerCount, nil
	}

	count, err := strconv.Atoi(workerCount)
	if err != nil {
		return 0, fmt.Errorf("invalid WORKER_COUNT value: %s, must be an integer", workerCount)
	}
	if count <= 0 {
		return 0, fmt.Errorf("WORKER_COUNT must be greater than 0")
	}
	return count, nil
}

// GetEnvMetricsPort returns the metrics server port from environment variables
func GetEnvMetricsPort() (string, error) {
	metricsPort := os.Getenv("METRICS_PORT")
	if metricsPort == "" {
		return DefaultMetricsPort, nil
	}

	if _, err := strconv.Atoi(metricsPort); err != nil {
		return "", fmt.Errorf("invalid METRICS_PORT value: %s, must be a valid integer", metricsPort)
	}
	return metricsPort, nil
}

// GetEnvDefaultTags returns the default recipe tags from environment variables
func GetEnvDefaultTags() []string {
	raw := os.Getenv("DEFAULT_RECIPE_TAGS")
	if raw == "" {
		raw = DefaultRecipeTags
	}

	var tags []string
	for _, tag := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(tag); trimmed != "" {
			tags = append(tags, trimmed)
		}
	}
	return tags
}

// GetEnvAIModel returns the AI extraction model from environment variables
func GetEnvAIModel() string {
	model := os.Getenv("AI_MODEL")
	if model == "" {
		return DefaultAIModel
	}
	return model
}

// GetEnvRetryStore returns the retry task store backend from environment variables
func GetEnvRetryStore() (string, error) {
	store := os.Getenv("RETRY_STORE")
	if store == "" {
		return DefaultRetryStore, nil
	}
	if store != "memory" && store != "redis" {
		return "", fmt.Errorf("invalid RETRY_STORE value: %s, must be 'memory' or 'redis'", store)
	}
	return store, nil
}

// GetEnvRedisAddr returns the Redis address from environment variables
func GetEnvRedisAddr() string {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return DefaultRedisAddr
	}
	return addr
}

// GetEnvRedisDB returns the Redis database number from environment variables
func GetEnvRedisDB() (int, error) {
	db := os.Getenv("REDIS_DB")
	if db == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(db)
	if err != nil {
		return 0, fmt.Errorf("invalid REDIS_DB value: %s, must be an integer", db)
	}
	return n, nil
}

// GetEnvLogLevel returns the log level from environment variables
func GetEnvLogLevel() (logger.Level, error) {
	level, err := logger.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		return logger.InfoLevel, fmt.Errorf("invalid LOG_LEVEL value: %v", err)
	}
	return level, nil
}

// GetEnvLogColoring returns whether log coloring is enabled from environment variables
func GetEnvLogColoring() (bool, error) {
	return getEnvBool("LOG_COLORING", true)
}

func getEnvDuration(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %s, must be a valid duration string", key, raw)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}
	return parsed, nil
}

func getEnvBool(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	if raw == "true" {
		return true, nil
	}
	if raw == "false" {
		return false, nil
	}
	return false, fmt.Errorf("invalid %s value: %s, must be 'true' or 'false'", key, raw)
}
