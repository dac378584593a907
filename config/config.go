package config

import (
	"os"
	"strconv"
	"time"

	"sjsage522/pricecheckworker/pkg/errors"
)

// DefaultUserAgent is the desktop browser signature sent with every search
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Config represents the application configuration
type Config struct {
	// Files, set from flags or prompts
	InputPath  string
	OutputPath string

	// Search configuration
	SearchBaseURL  string
	UserAgent      string
	AcceptLanguage string
	HTTPTimeout    time.Duration

	// Batch configuration
	MinDelay        time.Duration
	MaxDelay        time.Duration
	CheckpointEvery int
	ErrorLogFile    string

	// Memcache configuration
	MemcacheAddr   string
	CacheTTL       time.Duration
	RateLimitBlock time.Duration

	// Redis configuration
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamCount     int
	RedisStreamMaxLength int

	// Metrics
	MetricsPort string

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() Config {
	return Config{
		SearchBaseURL:        getEnv("SEARCH_BASE_URL", "https://listado.mercadolibre.com.ar"),
		UserAgent:            getEnv("USER_AGENT", DefaultUserAgent),
		AcceptLanguage:       getEnv("ACCEPT_LANGUAGE", "es-ES,es;q=0.9"),
		HTTPTimeout:          getSeconds("HTTP_TIMEOUT_SECONDS", 0),
		MinDelay:             getSeconds("MIN_DELAY_SECONDS", 2),
		MaxDelay:             getSeconds("MAX_DELAY_SECONDS", 5),
		CheckpointEvery:      getInt("CHECKPOINT_EVERY", 5),
		ErrorLogFile:         getEnv("ERROR_LOG_FILE", "pricecheck_errors.log"),
		MemcacheAddr:         os.Getenv("MEMCACHE_ADDR"),
		CacheTTL:             getSeconds("CACHE_TTL_SECONDS", 3600),
		RateLimitBlock:       getSeconds("RATE_LIMIT_BLOCK_SECONDS", 300),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		RedisDB:              getInt("REDIS_DB", 0),
		RedisStream:          getEnv("REDIS_STREAM", "pricecheck"),
		RedisStreamCount:     getInt("REDIS_STREAM_COUNT", 1),
		RedisStreamMaxLength: getInt("REDIS_STREAM_MAX_LENGTH", 1000),
		MetricsPort:          os.Getenv("METRICS_PORT"),
		Environment:          getEnv("PRICECHECK_ENVIRONMENT", "development"),
	}
}

// Validate checks the configuration for values the worker cannot run with
func (c *Config) Validate() error {
	if c.SearchBaseURL == "" {
		return errors.NewConfiguration("SEARCH_BASE_URL must not be empty", nil)
	}
	if c.MinDelay < 0 || c.MaxDelay < 0 {
		return errors.NewConfiguration("delays must not be negative", nil)
	}
	if c.MinDelay > c.MaxDelay {
		return errors.NewConfiguration("MIN_DELAY_SECONDS must not exceed MAX_DELAY_SECONDS", nil)
	}
	if c.CheckpointEvery < 1 {
		return errors.NewConfiguration("CHECKPOINT_EVERY must be at least 1", nil)
	}
	if c.RedisAddr != "" && c.RedisStreamCount < 1 {
		return errors.NewConfiguration("REDIS_STREAM_COUNT must be at least 1", nil)
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(getEnv(key, strconv.Itoa(defaultValue)))
	if err != nil {
		return defaultValue
	}
	return n
}

// getSeconds reads a duration given in (possibly fractional) seconds
func getSeconds(key string, defaultValue float64) time.Duration {
	secs, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		secs = defaultValue
	}
	return time.Duration(secs * float64(time.Second))
}
