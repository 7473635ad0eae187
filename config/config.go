package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
)

var conf = mustLoad()

type Config struct {
	Configuration struct {
		// Upstream API configuration
		BackendAPIURL         string `envconfig:"BACKEND_API_URL" default:"https://api-kurax-demo-jos.uk"`
		BackendTimeoutSeconds int    `envconfig:"BACKEND_TIMEOUT_SECONDS" default:"30"`
		RetryBackoffMs        int    `envconfig:"RETRY_BACKOFF_MS" default:"250"`

		// Cache configuration
		CacheTTLSeconds                    int    `envconfig:"CACHE_TTL_SECONDS" default:"300"`
		CacheMaxEntries                    int    `envconfig:"CACHE_MAX_ENTRIES" default:"1000"`
		CacheInvalidationIntervalInSeconds int    `envconfig:"CACHE_INVALIDATION_INTERVAL_IN_SECONDS" default:"3600"`
		CacheAccessToken                   string `envconfig:"CACHE_ACCESS_TOKEN" default:""`

		// Betting limits enforced locally, before any upstream call.
		// MaxBetAmount is more restrictive than the upstream limit.
		MinBetAmount float64 `envconfig:"MIN_BET_AMOUNT" default:"1"`
		MaxBetAmount float64 `envconfig:"MAX_BET_AMOUNT" default:"5000"`

		// Rate limiting
		RateLimitPerSecond  int `envconfig:"RATE_LIMIT_PER_SECOND" default:"2"`
		RateLimitBurstLimit int `envconfig:"RATE_LIMIT_BURST_LIMIT" default:"5"`

		// Circuit breaker toward the upstream API
		CircuitBreakerThreshold    int `envconfig:"CIRCUIT_BREAKER_THRESHOLD" default:"5"`      // Consecutive failures before circuit opens
		CircuitBreakerCooldownSecs int `envconfig:"CIRCUIT_BREAKER_COOLDOWN_SECS" default:"300"` // Seconds to wait before retrying

		// CORS
		AllowedOrigins string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000,http://127.0.0.1:3000,http://localhost:8080"`
	}

	FeatureFlags struct {
		EnableCache bool `envconfig:"ENABLE_CACHE" default:"true"`
	}
}

// AllowedOriginList splits the configured comma-separated origin list.
func (c Config) AllowedOriginList() []string {
	raw := strings.Split(c.Configuration.AllowedOrigins, ",")
	origins := make([]string, 0, len(raw))
	for _, o := range raw {
		if trimmed := strings.TrimSpace(o); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

// load loads the configuration from the environment.
func load() (Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Warnf("Error loading env config: %v", err)
	}

	cfg := Config{}
	err = envconfig.Process("", &cfg)
	return cfg, err
}

func mustLoad() Config {
	c, err := load()
	if err != nil {
		log.WithError(err).Warnf("Unable to load configuration")
	}

	return c
}

func Get() Config {
	return conf
}
