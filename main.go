package main

import (
	"net/http"
	"os"
	"time"

	"betting-bff-go/cache"
	"betting-bff-go/config"
	"betting-bff-go/middleware"
	"betting-bff-go/services/aggregate"
	"betting-bff-go/services/backend"
	"betting-bff-go/stats"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

var conf = config.Get()

func init() {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.InfoLevel) // Set to InfoLevel (change to DebugLevel for detailed logs)

	err := godotenv.Load()
	if err != nil {
		log.Warn("Error loading .env file, using environment variables")
	}
}

func main() {
	cfg := conf.Configuration

	store := cache.New(cfg.CacheMaxEntries, time.Duration(cfg.CacheTTLSeconds)*time.Second)
	serviceStats := stats.New()

	client := backend.New(backend.Options{
		BaseURL:          cfg.BackendAPIURL,
		Timeout:          time.Duration(cfg.BackendTimeoutSeconds) * time.Second,
		Cache:            store,
		Stats:            serviceStats,
		CacheTTL:         time.Duration(cfg.CacheTTLSeconds) * time.Second,
		RetryBackoff:     time.Duration(cfg.RetryBackoffMs) * time.Millisecond,
		EnableCache:      conf.FeatureFlags.EnableCache,
		BreakerThreshold: cfg.CircuitBreakerThreshold,
		BreakerCooldown:  time.Duration(cfg.CircuitBreakerCooldownSecs) * time.Second,
	})
	aggregator := aggregate.New(client, serviceStats)

	// start goroutine to sweep expired cache entries
	stop := make(chan struct{})
	go store.Janitor(time.Duration(cfg.CacheInvalidationIntervalInSeconds)*time.Second, stop)

	s := newServer(conf, store, serviceStats, client, aggregator)

	router := mux.NewRouter()
	setupRoutes(router, s)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   conf.AllowedOriginList(),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	limiter := middleware.NewIPRateLimiter(rate.Limit(cfg.RateLimitPerSecond), cfg.RateLimitBurstLimit)

	// logging middleware
	loggedRouter := middleware.LoggingMiddleware(router)
	// chain cors middleware
	corsHandler := c.Handler(loggedRouter)
	// chain rate limiter
	handler := middleware.RateLimitMiddleware(corsHandler, limiter)

	log.Infof("Server listening on port %s", port)
	log.Fatal(http.ListenAndServe(":"+port, handler))
}
