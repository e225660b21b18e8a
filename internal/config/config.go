// Package config reads process configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// GetEnv retrieves the value of an environment variable with a fallback value if not set
func GetEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// GetEnvDuration retrieves a duration-valued environment variable with a
// fallback when unset or unparseable
func GetEnvDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

// GetEnvInt retrieves an integer-valued environment variable with a fallback
// when unset or unparseable
func GetEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}

// Server holds the API process configuration.
type Server struct {
	Port string
}

// NewServer reads the API configuration from the environment.
func NewServer() Server {
	return Server{
		Port: GetEnv("ATELIER_PORT", "8080"),
	}
}

// ListenAddr returns the address the API binds to.
func (s Server) ListenAddr() string {
	return fmt.Sprintf(":%s", s.Port)
}

// Worker holds the worker loop configuration.
type Worker struct {
	PollInterval  time.Duration
	StaleAge      time.Duration
	StaleInterval time.Duration
	IdleSeedAfter time.Duration
	MaxAttempts   int
	BaseBackoff   time.Duration
	MaxBackoff    time.Duration
}

// NewWorker reads the worker configuration from the environment.
func NewWorker() Worker {
	return Worker{
		PollInterval:  GetEnvDuration("WORKER_POLL_INTERVAL", 500*time.Millisecond),
		StaleAge:      GetEnvDuration("WORKER_STALE_AGE", 10*time.Minute),
		StaleInterval: GetEnvDuration("WORKER_STALE_INTERVAL", time.Minute),
		IdleSeedAfter: GetEnvDuration("WORKER_IDLE_SEED_AFTER", 30*time.Second),
		MaxAttempts:   GetEnvInt("QUEUE_MAX_ATTEMPTS", 3),
		BaseBackoff:   GetEnvDuration("QUEUE_BASE_BACKOFF", 2*time.Second),
		MaxBackoff:    GetEnvDuration("QUEUE_MAX_BACKOFF", 5*time.Minute),
	}
}
