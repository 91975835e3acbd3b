// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ListenAddr        string
	DBPath            string
	SecretKey         string
	FeedWindow        time.Duration
	RetentionInterval time.Duration
	CrosspostWorkers  int
	CrosspostTimeout  time.Duration
	StatusCafeBaseURL string
}

// HasSecretKey reports whether credential encryption is configured. Without
// it the app runs, but storing network credentials is rejected.
func (c *Config) HasSecretKey() bool {
	return c.SecretKey != ""
}

// Load reads configuration from environment variables and returns a validated
// Config. DRIFTNOTE_SECRET_KEY is optional; without it credential storage is
// disabled. Optional variables with defaults: DRIFTNOTE_LISTEN_ADDR
// (127.0.0.1:8080), DRIFTNOTE_DB_PATH (driftnote.db), DRIFTNOTE_FEED_WINDOW
// (48h), DRIFTNOTE_RETENTION_INTERVAL (1h), DRIFTNOTE_CROSSPOST_WORKERS (2),
// DRIFTNOTE_CROSSPOST_TIMEOUT (12s), DRIFTNOTE_STATUSCAFE_BASE_URL
// (https://status.cafe).
func Load() (*Config, error) {
	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("DRIFTNOTE_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "driftnote.db"
	if v, ok := os.LookupEnv("DRIFTNOTE_DB_PATH"); ok {
		dbPath = v
	}

	secretKey := os.Getenv("DRIFTNOTE_SECRET_KEY")

	feedWindow := 48 * time.Hour
	if v, ok := os.LookupEnv("DRIFTNOTE_FEED_WINDOW"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("DRIFTNOTE_FEED_WINDOW has invalid duration %q: %w", v, err)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("DRIFTNOTE_FEED_WINDOW must be positive, got %q", v)
		}
		feedWindow = parsed
	}

	retentionInterval := time.Hour
	if v, ok := os.LookupEnv("DRIFTNOTE_RETENTION_INTERVAL"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("DRIFTNOTE_RETENTION_INTERVAL has invalid duration %q: %w", v, err)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("DRIFTNOTE_RETENTION_INTERVAL must be positive, got %q", v)
		}
		retentionInterval = parsed
	}

	crosspostWorkers := 2
	if v, ok := os.LookupEnv("DRIFTNOTE_CROSSPOST_WORKERS"); ok {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			return nil, fmt.Errorf("DRIFTNOTE_CROSSPOST_WORKERS must be a positive integer, got %q", v)
		}
		crosspostWorkers = parsed
	}

	crosspostTimeout := 12 * time.Second
	if v, ok := os.LookupEnv("DRIFTNOTE_CROSSPOST_TIMEOUT"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("DRIFTNOTE_CROSSPOST_TIMEOUT has invalid duration %q: %w", v, err)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("DRIFTNOTE_CROSSPOST_TIMEOUT must be positive, got %q", v)
		}
		crosspostTimeout = parsed
	}

	statusCafeBaseURL := "https://status.cafe"
	if v, ok := os.LookupEnv("DRIFTNOTE_STATUSCAFE_BASE_URL"); ok {
		statusCafeBaseURL = v
	}

	return &Config{
		ListenAddr:        listenAddr,
		DBPath:            dbPath,
		SecretKey:         secretKey,
		FeedWindow:        feedWindow,
		RetentionInterval: retentionInterval,
		CrosspostWorkers:  crosspostWorkers,
		CrosspostTimeout:  crosspostTimeout,
		StatusCafeBaseURL: statusCafeBaseURL,
	}, nil
}
