package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port                     string
	DatabaseURL              string
	NotifyInterval           time.Duration
	NotifyBatchSize          int
	RealtimePollInterval     time.Duration
	RealtimeBatchSize        int
	ReconcileInterval        time.Duration
	RateLimitPerMinute       int
	RateLimitBurst           int
	CenterRateLimitPerMinute int
	CenterRateLimitBurst     int
}

func Load() Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	return Config{
		Port:                     port,
		DatabaseURL:              os.Getenv("DB_DSN"),
		NotifyInterval:           readDurationMillis("NOTIFY_POLL_INTERVAL_MS", 2000),
		NotifyBatchSize:          readInt("NOTIFY_BATCH_SIZE", 50),
		RealtimePollInterval:     readDurationMillis("REALTIME_POLL_INTERVAL_MS", 500),
		RealtimeBatchSize:        readInt("REALTIME_BATCH_SIZE", 100),
		ReconcileInterval:        readDurationMillis("RECONCILE_INTERVAL_MS", 5000),
		RateLimitPerMinute:       readInt("RATE_LIMIT_PER_MIN", 120),
		RateLimitBurst:           readInt("RATE_LIMIT_BURST", 30),
		CenterRateLimitPerMinute: readInt("CENTER_RATE_LIMIT_PER_MIN", 600),
		CenterRateLimitBurst:     readInt("CENTER_RATE_LIMIT_BURST", 120),
	}
}

func readDurationMillis(key string, fallback int) time.Duration {
	value := readInt(key, fallback)
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Millisecond
}

func readInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
