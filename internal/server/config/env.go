package config

import (
	"os"
	"strconv"
	"time"
)

// parseEnv overlays configuration from environment variables. Unset or
// unparsable variables leave the current value in place.
func parseEnv(config *Config) {
	if v := os.Getenv("ENDPOINT_ADDR"); v != "" {
		config.EndpointAddr = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		config.DatabaseDSN = v
	}
	if v := os.Getenv("ENCRYPTION_KEY"); v != "" {
		config.EncryptionKey = v
	}
	if v := os.Getenv("ENCRYPTION_SALT"); v != "" {
		config.EncryptionSalt = v
	}
	if v := os.Getenv("CACHE_ENABLED"); v != "" {
		config.CacheEnabled = v == "true" || v == "1"
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		config.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		config.RedisPassword = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			config.RedisDB = db
		}
	}
	if v := os.Getenv("CACHE_TTL"); v != "" {
		if ttl, err := time.ParseDuration(v); err == nil {
			config.CacheTTL = ttl
		}
	}
	if v := os.Getenv("CLEANUP_INTERVAL"); v != "" {
		if interval, err := time.ParseDuration(v); err == nil {
			config.CleanupInterval = interval
		}
	}
	if v := os.Getenv("CLEANUP_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.CleanupBatchSize = n
		}
	}
}
