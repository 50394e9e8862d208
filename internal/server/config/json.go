package config

import (
	"encoding/json"
	"os"

	"github.com/0101Programmer/one-time-secrets/internal/flagx"
	"github.com/0101Programmer/one-time-secrets/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for interval fields, which allows
// parsing both string values such as "5m" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON
// configuration files. After unmarshalling, its set fields are copied into
// the runtime Config struct which uses time.Duration.
type JsonConfig struct {
	EndpointAddr     string         `json:"endpoint_addr"`
	DatabaseDSN      string         `json:"database_dsn"`
	EncryptionKey    string         `json:"encryption_key"`
	EncryptionSalt   string         `json:"encryption_salt"`
	CacheEnabled     *bool          `json:"cache_enabled"`
	RedisAddr        string         `json:"redis_addr"`
	RedisPassword    string         `json:"redis_password"`
	RedisDB          *int           `json:"redis_db"`
	CacheTTL         timex.Duration `json:"cache_ttl"`
	CleanupInterval  timex.Duration `json:"cleanup_interval"`
	CleanupBatchSize int            `json:"cleanup_batch_size"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The file path comes from the -c or -config command-line flags; when
// neither is set, no JSON file is loaded. Fields absent from the file keep
// their current values. If the file cannot be read or contains invalid
// JSON, the function panics.
func parseJson(config *Config) {
	// try flags
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	if c.EndpointAddr != "" {
		config.EndpointAddr = c.EndpointAddr
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.EncryptionKey != "" {
		config.EncryptionKey = c.EncryptionKey
	}
	if c.EncryptionSalt != "" {
		config.EncryptionSalt = c.EncryptionSalt
	}
	if c.CacheEnabled != nil {
		config.CacheEnabled = *c.CacheEnabled
	}
	if c.RedisAddr != "" {
		config.RedisAddr = c.RedisAddr
	}
	if c.RedisPassword != "" {
		config.RedisPassword = c.RedisPassword
	}
	if c.RedisDB != nil {
		config.RedisDB = *c.RedisDB
	}
	if c.CacheTTL != 0 {
		config.CacheTTL = c.CacheTTL.Std()
	}
	if c.CleanupInterval != 0 {
		config.CleanupInterval = c.CleanupInterval.Std()
	}
	if c.CleanupBatchSize != 0 {
		config.CleanupBatchSize = c.CleanupBatchSize
	}
}
