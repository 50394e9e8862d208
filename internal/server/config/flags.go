package config

import (
	"flag"
	"os"
	"time"

	"github.com/0101Programmer/one-time-secrets/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-k string   encryption key material
//	-s string   encryption salt
//	-m          enable the Redis read cache
//	-r string   Redis address (e.g., "localhost:6379")
//	-w string   Redis password
//	-n int      Redis database number
//	-t int      cache TTL, seconds
//	-i int      cleanup interval, minutes
//	-b int      cleanup batch size
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes using
//     flagx.FilterArgs, avoiding collisions with other components.
//   - Duration flags are accepted as integers and then converted to
//     time.Duration values.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-k", "-s", "-m", "-r", "-w", "-n", "-t", "-i", "-b"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.EncryptionKey, "k", config.EncryptionKey, "encryption key material")
	fs.StringVar(&config.EncryptionSalt, "s", config.EncryptionSalt, "encryption salt")
	fs.BoolVar(&config.CacheEnabled, "m", config.CacheEnabled, "enable Redis read cache")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "Redis address")
	fs.StringVar(&config.RedisPassword, "w", config.RedisPassword, "Redis password")
	fs.IntVar(&config.RedisDB, "n", config.RedisDB, "Redis database number")

	cacheTTL := fs.Int("t", int(config.CacheTTL.Seconds()), "cache_ttl (in seconds)")
	cleanupInterval := fs.Int("i", int(config.CleanupInterval.Minutes()), "cleanup_interval (in minutes)")

	fs.IntVar(&config.CleanupBatchSize, "b", config.CleanupBatchSize, "cleanup batch size")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.CacheTTL = time.Duration(*cacheTTL) * time.Second
	config.CleanupInterval = time.Duration(*cleanupInterval) * time.Minute
}
