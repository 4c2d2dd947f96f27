// internal/config/config.go
//
// Application configuration, read from environment variables with
// sensible defaults. Invalid values fall back to the default rather
// than failing startup.

package config

import (
	"os"
	"strconv"
	"time"

	"github.com/zdig1/vache-taureau/internal/game"
)

// Config holds application configuration.
type Config struct {
	Addr           string        // listen address
	DBPath         string        // SQLite database path
	ClientOrigin   string        // CORS origin for the web client
	DefaultLevel   int           // starting difficulty when none persisted
	ScoresPerLevel int           // score table bound per level
	PendingMax     int           // sync backlog cap
	SyncInterval   time.Duration // backlog retry period
	RemoteURL      string        // remote score endpoint; empty disables sync
	RemoteToken    string        // opaque credential handed to the transport
	IdentitySecret string        // HS256 key for the player cookie
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Addr:           ":" + getEnv("PORT", "5175"),
		DBPath:         getEnv("DB_PATH", "./data/vache.db"),
		ClientOrigin:   getEnv("CLIENT_ORIGIN", "http://localhost:5173"),
		DefaultLevel:   getEnvLevel("DEFAULT_LEVEL", game.DefaultLevel),
		ScoresPerLevel: getEnvInt("SCORES_PER_LEVEL", 10),
		PendingMax:     getEnvInt("PENDING_MAX", 50),
		SyncInterval:   getEnvDuration("SYNC_INTERVAL", time.Minute),
		RemoteURL:      os.Getenv("REMOTE_URL"),
		RemoteToken:    os.Getenv("REMOTE_TOKEN"),
		IdentitySecret: getEnv("IDENTITY_SECRET", "dev_secret_change_me"),
	}
}

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func getEnvLevel(k string, def int) int {
	if n := getEnvInt(k, def); game.ValidLevel(n) {
		return n
	}
	return def
}

func getEnvDuration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}
