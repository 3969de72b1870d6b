package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr            string
	DataDir         string
	DBPath          string
	LogLevel        string
	LogWorkerCount  int
	LogQueueSize    int
	RateLimitPerSec float64
	RateLimitBurst  int

	// Tournament defaults applied when no persisted bracket exists.
	TourFormat   string
	TourBestOf   int
	TourPlayers  []string
	TourShuffle  bool
	TourAutoInit bool
}

// Load reads configuration from a .env file (if present) and environment
// variables, applying sensible defaults when values are missing or invalid.
func Load() Config {
	// Ignore error so the app still starts when .env is absent in production.
	_ = godotenv.Load()

	return Config{
		Addr:            envOr("ADDR", ":8080"),
		DataDir:         envOr("DATA_DIR", "data"),
		DBPath:          envOr("DB_PATH", "file:battles.db"),
		LogLevel:        envOr("LOG_LEVEL", "INFO"),
		LogWorkerCount:  envIntOr("LOG_WORKER_COUNT", 2),
		LogQueueSize:    envIntOr("LOG_QUEUE_SIZE", 64),
		RateLimitPerSec: float64(envIntOr("RATE_LIMIT_PER_SEC", 20)),
		RateLimitBurst:  envIntOr("RATE_LIMIT_BURST", 40),

		TourFormat:   envOr("TOUR_FORMAT", "gen1ou"),
		TourBestOf:   envIntOr("TOUR_BEST_OF", 1),
		TourPlayers:  envListOr("TOUR_PLAYERS", nil),
		TourShuffle:  envBoolOr("TOUR_SHUFFLE", false),
		TourAutoInit: envBoolOr("TOUR_AUTO_INIT", false),
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
		log.Printf("invalid value for %s=%q, using default %d", key, v, def)
	}
	return def
}

func envBoolOr(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		log.Printf("invalid value for %s=%q, using default %t", key, v, def)
	}
	return def
}

func envListOr(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
