package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port              string
	DBPath            string
	BackendURL        string // empty = in-memory mock backend
	BackendToken      string
	BackendTimeoutSec int
}

func Load() AppConfig {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Printf("[cfg] No .env file found or error loading: %v", err)
	}

	get := func(k, def string) string {
		if v := os.Getenv(k); v != "" {
			return v
		}
		return def
	}
	timeout, err := strconv.Atoi(get("BACKEND_TIMEOUT_SEC", "25"))
	if err != nil || timeout <= 0 {
		timeout = 25
	}
	cfg := AppConfig{
		Port:              get("PORT", "8080"),
		DBPath:            get("DB_PATH", "fieldops.db"),
		BackendURL:        get("BACKEND_URL", ""),
		BackendToken:      get("BACKEND_TOKEN", ""),
		BackendTimeoutSec: timeout,
	}
	log.Printf("[cfg] port=%s db=%s backend=%s", cfg.Port, cfg.DBPath, cfg.BackendURL)
	return cfg
}
