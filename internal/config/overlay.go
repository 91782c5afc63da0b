package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads a .env file into the process environment. A missing file
// is not an error.
func LoadDotEnv(paths ...string) error {
	err := godotenv.Load(paths...)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// OverlayEnv lets the environment override deployment specific settings.
func OverlayEnv(cfg *Config) {
	setString := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	setString(&cfg.Proxy.URL, "SCRAPER_PROXY_URL")
	setString(&cfg.Proxy.Username, "SCRAPER_PROXY_USERNAME")
	setString(&cfg.Store.SQLitePath, "SCRAPER_SQLITE_PATH")
	setString(&cfg.Store.PostgresURL, "DATABASE_URL")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.Cache.RedisURL, "REDIS_URL")

	if v, ok := os.LookupEnv("SCRAPER_TIER_CAP"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Scraper.TierCap = n
		}
	}
}
