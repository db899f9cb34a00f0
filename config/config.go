// Package config holds the service settings, loaded from the environment
// (optionally seeded from a .env file) with defaults suitable for a
// single-node deployment.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Settings struct {
	Addr         string
	DatabasePath string
	DataFolder   string

	SecretKey     string
	AdminPassword string

	Headless    bool
	MaxSessions int64

	// ScrapeTimeout bounds one whole search pass end to end.
	ScrapeTimeout time.Duration

	DefaultRequestsPerDay int
	LicenseDurationDays   int
}

func Load() *Settings {
	_ = godotenv.Load()

	return &Settings{
		Addr:                  getString("ADDR", ":8000"),
		DatabasePath:          getString("DATABASE_PATH", "yandex_parser.db"),
		DataFolder:            getString("DATA_FOLDER", "webdata"),
		SecretKey:             getString("SECRET_KEY", "your-secret-key-here"),
		AdminPassword:         getString("ADMIN_PASSWORD", ""),
		Headless:              getBool("HEADLESS", true),
		MaxSessions:           int64(getInt("MAX_SESSIONS", 1)),
		ScrapeTimeout:         getDuration("SCRAPE_TIMEOUT", 5*time.Minute),
		DefaultRequestsPerDay: getInt("DEFAULT_REQUESTS_PER_DAY", 100),
		LicenseDurationDays:   getInt("LICENSE_DURATION_DAYS", 30),
	}
}

// DatabaseFile resolves where the SQLite file lives: a bare file name is
// placed inside DataFolder, an explicit path is used as given.
func (s *Settings) DatabaseFile() string {
	if s.DataFolder == "" || filepath.Dir(s.DatabasePath) != "." {
		return s.DatabasePath
	}

	return filepath.Join(s.DataFolder, s.DatabasePath)
}

func getString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}

	return n
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}

	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}

	return d
}
