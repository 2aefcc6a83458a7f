package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds everything read from APP_* environment variables.
// godotenv loads .env in main before FromEnv runs.
type Config struct {
	Port        string
	DatabaseURL string
	BuildMode   string
	JWTSecret   string
	AllowOrigin string
	SystemKey   string

	AdminEmail    string
	AdminPassword string

	AuthRateMax    int
	AuthRateWindow time.Duration
}

func FromEnv() Config {
	return Config{
		Port:           getenv("APP_PORT", ":3000"),
		DatabaseURL:    os.Getenv("APP_DB"),
		BuildMode:      getenv("APP_BUILD_MODE", "dev"),
		JWTSecret:      getenv("APP_JWT_SECRET", "decisiondeck-dev-secret"),
		AllowOrigin:    getenv("APP_ALLOW_ORIGIN", "*"),
		SystemKey:      os.Getenv("APP_SYSTEM_KEY"),
		AdminEmail:     os.Getenv("APP_ADMIN_EMAIL"),
		AdminPassword:  os.Getenv("APP_ADMIN_PASSWORD"),
		AuthRateMax:    getenvInt("APP_AUTH_RATE_MAX", 20),
		AuthRateWindow: time.Duration(getenvInt("APP_AUTH_RATE_WINDOW", 60)) * time.Second,
	}
}

func (c Config) Dev() bool { return c.BuildMode == "dev" }

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
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
