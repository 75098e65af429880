package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port          string
	DataDir       string
	LogDir        string
	MaxFileSizeMB int
	Backend       string
	CacheEnabled  bool
	CacheMaxMB    float64
	CacheTargetMB float64
	SessionTTLMin int
	RateLimit     int
	CookieSecure  bool
}

func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		DataDir:       getEnv("DATA_DIR", "./data"),
		LogDir:        getEnv("LOG_DIR", "./logs"),
		MaxFileSizeMB: getEnvInt("MAX_FILE_SIZE_MB", 20),
		Backend:       strings.ToLower(getEnv("BACKEND", "native")),
		CacheEnabled:  getEnvBool("CACHE_ENABLED", true),
		CacheMaxMB:    getEnvFloat("CACHE_MAX_MB", 512),
		CacheTargetMB: getEnvFloat("CACHE_TARGET_MB", 384),
		SessionTTLMin: getEnvInt("SESSION_TTL_MIN", 30),
		RateLimit:     getEnvInt("RATE_LIMIT", 60),
		CookieSecure:  getEnvBool("COOKIE_SECURE", false),
	}
}

// MaxFileSize returns the upload limit in bytes.
func (c *Config) MaxFileSize() int64 {
	return int64(c.MaxFileSizeMB) * 1024 * 1024
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
