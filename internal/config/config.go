// Package config reads service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every runtime setting of the API server.
type Config struct {
	Port         string
	DatabasePath string
	UploadDir    string

	JWTSecret      string
	AccessTokenTTL time.Duration
	BcryptCost     int

	MaxUploadBytes int64

	ThumbnailWorkers       int
	ThumbnailQueueDepth    int
	ThumbnailTimeout       time.Duration
	ThumbnailReleaseMemory bool

	LogLevel slog.Level

	LoginRatePerMinute   int
	BookingRatePerMinute int
}

// Load reads a .env file from the working directory when present and then
// builds the config from the environment. Variables already set in the
// environment win over the file.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds the config from environment variables only.
func FromEnv() (Config, error) {
	cfg := Config{
		Port:         envOrDefault("PORT", "8000"),
		DatabasePath: envOrDefault("DATABASE_PATH", "portfolio.db"),
		UploadDir:    envOrDefault("UPLOAD_DIR", "uploads"),
		JWTSecret:    os.Getenv("JWT_SECRET"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET environment variable is required")
	}
	if len(cfg.JWTSecret) < 32 {
		return Config{}, errors.New("JWT_SECRET must be at least 32 characters for HMAC-SHA256 security")
	}

	var errs []error
	intVar := func(key string, def, lo, hi int) int {
		v, err := intEnv(key, def, lo, hi)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}

	cfg.AccessTokenTTL = time.Duration(intVar("ACCESS_TOKEN_EXPIRE_MINUTES", 60, 1, 60*24*30)) * time.Minute
	cfg.BcryptCost = intVar("BCRYPT_COST", 12, 4, 14)
	cfg.MaxUploadBytes = int64(intVar("MAX_UPLOAD_MB", 25, 1, 1024)) << 20
	cfg.ThumbnailWorkers = intVar("THUMBNAIL_WORKERS", 1, 1, 64)
	cfg.ThumbnailQueueDepth = intVar("THUMBNAIL_QUEUE_DEPTH", 64, 1, 100000)
	cfg.LoginRatePerMinute = intVar("LOGIN_RATE_PER_MINUTE", 10, 1, 10000)
	cfg.BookingRatePerMinute = intVar("BOOKING_RATE_PER_MINUTE", 5, 1, 10000)

	timeout, err := durationEnv("THUMBNAIL_TIMEOUT", 60*time.Second)
	if err != nil {
		errs = append(errs, err)
	}
	cfg.ThumbnailTimeout = timeout

	release, err := boolEnv("THUMBNAIL_RELEASE_MEMORY", true)
	if err != nil {
		errs = append(errs, err)
	}
	cfg.ThumbnailReleaseMemory = release

	level, err := levelEnv("LOG_LEVEL", slog.LevelInfo)
	if err != nil {
		errs = append(errs, err)
	}
	cfg.LogLevel = level

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func intEnv(key string, def, lo, hi int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("invalid %s: %w", key, err)
	}
	if parsed < lo || parsed > hi {
		return def, fmt.Errorf("%s must be between %d and %d, got %d", key, lo, hi, parsed)
	}
	return parsed, nil
}

// durationEnv accepts Go duration syntax ("90s", "2m") or a bare number of
// seconds.
func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		v = strconv.Itoa(secs) + "s"
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return def, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}

func boolEnv(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func levelEnv(key string, def slog.Level) (slog.Level, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(v)); err != nil {
		return def, fmt.Errorf("invalid %s: %w", key, err)
	}
	return level, nil
}
