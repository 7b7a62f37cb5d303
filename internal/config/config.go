package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// Config holds all service configuration loaded from environment variables.
type Config struct {
	GRPCPort string
	WebPort  string

	JWTSecret string

	StoreDriver    string
	DatabaseURL    string
	RedisAddr      string
	RedisPassword  string
	StoreNamespace string
	StoreTimeout   time.Duration

	Location                 *time.Location
	BookingWindowMonths      int
	AllowTerminalTransitions bool
	RejectDoubleBooking      bool
	ReminderInterval         time.Duration

	RateLimitRPS   float64
	RateLimitBurst int

	AllowedOrigins []string
	LogLevel       string
}

// Load reads configuration from the environment and validates it.
func Load() (Config, error) {
	storeTimeout, err := getEnvDuration("STORE_TIMEOUT", 5*time.Second)
	if err != nil {
		return Config{}, fmt.Errorf("parse STORE_TIMEOUT: %w", err)
	}
	window, err := getEnvInt("BOOKING_WINDOW_MONTHS", 3)
	if err != nil {
		return Config{}, fmt.Errorf("parse BOOKING_WINDOW_MONTHS: %w", err)
	}
	terminal, err := getEnvBool("ALLOW_TERMINAL_TRANSITIONS", false)
	if err != nil {
		return Config{}, fmt.Errorf("parse ALLOW_TERMINAL_TRANSITIONS: %w", err)
	}
	doubleBooking, err := getEnvBool("REJECT_DOUBLE_BOOKING", false)
	if err != nil {
		return Config{}, fmt.Errorf("parse REJECT_DOUBLE_BOOKING: %w", err)
	}
	reminder, err := getEnvDuration("REMINDER_INTERVAL", time.Hour)
	if err != nil {
		return Config{}, fmt.Errorf("parse REMINDER_INTERVAL: %w", err)
	}
	rps, err := getEnvFloat("RATE_LIMIT_RPS", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse RATE_LIMIT_RPS: %w", err)
	}
	burst, err := getEnvInt("RATE_LIMIT_BURST", 10)
	if err != nil {
		return Config{}, fmt.Errorf("parse RATE_LIMIT_BURST: %w", err)
	}
	loc, err := time.LoadLocation(getEnv("TIMEZONE", "Local"))
	if err != nil {
		return Config{}, fmt.Errorf("parse TIMEZONE: %w", err)
	}

	cfg := Config{
		GRPCPort:                 getEnv("PORT", "50051"),
		WebPort:                  getEnv("WEB_PORT", "8080"),
		JWTSecret:                getEnv("JWT_SECRET", ""),
		StoreDriver:              strings.ToLower(getEnv("STORE_DRIVER", DriverMemory)),
		DatabaseURL:              getEnv("DATABASE_URL", ""),
		RedisAddr:                getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:            getEnv("REDIS_PASSWORD", ""),
		StoreNamespace:           getEnv("STORE_NAMESPACE", "@clinic"),
		StoreTimeout:             storeTimeout,
		Location:                 loc,
		BookingWindowMonths:      window,
		AllowTerminalTransitions: terminal,
		RejectDoubleBooking:      doubleBooking,
		ReminderInterval:         reminder,
		RateLimitRPS:             rps,
		RateLimitBurst:           burst,
		AllowedOrigins:           splitList(getEnv("ALLOWED_ORIGINS", "*")),
		LogLevel:                 strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	switch c.StoreDriver {
	case DriverMemory, DriverRedis:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT must be positive")
	}
	if c.BookingWindowMonths < 1 {
		return fmt.Errorf("BOOKING_WINDOW_MONTHS must be at least 1")
	}
	if c.ReminderInterval <= 0 {
		return fmt.Errorf("REMINDER_INTERVAL must be positive")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst < 1 {
		return fmt.Errorf("rate limit must allow at least one request")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	return strconv.Atoi(v)
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	return strconv.ParseFloat(v, 64)
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	return strconv.ParseBool(v)
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	return time.ParseDuration(v)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
