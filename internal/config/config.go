package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port            string
	Env             string
	LogLevel        string
	DatabaseURL     string
	UseMemoryStore  bool
	ShutdownTimeout time.Duration

	// Bearer token verification for the session provider's tokens.
	AuthJWTSecret string

	// Redis backs the identity cache; empty RedisAddr disables it.
	RedisAddr        string
	RedisPassword    string
	RedisTLS         bool
	IdentityCacheTTL time.Duration

	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int

	// EnforceDoctorAvailability rejects bookings outside a doctor's availability windows.
	EnforceDoctorAvailability bool
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:                      getEnv("PORT", "8080"),
		Env:                       getEnv("ENV", "development"),
		LogLevel:                  getEnv("LOG_LEVEL", "info"),
		DatabaseURL:               getEnv("DATABASE_URL", ""),
		UseMemoryStore:            getEnvAsBool("USE_MEMORY_STORE", false),
		ShutdownTimeout:           getEnvAsDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		AuthJWTSecret:             getEnv("AUTH_JWT_SECRET", ""),
		RedisAddr:                 getEnv("REDIS_ADDR", ""),
		RedisPassword:             getEnv("REDIS_PASSWORD", ""),
		RedisTLS:                  getEnvAsBool("REDIS_TLS", false),
		IdentityCacheTTL:          getEnvAsDuration("IDENTITY_CACHE_TTL", 5*time.Minute),
		CORSAllowedOrigins:        getEnvAsList("CORS_ALLOWED_ORIGINS"),
		RateLimitRPS:              getEnvAsFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst:            getEnvAsInt("RATE_LIMIT_BURST", 20),
		EnforceDoctorAvailability: getEnvAsBool("ENFORCE_DOCTOR_AVAILABILITY", false),
	}
}

// IsProduction reports whether the service runs with ENV=production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping empty items.
func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
