package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Config holds validated environment configuration.
type Config struct {
	// Required variables
	SecretKeyBase string
	Port          string

	// Optional variables with defaults
	AppEnv        string
	LogLevel      string
	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AuthIssuer     string
	AuthAudience   string
	DevelopmentMode bool
	AllowedOrigins string

	// Rate limits (Defaults: M = Minute, H = Hour)
	RateLimitPerMinute   string
	RateLimitAPIGlobal   string
	RateLimitAPIPublic   string
	RateLimitAPIRooms    string
	RateLimitAPIMessages string
	RateLimitWsIP        string
	RateLimitWsUser      string
}

// ValidateEnv validates all required environment variables and returns a
// Config object. Returns an error if any required variable is missing or
// invalid.
func ValidateEnv() (*Config, error) {
	cfg := &Config{}
	var errs []string

	// Required: SECRET_KEY_BASE (minimum 32 characters) - shared with the
	// auth service, which signs session tokens with this key.
	cfg.SecretKeyBase = os.Getenv("SECRET_KEY_BASE")
	if cfg.SecretKeyBase == "" {
		errs = append(errs, "SECRET_KEY_BASE is required")
	} else if len(cfg.SecretKeyBase) < 32 {
		errs = append(errs, fmt.Sprintf("SECRET_KEY_BASE must be at least 32 characters (got %d)", len(cfg.SecretKeyBase)))
	}

	// Required: PORT (valid port number)
	cfg.Port = os.Getenv("PORT")
	if cfg.Port == "" {
		errs = append(errs, "PORT is required")
	} else {
		port, err := strconv.Atoi(cfg.Port)
		if err != nil || port < 1 || port > 65535 {
			errs = append(errs, fmt.Sprintf("PORT must be a valid port number between 1 and 65535 (got '%s')", cfg.Port))
		}
	}

	// Optional: REDIS_ENABLED toggles the cross-pod bus and shared state
	// store; single-instance deployments can run without it.
	cfg.RedisEnabled = os.Getenv("REDIS_ENABLED") != "false"
	redisHost := getEnvOrDefault("REDIS_HOST", "localhost")
	redisPort := getEnvOrDefault("REDIS_PORT", "6379")
	cfg.RedisAddr = redisHost + ":" + redisPort
	if cfg.RedisEnabled && !isValidHostPort(cfg.RedisAddr) {
		errs = append(errs, fmt.Sprintf("REDIS_HOST/REDIS_PORT must form a valid 'host:port' (got '%s')", cfg.RedisAddr))
	}
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.RedisDB = 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		db, err := strconv.Atoi(dbStr)
		if err != nil || db < 0 {
			errs = append(errs, fmt.Sprintf("REDIS_DB must be a non-negative integer (got '%s')", dbStr))
		} else {
			cfg.RedisDB = db
		}
	}

	// Optional: APP_ENV (defaults to "production")
	cfg.AppEnv = os.Getenv("APP_ENV")
	if cfg.AppEnv == "" {
		cfg.AppEnv = "production"
	}
	cfg.DevelopmentMode = cfg.AppEnv == "development"

	// Optional: LOG_LEVEL (defaults to "info")
	cfg.LogLevel = os.Getenv("LOG_LEVEL")
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	cfg.AuthIssuer = os.Getenv("AUTH_ISSUER")
	cfg.AuthAudience = os.Getenv("AUTH_AUDIENCE")
	cfg.AllowedOrigins = getEnvOrDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")

	// Rate limits
	cfg.RateLimitPerMinute = getEnvOrDefault("RATE_LIMIT_PER_MINUTE", "100")
	cfg.RateLimitAPIGlobal = getEnvOrDefault("RATE_LIMIT_API_GLOBAL", "1000-M")
	cfg.RateLimitAPIPublic = getEnvOrDefault("RATE_LIMIT_API_PUBLIC", "100-M")
	cfg.RateLimitAPIRooms = getEnvOrDefault("RATE_LIMIT_API_ROOMS", "100-M")
	cfg.RateLimitAPIMessages = getEnvOrDefault("RATE_LIMIT_API_MESSAGES", "500-M")
	cfg.RateLimitWsIP = getEnvOrDefault("RATE_LIMIT_WS_IP", "100-M")
	cfg.RateLimitWsUser = getEnvOrDefault("RATE_LIMIT_WS_USER", "10-M")

	if len(errs) > 0 {
		return nil, fmt.Errorf("environment validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	logValidatedConfig(cfg)

	return cfg, nil
}

// isValidHostPort checks if a string is in the format "host:port".
func isValidHostPort(addr string) bool {
	parts := strings.Split(addr, ":")
	if len(parts) != 2 {
		return false
	}

	port, err := strconv.Atoi(parts[1])
	if err != nil || port < 1 || port > 65535 {
		return false
	}

	if parts[0] == "" {
		return false
	}

	return true
}

// logValidatedConfig logs the validated configuration with secrets redacted.
func logValidatedConfig(cfg *Config) {
	slog.Info("environment configuration validated")
	slog.Info("configuration",
		"secret_key_base", redactSecret(cfg.SecretKeyBase),
		"port", cfg.Port,
		"app_env", cfg.AppEnv,
		"log_level", cfg.LogLevel,
		"redis_enabled", cfg.RedisEnabled,
		"redis_addr", cfg.RedisAddr,
		"redis_db", cfg.RedisDB,
		"rate_limit_api_global", cfg.RateLimitAPIGlobal,
	)
}

// getEnvOrDefault returns the value of the environment variable or a
// default value if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// redactSecret redacts a secret by showing only the first 8 characters.
func redactSecret(secret string) string {
	if len(secret) <= 8 {
		return "***"
	}
	return secret[:8] + "***"
}
