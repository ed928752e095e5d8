package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds validated environment configuration
type Config struct {
	// Required variables
	Port string

	// Optional variables with defaults
	GoEnv    string
	LogLevel string

	// Trivia question provider
	TriviaAPIURL         string
	TriviaTimeoutSeconds int

	DevelopmentMode bool
	AllowedOrigins  string

	// Tracing (empty endpoint disables the tracer)
	OTLPEndpoint string

	ShutdownTimeoutSeconds int

	// Rate Limits
	RateLimitApi  string
	RateLimitWsIp string
}

// Load pulls a .env file into the process environment for local development.
// Several paths are tried because the binary may run from the repo root,
// its cmd directory, or a container workdir. Missing files are fine; real
// deployments set the environment directly.
func Load() {
	envPaths := []string{".env", "../../../.env", "../../.env"}
	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			slog.Info("Loaded environment from", "path", path)
			return
		}
	}
	slog.Warn("No .env file found in any expected location, relying on environment variables")
}

// ValidateEnv validates all required environment variables and returns a Config object
// Returns an error if any required variable is missing or invalid
func ValidateEnv() (*Config, error) {
	cfg := &Config{}
	var errors []string

	// Required: PORT (valid port number)
	cfg.Port = os.Getenv("PORT")
	if cfg.Port == "" {
		errors = append(errors, "PORT is required")
	} else {
		port, err := strconv.Atoi(cfg.Port)
		if err != nil || port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("PORT must be a valid port number between 1 and 65535 (got '%s')", cfg.Port))
		}
	}

	// Optional: TRIVIA_API_URL (defaults to the public trivia API)
	cfg.TriviaAPIURL = getEnvOrDefault("TRIVIA_API_URL", "https://the-trivia-api.com/api/v2")
	if u, err := url.Parse(cfg.TriviaAPIURL); err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
		errors = append(errors, fmt.Sprintf("TRIVIA_API_URL must be an absolute http(s) URL (got '%s')", cfg.TriviaAPIURL))
	}

	// Optional: TRIVIA_TIMEOUT_SECONDS (defaults to 5)
	if secs, err := parsePositiveInt("TRIVIA_TIMEOUT_SECONDS", "5"); err != nil {
		errors = append(errors, err.Error())
	} else {
		cfg.TriviaTimeoutSeconds = secs
	}

	// Optional: SHUTDOWN_TIMEOUT_SECONDS (defaults to 30)
	if secs, err := parsePositiveInt("SHUTDOWN_TIMEOUT_SECONDS", "30"); err != nil {
		errors = append(errors, err.Error())
	} else {
		cfg.ShutdownTimeoutSeconds = secs
	}

	// Optional: OTEL_EXPORTER_OTLP_ENDPOINT (host:port, empty disables tracing)
	cfg.OTLPEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if cfg.OTLPEndpoint != "" && !isValidHostPort(cfg.OTLPEndpoint) {
		errors = append(errors, fmt.Sprintf("OTEL_EXPORTER_OTLP_ENDPOINT must be in format 'host:port' (got '%s')", cfg.OTLPEndpoint))
	}

	// Optional: GO_ENV (defaults to "production")
	cfg.GoEnv = os.Getenv("GO_ENV")
	if cfg.GoEnv == "" {
		cfg.GoEnv = "production"
	}

	// Optional: LOG_LEVEL (defaults to "info")
	cfg.LogLevel = os.Getenv("LOG_LEVEL")
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	cfg.DevelopmentMode = os.Getenv("DEVELOPMENT_MODE") == "true"
	cfg.AllowedOrigins = getEnvOrDefault("ALLOWED_ORIGINS", "http://localhost:5173")

	// Rate Limits (Defaults: M = Minute, H = Hour)
	cfg.RateLimitApi = getEnvOrDefault("RATE_LIMIT_API", "300-M")
	cfg.RateLimitWsIp = getEnvOrDefault("RATE_LIMIT_WS_IP", "60-M")

	// If there are validation errors, return them
	if len(errors) > 0 {
		return nil, fmt.Errorf("environment validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	// Log validated configuration
	logValidatedConfig(cfg)

	return cfg, nil
}

// Origins returns the allowed origins as a cleaned list.
func (c *Config) Origins() []string {
	var origins []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// TriviaTimeout returns the provider call timeout as a duration.
func (c *Config) TriviaTimeout() time.Duration {
	return time.Duration(c.TriviaTimeoutSeconds) * time.Second
}

// ShutdownTimeout returns the graceful shutdown window as a duration.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// parsePositiveInt reads an integer environment variable that must be > 0
func parsePositiveInt(key, defaultValue string) (int, error) {
	raw := getEnvOrDefault(key, defaultValue)
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer (got '%s')", key, raw)
	}
	return n, nil
}

// isValidHostPort checks if a string is in the format "host:port"
func isValidHostPort(addr string) bool {
	parts := strings.Split(addr, ":")
	if len(parts) != 2 {
		return false
	}

	// Validate port is a number
	port, err := strconv.Atoi(parts[1])
	if err != nil || port < 1 || port > 65535 {
		return false
	}

	// Validate host is not empty
	if parts[0] == "" {
		return false
	}

	return true
}

// logValidatedConfig logs the validated configuration
func logValidatedConfig(cfg *Config) {
	slog.Info("✅ Environment configuration validated successfully")
	slog.Info("Configuration",
		"port", cfg.Port,
		"trivia_api_url", cfg.TriviaAPIURL,
		"trivia_timeout_seconds", cfg.TriviaTimeoutSeconds,
		"go_env", cfg.GoEnv,
		"log_level", cfg.LogLevel,
		"development_mode", cfg.DevelopmentMode,
		"allowed_origins", cfg.AllowedOrigins,
		"otlp_endpoint", cfg.OTLPEndpoint,
		"rate_limit_api", cfg.RateLimitApi,
		"rate_limit_ws_ip", cfg.RateLimitWsIp,
	)
}

// getEnvOrDefault returns the value of the environment variable or a default value if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
