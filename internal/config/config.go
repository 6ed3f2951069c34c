// Package config loads runtime settings from defaults, an optional config file and the environment.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values for the application.
type Config struct {
	// Database connection string. Postgres DSN/URL, or "sqlite:<path>" / "file:<path>".
	DatabaseURL string

	// HTTP server port
	HTTPPort int

	LogLevel string

	// Automation runner
	AutomationEnabled      bool
	AutomationPollInterval time.Duration
	AutomationLease        time.Duration
	AutomationBatchSize    int
	AutomationMaxAttempts  int
	AutomationBackoff      time.Duration

	// HTTP surface
	CORSAllowedOrigins []string
	RateLimitRPS       float64 // 0 disables rate limiting
	RateLimitBurst     int

	// Optional LLM used for reference summaries
	GeminiAPIKey string
	GeminiModel  string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database_url", "")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("automation_enabled", true)
	v.SetDefault("automation_poll_interval", "1m")
	v.SetDefault("automation_lease", "5m")
	v.SetDefault("automation_batch_size", 10)
	v.SetDefault("automation_max_attempts", 5)
	v.SetDefault("automation_backoff", "30s")
	v.SetDefault("cors_allowed_origins", "*")
	v.SetDefault("rate_limit_rps", 0)
	v.SetDefault("rate_limit_burst", 20)
	v.SetDefault("gemini_api_key", "")
	v.SetDefault("gemini_model", "gemini-2.5-flash")
}

// Load reads configuration. configFile is optional; environment variables
// (upper-case key names) always take precedence over the file.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	cfg := &Config{
		DatabaseURL:       v.GetString("database_url"),
		LogLevel:          strings.ToLower(v.GetString("log_level")),
		AutomationEnabled: v.GetBool("automation_enabled"),
		GeminiAPIKey:      v.GetString("gemini_api_key"),
		GeminiModel:       v.GetString("gemini_model"),
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("database_url is required (env: DATABASE_URL)")
	}

	var err error
	if cfg.HTTPPort, err = intValue(v, "port"); err != nil {
		return nil, err
	}
	if cfg.HTTPPort <= 0 || cfg.HTTPPort > 65535 {
		return nil, fmt.Errorf("invalid PORT: %d", cfg.HTTPPort)
	}
	if cfg.AutomationPollInterval, err = durationValue(v, "automation_poll_interval"); err != nil {
		return nil, err
	}
	if cfg.AutomationLease, err = durationValue(v, "automation_lease"); err != nil {
		return nil, err
	}
	if cfg.AutomationBackoff, err = durationValue(v, "automation_backoff"); err != nil {
		return nil, err
	}
	if cfg.AutomationBatchSize, err = intValue(v, "automation_batch_size"); err != nil {
		return nil, err
	}
	if cfg.AutomationMaxAttempts, err = intValue(v, "automation_max_attempts"); err != nil {
		return nil, err
	}
	if cfg.RateLimitBurst, err = intValue(v, "rate_limit_burst"); err != nil {
		return nil, err
	}

	rps := v.GetString("rate_limit_rps")
	if cfg.RateLimitRPS, err = strconv.ParseFloat(rps, 64); err != nil || cfg.RateLimitRPS < 0 {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %q", rps)
	}

	for _, origin := range strings.Split(v.GetString("cors_allowed_origins"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, origin)
		}
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q", cfg.LogLevel)
	}

	return cfg, nil
}

// AllowAllOrigins reports whether CORS is wide open.
func (c *Config) AllowAllOrigins() bool {
	return len(c.CORSAllowedOrigins) == 0 || (len(c.CORSAllowedOrigins) == 1 && c.CORSAllowedOrigins[0] == "*")
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

func durationValue(v *viper.Viper, key string) (time.Duration, error) {
	raw := v.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", strings.ToUpper(key), err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", strings.ToUpper(key))
	}
	return d, nil
}

func intValue(v *viper.Viper, key string) (int, error) {
	raw := v.GetString(key)
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", strings.ToUpper(key), raw)
	}
	return n, nil
}
