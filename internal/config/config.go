package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/orgbase/orgbase/internal/validation"
)

// Config holds all application configuration.
type Config struct {
	Env      string
	HTTPAddr string
	BaseURL  string

	DBDSN         string
	JWTSecret     string
	SessionSecret string

	LogLevel string

	RateLimitRPM int

	SessionDays   int
	InviteTTLDays int

	PersonalOrgTemplate string

	NotifyWebhookURL string
	NotifyTimeoutMS  int

	AuditRetentionDays int
	InvitePurgeDays    int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Env = strings.TrimSpace(os.Getenv("OB_ENV"))
	if cfg.Env == "" {
		return nil, fmt.Errorf("OB_ENV is required")
	}
	if cfg.Env != "dev" && cfg.Env != "prod" {
		return nil, fmt.Errorf("OB_ENV must be one of: dev, prod (got: %s)", cfg.Env)
	}

	cfg.HTTPAddr = getEnvOrDefault("OB_HTTP_ADDR", ":8080")

	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("OB_BASE_URL")), "/")
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("OB_BASE_URL is required")
	}

	cfg.DBDSN = strings.TrimSpace(os.Getenv("OB_DB_DSN"))
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("OB_DB_DSN is required")
	}

	cfg.JWTSecret = os.Getenv("OB_JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("OB_JWT_SECRET is required")
	}
	if cfg.Env == "prod" && len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("OB_JWT_SECRET must be at least 32 characters (currently %d)", len(cfg.JWTSecret))
	}

	cfg.SessionSecret = os.Getenv("OB_SESSION_SECRET")
	if cfg.SessionSecret == "" {
		return nil, fmt.Errorf("OB_SESSION_SECRET is required")
	}
	if cfg.Env == "prod" && len(cfg.SessionSecret) < 32 {
		return nil, fmt.Errorf("OB_SESSION_SECRET must be at least 32 characters (currently %d)", len(cfg.SessionSecret))
	}

	cfg.LogLevel = getEnvOrDefault("OB_LOG_LEVEL", "info")
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("OB_LOG_LEVEL must be one of: debug, info, warn, error (got: %s)", cfg.LogLevel)
	}

	var err error
	cfg.RateLimitRPM, err = getEnvIntOrDefault("OB_RATE_LIMIT_RPM", 120)
	if err != nil {
		return nil, err
	}

	cfg.SessionDays, err = getEnvIntOrDefault("OB_SESSION_DAYS", 7)
	if err != nil {
		return nil, err
	}

	cfg.InviteTTLDays, err = getEnvIntOrDefault("OB_INVITE_TTL_DAYS", 7)
	if err != nil {
		return nil, err
	}
	if cfg.InviteTTLDays <= 0 {
		return nil, fmt.Errorf("OB_INVITE_TTL_DAYS must be positive (got: %d)", cfg.InviteTTLDays)
	}

	cfg.PersonalOrgTemplate = getEnvOrDefault("OB_PERSONAL_ORG_TEMPLATE", "%s's Organization")
	if !strings.Contains(cfg.PersonalOrgTemplate, "%s") {
		return nil, fmt.Errorf("OB_PERSONAL_ORG_TEMPLATE must contain %%s")
	}

	cfg.NotifyWebhookURL = strings.TrimSpace(os.Getenv("OB_NOTIFY_WEBHOOK_URL"))
	if cfg.NotifyWebhookURL != "" {
		if err := validation.ValidateWebhookURL(cfg.NotifyWebhookURL); err != nil {
			return nil, fmt.Errorf("OB_NOTIFY_WEBHOOK_URL is invalid: %w", err)
		}
	}

	cfg.NotifyTimeoutMS, err = getEnvIntOrDefault("OB_NOTIFY_TIMEOUT_MS", 2000)
	if err != nil {
		return nil, err
	}
	if cfg.NotifyTimeoutMS <= 0 || cfg.NotifyTimeoutMS > 30000 {
		return nil, fmt.Errorf("OB_NOTIFY_TIMEOUT_MS must be between 1 and 30000 (got: %d)", cfg.NotifyTimeoutMS)
	}

	cfg.AuditRetentionDays, err = getEnvIntOrDefault("OB_AUDIT_RETENTION_DAYS", 180)
	if err != nil {
		return nil, err
	}

	cfg.InvitePurgeDays, err = getEnvIntOrDefault("OB_INVITE_PURGE_DAYS", 30)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// IsDev returns true if running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "dev"
}

// RedactedValues returns a map of config values with secrets redacted.
func (c *Config) RedactedValues() map[string]string {
	return map[string]string{
		"OB_ENV":                   c.Env,
		"OB_HTTP_ADDR":             c.HTTPAddr,
		"OB_BASE_URL":              c.BaseURL,
		"OB_DB_DSN":                redactDSN(c.DBDSN),
		"OB_JWT_SECRET":            "[REDACTED]",
		"OB_SESSION_SECRET":        "[REDACTED]",
		"OB_LOG_LEVEL":             c.LogLevel,
		"OB_RATE_LIMIT_RPM":        strconv.Itoa(c.RateLimitRPM),
		"OB_SESSION_DAYS":          strconv.Itoa(c.SessionDays),
		"OB_INVITE_TTL_DAYS":       strconv.Itoa(c.InviteTTLDays),
		"OB_PERSONAL_ORG_TEMPLATE": c.PersonalOrgTemplate,
		"OB_NOTIFY_WEBHOOK_URL":    redactWebhook(c.NotifyWebhookURL),
		"OB_NOTIFY_TIMEOUT_MS":     strconv.Itoa(c.NotifyTimeoutMS),
		"OB_AUDIT_RETENTION_DAYS":  strconv.Itoa(c.AuditRetentionDays),
		"OB_INVITE_PURGE_DAYS":     strconv.Itoa(c.InvitePurgeDays),
	}
}

func redactDSN(dsn string) string {
	if start := strings.Index(dsn, "://"); start != -1 {
		if end := strings.Index(dsn[start+3:], "@"); end != -1 {
			return dsn[:start+3] + "[REDACTED]" + dsn[start+3+end:]
		}
	}
	return dsn
}

func redactWebhook(url string) string {
	if url == "" {
		return ""
	}
	return "[SET]"
}

func getEnvOrDefault(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(key string, defaultValue int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer (got: %q)", key, value)
	}
	return parsed, nil
}
