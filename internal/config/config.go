package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env      string
	HTTPPort string

	MongoURL            string
	MongoDatabase       string
	MongoConnectTimeout time.Duration
	MongoRetryAttempts  int
	MongoRetryInterval  time.Duration

	SessionSecret   string
	SessionIssuer   string
	SessionAudience string
	SessionTTL      time.Duration
	CookieDomain    string
	CookieSecure    bool
	CookieSameSite  string

	OTPCodeTTL        time.Duration
	OTPResendCooldown time.Duration

	EmailProvider        string
	EmailSenderAddress   string
	PostmarkServerToken  string
	PostmarkAccountToken string

	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	CORSAllowedOrigins  []string
	AuthRateLimitPerMin int
	APIRateLimitPerMin  int

	OTELServiceName           string
	OTELEnvironment           string
	OTELExporterOTLPEndpoint  string
	OTELExporterOTLPInsecure  bool
	OTELMetricsExportInterval time.Duration
	OTELTraceSamplingRatio    float64
	OTELMetricsEnabled        bool
	OTELTracingEnabled        bool
	OTELLogsEnabled           bool
	OTELLogLevel              string
}

func Load() (*Config, error) {
	env := getEnv("APP_ENV", "development")

	cfg := &Config{
		Env:      env,
		HTTPPort: getEnv("HTTP_PORT", "8080"),

		MongoURL:           os.Getenv("MONGODB_URL"),
		MongoDatabase:      getEnv("MONGODB_DATABASE", "finance"),
		MongoRetryAttempts: getEnvInt("MONGODB_RETRY_ATTEMPTS", 3),

		SessionSecret:   os.Getenv("SESSION_SECRET"),
		SessionIssuer:   getEnv("SESSION_ISSUER", "finance-tracker"),
		SessionAudience: getEnv("SESSION_AUDIENCE", "finance-tracker-api"),
		CookieDomain:    os.Getenv("COOKIE_DOMAIN"),
		CookieSecure:    getEnvBool("COOKIE_SECURE", true),
		CookieSameSite:  strings.ToLower(getEnv("COOKIE_SAMESITE", "lax")),

		EmailProvider:        strings.ToLower(getEnv("EMAIL_PROVIDER", "dev")),
		EmailSenderAddress:   getEnv("EMAIL_SENDER_ADDRESS", "no-reply@finance-tracker.local"),
		PostmarkServerToken:  os.Getenv("POSTMARK_SERVER_TOKEN"),
		PostmarkAccountToken: os.Getenv("POSTMARK_ACCOUNT_TOKEN"),

		RedisEnabled:  getEnvBool("REDIS_ENABLED", false),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		CORSAllowedOrigins:  splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:8080")),
		AuthRateLimitPerMin: getEnvInt("AUTH_RATE_LIMIT_PER_MIN", 30),
		APIRateLimitPerMin:  getEnvInt("API_RATE_LIMIT_PER_MIN", 120),

		OTELServiceName:          getEnv("OTEL_SERVICE_NAME", "finance-tracker"),
		OTELEnvironment:          getEnv("OTEL_ENVIRONMENT", env),
		OTELExporterOTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTELExporterOTLPInsecure: getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		OTELTraceSamplingRatio:   getEnvFloat("OTEL_TRACE_SAMPLING_RATIO", 1.0),
		OTELMetricsEnabled:       getEnvBool("OTEL_METRICS_ENABLED", false),
		OTELTracingEnabled:       getEnvBool("OTEL_TRACING_ENABLED", false),
		OTELLogsEnabled:          getEnvBool("OTEL_LOGS_ENABLED", false),
		OTELLogLevel:             strings.ToLower(getEnv("OTEL_LOG_LEVEL", "info")),
	}

	var err error
	if cfg.MongoConnectTimeout, err = parseDurationEnv("MONGODB_CONNECT_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.MongoRetryInterval, err = parseDurationEnv("MONGODB_RETRY_INTERVAL", "5s"); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = parseDurationEnv("SESSION_TTL", "720h"); err != nil {
		return nil, err
	}
	if cfg.OTPCodeTTL, err = parseDurationEnv("OTP_CODE_TTL", "10m"); err != nil {
		return nil, err
	}
	if cfg.OTPResendCooldown, err = parseDurationEnv("OTP_RESEND_COOLDOWN", "60s"); err != nil {
		return nil, err
	}
	if cfg.OTELMetricsExportInterval, err = parseDurationEnv("OTEL_METRICS_EXPORT_INTERVAL", "10s"); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string
	if c.MongoURL == "" {
		errs = append(errs, "MONGODB_URL is required")
	}
	if len(c.SessionSecret) < 32 {
		errs = append(errs, "SESSION_SECRET must be at least 32 chars")
	}
	if c.SessionTTL <= 0 || c.SessionTTL > 90*24*time.Hour {
		errs = append(errs, "SESSION_TTL must be between 1s and 90d")
	}
	if c.OTPCodeTTL <= 0 || c.OTPCodeTTL > time.Hour {
		errs = append(errs, "OTP_CODE_TTL must be between 1s and 1h")
	}
	if c.OTPResendCooldown <= 0 || c.OTPResendCooldown > time.Hour {
		errs = append(errs, "OTP_RESEND_COOLDOWN must be between 1s and 1h")
	}
	switch c.EmailProvider {
	case "dev":
	case "postmark":
		if c.PostmarkServerToken == "" {
			errs = append(errs, "POSTMARK_SERVER_TOKEN is required when EMAIL_PROVIDER=postmark")
		}
		if c.PostmarkAccountToken == "" {
			errs = append(errs, "POSTMARK_ACCOUNT_TOKEN is required when EMAIL_PROVIDER=postmark")
		}
	default:
		errs = append(errs, "EMAIL_PROVIDER must be one of dev, postmark")
	}
	switch c.CookieSameSite {
	case "lax", "strict", "none":
	default:
		errs = append(errs, "COOKIE_SAMESITE must be one of lax, strict, none")
	}
	if c.RedisEnabled && c.RedisAddr == "" {
		errs = append(errs, "REDIS_ADDR is required when REDIS_ENABLED=true")
	}
	if c.AuthRateLimitPerMin <= 0 {
		errs = append(errs, "AUTH_RATE_LIMIT_PER_MIN must be > 0")
	}
	if c.APIRateLimitPerMin <= 0 {
		errs = append(errs, "API_RATE_LIMIT_PER_MIN must be > 0")
	}
	if c.MongoRetryAttempts <= 0 {
		errs = append(errs, "MONGODB_RETRY_ATTEMPTS must be > 0")
	}
	if (c.OTELMetricsEnabled || c.OTELTracingEnabled || c.OTELLogsEnabled) && c.OTELExporterOTLPEndpoint == "" {
		errs = append(errs, "OTEL_EXPORTER_OTLP_ENDPOINT is required when OTel is enabled")
	}
	if c.OTELTraceSamplingRatio < 0 || c.OTELTraceSamplingRatio > 1 {
		errs = append(errs, "OTEL_TRACE_SAMPLING_RATIO must be between 0 and 1")
	}
	if c.OTELMetricsExportInterval <= 0 {
		errs = append(errs, "OTEL_METRICS_EXPORT_INTERVAL must be > 0")
	}
	if !isValidLogLevel(c.OTELLogLevel) {
		errs = append(errs, "OTEL_LOG_LEVEL must be one of debug, info, warn, error")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func isValidLogLevel(v string) bool {
	switch strings.ToLower(v) {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func parseDurationEnv(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getEnv(key, def))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trim := strings.TrimSpace(p)
		if trim != "" {
			out = append(out, trim)
		}
	}
	return out
}
