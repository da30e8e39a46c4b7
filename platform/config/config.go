// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
	GetMigrateOnStart() bool
}

// EmailConfig provides settings for email sending.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetEmailProvider() string
	GetBrevoAPIKey() string
	GetEmailFromName() string
	GetEmailFromAddress() string
}

// SMTPConfig provides settings for the SMTP transport.
type SMTPConfig interface {
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
}

// LeadsConfig provides settings for the leads core.
type LeadsConfig interface {
	GetStoreTimeout() time.Duration
	GetSendTimeout() time.Duration
	GetSendRatePerSecond() float64
	GetSequenceConcurrency() int
}

// SchedulerConfig provides settings for the periodic driver and its queue.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetSequenceInterval() time.Duration
	GetEscalationInterval() time.Duration
	GetExportInterval() time.Duration
}

// NotificationConfig provides settings for staff alerting.
type NotificationConfig interface {
	GetStaffAlertEmail() string
	GetAppBaseURL() string
}

// MinIOConfig provides settings for MinIO S3-compatible export storage.
type MinIOConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinioBucketLeadExports() string
	IsMinIOEnabled() bool
}

// MetricsConfig provides settings for the Prometheus endpoint.
type MetricsConfig interface {
	GetMetricsAddr() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                    string
	DatabaseURL            string
	MigrateOnStart         bool
	AppBaseURL             string
	EmailEnabled           bool
	EmailProvider          string
	BrevoAPIKey            string
	EmailFromName          string
	EmailFromAddress       string
	SMTPHost               string
	SMTPPort               int
	SMTPUsername           string
	SMTPPassword           string
	StaffAlertEmail        string
	StoreTimeout           time.Duration
	SendTimeout            time.Duration
	SendRatePerSecond      float64
	SequenceConcurrency    int
	RedisURL               string
	RedisTLSInsecure       bool
	AsynqQueueName         string
	AsynqConcurrency       int
	SequenceInterval       time.Duration
	EscalationInterval     time.Duration
	ExportInterval         time.Duration
	MinIOEndpoint          string
	MinIOAccessKey         string
	MinIOSecretKey         string
	MinIOUseSSL            bool
	MinioBucketLeadExports string
	MetricsAddr            string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string  { return c.DatabaseURL }
func (c *Config) GetMigrateOnStart() bool { return c.MigrateOnStart }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetEmailProvider() string    { return c.EmailProvider }
func (c *Config) GetBrevoAPIKey() string      { return c.BrevoAPIKey }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }

// SMTPConfig implementation
func (c *Config) GetSMTPHost() string     { return c.SMTPHost }
func (c *Config) GetSMTPPort() int        { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string { return c.SMTPPassword }

// LeadsConfig implementation
func (c *Config) GetStoreTimeout() time.Duration { return c.StoreTimeout }
func (c *Config) GetSendTimeout() time.Duration  { return c.SendTimeout }
func (c *Config) GetSendRatePerSecond() float64  { return c.SendRatePerSecond }
func (c *Config) GetSequenceConcurrency() int    { return c.SequenceConcurrency }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string                  { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool            { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string            { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int             { return c.AsynqConcurrency }
func (c *Config) GetSequenceInterval() time.Duration   { return c.SequenceInterval }
func (c *Config) GetEscalationInterval() time.Duration { return c.EscalationInterval }
func (c *Config) GetExportInterval() time.Duration     { return c.ExportInterval }

// NotificationConfig implementation
func (c *Config) GetStaffAlertEmail() string { return c.StaffAlertEmail }
func (c *Config) GetAppBaseURL() string      { return c.AppBaseURL }

// MinIOConfig implementation
func (c *Config) GetMinIOEndpoint() string  { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool      { return c.MinIOUseSSL }
func (c *Config) GetMinioBucketLeadExports() string {
	return c.MinioBucketLeadExports
}
func (c *Config) IsMinIOEnabled() bool { return c.MinIOEndpoint != "" }

// MetricsConfig implementation
func (c *Config) GetMetricsAddr() string { return c.MetricsAddr }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds the configuration from the current process environment without
// reading a .env file.
func FromEnv() (*Config, error) {
	provider := strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "brevo")))
	brevoAPIKey := getEnv("BREVO_API_KEY", "")
	smtpHost := getEnv("SMTP_HOST", "")
	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "true"), "true")

	var providerReady bool
	switch provider {
	case "brevo":
		providerReady = brevoAPIKey != ""
	case "smtp":
		providerReady = smtpHost != ""
	default:
		return nil, fmt.Errorf("EMAIL_PROVIDER must be one of brevo, smtp (got %q)", provider)
	}

	cfg := &Config{
		Env:                    getEnv("APP_ENV", "development"),
		DatabaseURL:            getEnv("DATABASE_URL", ""),
		MigrateOnStart:         strings.EqualFold(getEnv("DB_MIGRATE_ON_START", "true"), "true"),
		AppBaseURL:             getEnv("APP_BASE_URL", "http://localhost:3000"),
		EmailEnabled:           emailEnabled && providerReady,
		EmailProvider:          provider,
		BrevoAPIKey:            brevoAPIKey,
		EmailFromName:          getEnv("EMAIL_FROM_NAME", "Forward Horizon"),
		EmailFromAddress:       getEnv("EMAIL_FROM_ADDRESS", ""),
		SMTPHost:               smtpHost,
		SMTPPort:               mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:           getEnv("SMTP_USERNAME", ""),
		SMTPPassword:           getEnv("SMTP_PASSWORD", ""),
		StaffAlertEmail:        getEnv("STAFF_ALERT_EMAIL", ""),
		StoreTimeout:           mustDuration(getEnv("LEADS_STORE_TIMEOUT", "5s")),
		SendTimeout:            mustDuration(getEnv("LEADS_SEND_TIMEOUT", "15s")),
		SendRatePerSecond:      mustFloat(getEnv("LEADS_SEND_RATE_PER_SECOND", "5")),
		SequenceConcurrency:    mustInt(getEnv("LEADS_SEQUENCE_CONCURRENCY", "4")),
		RedisURL:               getEnv("REDIS_URL", ""),
		RedisTLSInsecure:       strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:         getEnv("ASYNQ_QUEUE", "leads"),
		AsynqConcurrency:       mustInt(getEnv("ASYNQ_CONCURRENCY", "4")),
		SequenceInterval:       mustDuration(getEnv("SEQUENCE_EVALUATION_INTERVAL", "5m")),
		EscalationInterval:     mustDuration(getEnv("ESCALATION_SCAN_INTERVAL", "1m")),
		ExportInterval:         mustDuration(getEnv("EXPORT_SNAPSHOT_INTERVAL", "24h")),
		MinIOEndpoint:          getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:         getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:         getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:            strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinioBucketLeadExports: getEnv("MINIO_BUCKET_LEAD_EXPORTS", "lead-exports"),
		MetricsAddr:            getEnv("METRICS_ADDR", ""),
	}

	if emailEnabled && !providerReady {
		if provider == "smtp" {
			return nil, fmt.Errorf("SMTP_HOST is required when EMAIL_PROVIDER is smtp")
		}
		return nil, fmt.Errorf("BREVO_API_KEY is required when EMAIL_ENABLED is true")
	}
	if cfg.EmailEnabled && cfg.EmailFromAddress == "" {
		return nil, fmt.Errorf("EMAIL_FROM_ADDRESS is required when email is enabled")
	}
	if cfg.StoreTimeout <= 0 || cfg.SendTimeout <= 0 {
		return nil, fmt.Errorf("LEADS_STORE_TIMEOUT and LEADS_SEND_TIMEOUT must be positive durations")
	}
	if cfg.SequenceInterval <= 0 || cfg.EscalationInterval <= 0 {
		return nil, fmt.Errorf("SEQUENCE_EVALUATION_INTERVAL and ESCALATION_SCAN_INTERVAL must be positive durations")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return result
}
