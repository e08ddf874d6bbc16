package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ignite/formsync/internal/domain"
)

// Form source backends.
const (
	FormSourceStatic   = "static"
	FormSourcePostgres = "postgres"
)

// Config holds all configuration for the application
type Config struct {
	Server         ServerConfig         `yaml:"server"`
	ActiveCampaign ActiveCampaignConfig `yaml:"activecampaign"`
	Database       DatabaseConfig       `yaml:"database"`
	Redis          RedisConfig          `yaml:"redis"`
	Transfers      TransfersConfig      `yaml:"transfers"`
	FormSource     string               `yaml:"form_source" validate:"oneof=static postgres"`
	Forms          []domain.FormConfig  `yaml:"forms" validate:"dive"`
	Notify         NotifyConfig         `yaml:"notify"`
	Export         ExportConfig         `yaml:"export"`
	Logging        LoggingConfig        `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port" validate:"gt=0,lte=65535"`
	Host string `yaml:"host"`
	// PublicURL is the externally reachable base of approval links.
	PublicURL             string   `yaml:"public_url" validate:"omitempty,url"`
	AdminToken            string   `yaml:"admin_token"`
	AllowedOrigins        []string `yaml:"allowed_origins"`
	RequestTimeoutSeconds int      `yaml:"request_timeout_seconds" validate:"gte=0"`
}

// GetHost returns the server host, with ECS detection
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// Addr is the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.GetHost(), c.Port)
}

func (c ServerConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

type ActiveCampaignConfig struct {
	APIURL         string `yaml:"api_url" validate:"required,url"`
	APIKey         string `yaml:"api_key" validate:"required"`
	TimeoutSeconds int    `yaml:"timeout_seconds" validate:"gt=0"`
	MaxRetries     int    `yaml:"max_retries" validate:"gte=0,lte=10"`
	Debug          bool   `yaml:"debug"`
}

func (c ActiveCampaignConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type DatabaseConfig struct {
	URL          string `yaml:"url" validate:"required"`
	MaxOpenConns int    `yaml:"max_open_conns" validate:"gte=0"`
	MaxIdleConns int    `yaml:"max_idle_conns" validate:"gte=0"`
}

// RedisConfig is optional; without an address the cleanup lock falls back
// to a Postgres advisory lock.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"gte=0"`
}

type TransfersConfig struct {
	TokenLength            int `yaml:"token_length" validate:"gte=16,lte=64"`
	CleanupIntervalMinutes int `yaml:"cleanup_interval_minutes" validate:"gt=0"`
}

func (c TransfersConfig) CleanupInterval() time.Duration {
	return time.Duration(c.CleanupIntervalMinutes) * time.Minute
}

// NotifyConfig configures editor notifications through SES.
type NotifyConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	FromEmail string `yaml:"from_email" validate:"omitempty,email"`
	FromName  string `yaml:"from_name"`
}

// ExportConfig is where cmd/inspect-fields writes the field inventory.
type ExportConfig struct {
	Type      string `yaml:"type" validate:"omitempty,oneof=file s3"`
	LocalPath string `yaml:"local_path"`
	S3Bucket  string `yaml:"s3_bucket" validate:"required_if=Type s3"`
	S3Prefix  string `yaml:"s3_prefix"`
	S3Region  string `yaml:"s3_region"`
}

type LoggingConfig struct {
	Level     string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	RedactPII *bool  `yaml:"redact_pii"`
}

// RedactEnabled defaults to true.
func (c LoggingConfig) RedactEnabled() bool {
	return c.RedactPII == nil || *c.RedactPII
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.RequestTimeoutSeconds == 0 {
		cfg.Server.RequestTimeoutSeconds = 60
	}
	if cfg.ActiveCampaign.TimeoutSeconds == 0 {
		cfg.ActiveCampaign.TimeoutSeconds = 30
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Transfers.TokenLength == 0 {
		cfg.Transfers.TokenLength = 32
	}
	if cfg.Transfers.CleanupIntervalMinutes == 0 {
		cfg.Transfers.CleanupIntervalMinutes = 60
	}
	if cfg.FormSource == "" {
		cfg.FormSource = FormSourceStatic
	}
	if cfg.Notify.Region == "" {
		cfg.Notify.Region = "us-east-1"
	}
	if cfg.Export.Type == "" {
		cfg.Export.Type = "file"
	}
	if cfg.Export.LocalPath == "" {
		cfg.Export.LocalPath = "activecampaign-fields.json"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("ACTIVECAMPAIGN_API_URL"); v != "" {
		cfg.ActiveCampaign.APIURL = v
	}
	if v := os.Getenv("ACTIVECAMPAIGN_API_KEY"); v != "" {
		cfg.ActiveCampaign.APIKey = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("PUBLIC_BASE_URL"); v != "" {
		cfg.Server.PublicURL = v
	}
	if v := os.Getenv("ADMIN_TOKEN"); v != "" {
		cfg.Server.AdminToken = v
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.Server.AllowedOrigins = domain.SplitTags(v)
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SES_REGION"); v != "" {
		cfg.Notify.Region = v
	}
	if v := os.Getenv("SES_ACCESS_KEY"); v != "" {
		cfg.Notify.AccessKey = v
	}
	if v := os.Getenv("SES_SECRET_KEY"); v != "" {
		cfg.Notify.SecretKey = v
	}
	if v := os.Getenv("SES_FROM_EMAIL"); v != "" {
		cfg.Notify.FromEmail = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}

	return cfg, nil
}

// Validate checks required settings and value ranges.
func (cfg *Config) Validate() error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Notify.Enabled && cfg.Notify.FromEmail == "" {
		return fmt.Errorf("invalid config: notify.from_email is required when notify is enabled")
	}
	seen := make(map[int64]bool, len(cfg.Forms))
	for _, f := range cfg.Forms {
		if seen[f.FormID] {
			return fmt.Errorf("invalid config: form %d configured twice", f.FormID)
		}
		seen[f.FormID] = true
	}
	return nil
}
