// Package config loads procurement service settings from an optional YAML
// file, a .env file and the environment. Environment variables win.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const EnvProduction = "production"

type Config struct {
	AppEnv        string `yaml:"app_env"`
	ServerAddress string `yaml:"server_address"`
	LogLevel      string `yaml:"log_level"`

	// Database
	PostgresConn   string `yaml:"postgres_conn"`
	DBMaxOpenConns int    `yaml:"db_max_open_conns"`
	MigrateOnStart bool   `yaml:"migrate_on_start"`

	// AI
	AIProvider   string        `yaml:"ai_provider"`
	HFAPIKey     string        `yaml:"hf_api_key"`
	HFModel      string        `yaml:"hf_model"`
	GeminiAPIKey string        `yaml:"gemini_api_key"`
	GeminiModel  string        `yaml:"gemini_model"`
	AITimeout    time.Duration `yaml:"ai_timeout"`

	// Attachment storage (S3 compatible)
	S3Endpoint        string `yaml:"s3_endpoint"`
	S3Region          string `yaml:"s3_region"`
	S3AccessKeyID     string `yaml:"s3_access_key_id"`
	S3SecretAccessKey string `yaml:"s3_secret_access_key"`
	S3Bucket          string `yaml:"s3_bucket"`

	NATSURL string `yaml:"nats_url"`
}

func defaults() *Config {
	return &Config{
		AppEnv:         "development",
		ServerAddress:  "0.0.0.0:8080",
		LogLevel:       "info",
		DBMaxOpenConns: 10,
		MigrateOnStart: true,
		AIProvider:     "huggingface",
		HFModel:        "mistralai/Mistral-7B-Instruct-v0.3",
		GeminiModel:    "gemini-2.5-flash",
		AITimeout:      30 * time.Second,
		S3Region:       "auto",
		S3Bucket:       "rfp-attachments",
	}
}

// Load builds the configuration. A missing .env file is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.AppEnv = getEnv("APP_ENV", cfg.AppEnv)
	cfg.ServerAddress = getEnv("SERVER_ADDRESS", cfg.ServerAddress)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.PostgresConn = getEnv("POSTGRES_CONN", cfg.PostgresConn)
	cfg.DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", cfg.DBMaxOpenConns)
	cfg.MigrateOnStart = getEnvBool("MIGRATE_ON_START", cfg.MigrateOnStart)
	cfg.AIProvider = getEnv("AI_PROVIDER", cfg.AIProvider)
	cfg.HFAPIKey = getEnv("HF_API_KEY", cfg.HFAPIKey)
	cfg.HFModel = getEnv("HF_MODEL", cfg.HFModel)
	cfg.GeminiAPIKey = getEnv("GEMINI_API_KEY", cfg.GeminiAPIKey)
	cfg.GeminiModel = getEnv("GEMINI_MODEL", cfg.GeminiModel)
	cfg.AITimeout = getEnvDuration("AI_TIMEOUT", cfg.AITimeout)
	cfg.S3Endpoint = getEnv("S3_ENDPOINT", cfg.S3Endpoint)
	cfg.S3Region = getEnv("S3_REGION", cfg.S3Region)
	cfg.S3AccessKeyID = getEnv("S3_ACCESS_KEY_ID", cfg.S3AccessKeyID)
	cfg.S3SecretAccessKey = getEnv("S3_SECRET_ACCESS_KEY", cfg.S3SecretAccessKey)
	cfg.S3Bucket = getEnv("S3_BUCKET", cfg.S3Bucket)
	cfg.NATSURL = getEnv("NATS_URL", cfg.NATSURL)

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks the settings the API server cannot start without.
func (c *Config) Validate() error {
	if c.PostgresConn == "" {
		return errors.New("POSTGRES_CONN is required")
	}
	switch c.AIProvider {
	case "huggingface", "gemini":
	default:
		return fmt.Errorf("unknown AI_PROVIDER %q", c.AIProvider)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == EnvProduction
}

// AttachmentsEnabled reports whether object storage is configured.
func (c *Config) AttachmentsEnabled() bool {
	return c.S3Bucket != "" && c.S3AccessKeyID != "" && c.S3SecretAccessKey != ""
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
