package common

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ConfigPathEnv names the env var pointing at an optional YAML config file.
const ConfigPathEnv = "NOTAFISCAL_CONFIG"

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Batch    BatchConfig    `yaml:"batch"`
}

// DatabaseConfig holds run-history database configuration. An empty DSN disables run history.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
	DialTimeout     time.Duration `yaml:"dial_timeout"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr        string        `yaml:"http_addr"`
	GRPCAddr        string        `yaml:"grpc_addr"`
	MaxUploadMB     int           `yaml:"max_upload_mb"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// BatchConfig holds batch-processing configuration
type BatchConfig struct {
	Workers        int           `yaml:"workers"`
	ExportFilename string        `yaml:"export_filename"`
	SkipHidden     bool          `yaml:"skip_hidden"`
	WatchDebounce  time.Duration `yaml:"watch_debounce"`

	// DocumentTimeout bounds the extraction of one document; 0 disables it.
	DocumentTimeout time.Duration `yaml:"document_timeout"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			MaxConns:        10,
			MinConns:        1,
			MaxConnLifetime: 30 * time.Minute,
			MaxConnIdleTime: 5 * time.Minute,
			DialTimeout:     3 * time.Second,
		},
		Server: ServerConfig{
			HTTPAddr:        ":8080",
			GRPCAddr:        ":9090",
			MaxUploadMB:     32,
			ShutdownTimeout: 10 * time.Second,
		},
		Batch: BatchConfig{
			Workers:        1,
			ExportFilename: "NotaFiscal.xlsx",
			SkipHidden:     true,
			WatchDebounce:  500 * time.Millisecond,
		},
	}
}

// LoadConfig builds the configuration from defaults, then the YAML file named by
// NOTAFISCAL_CONFIG (if any), then environment variables.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	if path := os.Getenv(ConfigPathEnv); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.Database.DSN = getEnv("DB_URL", cfg.Database.DSN)
	cfg.Database.MaxConns = getEnvAsInt32("DB_MAX_CONNS", cfg.Database.MaxConns)
	cfg.Database.MinConns = getEnvAsInt32("DB_MIN_CONNS", cfg.Database.MinConns)
	cfg.Database.MaxConnLifetime = getEnvAsDuration("DB_MAX_CONN_LIFETIME", cfg.Database.MaxConnLifetime)
	cfg.Database.MaxConnIdleTime = getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", cfg.Database.MaxConnIdleTime)
	cfg.Database.DialTimeout = getEnvAsDuration("DB_DIAL_TIMEOUT", cfg.Database.DialTimeout)

	cfg.Server.HTTPAddr = getEnv("HTTP_ADDR", cfg.Server.HTTPAddr)
	cfg.Server.GRPCAddr = getEnv("GRPC_ADDR", cfg.Server.GRPCAddr)
	cfg.Server.MaxUploadMB = getEnvAsInt("MAX_UPLOAD_MB", cfg.Server.MaxUploadMB)
	cfg.Server.ShutdownTimeout = getEnvAsDuration("SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)

	cfg.Batch.Workers = getEnvAsInt("BATCH_WORKERS", cfg.Batch.Workers)
	cfg.Batch.ExportFilename = getEnv("EXPORT_FILENAME", cfg.Batch.ExportFilename)
	cfg.Batch.SkipHidden = getEnvAsBool("SKIP_HIDDEN", cfg.Batch.SkipHidden)
	cfg.Batch.WatchDebounce = getEnvAsDuration("WATCH_DEBOUNCE", cfg.Batch.WatchDebounce)
	cfg.Batch.DocumentTimeout = getEnvAsDuration("DOCUMENT_TIMEOUT", cfg.Batch.DocumentTimeout)

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return NewAppError(CodeConfig, fmt.Sprintf("read config %s", path), err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return NewAppError(CodeConfig, fmt.Sprintf("parse config %s", path), err)
	}
	return nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (default ".env") into the
// process environment. Missing files are ignored; existing variables win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator().
		Field("server.http_addr", c.Server.HTTPAddr, Required).
		Field("batch.export_filename", c.Batch.ExportFilename, Required, SpreadsheetName)
	if v.HasErrors() {
		return NewAppError(CodeConfig, v.ErrorMessage(), ErrInvalidInput)
	}
	if c.Batch.Workers < 1 {
		return NewAppError(CodeConfig, "BATCH_WORKERS must be >= 1", ErrInvalidInput)
	}
	if c.Batch.DocumentTimeout < 0 {
		return NewAppError(CodeConfig, "DOCUMENT_TIMEOUT must not be negative", ErrInvalidInput)
	}
	if c.Server.MaxUploadMB <= 0 {
		return NewAppError(CodeConfig, "MAX_UPLOAD_MB must be > 0", ErrInvalidInput)
	}
	if c.Database.DSN != "" && c.Database.MinConns > c.Database.MaxConns {
		return NewAppError(CodeConfig, "DB_MIN_CONNS must not exceed DB_MAX_CONNS", ErrInvalidInput)
	}
	return nil
}

// MaxUploadBytes is the request body limit derived from MaxUploadMB.
func (c ServerConfig) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) * 1024 * 1024
}

// IsPostgres reports whether the DSN targets Postgres rather than a SQLite file.
func (c DatabaseConfig) IsPostgres() bool {
	dsn := strings.ToLower(c.DSN)
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}
