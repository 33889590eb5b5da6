// Package config loads the OTMP homeserver configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the homeserver.
type Config struct {
	Environment string           `yaml:"environment" json:"environment"`
	Server      ServerConfig     `yaml:"server" json:"server"`
	Register    RegisterConfig   `yaml:"register" json:"register"`
	Postgres    PostgresConfig   `yaml:"postgresdb" json:"postgresdb"`
	RateLimit   RateLimitConfig  `yaml:"ratelimit" json:"ratelimit"`
	OpenAPI     OpenAPIConfig    `yaml:"openapi" json:"openapi"`
	Logging     LoggingConfig    `yaml:"logging" json:"logging"`
	Metrics     MetricsConfig    `yaml:"metrics" json:"metrics"`
	Health      HealthConfig     `yaml:"health" json:"health"`
}

// ServerConfig configures the socket/HTTP listener and the core substrate.
//
// Only PrivateKey and NonceCacheSize are consumed directly by the C1/C2
// core packages; the rest is HTTP listener plumbing around it.
type ServerConfig struct {
	Host           string `yaml:"host" json:"host"`
	Port           int    `yaml:"port" json:"port"`
	ServerName     string `yaml:"server_name" json:"server_name"`
	PrivateKey     string `yaml:"private_key" json:"private_key"`
	NonceCacheSize string `yaml:"nonce_cache_size" json:"nonce_cache_size"`
}

// RegisterConfig controls whether new users may register.
type RegisterConfig struct {
	Enable bool `yaml:"enable" json:"enable"`
}

// PostgresConfig configures the persistence backend.
type PostgresConfig struct {
	User     string `yaml:"user" json:"user"`
	Password string `yaml:"password" json:"password"`
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	Name     string `yaml:"name" json:"name"`
	SSLMode  string `yaml:"sslmode" json:"sslmode"`
}

// RateLimitConfig is carried as inert configuration: the daemon itself
// has no rate-limit middleware, but the setting rides along so a
// fronting HTTP layer can read it from the same config file.
type RateLimitConfig struct {
	Enable     bool          `yaml:"enable" json:"enable"`
	Limit      int           `yaml:"limit" json:"limit"`
	PeriodSecs time.Duration `yaml:"period_secs" json:"period_secs"`
}

// OpenAPIConfig is carried as inert configuration: this daemon does not
// generate an OpenAPI document, but the setting rides along for a
// fronting HTTP layer that might.
type OpenAPIConfig struct {
	Enable bool   `yaml:"enable" json:"enable"`
	Title  string `yaml:"title" json:"title"`
	Path   string `yaml:"path" json:"path"`
}

// LoggingConfig configures internal/logger.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	Output string `yaml:"output" json:"output"`
}

// MetricsConfig configures the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Port    int    `yaml:"port" json:"port"`
	Path    string `yaml:"path" json:"path"`
}

// HealthConfig configures the health check endpoint.
type HealthConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Port    int    `yaml:"port" json:"port"`
}

// LoadFromFile loads configuration from a YAML (or JSON) file on disk.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, fall back to JSON.
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return nil, fmt.Errorf("failed to parse config file (tried YAML and JSON): %w", err)
		}
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	return cfg, nil
}

// SaveToFile saves configuration to a file, picking format by extension.
func SaveToFile(cfg *Config, path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".json") {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func setDefaults(cfg *Config) {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 7627
	}
	if cfg.Server.ServerName == "" {
		cfg.Server.ServerName = "otmpd"
	}
	if cfg.Server.NonceCacheSize == "" {
		cfg.Server.NonceCacheSize = "1MB"
	}
	if cfg.Postgres.SSLMode == "" {
		cfg.Postgres.SSLMode = "disable"
	}
	if cfg.Postgres.Port == 0 {
		cfg.Postgres.Port = 5432
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9100
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Health.Port == 0 {
		cfg.Health.Port = 8080
	}
}
