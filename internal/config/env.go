package config

import (
	"os"
	"regexp"
	"strconv"
	"strings"
)

// envVarPattern matches ${VAR} or ${VAR:default}
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// SubstituteEnvVars replaces ${VAR} or ${VAR:default} with environment variable values.
func SubstituteEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		parts := envVarPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		varName := parts[1]
		defaultValue := ""
		if len(parts) > 2 {
			defaultValue = parts[2]
		}
		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}

// applyEnvOverrides substitutes ${VAR} placeholders and honors a small set
// of OTMP_-prefixed direct overrides, so secrets never have to live in the
// checked-in config file.
func applyEnvOverrides(cfg *Config) {
	cfg.Server.Host = SubstituteEnvVars(cfg.Server.Host)
	cfg.Server.ServerName = SubstituteEnvVars(cfg.Server.ServerName)
	cfg.Server.PrivateKey = SubstituteEnvVars(cfg.Server.PrivateKey)
	cfg.Server.NonceCacheSize = SubstituteEnvVars(cfg.Server.NonceCacheSize)
	cfg.Postgres.User = SubstituteEnvVars(cfg.Postgres.User)
	cfg.Postgres.Password = SubstituteEnvVars(cfg.Postgres.Password)
	cfg.Postgres.Host = SubstituteEnvVars(cfg.Postgres.Host)
	cfg.Postgres.Name = SubstituteEnvVars(cfg.Postgres.Name)

	if v := os.Getenv("OTMP_SERVER_PRIVATE_KEY"); v != "" {
		cfg.Server.PrivateKey = v
	}
	if v := os.Getenv("OTMP_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("OTMP_REGISTER_ENABLE"); v != "" {
		cfg.Register.Enable = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("OTMP_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
}

// GetEnvironment returns the current deployment environment.
func GetEnvironment() string {
	env := os.Getenv("OTMP_ENV")
	if env == "" {
		env = os.Getenv("ENVIRONMENT")
	}
	if env == "" {
		env = "development"
	}
	return strings.ToLower(env)
}

// IsProduction reports whether the server is running in production.
func IsProduction() bool {
	return GetEnvironment() == "production"
}
