// Package config provides YAML-based configuration management.
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

// ErrMissingCredential is returned when the analysis service key cannot be resolved.
var ErrMissingCredential = errors.New("analysis service credential not set")

// AppConfig represents the root configuration structure
type AppConfig struct {
	Server   ServerConfig   `yaml:"server"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Sessions SessionsConfig `yaml:"sessions"`
	Gate     GateConfig     `yaml:"gate"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port                 int    `yaml:"port"`
	BindAddress          string `yaml:"bind_address"`
	EnableCORS           bool   `yaml:"enable_cors"`
	AllowOrigins         string `yaml:"allow_origins"`
	ReadTimeout          int    `yaml:"read_timeout_seconds"`
	WriteTimeout         int    `yaml:"write_timeout_seconds"`
	IdleTimeout          int    `yaml:"idle_timeout_seconds"`
	BodyLimit            string `yaml:"body_limit"`
	EnableRequestLogging bool   `yaml:"enable_request_logging"`
}

// AnalysisConfig locates the analysis service. The key itself never lives
// in this file; APIKeyEnv names the environment variable that holds it.
type AnalysisConfig struct {
	Endpoint  string `yaml:"endpoint"`
	APIKeyEnv string `yaml:"api_key_env"`
	EnvFile   string `yaml:"env_file"`
}

// SessionsConfig contains session lifetime settings
type SessionsConfig struct {
	MaxSessions            int `yaml:"max_sessions"`
	TimeoutMinutes         int `yaml:"timeout_minutes"`
	CleanupIntervalMinutes int `yaml:"cleanup_interval_minutes"`
}

// GateConfig selects the busy gate backend
type GateConfig struct {
	Backend        string `yaml:"backend"` // memory or redis
	RedisAddr      string `yaml:"redis_addr"`
	RedisPassword  string `yaml:"redis_password"`
	RedisDB        int    `yaml:"redis_db"`
	LockTTLSeconds int    `yaml:"lock_ttl_seconds"`
	KeyPrefix      string `yaml:"key_prefix"`
}

// LogConfig contains logger settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:                 8089,
			BindAddress:          "0.0.0.0",
			EnableCORS:           true,
			AllowOrigins:         "*",
			ReadTimeout:          30,
			WriteTimeout:         30,
			IdleTimeout:          120,
			BodyLimit:            "8M",
			EnableRequestLogging: true,
		},
		Analysis: AnalysisConfig{
			Endpoint:  "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-flash:generateContent",
			APIKeyEnv: "GEMINI_API_KEY",
			EnvFile:   ".env",
		},
		Sessions: SessionsConfig{
			MaxSessions:            100,
			TimeoutMinutes:         30,
			CleanupIntervalMinutes: 5,
		},
		Gate: GateConfig{
			Backend:        "memory",
			RedisAddr:      "localhost:6379",
			LockTTLSeconds: 600,
			KeyPrefix:      "medreport:",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig loads configuration from a YAML file, writing the defaults
// there first if the file does not exist.
func LoadConfig(configPath string) (*AppConfig, error) {
	config := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	config.applyEnvironmentOverrides()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Save saves the configuration to a YAML file
func (c *AppConfig) Save(configPath string) error {
	output, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# Medical Report Analyzer configuration\n# This file is auto-generated on first run\n\n")
	content := append(header, output...)

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if endpoint := os.Getenv("MEDREPORT_ENDPOINT"); endpoint != "" {
		c.Analysis.Endpoint = endpoint
	}

	if addr := os.Getenv("MEDREPORT_GATE_REDIS_ADDR"); addr != "" {
		c.Gate.Backend = "redis"
		c.Gate.RedisAddr = addr
	}
}

// Validate reports settings the server cannot start with.
func (c *AppConfig) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Analysis.Endpoint == "" {
		return errors.New("analysis endpoint must be set")
	}
	if c.Analysis.APIKeyEnv == "" {
		return errors.New("analysis api_key_env must name an environment variable")
	}
	switch c.Gate.Backend {
	case "memory":
	case "redis":
		if c.Gate.RedisAddr == "" {
			return errors.New("gate redis_addr must be set for the redis backend")
		}
	default:
		return fmt.Errorf("unknown gate backend %q", c.Gate.Backend)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

// ResolveAPIKey loads the env file, if present, and returns the analysis
// service credential. Variables already set in the environment win over the file.
func (c *AppConfig) ResolveAPIKey() (string, error) {
	if c.Analysis.EnvFile != "" {
		if err := godotenv.Load(c.Analysis.EnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("failed to load %s: %w", c.Analysis.EnvFile, err)
		}
	}

	key := os.Getenv(c.Analysis.APIKeyEnv)
	if key == "" {
		return "", fmt.Errorf("%w: set %s in the environment or %s", ErrMissingCredential, c.Analysis.APIKeyEnv, c.Analysis.EnvFile)
	}
	return key, nil
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// SessionTimeout returns how long an unused session is kept.
func (c *AppConfig) SessionTimeout() time.Duration {
	return time.Duration(c.Sessions.TimeoutMinutes) * time.Minute
}

// CleanupInterval returns how often expired sessions are swept.
func (c *AppConfig) CleanupInterval() time.Duration {
	if c.Sessions.CleanupIntervalMinutes <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.Sessions.CleanupIntervalMinutes) * time.Minute
}

// LockTTL returns the expiry of a Redis-held busy gate.
func (c *AppConfig) LockTTL() time.Duration {
	return time.Duration(c.Gate.LockTTLSeconds) * time.Second
}
