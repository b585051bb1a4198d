// Package config loads server configuration. Precedence, lowest to
// highest: built-in defaults, YAML config file, PARLO_* environment
// variables, command-line flags.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"parlo/internal/auth"
	"parlo/internal/llm"
	"parlo/internal/store"
)

// Duration wraps time.Duration so YAML values like "30s" parse.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the full server configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	DBPath  string        `yaml:"dbPath"`
	Auth    auth.Config   `yaml:"auth"`
	LLM     llm.Config    `yaml:"llm"`
	Session SessionConfig `yaml:"session"`
	Debug   bool          `yaml:"debug"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr            string   `yaml:"addr"`
	ReadTimeout     Duration `yaml:"readTimeout"`
	WriteTimeout    Duration `yaml:"writeTimeout"`
	ShutdownTimeout Duration `yaml:"shutdownTimeout"`
	CORSOrigins     []string `yaml:"corsOrigins"`
}

// SessionConfig tunes the in-memory session store.
type SessionConfig struct {
	TTL         Duration `yaml:"ttl"`
	MaxSessions int      `yaml:"maxSessions"`
}

// Default returns the built-in configuration.
func Default() Config {
	dbPath, err := store.DefaultDBPath()
	if err != nil {
		dbPath = "parlo.db"
	}
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     Duration(30 * time.Second),
			WriteTimeout:    Duration(60 * time.Second),
			ShutdownTimeout: Duration(10 * time.Second),
			CORSOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
		},
		DBPath:  dbPath,
		Auth:    auth.Config{Enabled: false},
		LLM:     llm.DefaultConfig(),
		Session: SessionConfig{TTL: Duration(30 * time.Minute), MaxSessions: 10000},
	}
}

// Load builds the configuration from defaults, an optional YAML file, and
// the environment. An empty path skips the file layer.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overlays PARLO_* environment variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("PARLO_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("PARLO_DB"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("PARLO_DEBUG"); v != "" {
		c.Debug = boolValue(v)
	}

	if v := os.Getenv("PARLO_AUTH_ENABLED"); v != "" {
		c.Auth.Enabled = boolValue(v)
	}
	if v := os.Getenv("PARLO_TENANT_ID"); v != "" {
		c.Auth.TenantID = v
	}
	if v := os.Getenv("PARLO_API_AUDIENCE"); v != "" {
		c.Auth.Audience = v
	}

	if v := os.Getenv("PARLO_SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Session.TTL = Duration(d)
		}
	}
	if v := os.Getenv("PARLO_SESSION_MAX"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Session.MaxSessions = n
		}
	}

	c.LLM.ApplyEnv()
}

func boolValue(s string) bool {
	switch s {
	case "false", "0", "no", "off":
		return false
	}
	return true
}
