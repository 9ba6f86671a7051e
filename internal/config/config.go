// Package config loads service configuration from defaults, an optional YAML
// file, a .env file and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jusunglee/ciphertrack-go/internal/feed"
)

// DefaultPath is read when no config file is named
const DefaultPath = "config.yml"

// Config is the service configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Refresh  RefreshConfig  `yaml:"refresh"`
	Settings SettingsConfig `yaml:"settings"`
	Notify   NotifyConfig   `yaml:"notify"`
	LogLevel string         `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
}

type ServerConfig struct {
	Port int `yaml:"port" validate:"min=1,max=65535"`
}

type UpstreamConfig struct {
	URL      string        `yaml:"url" validate:"required,url"`
	ProxyURL string        `yaml:"proxy_url" validate:"omitempty,url"`
	Timeout  time.Duration `yaml:"timeout" validate:"gt=0"`
}

type RefreshConfig struct {
	Interval time.Duration `yaml:"interval" validate:"gt=0"`
}

type SettingsConfig struct {
	Backend    string `yaml:"backend" validate:"oneof=memory sqlite redis"`
	SQLitePath string `yaml:"sqlite_path" validate:"required_if=Backend sqlite"`
	RedisAddr  string `yaml:"redis_addr" validate:"required_if=Backend redis"`
}

// NotifyConfig enables the AMQP snapshot publisher when URL is set
type NotifyConfig struct {
	AMQPURL string `yaml:"amqp_url" validate:"omitempty,url"`
	Queue   string `yaml:"queue"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Server: ServerConfig{Port: 8080},
		Upstream: UpstreamConfig{
			URL:      feed.DefaultUpstreamURL,
			ProxyURL: feed.DefaultProxyURL,
			Timeout:  15 * time.Second,
		},
		Refresh: RefreshConfig{Interval: 30 * time.Second},
		Settings: SettingsConfig{
			Backend:    "sqlite",
			SQLitePath: "data/ciphertrack.db",
			RedisAddr:  "redis:6379",
		},
		Notify:   NotifyConfig{Queue: "ciphertrack.status"},
		LogLevel: "info",
	}
}

// Load builds the configuration. path names a YAML file; when empty,
// DefaultPath is used if it exists.
func Load(path string) (*Config, error) {
	cfg := Default()

	optional := path == ""
	if optional {
		path = DefaultPath
	}
	if err := cfg.loadFile(path); err != nil {
		if !(optional && errors.Is(err, fs.ErrNotExist)) {
			return nil, err
		}
	}

	// .env is optional but must parse when present
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Server.Port)
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("UPSTREAM_URL"); v != "" {
		c.Upstream.URL = v
	}
	// an empty PROXY_URL disables the proxy
	if v, ok := os.LookupEnv("PROXY_URL"); ok {
		c.Upstream.ProxyURL = v
	}
	if v := os.Getenv("SETTINGS_BACKEND"); v != "" {
		c.Settings.Backend = v
	}
	if v := os.Getenv("SQLITE_DATABASE"); v != "" {
		c.Settings.SQLitePath = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Settings.RedisAddr = v
	}
	if v := os.Getenv("AMQP_URL"); v != "" {
		c.Notify.AMQPURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if err := envDuration("POLL_INTERVAL", &c.Refresh.Interval); err != nil {
		return err
	}
	if err := envDuration("FETCH_TIMEOUT", &c.Upstream.Timeout); err != nil {
		return err
	}
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = d
	return nil
}
