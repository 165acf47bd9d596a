package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/camuig/whale-dashboard/internal/format"
)

type Config struct {
	Backend  BackendConfig  `yaml:"backend"`
	Web      WebConfig      `yaml:"web"`
	Storage  StorageConfig  `yaml:"storage"`
	Telegram TelegramConfig `yaml:"telegram"`
	Digest   DigestConfig   `yaml:"digest"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type BackendConfig struct {
	BaseURL            string  `yaml:"base_url"`
	TimeoutSeconds     int     `yaml:"timeout_seconds"`
	RateLimitPerSecond float64 `yaml:"rate_limit_per_second"`
	RateBurst          int     `yaml:"rate_burst"`
}

type WebConfig struct {
	Port        int    `yaml:"port"`
	SessionTTL  string `yaml:"session_ttl"`
	StableSort  bool   `yaml:"stable_sort"`
	ExplorerURL string `yaml:"explorer_url"`
	Timezone    string `yaml:"timezone"`
	PollSeconds int    `yaml:"poll_seconds"`
	MaxSessions int    `yaml:"max_sessions"`
	Debug       bool   `yaml:"debug"`
}

type StorageConfig struct {
	Enabled *bool `yaml:"enabled"`
}

type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
}

type DigestConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Interval string `yaml:"interval"`
	TopN     int    `yaml:"top_n"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	setDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Default returns a config with every default applied, as if loaded from an empty file.
func Default() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	return cfg
}

func setDefaults(cfg *Config) {
	if cfg.Backend.BaseURL == "" {
		cfg.Backend.BaseURL = "http://127.0.0.1:5000"
	}
	if cfg.Backend.RateLimitPerSecond == 0 {
		cfg.Backend.RateLimitPerSecond = 5
	}
	if cfg.Backend.RateBurst == 0 {
		cfg.Backend.RateBurst = 5
	}
	if cfg.Web.Port == 0 {
		cfg.Web.Port = 8080
	}
	if cfg.Web.SessionTTL == "" {
		cfg.Web.SessionTTL = "12h"
	}
	if cfg.Web.ExplorerURL == "" {
		cfg.Web.ExplorerURL = format.DefaultExplorerURL
	}
	if cfg.Web.Timezone == "" {
		cfg.Web.Timezone = "UTC"
	}
	if cfg.Web.MaxSessions == 0 {
		cfg.Web.MaxSessions = 1000
	}
	if cfg.Web.PollSeconds == 0 {
		cfg.Web.PollSeconds = 1
	}
	if cfg.Storage.Enabled == nil {
		enabled := true
		cfg.Storage.Enabled = &enabled
	}
	if cfg.Digest.Interval == "" {
		cfg.Digest.Interval = "1h"
	}
	if cfg.Digest.TopN == 0 {
		cfg.Digest.TopN = 5
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("backend.base_url must be an absolute http(s) URL, got %q", c.Backend.BaseURL)
	}
	if c.Backend.TimeoutSeconds < 0 {
		return fmt.Errorf("backend.timeout_seconds must not be negative")
	}
	if c.Backend.RateLimitPerSecond < 0 {
		return fmt.Errorf("backend.rate_limit_per_second must not be negative")
	}
	if c.Web.Port < 0 || c.Web.Port > 65535 {
		return fmt.Errorf("invalid web.port %d", c.Web.Port)
	}
	if ttl, err := time.ParseDuration(c.Web.SessionTTL); err != nil {
		return fmt.Errorf("invalid web.session_ttl %q: %w", c.Web.SessionTTL, err)
	} else if ttl < 0 {
		return fmt.Errorf("web.session_ttl must not be negative, got %q", c.Web.SessionTTL)
	}
	if c.Web.MaxSessions < 0 {
		return fmt.Errorf("web.max_sessions must not be negative")
	}
	if c.Web.PollSeconds < 0 {
		return fmt.Errorf("web.poll_seconds must not be negative")
	}
	if !strings.Contains(c.Web.ExplorerURL, "{wallet}") {
		return fmt.Errorf("web.explorer_url must contain {wallet}")
	}
	if _, err := time.LoadLocation(c.Web.Timezone); err != nil {
		return fmt.Errorf("invalid web.timezone %q: %w", c.Web.Timezone, err)
	}
	if interval, err := time.ParseDuration(c.Digest.Interval); err != nil {
		return fmt.Errorf("invalid digest.interval %q: %w", c.Digest.Interval, err)
	} else if interval <= 0 {
		return fmt.Errorf("digest.interval must be positive, got %q", c.Digest.Interval)
	}
	if c.Telegram.Enabled || c.Digest.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram or digest is enabled")
		}
		if c.Telegram.ChatID == 0 {
			return fmt.Errorf("telegram.chat_id is required when telegram or digest is enabled")
		}
	}
	return nil
}

func (c *Config) BackendTimeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSeconds) * time.Second
}

func (c *Config) SessionTTL() time.Duration {
	d, _ := time.ParseDuration(c.Web.SessionTTL)
	return d
}

func (c *Config) DigestInterval() time.Duration {
	d, _ := time.ParseDuration(c.Digest.Interval)
	return d
}

func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Web.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) StorageEnabled() bool {
	return c.Storage.Enabled == nil || *c.Storage.Enabled
}
