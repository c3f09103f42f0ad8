package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultRequestTimeout  = 20 * time.Second
	defaultMutationTimeout = 15 * time.Second
	defaultRefreshInterval = 5 * time.Second
	defaultRPS             = 10
	defaultBurst           = 20
	defaultCodeStyle       = "dracula"
)

// Config is the client configuration.
type Config struct {
	BaseURL         string          `yaml:"base_url"`
	CredentialsPath string          `yaml:"credentials_path"`
	RequestTimeout  time.Duration   `yaml:"request_timeout"`
	MutationTimeout time.Duration   `yaml:"mutation_timeout"`
	RefreshInterval time.Duration   `yaml:"refresh_interval"`
	CodeStyle       string          `yaml:"code_style"`
	RateLimit       RateLimitConfig `yaml:"rate_limit"`
	Log             LogConfig       `yaml:"log"`
}

// RateLimitConfig paces outbound requests.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
	File        string `yaml:"file"`
}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// DefaultPath returns ~/.config/agora/config.yaml.
func DefaultPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// DefaultCredentialsPath returns ~/.config/agora/credentials.json.
func DefaultCredentialsPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "credentials.json"), nil
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "agora"), nil
}

// Load reads the YAML file at path (a missing file is fine), loads .env if
// present, then applies environment overrides and defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("AGORA_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("AGORA_CREDENTIALS"); v != "" {
		c.CredentialsPath = v
	}
	if v := os.Getenv("AGORA_CODE_STYLE"); v != "" {
		c.CodeStyle = v
	}
	if v := os.Getenv("AGORA_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("AGORA_LOG_FILE"); v != "" {
		c.Log.File = v
	}
	durations := map[string]*time.Duration{
		"AGORA_REQUEST_TIMEOUT":  &c.RequestTimeout,
		"AGORA_MUTATION_TIMEOUT": &c.MutationTimeout,
		"AGORA_REFRESH_INTERVAL": &c.RefreshInterval,
	}
	for key, target := range durations {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*target = d
	}
	if v := os.Getenv("AGORA_RATE_LIMIT_RPS"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("AGORA_RATE_LIMIT_RPS: %w", err)
		}
		c.RateLimit.RPS = rps
	}
	return nil
}

func (c *Config) applyDefaults() {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.CredentialsPath == "" {
		if path, err := DefaultCredentialsPath(); err == nil {
			c.CredentialsPath = path
		}
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = defaultRequestTimeout
	}
	if c.MutationTimeout == 0 {
		c.MutationTimeout = defaultMutationTimeout
	}
	if c.RefreshInterval == 0 {
		c.RefreshInterval = defaultRefreshInterval
	}
	if c.RateLimit.RPS == 0 {
		c.RateLimit.RPS = defaultRPS
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = defaultBurst
	}
	if c.CodeStyle == "" {
		c.CodeStyle = defaultCodeStyle
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate reports configuration that cannot work.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url is required (set it in the config file or AGORA_BASE_URL)")
	}
	if c.RequestTimeout < 0 || c.MutationTimeout < 0 || c.RefreshInterval < 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if c.RateLimit.RPS < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("rate_limit values must be positive")
	}
	return nil
}
