package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all dashboard configuration.
type Config struct {
	Gateway struct {
		Endpoint       string        `yaml:"endpoint"`
		RequestTimeout time.Duration `yaml:"request_timeout"`
		MaxRetries     int           `yaml:"max_retries"`
		PollInterval   time.Duration `yaml:"poll_interval"`
	} `yaml:"gateway"`
	Wallet struct {
		BridgeEndpoint string `yaml:"bridge_endpoint"`
	} `yaml:"wallet"`
	Server struct {
		ListenAddr string `yaml:"listen_addr"`
	} `yaml:"server"`
	HistoryBuckets int   `yaml:"history_buckets"`
	HistorySeed    int64 `yaml:"history_seed"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error; flags and env
// can carry the full configuration.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("GATEWAY_ENDPOINT"); v != "" {
		cfg.Gateway.Endpoint = v
	}
	if v := os.Getenv("WALLET_BRIDGE_ENDPOINT"); v != "" {
		cfg.Wallet.BridgeEndpoint = v
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.Server.ListenAddr = v
	}

	// Defaults
	if cfg.Gateway.RequestTimeout == 0 {
		cfg.Gateway.RequestTimeout = 30 * time.Second
	}
	if cfg.Gateway.MaxRetries == 0 {
		cfg.Gateway.MaxRetries = 3
	}
	if cfg.Gateway.PollInterval == 0 {
		cfg.Gateway.PollInterval = 2 * time.Second
	}
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.HistoryBuckets == 0 {
		cfg.HistoryBuckets = 30
	}
	if cfg.HistorySeed == 0 {
		cfg.HistorySeed = 1
	}

	return cfg, nil
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Gateway.Endpoint == "" {
		return fmt.Errorf("gateway.endpoint is required")
	}
	if c.HistoryBuckets < 2 {
		return fmt.Errorf("history_buckets must be at least 2")
	}
	return nil
}
