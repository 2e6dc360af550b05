package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
	"inet.af/netaddr"
)

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Metrics.Enabled && c.Metrics.ListenAddress == "" {
		c.Metrics.ListenAddress = DefaultMetricsAddr
	}
	if c.API.Enabled && c.API.ListenAddress == "" {
		c.API.ListenAddress = DefaultAPIAddr
	}

	for i := range c.Bridges {
		c.Bridges[i].ApplyDefaults()
	}
}

func (b *BridgeConfig) ApplyDefaults() {
	if b.MTU == 0 {
		b.MTU = DefaultMTU
	}
	if b.QueueDepth == 0 {
		b.QueueDepth = DefaultQueueDepth
	}
	if b.PollInterval == 0 {
		b.PollInterval = Duration(DefaultPollInterval)
	}
	if b.Transport.Type == "" {
		b.Transport.Type = "vsock"
	}
}

func (c *Config) Validate() error {
	seen := make(map[string]bool)
	for i, b := range c.Bridges {
		if seen[b.Device] {
			return fmt.Errorf("bridges[%d]: duplicate device %q", i, b.Device)
		}
		seen[b.Device] = true

		if err := b.Validate(); err != nil {
			return fmt.Errorf("bridges[%d]: %w", i, err)
		}
	}
	return nil
}

func (b *BridgeConfig) Validate() error {
	if b.Device == "" {
		return fmt.Errorf("device name required")
	}

	switch b.Transport.Type {
	case "vsock":
		if b.Transport.Port == 0 {
			return fmt.Errorf("vsock port required for %q", b.Device)
		}
	case "tcp":
		if b.Transport.Address == "" {
			return fmt.Errorf("tcp address required for %q", b.Device)
		}
	default:
		return fmt.Errorf("unknown transport type %q", b.Transport.Type)
	}

	if b.Address != "" {
		if _, err := netaddr.ParseIPPrefix(b.Address); err != nil {
			return fmt.Errorf("address %q: %w", b.Address, err)
		}
	}
	if b.Gateway != "" {
		if b.Address == "" {
			return fmt.Errorf("gateway %q requires an interface address", b.Gateway)
		}
		if _, err := netaddr.ParseIP(b.Gateway); err != nil {
			return fmt.Errorf("gateway %q: %w", b.Gateway, err)
		}
	}
	if b.MTU < 68 || b.MTU > 65521 {
		return fmt.Errorf("mtu %d out of range", b.MTU)
	}
	return nil
}
