package config

import (
	"fmt"
	"time"

	"github.com/vas-solutus/tapbridge/pkg/logger"
	"inet.af/netaddr"
)

const (
	DefaultQueueDepth   = 512
	DefaultPollInterval = 10 * time.Millisecond
	DefaultMTU          = 1500
	DefaultMetricsAddr  = ":9109"
	DefaultAPIAddr      = "127.0.0.1:8181"
)

type Config struct {
	Logging LoggingConfig  `yaml:"logging"`
	Metrics MetricsConfig  `yaml:"metrics"`
	API     APIConfig      `yaml:"api"`
	Bridges []BridgeConfig `yaml:"bridges"`
}

type LoggingConfig struct {
	Format     string                     `yaml:"format"`
	Level      logger.LogLevel            `yaml:"level"`
	Components map[string]logger.LogLevel `yaml:"components"`
}

type MetricsConfig struct {
	Enabled       bool   `yaml:"enabled"`
	ListenAddress string `yaml:"listen_address"`
}

type APIConfig struct {
	Enabled       bool   `yaml:"enabled"`
	ListenAddress string `yaml:"listen_address"`
}

type BridgeConfig struct {
	Device       string          `yaml:"device"`
	Transport    TransportConfig `yaml:"transport"`
	Address      string          `yaml:"address"`
	Gateway      string          `yaml:"gateway"`
	MTU          int             `yaml:"mtu"`
	QueueDepth   int             `yaml:"queue_depth"`
	PollInterval Duration        `yaml:"poll_interval"`
	Netns        string          `yaml:"netns"`
}

// Duration accepts both "10ms" style strings and integer nanoseconds in
// YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := unmarshal(&n); err != nil {
		return err
	}
	*d = Duration(n)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type TransportConfig struct {
	Type    string `yaml:"type"`    // "vsock" or "tcp"
	CID     uint32 `yaml:"cid"`     // vsock context ID of the peer (2 = host)
	Port    uint32 `yaml:"port"`    // vsock port
	Address string `yaml:"address"` // host:port, tcp only
}

// Prefix returns the parsed interface address. Validate has already checked
// it, so this never fails on a loaded config.
func (b *BridgeConfig) Prefix() (netaddr.IPPrefix, error) {
	if b.Address == "" {
		return netaddr.IPPrefix{}, nil
	}
	return netaddr.ParseIPPrefix(b.Address)
}

// GatewayIP returns the parsed default gateway, or the zero IP when none is
// configured.
func (b *BridgeConfig) GatewayIP() (netaddr.IP, error) {
	if b.Gateway == "" {
		return netaddr.IP{}, nil
	}
	return netaddr.ParseIP(b.Gateway)
}
