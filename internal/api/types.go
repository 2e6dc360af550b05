package api

import (
	"fmt"
	"time"

	"github.com/vas-solutus/tapbridge/internal/bridge"
	"github.com/vas-solutus/tapbridge/internal/manager"
	"github.com/vas-solutus/tapbridge/pkg/config"
)

type AttachRequest struct {
	Device       string `json:"device"`
	Address      string `json:"address,omitempty"`
	Gateway      string `json:"gateway,omitempty"`
	MTU          int    `json:"mtu,omitempty"`
	QueueDepth   int    `json:"queue_depth,omitempty"`
	PollInterval string `json:"poll_interval,omitempty"`
	Netns        string `json:"netns,omitempty"`

	Transport struct {
		Type    string `json:"type,omitempty"`
		CID     uint32 `json:"cid,omitempty"`
		Port    uint32 `json:"port,omitempty"`
		Address string `json:"address,omitempty"`
	} `json:"transport"`
}

func (r *AttachRequest) bridgeConfig() (config.BridgeConfig, error) {
	cfg := config.BridgeConfig{
		Device:     r.Device,
		Address:    r.Address,
		Gateway:    r.Gateway,
		MTU:        r.MTU,
		QueueDepth: r.QueueDepth,
		Netns:      r.Netns,
		Transport: config.TransportConfig{
			Type:    r.Transport.Type,
			CID:     r.Transport.CID,
			Port:    r.Transport.Port,
			Address: r.Transport.Address,
		},
	}
	if r.PollInterval != "" {
		d, err := time.ParseDuration(r.PollInterval)
		if err != nil {
			return config.BridgeConfig{}, fmt.Errorf("invalid poll_interval %q: %w", r.PollInterval, err)
		}
		cfg.PollInterval = config.Duration(d)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return config.BridgeConfig{}, err
	}
	return cfg, nil
}

type ListResponse struct {
	Attachments []manager.AttachmentInfo `json:"attachments"`
}

type StatusResponse struct {
	Version       string               `json:"version"`
	UptimeSeconds float64              `json:"uptime_seconds"`
	Attachments   int                  `json:"attachments"`
	Totals        bridge.StatsSnapshot `json:"totals"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
