//go:build linux

package manager

import (
	"github.com/vas-solutus/tapbridge/internal/bridge"
	"github.com/vas-solutus/tapbridge/pkg/config"
	"github.com/vas-solutus/tapbridge/pkg/vtap"
)

func defaultDeviceFactory(cfg config.BridgeConfig) bridge.DeviceOpener {
	return func() (vtap.Device, error) {
		devCfg := vtap.Config{
			Name:  cfg.Device,
			MTU:   cfg.MTU,
			Netns: cfg.Netns,
		}
		if cfg.Address != "" {
			prefix, err := cfg.Prefix()
			if err != nil {
				return nil, err
			}
			devCfg.Address = prefix
		}
		if cfg.Gateway != "" {
			gw, err := cfg.GatewayIP()
			if err != nil {
				return nil, err
			}
			devCfg.Gateway = gw
		}
		return vtap.CreateTAP(devCfg)
	}
}
