//go:build !linux

package manager

import (
	"errors"

	"github.com/vas-solutus/tapbridge/internal/bridge"
	"github.com/vas-solutus/tapbridge/pkg/config"
	"github.com/vas-solutus/tapbridge/pkg/vtap"
)

func defaultDeviceFactory(cfg config.BridgeConfig) bridge.DeviceOpener {
	return func() (vtap.Device, error) {
		return nil, errors.New("TAP devices require Linux")
	}
}
