package exporter

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/vas-solutus/tapbridge/internal/bridge"
	"github.com/vas-solutus/tapbridge/internal/manager"
	"github.com/vas-solutus/tapbridge/pkg/config"
	"github.com/vas-solutus/tapbridge/pkg/logger"
	"github.com/vas-solutus/tapbridge/pkg/vtap"
)

func TestCollectorExportsBridgeStats(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go io.Copy(io.Discard, conn)
		}
	}()
	t.Cleanup(func() { ln.Close() })

	mgr := manager.New(nil, func(cfg config.BridgeConfig) bridge.DeviceOpener {
		return func() (vtap.Device, error) {
			return vtap.NewMemory(cfg.Device), nil
		}
	})
	require.NoError(t, mgr.Start(context.Background()))
	t.Cleanup(func() { mgr.Stop(context.Background()) })

	_, err = mgr.Attach(context.Background(), config.BridgeConfig{
		Device:       "tap0",
		Transport:    config.TransportConfig{Type: "tcp", Address: ln.Addr().String()},
		QueueDepth:   16,
		PollInterval: config.Duration(time.Millisecond),
	})
	require.NoError(t, err)

	registry := prometheus.NewRegistry()
	registry.MustRegister(newCollector(mgr, logger.Component("test")))

	families, err := registry.Gather()
	require.NoError(t, err)

	byName := make(map[string]int)
	for _, mf := range families {
		byName[mf.GetName()] = len(mf.GetMetric())
	}

	require.Equal(t, 1, byName["tapbridge_attachments"])
	require.Equal(t, 1, byName["tapbridge_frames_sent_total"])
	require.Equal(t, 1, byName["tapbridge_frames_received_total"])
	require.Equal(t, 1, byName["tapbridge_queue_drops_total"])
}
