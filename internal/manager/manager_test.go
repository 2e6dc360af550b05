package manager

import (
	"context"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vas-solutus/tapbridge/internal/bridge"
	"github.com/vas-solutus/tapbridge/pkg/config"
	"github.com/vas-solutus/tapbridge/pkg/vtap"
)

func memoryFactory(cfg config.BridgeConfig) bridge.DeviceOpener {
	return func() (vtap.Device, error) {
		return vtap.NewMemory(cfg.Device), nil
	}
}

// sinkServer accepts connections and discards whatever the bridges write.
type sinkServer struct {
	ln net.Listener

	mu    sync.Mutex
	conns []net.Conn
}

func newSinkServer(t *testing.T) *sinkServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := &sinkServer{ln: ln}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			s.mu.Lock()
			s.conns = append(s.conns, conn)
			s.mu.Unlock()
			go io.Copy(io.Discard, conn)
		}
	}()
	t.Cleanup(func() {
		ln.Close()
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, conn := range s.conns {
			conn.Close()
		}
	})
	return s
}

func (s *sinkServer) bridgeConfig(device string) config.BridgeConfig {
	return config.BridgeConfig{
		Device:       device,
		Transport:    config.TransportConfig{Type: "tcp", Address: s.ln.Addr().String()},
		QueueDepth:   16,
		PollInterval: config.Duration(time.Millisecond),
	}
}

func (s *sinkServer) closeConns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conn := range s.conns {
		conn.Close()
	}
	s.conns = nil
}

func TestManagerAttachDetach(t *testing.T) {
	srv := newSinkServer(t)
	m := New(nil, memoryFactory)
	require.NoError(t, m.Start(context.Background()))
	defer m.Stop(context.Background())

	attachment, err := m.Attach(context.Background(), srv.bridgeConfig("tap0"))
	require.NoError(t, err)
	require.NotEmpty(t, attachment.ID.String())

	info, ok := m.Get("tap0")
	require.True(t, ok)
	require.Equal(t, "tap0", info.Device)
	require.Equal(t, AttachmentActive, info.State)
	require.NotEmpty(t, info.MAC)

	_, err = m.Attach(context.Background(), srv.bridgeConfig("tap0"))
	require.Error(t, err)

	require.NoError(t, m.Detach(context.Background(), "tap0"))
	_, ok = m.Get("tap0")
	require.False(t, ok)
	require.Error(t, m.Detach(context.Background(), "tap0"))
}

func TestManagerStartAttachesConfiguredBridges(t *testing.T) {
	srv := newSinkServer(t)
	bridges := []config.BridgeConfig{
		srv.bridgeConfig("tap0"),
		srv.bridgeConfig("tap1"),
	}

	m := New(bridges, memoryFactory)
	require.NoError(t, m.Start(context.Background()))

	require.Len(t, m.List(), 2)
	require.NoError(t, m.Stop(context.Background()))
	require.Empty(t, m.List())
}

func TestManagerStartUnwindsOnFailure(t *testing.T) {
	srv := newSinkServer(t)
	bridges := []config.BridgeConfig{
		srv.bridgeConfig("tap0"),
		{
			Device:    "tap1",
			Transport: config.TransportConfig{Type: "bogus"},
		},
	}

	m := New(bridges, memoryFactory)
	require.Error(t, m.Start(context.Background()))
	require.Empty(t, m.List())
}

func TestManagerTransportLostMarksFailed(t *testing.T) {
	srv := newSinkServer(t)
	m := New(nil, memoryFactory)
	require.NoError(t, m.Start(context.Background()))
	defer m.Stop(context.Background())

	attachment, err := m.Attach(context.Background(), srv.bridgeConfig("tap0"))
	require.NoError(t, err)

	// The bridge only notices the loss when a read or write fails.
	srv.closeConns()
	dev := attachment.bridge.Device().(*vtap.Memory)
	dev.Transmit([]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0, 0, 0, 0, 0, 0, 0x08, 0x00})

	require.Eventually(t, func() bool {
		info, ok := m.Get("tap0")
		return ok && info.State == AttachmentFailed
	}, 5*time.Second, 10*time.Millisecond)
}

func TestManagerTotals(t *testing.T) {
	srv := newSinkServer(t)
	m := New(nil, memoryFactory)
	require.NoError(t, m.Start(context.Background()))
	defer m.Stop(context.Background())

	attachment, err := m.Attach(context.Background(), srv.bridgeConfig("tap0"))
	require.NoError(t, err)

	dev := attachment.bridge.Device().(*vtap.Memory)
	frame := make([]byte, 64)
	dev.Transmit(frame)

	require.Eventually(t, func() bool {
		return m.Totals().PacketsSent == 1 && m.Totals().BytesSent == 64
	}, 5*time.Second, 10*time.Millisecond)
}
