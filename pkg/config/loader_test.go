package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
logging:
  format: json
  level: debug
  components:
    bridge.rx: warn
metrics:
  enabled: true
api:
  enabled: true
  listen_address: 127.0.0.1:9000
bridges:
  - device: eth0
    transport:
      type: vsock
      cid: 2
      port: 5000
    address: 172.18.0.2/24
    gateway: 172.18.0.1
    mtu: 1500
    queue_depth: 256
    poll_interval: 5ms
  - device: eth1
    transport:
      type: tcp
      address: 127.0.0.1:7777
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, ":9109", cfg.Metrics.ListenAddress, "metrics address defaulted")
	assert.Equal(t, "127.0.0.1:9000", cfg.API.ListenAddress)

	require.Len(t, cfg.Bridges, 2)

	b0 := cfg.Bridges[0]
	assert.Equal(t, "eth0", b0.Device)
	assert.Equal(t, uint32(2), b0.Transport.CID)
	assert.Equal(t, uint32(5000), b0.Transport.Port)
	assert.Equal(t, 256, b0.QueueDepth)
	assert.Equal(t, 5*time.Millisecond, b0.PollInterval.Std())

	prefix, err := b0.Prefix()
	require.NoError(t, err)
	assert.Equal(t, "172.18.0.2/24", prefix.String())

	gw, err := b0.GatewayIP()
	require.NoError(t, err)
	assert.Equal(t, "172.18.0.1", gw.String())

	b1 := cfg.Bridges[1]
	assert.Equal(t, "tcp", b1.Transport.Type)
	assert.Equal(t, 1500, b1.MTU, "mtu defaulted")
	assert.Equal(t, 512, b1.QueueDepth, "queue depth defaulted")
	assert.Equal(t, 10*time.Millisecond, b1.PollInterval.Std(), "poll interval defaulted")
}

func TestLoadDefaultsTransportType(t *testing.T) {
	path := writeConfig(t, `
bridges:
  - device: eth0
    transport:
      port: 5000
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "vsock", cfg.Bridges[0].Transport.Type)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"missing device", `
bridges:
  - transport: {type: vsock, port: 5000}
`},
		{"duplicate device", `
bridges:
  - device: eth0
    transport: {type: vsock, port: 5000}
  - device: eth0
    transport: {type: vsock, port: 5001}
`},
		{"vsock without port", `
bridges:
  - device: eth0
    transport: {type: vsock}
`},
		{"tcp without address", `
bridges:
  - device: eth0
    transport: {type: tcp}
`},
		{"unknown transport", `
bridges:
  - device: eth0
    transport: {type: carrier-pigeon}
`},
		{"bad address", `
bridges:
  - device: eth0
    transport: {type: vsock, port: 5000}
    address: not-a-prefix
`},
		{"mtu out of range", `
bridges:
  - device: eth0
    transport: {type: vsock, port: 5000}
    mtu: 12
`},
		{"bad gateway", `
bridges:
  - device: eth0
    transport: {type: vsock, port: 5000}
    address: 172.18.0.2/24
    gateway: not-an-ip
`},
		{"gateway without address", `
bridges:
  - device: eth0
    transport: {type: vsock, port: 5000}
    gateway: 172.18.0.1
`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
