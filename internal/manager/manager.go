package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vas-solutus/tapbridge/internal/bridge"
	"github.com/vas-solutus/tapbridge/pkg/component"
	"github.com/vas-solutus/tapbridge/pkg/config"
	"github.com/vas-solutus/tapbridge/pkg/logger"
	"github.com/vas-solutus/tapbridge/pkg/transport"
)

const (
	AttachmentActive = "active"
	AttachmentFailed = "failed"
)

var (
	ErrAlreadyAttached = errors.New("device already attached")
	ErrNotFound        = errors.New("device not attached")
)

// DeviceFactory builds the device opener for one attachment. The default
// creates a Linux TAP interface; tests substitute in-memory devices.
type DeviceFactory func(cfg config.BridgeConfig) bridge.DeviceOpener

type Attachment struct {
	ID     uuid.UUID
	Config config.BridgeConfig

	bridge  *bridge.Bridge
	failed  bool
	created time.Time
}

// Manager owns every bridge attachment in the daemon. Attachments declared
// in the config come up with the component; more can be attached and
// detached at runtime through the control API.
type Manager struct {
	*component.Base

	logger  *slog.Logger
	bridges []config.BridgeConfig
	devices DeviceFactory

	mu          sync.RWMutex
	attachments map[string]*Attachment
}

func New(bridges []config.BridgeConfig, devices DeviceFactory) *Manager {
	if devices == nil {
		devices = defaultDeviceFactory
	}
	return &Manager{
		Base:        component.NewBase("manager"),
		logger:      logger.Component(logger.ComponentManager),
		bridges:     bridges,
		devices:     devices,
		attachments: make(map[string]*Attachment),
	}
}

func (m *Manager) Start(ctx context.Context) error {
	m.StartContext(ctx)
	m.logger.Info("Starting bridge manager", "bridges", len(m.bridges))

	for i, cfg := range m.bridges {
		if _, err := m.Attach(ctx, cfg); err != nil {
			// A failed startup leaves nothing half-attached behind.
			for j := i - 1; j >= 0; j-- {
				m.Detach(ctx, m.bridges[j].Device)
			}
			m.StopContext()
			return fmt.Errorf("attach %s: %w", cfg.Device, err)
		}
	}
	return nil
}

func (m *Manager) Stop(ctx context.Context) error {
	m.logger.Info("Stopping bridge manager")

	m.mu.Lock()
	devices := make([]string, 0, len(m.attachments))
	for device := range m.attachments {
		devices = append(devices, device)
	}
	m.mu.Unlock()

	for _, device := range devices {
		if err := m.Detach(ctx, device); err != nil {
			m.logger.Warn("Detach failed during shutdown", "device", device, "error", err)
		}
	}

	m.StopContext()
	return nil
}

func (m *Manager) Attach(ctx context.Context, cfg config.BridgeConfig) (*Attachment, error) {
	m.mu.Lock()
	if _, exists := m.attachments[cfg.Device]; exists {
		m.mu.Unlock()
		return nil, fmt.Errorf("device %s: %w", cfg.Device, ErrAlreadyAttached)
	}
	m.mu.Unlock()

	dialer, err := m.dialer(cfg.Transport)
	if err != nil {
		return nil, err
	}

	br := bridge.New(m.devices(cfg), dialer, bridge.Config{
		Device:       cfg.Device,
		QueueDepth:   cfg.QueueDepth,
		PollInterval: cfg.PollInterval.Std(),
	})

	if err := br.Up(ctx); err != nil {
		return nil, err
	}

	attachment := &Attachment{
		ID:      uuid.New(),
		Config:  cfg,
		bridge:  br,
		created: time.Now(),
	}

	m.mu.Lock()
	if _, exists := m.attachments[cfg.Device]; exists {
		m.mu.Unlock()
		br.Down(ctx)
		return nil, fmt.Errorf("device %s: %w", cfg.Device, ErrAlreadyAttached)
	}
	m.attachments[cfg.Device] = attachment
	m.mu.Unlock()

	m.Go(func() { m.supervise(attachment) })

	m.logger.Info("Network attached",
		"device", cfg.Device, "transport", dialer.String(), "id", attachment.ID)
	return attachment, nil
}

func (m *Manager) Detach(ctx context.Context, device string) error {
	m.mu.Lock()
	attachment, exists := m.attachments[device]
	if !exists {
		m.mu.Unlock()
		return fmt.Errorf("device %s: %w", device, ErrNotFound)
	}
	delete(m.attachments, device)
	m.mu.Unlock()

	err := attachment.bridge.Down(ctx)
	m.logger.Info("Network detached", "device", device)
	return err
}

// supervise reacts to transport loss by tearing the bridge down. The
// attachment stays listed as failed until explicitly detached; there is no
// automatic reconnect.
func (m *Manager) supervise(attachment *Attachment) {
	select {
	case <-attachment.bridge.Lost():
		m.logger.Error("Transport lost, shutting bridge down", "device", attachment.Config.Device)
		m.mu.Lock()
		attachment.failed = true
		m.mu.Unlock()
		attachment.bridge.Down(context.Background())
	case <-m.Ctx.Done():
	}
}

type AttachmentInfo struct {
	ID        string               `json:"id"`
	Device    string               `json:"device"`
	Transport string               `json:"transport"`
	Address   string               `json:"address,omitempty"`
	MAC       string               `json:"mac_address,omitempty"`
	State     string               `json:"state"`
	Uptime    float64              `json:"uptime_seconds"`
	Stats     bridge.StatsSnapshot `json:"stats"`
}

func (m *Manager) List() []AttachmentInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]AttachmentInfo, 0, len(m.attachments))
	for _, a := range m.attachments {
		result = append(result, m.info(a))
	}
	return result
}

func (m *Manager) Get(device string) (AttachmentInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, exists := m.attachments[device]
	if !exists {
		return AttachmentInfo{}, false
	}
	return m.info(a), true
}

func (m *Manager) info(a *Attachment) AttachmentInfo {
	state := AttachmentActive
	if a.failed {
		state = AttachmentFailed
	}
	info := AttachmentInfo{
		ID:      a.ID.String(),
		Device:  a.Config.Device,
		Address: a.Config.Address,
		State:   state,
		Uptime:  time.Since(a.created).Seconds(),
		Stats:   a.bridge.Stats(),
	}
	if dialer, err := m.dialer(a.Config.Transport); err == nil {
		info.Transport = dialer.String()
	}
	if dev := a.bridge.Device(); dev != nil {
		info.MAC = dev.HardwareAddr().String()
	}
	return info
}

// Totals aggregates statistics across all attachments, for the status
// endpoint and the exporter.
func (m *Manager) Totals() bridge.StatsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var total bridge.StatsSnapshot
	for _, a := range m.attachments {
		total = total.Add(a.bridge.Stats())
	}
	return total
}

func (m *Manager) dialer(cfg config.TransportConfig) (transport.Dialer, error) {
	switch cfg.Type {
	case "vsock":
		return &transport.VsockDialer{ContextID: cfg.CID, Port: cfg.Port}, nil
	case "tcp":
		return &transport.TCPDialer{Address: cfg.Address}, nil
	default:
		return nil, fmt.Errorf("unknown transport type %q", cfg.Type)
	}
}
