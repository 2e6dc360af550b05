package vtap

import (
	"net"
	"sync"
	"sync/atomic"
)

// Memory is an in-process Device used by tests and by the loopback transport
// mode. Frames the "stack" would transmit are submitted with Transmit;
// frames injected by the bridge surface on the Injected channel.
type Memory struct {
	name   string
	hwaddr net.HardwareAddr

	mu         sync.Mutex
	onTransmit TransmitFunc
	active     atomic.Bool
	closed     bool
	injected   chan []byte
}

func NewMemory(name string) *Memory {
	return &Memory{
		name:     name,
		hwaddr:   net.HardwareAddr{0x02, 0x00, 0x5e, 0x00, 0x00, 0x01},
		injected: make(chan []byte, 256),
	}
}

func (m *Memory) Name() string {
	return m.name
}

func (m *Memory) HardwareAddr() net.HardwareAddr {
	return m.hwaddr
}

func (m *Memory) Register() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrDeviceClosed
	}
	return nil
}

func (m *Memory) OnTransmit(fn TransmitFunc) {
	m.mu.Lock()
	m.onTransmit = fn
	m.mu.Unlock()
}

func (m *Memory) Activate() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrDeviceClosed
	}
	m.active.Store(true)
	return nil
}

func (m *Memory) Deactivate() error {
	m.active.Store(false)
	return nil
}

func (m *Memory) InjectReceived(frame []byte) error {
	if err := validateFrame(frame); err != nil {
		return err
	}
	if !m.active.Load() {
		return ErrDeviceDown
	}

	dup := make([]byte, len(frame))
	copy(dup, frame)
	select {
	case m.injected <- dup:
	default:
	}
	return nil
}

// Injected exposes the frames the bridge delivered up into the fake stack.
func (m *Memory) Injected() <-chan []byte {
	return m.injected
}

// Transmit simulates the local stack queueing an outbound frame. It invokes
// the registered upcall synchronously, matching how the TAP read pump calls
// it.
func (m *Memory) Transmit(frame []byte) {
	if !m.active.Load() {
		return
	}
	m.mu.Lock()
	fn := m.onTransmit
	m.mu.Unlock()
	if fn == nil {
		return
	}
	dup := make([]byte, len(frame))
	copy(dup, frame)
	fn(dup)
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	m.active.Store(false)
	close(m.injected)
	return nil
}
