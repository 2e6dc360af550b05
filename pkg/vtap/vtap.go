package vtap

import (
	"errors"
	"net"

	"inet.af/netaddr"
)

// MaxFrameSize bounds a single Ethernet frame crossing the bridge, header
// included.
const MaxFrameSize = 65535

const DefaultMTU = 1500

var (
	ErrDeviceDown    = errors.New("virtual interface is down")
	ErrDeviceClosed  = errors.New("virtual interface is closed")
	ErrFrameTooLarge = errors.New("frame exceeds maximum size")
	ErrEmptyFrame    = errors.New("empty frame")
)

type Config struct {
	Name    string
	Address netaddr.IPPrefix
	Gateway netaddr.IP
	MTU     int
	Netns   string
}

// TransmitFunc is the upcall invoked once per frame the local stack wants to
// send. It runs on the device's read pump and must not block for long; the
// bridge side only enqueues.
type TransmitFunc func(frame []byte)

// Device is the boundary between the bridge core and whatever presents the
// Ethernet link to the local stack. The real implementation is a Linux TAP
// device; tests use the in-memory one.
type Device interface {
	Name() string
	HardwareAddr() net.HardwareAddr

	// Register attaches the device to the host stack: address assignment
	// and MTU. Called once, between creation and Activate.
	Register() error

	// OnTransmit installs the transmit upcall. Must be called before
	// Activate.
	OnTransmit(fn TransmitFunc)

	// Activate brings the link up and starts delivering transmit upcalls.
	Activate() error

	// Deactivate brings the link down and stops upcalls. Idempotent.
	Deactivate() error

	// InjectReceived delivers a frame from the transport up into the local
	// stack. Returns ErrDeviceDown while the device is not active; the
	// caller drops the frame and accounts for it.
	InjectReceived(frame []byte) error

	// Close releases the device. Idempotent.
	Close() error
}

func validateFrame(frame []byte) error {
	if len(frame) == 0 {
		return ErrEmptyFrame
	}
	if len(frame) > MaxFrameSize {
		return ErrFrameTooLarge
	}
	return nil
}
