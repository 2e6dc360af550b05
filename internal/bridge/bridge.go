package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vas-solutus/tapbridge/pkg/framequeue"
	"github.com/vas-solutus/tapbridge/pkg/logger"
	"github.com/vas-solutus/tapbridge/pkg/transport"
	"github.com/vas-solutus/tapbridge/pkg/vtap"
)

type State int32

const (
	StateUninitialized State = iota
	StateInterfaceCreated
	StateInterfaceRegistered
	StateTransportConnected
	StateWorkersRunning
	StateInterfaceActive
	StateShuttingDown
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInterfaceCreated:
		return "interface-created"
	case StateInterfaceRegistered:
		return "interface-registered"
	case StateTransportConnected:
		return "transport-connected"
	case StateWorkersRunning:
		return "workers-running"
	case StateInterfaceActive:
		return "active"
	case StateShuttingDown:
		return "shutting-down"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

var ErrAlreadyStarted = errors.New("bridge already started")

const workerStopTimeout = 3 * time.Second

type Config struct {
	Device       string
	QueueDepth   int
	PollInterval time.Duration
}

// DeviceOpener defers interface creation to Up so the bridge owns the full
// resource chain and can unwind it on partial failure.
type DeviceOpener func() (vtap.Device, error)

// Bridge forwards opaque Ethernet frames between one virtual interface and
// one stream transport. The two directions run on independent workers that
// share nothing but the running flag and the shutdown sequencing.
type Bridge struct {
	cfg     Config
	openDev DeviceOpener
	dialer  transport.Dialer
	logger  *slog.Logger
	rxLog   *slog.Logger
	txLog   *slog.Logger

	dev  vtap.Device
	conn net.Conn
	txq  *framequeue.Queue

	// running is the only datum both workers read on every iteration.
	// It is flipped to false exactly once, before any teardown step.
	running atomic.Bool
	state   atomic.Int32

	rxDone chan struct{}
	txDone chan struct{}

	lost     chan struct{}
	lostOnce sync.Once
	downOnce sync.Once

	stats Stats
}

func New(openDev DeviceOpener, dialer transport.Dialer, cfg Config) *Bridge {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Millisecond
	}
	return &Bridge{
		cfg:     cfg,
		openDev: openDev,
		dialer:  dialer,
		logger:  logger.Component(logger.ComponentBridge),
		rxLog:   logger.Component(logger.ComponentBridgeRX),
		txLog:   logger.Component(logger.ComponentBridgeTX),
		txq:     framequeue.New(cfg.QueueDepth),
		rxDone:  make(chan struct{}),
		txDone:  make(chan struct{}),
		lost:    make(chan struct{}),
	}
}

func (b *Bridge) State() State {
	return State(b.state.Load())
}

func (b *Bridge) Device() vtap.Device {
	return b.dev
}

func (b *Bridge) Stats() StatsSnapshot {
	snap := b.stats.Snapshot()
	snap.TxQueueDrops += b.txq.Drops()
	return snap
}

// Lost is closed once when either worker hits a fatal transport error. The
// owner is expected to react by calling Down; the bridge does not reconnect.
func (b *Bridge) Lost() <-chan struct{} {
	return b.lost
}

// Up brings the bridge to steady state. Steps are strictly ordered; a
// failure at any step releases everything acquired so far, so a bridge is
// never left partially initialized.
func (b *Bridge) Up(ctx context.Context) (err error) {
	if !b.state.CompareAndSwap(int32(StateUninitialized), int32(StateInterfaceCreated)) {
		return ErrAlreadyStarted
	}

	var undo []func()
	defer func() {
		if err != nil {
			for i := len(undo) - 1; i >= 0; i-- {
				undo[i]()
			}
			b.state.Store(int32(StateStopped))
		}
	}()

	b.dev, err = b.openDev()
	if err != nil {
		return fmt.Errorf("create interface: %w", err)
	}
	undo = append(undo, func() { b.dev.Close() })

	if err = b.dev.Register(); err != nil {
		return fmt.Errorf("register interface %s: %w", b.cfg.Device, err)
	}
	b.state.Store(int32(StateInterfaceRegistered))

	b.conn, err = b.dialer.Dial(ctx)
	if err != nil {
		return fmt.Errorf("connect transport %s: %w", b.dialer, err)
	}
	undo = append(undo, func() { b.conn.Close() })
	b.state.Store(int32(StateTransportConnected))
	b.logger.Info("Transport connected", "device", b.cfg.Device, "transport", b.dialer.String())

	b.running.Store(true)
	go b.rxLoop()
	go b.txLoop()
	undo = append(undo, func() {
		b.running.Store(false)
		b.txq.Close()
		<-b.rxDone
		<-b.txDone
	})
	b.state.Store(int32(StateWorkersRunning))

	b.dev.OnTransmit(b.queueTransmit)
	if err = b.dev.Activate(); err != nil {
		return fmt.Errorf("activate interface %s: %w", b.cfg.Device, err)
	}
	b.state.Store(int32(StateInterfaceActive))

	b.logger.Info("Bridge up", "device", b.cfg.Device)
	return nil
}

// Down tears the bridge down in the reverse order of Up. Invoking it on a
// bridge that never started, or a second time, is a no-op.
func (b *Bridge) Down(ctx context.Context) error {
	state := b.State()
	if state == StateUninitialized || state == StateStopped {
		return nil
	}

	b.downOnce.Do(func() {
		b.state.Store(int32(StateShuttingDown))
		b.running.Store(false)

		if b.dev != nil {
			if err := b.dev.Deactivate(); err != nil {
				b.logger.Warn("Interface deactivate failed", "device", b.cfg.Device, "error", err)
			}
		}

		// TX first: closing the queue wakes its bounded dequeue.
		b.txq.Close()
		b.waitWorker(b.txDone, "tx")

		// RX is parked in a blocking read; closing the transport is what
		// actually unblocks it.
		if b.conn != nil {
			b.conn.Close()
		}
		b.waitWorker(b.rxDone, "rx")

		if b.dev != nil {
			if err := b.dev.Close(); err != nil {
				b.logger.Warn("Interface release failed", "device", b.cfg.Device, "error", err)
			}
		}

		if purged := b.txq.Purge(); purged > 0 {
			b.logger.Debug("Purged queued frames", "device", b.cfg.Device, "count", purged)
		}

		b.state.Store(int32(StateStopped))
		b.logger.Info("Bridge down", "device", b.cfg.Device)
	})
	return nil
}

func (b *Bridge) waitWorker(done chan struct{}, name string) {
	select {
	case <-done:
	case <-time.After(workerStopTimeout):
		b.logger.Error("Worker did not stop in time", "device", b.cfg.Device, "worker", name)
	}
}

// queueTransmit is the upcall the interface invokes per outbound frame. It
// runs on the stack's transmit path and only enqueues.
func (b *Bridge) queueTransmit(frame []byte) {
	if !b.running.Load() {
		b.stats.TxQueueDrops.Add(1)
		return
	}
	if len(frame) == 0 || len(frame) > vtap.MaxFrameSize {
		b.stats.TxQueueDrops.Add(1)
		return
	}
	if err := b.txq.Enqueue(frame); err != nil {
		// Queue-full drops are counted by the queue itself.
		if !errors.Is(err, framequeue.ErrFull) {
			b.stats.TxQueueDrops.Add(1)
		}
	}
}

func (b *Bridge) transportLost() {
	b.lostOnce.Do(func() {
		close(b.lost)
	})
}
