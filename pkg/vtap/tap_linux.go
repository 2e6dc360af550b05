//go:build linux

package vtap

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"net"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vishvananda/netlink"
	"github.com/vishvananda/netns"
	"golang.org/x/sys/unix"

	"github.com/vas-solutus/tapbridge/pkg/logger"
)

const tunDevicePath = "/dev/net/tun"

const pumpReadDeadline = 500 * time.Millisecond

// TAP is the Linux implementation of Device, backed by /dev/net/tun with
// IFF_TAP|IFF_NO_PI. The interface is non-persistent: closing the fd
// destroys it.
type TAP struct {
	cfg    Config
	file   *os.File
	nlh    *netlink.Handle
	link   netlink.Link
	hwaddr net.HardwareAddr
	logger *slog.Logger

	// mu guards onTransmit and closed. The pump never takes it: the
	// callback is captured at activation, so Deactivate can wait for the
	// pump while a frame is in flight.
	mu         sync.Mutex
	onTransmit TransmitFunc
	active     atomic.Bool
	closed     bool
	pumpWG     sync.WaitGroup
}

// CreateTAP opens the tun clone device and instantiates the named TAP
// interface. When cfg.Netns names a network namespace, the interface is
// created inside it.
func CreateTAP(cfg Config) (*TAP, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("tap device name required")
	}
	if cfg.MTU <= 0 {
		cfg.MTU = DefaultMTU
	}

	t := &TAP{
		cfg:    cfg,
		logger: logger.Component(logger.ComponentVTap),
	}

	open := func() error { return t.open() }
	var err error
	if cfg.Netns != "" {
		err = inNetns(cfg.Netns, open)
	} else {
		err = open()
	}
	if err != nil {
		return nil, err
	}

	if err := t.setupLink(); err != nil {
		t.file.Close()
		if t.nlh != nil {
			t.nlh.Close()
		}
		return nil, err
	}

	t.logger.Info("TAP device created", "name", cfg.Name, "mac", t.hwaddr.String(), "mtu", cfg.MTU)
	return t, nil
}

func (t *TAP) open() error {
	fd, err := unix.Open(tunDevicePath, unix.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", tunDevicePath, err)
	}

	ifr, err := unix.NewIfreq(t.cfg.Name)
	if err != nil {
		unix.Close(fd)
		return fmt.Errorf("ifreq for %q: %w", t.cfg.Name, err)
	}
	ifr.SetUint16(unix.IFF_TAP | unix.IFF_NO_PI)

	if err := unix.IoctlIfreq(fd, unix.TUNSETIFF, ifr); err != nil {
		unix.Close(fd)
		return fmt.Errorf("TUNSETIFF %q: %w", t.cfg.Name, err)
	}

	// Nonblocking before os.NewFile so the runtime poller owns the fd and
	// read deadlines work on the pump.
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return fmt.Errorf("set nonblock: %w", err)
	}

	t.file = os.NewFile(uintptr(fd), tunDevicePath)
	return nil
}

func (t *TAP) setupLink() error {
	var err error
	if t.cfg.Netns != "" {
		nsHandle, nsErr := netns.GetFromName(t.cfg.Netns)
		if nsErr != nil {
			return fmt.Errorf("get netns %q: %w", t.cfg.Netns, nsErr)
		}
		defer nsHandle.Close()
		t.nlh, err = netlink.NewHandleAt(nsHandle)
	} else {
		t.nlh, err = netlink.NewHandle()
	}
	if err != nil {
		return fmt.Errorf("netlink handle: %w", err)
	}

	t.link, err = t.nlh.LinkByName(t.cfg.Name)
	if err != nil {
		return fmt.Errorf("netlink link %q: %w", t.cfg.Name, err)
	}

	mac := make(net.HardwareAddr, 6)
	if _, err := rand.Read(mac); err != nil {
		return fmt.Errorf("generate mac: %w", err)
	}
	mac[0] = (mac[0] & 0xfe) | 0x02 // locally administered, unicast

	if err := t.nlh.LinkSetHardwareAddr(t.link, mac); err != nil {
		return fmt.Errorf("set mac: %w", err)
	}
	t.hwaddr = mac
	return nil
}

func (t *TAP) Name() string {
	return t.cfg.Name
}

func (t *TAP) HardwareAddr() net.HardwareAddr {
	return t.hwaddr
}

func (t *TAP) Register() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrDeviceClosed
	}

	if t.cfg.Address.IsValid() {
		if err := t.nlh.AddrAdd(t.link, &netlink.Addr{IPNet: t.cfg.Address.IPNet()}); err != nil {
			return fmt.Errorf("assign %s to %s: %w", t.cfg.Address, t.cfg.Name, err)
		}
	}

	if err := t.nlh.LinkSetMTU(t.link, t.cfg.MTU); err != nil {
		return fmt.Errorf("set mtu %d on %s: %w", t.cfg.MTU, t.cfg.Name, err)
	}
	return nil
}

func (t *TAP) OnTransmit(fn TransmitFunc) {
	t.mu.Lock()
	t.onTransmit = fn
	t.mu.Unlock()
}

func (t *TAP) Activate() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrDeviceClosed
	}
	if t.active.Load() {
		return nil
	}

	if err := t.nlh.LinkSetUp(t.link); err != nil {
		return fmt.Errorf("link up %s: %w", t.cfg.Name, err)
	}

	// The gateway route needs the link up first or the kernel rejects the
	// next-hop as unreachable. Taking the link down removes it again, so
	// Deactivate has nothing to undo.
	if t.cfg.Gateway.IsValid() {
		route := &netlink.Route{
			LinkIndex: t.link.Attrs().Index,
			Gw:        t.cfg.Gateway.IPAddr().IP,
		}
		if err := t.nlh.RouteAdd(route); err != nil {
			return fmt.Errorf("add default route via %s: %w", t.cfg.Gateway, err)
		}
	}

	fn := t.onTransmit
	t.active.Store(true)
	t.pumpWG.Add(1)
	go t.pump(fn)
	return nil
}

func (t *TAP) Deactivate() error {
	if !t.active.CompareAndSwap(true, false) {
		return nil
	}
	t.pumpWG.Wait()

	if err := t.nlh.LinkSetDown(t.link); err != nil {
		return fmt.Errorf("link down %s: %w", t.cfg.Name, err)
	}
	return nil
}

// pump reads frames the stack queued on the TAP fd and hands each one to the
// transmit upcall. The short read deadline is what lets it notice
// deactivation without a separate wakeup channel.
func (t *TAP) pump(fn TransmitFunc) {
	defer t.pumpWG.Done()

	buf := make([]byte, MaxFrameSize)
	for t.active.Load() {
		t.file.SetReadDeadline(time.Now().Add(pumpReadDeadline))

		n, err := t.file.Read(buf)
		if err != nil {
			if os.IsTimeout(err) {
				continue
			}
			if t.active.Load() {
				t.logger.Error("TAP read failed", "name", t.cfg.Name, "error", err)
			}
			return
		}
		if n == 0 || fn == nil {
			continue
		}

		frame := make([]byte, n)
		copy(frame, buf[:n])
		fn(frame)
	}
}

func (t *TAP) InjectReceived(frame []byte) error {
	if err := validateFrame(frame); err != nil {
		return err
	}
	if !t.active.Load() {
		return ErrDeviceDown
	}
	if _, err := t.file.Write(frame); err != nil {
		return fmt.Errorf("tap write: %w", err)
	}
	return nil
}

func (t *TAP) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	t.Deactivate()

	err := t.file.Close()
	t.nlh.Close()
	t.logger.Info("TAP device released", "name", t.cfg.Name)
	return err
}

// inNetns runs fn with the calling thread switched into the named network
// namespace, restoring the original namespace before returning.
func inNetns(name string, fn func() error) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	origin, err := netns.Get()
	if err != nil {
		return fmt.Errorf("get current netns: %w", err)
	}
	defer origin.Close()

	target, err := netns.GetFromName(name)
	if err != nil {
		return fmt.Errorf("get netns %q: %w", name, err)
	}
	defer target.Close()

	if err := netns.Set(target); err != nil {
		return fmt.Errorf("enter netns %q: %w", name, err)
	}
	defer netns.Set(origin)

	return fn()
}
