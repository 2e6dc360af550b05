package bridge

import (
	"errors"

	"github.com/vas-solutus/tapbridge/pkg/transport"
	"github.com/vas-solutus/tapbridge/pkg/vtap"
)

// rxLoop owns reading from the transport. Each successful read is one frame,
// copied out and injected into the virtual interface. A fatal read error
// ends the loop and signals transport loss; during shutdown the read is
// unblocked by Down closing the connection.
func (b *Bridge) rxLoop() {
	defer close(b.rxDone)

	buf := make([]byte, vtap.MaxFrameSize)
	for b.running.Load() {
		n, err := b.conn.Read(buf)
		if err != nil {
			if transport.IsTransient(err) {
				continue
			}
			if !b.running.Load() {
				return
			}
			b.stats.ReceiveErrors.Add(1)
			b.rxLog.Error("Transport read failed", "device", b.cfg.Device, "error", err)
			b.transportLost()
			return
		}
		// A zero-byte read on a stream is not EOF.
		if n == 0 {
			continue
		}

		frame := make([]byte, n)
		copy(frame, buf[:n])

		if err := b.dev.InjectReceived(frame); err != nil {
			if errors.Is(err, vtap.ErrDeviceDown) {
				b.stats.RxInjectDrops.Add(1)
				continue
			}
			b.stats.ReceiveErrors.Add(1)
			b.rxLog.Warn("Frame injection failed", "device", b.cfg.Device, "error", err)
			continue
		}

		b.stats.PacketsReceived.Add(1)
		b.stats.BytesReceived.Add(uint64(n))
	}
}
