package bridge

import (
	"errors"

	"github.com/vas-solutus/tapbridge/pkg/framequeue"
	"github.com/vas-solutus/tapbridge/pkg/transport"
)

// txLoop drains the outbound queue and writes each frame to the transport in
// order. The bounded dequeue timeout is what lets it observe shutdown: the
// latency cost is at most one poll interval, which shutdown tolerates.
func (b *Bridge) txLoop() {
	defer close(b.txDone)

	for b.running.Load() {
		frame, err := b.txq.Dequeue(b.cfg.PollInterval)
		if err != nil {
			if errors.Is(err, framequeue.ErrTimeout) {
				continue
			}
			// Queue closed: shutdown in progress.
			return
		}

		if !b.writeFrame(frame) {
			return
		}
	}
}

// writeFrame pushes the whole frame onto the stream, never interleaving it
// with another frame. Reports false on fatal transport error.
func (b *Bridge) writeFrame(frame []byte) bool {
	written := 0
	for written < len(frame) {
		n, err := b.conn.Write(frame[written:])
		written += n
		if err != nil {
			if transport.IsTransient(err) {
				continue
			}
			if !b.running.Load() {
				return false
			}
			b.stats.SendErrors.Add(1)
			b.txLog.Error("Transport write failed", "device", b.cfg.Device, "error", err)
			b.transportLost()
			return false
		}
	}

	b.stats.PacketsSent.Add(1)
	b.stats.BytesSent.Add(uint64(len(frame)))
	return true
}
