package framequeue

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrClosed  = errors.New("frame queue closed")
	ErrFull    = errors.New("frame queue full")
	ErrTimeout = errors.New("frame queue dequeue timeout")
)

const DefaultDepth = 512

// Queue is a bounded FIFO of opaque frames, safe for concurrent producers and
// a single consumer. Enqueue never blocks: when the queue is at capacity the
// new frame is dropped and counted, because the producer side runs on the
// network stack's transmit path and must return quickly.
type Queue struct {
	mu     sync.Mutex
	frames chan []byte
	closed bool
	drops  atomic.Uint64
}

func New(depth int) *Queue {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &Queue{
		frames: make(chan []byte, depth),
	}
}

func (q *Queue) Enqueue(frame []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}
	select {
	case q.frames <- frame:
		return nil
	default:
		q.drops.Add(1)
		return ErrFull
	}
}

// Dequeue removes the head frame, waiting up to timeout for one to arrive.
// It returns ErrTimeout when the wait elapses and ErrClosed once the queue is
// closed and drained.
func (q *Queue) Dequeue(timeout time.Duration) ([]byte, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case frame, ok := <-q.frames:
		if !ok {
			return nil, ErrClosed
		}
		return frame, nil
	case <-timer.C:
		return nil, ErrTimeout
	}
}

// Close marks the queue shutting down. Frames already queued remain
// dequeueable until drained. Safe to call more than once.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.frames)
}

// Purge discards all remaining frames and reports how many were dropped.
// Only called during shutdown, after producers have stopped.
func (q *Queue) Purge() int {
	purged := 0
	for {
		select {
		case _, ok := <-q.frames:
			if !ok {
				return purged
			}
			purged++
		default:
			return purged
		}
	}
}

func (q *Queue) Len() int {
	return len(q.frames)
}

// Drops reports frames rejected because the queue was at capacity.
func (q *Queue) Drops() uint64 {
	return q.drops.Load()
}
