package transport

import (
	"context"
	"errors"
	"io"
	"net"

	"golang.org/x/sys/unix"
)

// A Dialer produces the connected byte stream a bridge forwards frames over.
//
// Frames cross the stream raw, with no added length prefix. This matches the
// reference deployment, where each vsock send on the host side surfaces as a
// single read here. A transport that coalesces or splits sends would break
// frame boundaries; see DESIGN.md before pointing a bridge at one.
type Dialer interface {
	Dial(ctx context.Context) (net.Conn, error)
	String() string
}

// IsTransient reports whether a read/write error should be retried on the
// next loop iteration rather than treated as transport loss.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR)
}

// IsClosed reports whether an error indicates the connection is gone, either
// torn down locally during shutdown or reset by the peer.
func IsClosed(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, net.ErrClosed) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, unix.ECONNRESET) ||
		errors.Is(err, unix.EPIPE)
}
