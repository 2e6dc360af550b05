package transport

import (
	"context"
	"fmt"
	"net"

	"github.com/mdlayher/vsock"
)

// VsockDialer connects to a vsock peer, typically the hypervisor side of a
// guest (CID 2 is the host).
type VsockDialer struct {
	ContextID uint32
	Port      uint32
}

func (d *VsockDialer) Dial(ctx context.Context) (net.Conn, error) {
	type result struct {
		conn *vsock.Conn
		err  error
	}

	// vsock.Dial has no context variant; run it aside so a cancelled
	// startup does not hang on an absent host listener.
	ch := make(chan result, 1)
	go func() {
		conn, err := vsock.Dial(d.ContextID, d.Port, nil)
		ch <- result{conn, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("vsock dial cid %d port %d: %w", d.ContextID, d.Port, r.err)
		}
		return r.conn, nil
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.conn != nil {
				r.conn.Close()
			}
		}()
		return nil, ctx.Err()
	}
}

func (d *VsockDialer) String() string {
	return fmt.Sprintf("vsock://%d:%d", d.ContextID, d.Port)
}
