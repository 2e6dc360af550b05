package transport

import (
	"context"
	"fmt"
	"net"
)

// TCPDialer is the development and test stand-in for the vsock channel. A
// TCP stream does not preserve per-send boundaries the way vsock does, so it
// is only suitable when the peer writes one frame per segment and frames stay
// under the MSS, which holds for the loopback setups it is meant for.
type TCPDialer struct {
	Address string
}

func (d *TCPDialer) Dial(ctx context.Context) (net.Conn, error) {
	var nd net.Dialer
	conn, err := nd.DialContext(ctx, "tcp", d.Address)
	if err != nil {
		return nil, fmt.Errorf("tcp dial %s: %w", d.Address, err)
	}
	return conn, nil
}

func (d *TCPDialer) String() string {
	return "tcp://" + d.Address
}
