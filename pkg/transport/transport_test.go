package transport

import (
	"context"
	"io"
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(timeoutErr{}))
	assert.True(t, IsTransient(unix.EAGAIN))
	assert.True(t, IsTransient(unix.EINTR))
	assert.True(t, IsTransient(&net.OpError{Op: "read", Err: timeoutErr{}}))

	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(io.EOF))
	assert.False(t, IsTransient(net.ErrClosed))
	assert.False(t, IsTransient(os.ErrPermission))
}

func TestIsClosed(t *testing.T) {
	assert.True(t, IsClosed(io.EOF))
	assert.True(t, IsClosed(net.ErrClosed))
	assert.True(t, IsClosed(unix.ECONNRESET))
	assert.True(t, IsClosed(&net.OpError{Op: "write", Err: unix.EPIPE}))

	assert.False(t, IsClosed(nil))
	assert.False(t, IsClosed(unix.EAGAIN))
}

func TestTCPDialerRoundTrip(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			accepted <- conn
		}
	}()

	d := &TCPDialer{Address: ln.Addr().String()}
	assert.Equal(t, "tcp://"+ln.Addr().String(), d.String())

	conn, err := d.Dial(context.Background())
	require.NoError(t, err)
	defer conn.Close()

	peer := <-accepted
	defer peer.Close()

	payload := []byte{0xde, 0xad, 0xbe, 0xef}
	_, err = conn.Write(payload)
	require.NoError(t, err)

	buf := make([]byte, 16)
	peer.SetReadDeadline(time.Now().Add(time.Second))
	n, err := peer.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, payload, buf[:n])
}

func TestTCPDialerRespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := &TCPDialer{Address: "203.0.113.1:9"}
	_, err := d.Dial(ctx)
	require.Error(t, err)
}
