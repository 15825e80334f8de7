//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package udp

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestBroadcastOption(t *testing.T) {
	conn, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer conn.Close()

	raw, err := conn.SyscallConn()
	require.NoError(t, err)

	var value int
	var opErr error
	require.NoError(t, raw.Control(func(fd uintptr) {
		value, opErr = unix.GetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BROADCAST)
	}))
	require.NoError(t, opErr)
	require.NotZero(t, value)
}
