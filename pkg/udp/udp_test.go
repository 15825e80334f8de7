package udp

import (
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestListen(t *testing.T) {
	port, err := GetFreePort()
	require.NoError(t, err)
	require.NotZero(t, port)

	conn, err := ListenPort(port)
	require.NoError(t, err)
	defer conn.Close()

	require.Equal(t, uint16(port), LocalAddrPort(conn).Port())

	client, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer client.Close()

	addr := LocalAddrPort(client)
	require.True(t, addr.Addr().Is4())

	dst := netip.AddrPortFrom(netip.MustParseAddr("127.0.0.1"), uint16(port))
	_, err = client.WriteToUDPAddrPort([]byte("connect"), dst)
	require.NoError(t, err)

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))

	b := make([]byte, 100)
	n, from, err := conn.ReadFromUDPAddrPort(b)
	require.NoError(t, err)
	require.Equal(t, "connect", string(b[:n]))
	require.Equal(t, addr.Port(), from.Port())
}
