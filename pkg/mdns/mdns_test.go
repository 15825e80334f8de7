package mdns

import (
	"net"
	"net/netip"
	"testing"

	"github.com/hashicorp/mdns"
	"github.com/stretchr/testify/require"
)

func TestParseEntry(t *testing.T) {
	entry := &mdns.ServiceEntry{
		Name:       "garage._crawlink._udp.local.",
		AddrV4:     net.IPv4(192, 168, 1, 20),
		Port:       23232,
		InfoFields: []string{"api=1984"},
	}

	station, ok := ParseEntry(entry)
	require.True(t, ok)
	require.Equal(t, Station{
		Name: "garage",
		Addr: netip.MustParseAddrPort("192.168.1.20:23232"),
		API:  1984,
	}, station)

	entry.Name = "bridge._hap._tcp.local."
	_, ok = ParseEntry(entry)
	require.False(t, ok)

	entry = &mdns.ServiceEntry{Name: "garage._crawlink._udp.local."}
	_, ok = ParseEntry(entry)
	require.False(t, ok)
}
