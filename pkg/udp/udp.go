package udp

import (
	"context"
	"net"
	"net/netip"
	"strconv"
)

// Listen binds an IPv4 UDP socket that can send and receive broadcasts.
// Address reuse is enabled where the platform allows it.
func Listen(address string) (*net.UDPConn, error) {
	lc := net.ListenConfig{Control: control}

	pc, err := lc.ListenPacket(context.Background(), "udp4", address)
	if err != nil {
		return nil, err
	}

	return pc.(*net.UDPConn), nil
}

// ListenPort binds all interfaces on port.
func ListenPort(port int) (*net.UDPConn, error) {
	return Listen(":" + strconv.Itoa(port))
}

// GetFreePort returns a free UDP port that can be used for listening
func GetFreePort() (int, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero})
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	return conn.LocalAddr().(*net.UDPAddr).Port, nil
}

// LocalAddrPort returns the bound address of conn.
func LocalAddrPort(conn *net.UDPConn) netip.AddrPort {
	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		ap := addr.AddrPort()
		return netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port())
	}
	return netip.AddrPort{}
}
