package xnet

import (
	"net"
	"net/netip"
	"strconv"
)

// ParseUnspecifiedPort will return port if address is unspecified
// ex. ":23232" or "0.0.0.0:23232"
func ParseUnspecifiedPort(address string) int {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return 0
	}

	if host != "" && host != "0.0.0.0" && host != "[::]" {
		return 0
	}

	i, _ := strconv.Atoi(port)
	return i
}

// Prefixes returns IPv4 networks of all up, non loopback interfaces.
func Prefixes(filter func(addr netip.Addr) bool) ([]netip.Prefix, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	var prefixes []netip.Prefix

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, _ := iface.Addrs() // range on nil slice is OK
		for _, addr := range addrs {
			v, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}

			ip, ok := netip.AddrFromSlice(v.IP.To4())
			if !ok {
				continue
			}
			if filter != nil && !filter(ip) {
				continue
			}

			ones, _ := v.Mask.Size()
			prefixes = append(prefixes, netip.PrefixFrom(ip, ones))
		}
	}

	return prefixes, nil
}

// LocalAddrs returns the station's own IPv4 addresses.
func LocalAddrs() ([]netip.Addr, error) {
	prefixes, err := Prefixes(nil)
	if err != nil {
		return nil, err
	}

	addrs := make([]netip.Addr, 0, len(prefixes))
	for _, prefix := range prefixes {
		addrs = append(addrs, prefix.Addr())
	}
	return addrs, nil
}

// Broadcasts returns directed broadcast addresses of local networks.
func Broadcasts() ([]netip.Addr, error) {
	prefixes, err := Prefixes(nil)
	if err != nil {
		return nil, err
	}

	var addrs []netip.Addr
	for _, prefix := range prefixes {
		if addr, ok := Broadcast(prefix); ok {
			addrs = append(addrs, addr)
		}
	}
	return addrs, nil
}

// Broadcast returns the last address of an IPv4 network.
// Point-to-point networks (/31, /32) have none.
func Broadcast(prefix netip.Prefix) (netip.Addr, bool) {
	if !prefix.Addr().Is4() || prefix.Bits() < 0 || prefix.Bits() > 30 {
		return netip.Addr{}, false
	}

	b := prefix.Masked().Addr().As4()
	host := ^uint32(0) >> prefix.Bits()
	b[0] |= byte(host >> 24)
	b[1] |= byte(host >> 16)
	b[2] |= byte(host >> 8)
	b[3] |= byte(host)

	return netip.AddrFrom4(b), true
}
