package link

import (
	"net/netip"
)

// Broadcast is the limited broadcast address, used only as a send target.
var Broadcast = netip.AddrFrom4([4]byte{255, 255, 255, 255})

// Filter holds the station's own identities. Datagrams looped back from any
// of them are never treated as crawler traffic.
type Filter struct {
	local map[netip.Addr]struct{}
}

func NewFilter(local ...netip.Addr) *Filter {
	f := &Filter{local: make(map[netip.Addr]struct{}, len(local))}
	for _, addr := range local {
		if addr.IsValid() {
			f.local[addr.Unmap()] = struct{}{}
		}
	}
	return f
}

func (f *Filter) IsLocal(addr netip.Addr) bool {
	if f == nil {
		return false
	}
	_, ok := f.local[addr.Unmap()]
	return ok
}

// IsForeign reports whether a sender must be ignored because a session with
// another host is active. An invalid remote means no session.
func (f *Filter) IsForeign(from, remote netip.AddrPort) bool {
	return remote.IsValid() && !SameHost(from, remote)
}

// Local returns a copy of the local identities.
func (f *Filter) Local() []netip.Addr {
	if f == nil {
		return nil
	}
	addrs := make([]netip.Addr, 0, len(f.local))
	for addr := range f.local {
		addrs = append(addrs, addr)
	}
	return addrs
}

// IsSentinel reports whether addr can never identify a real peer.
func IsSentinel(addr netip.Addr) bool {
	addr = addr.Unmap()
	return !addr.IsValid() || addr.IsUnspecified() || addr == Broadcast
}

// SameHost compares endpoints by IP only. The crawler streams frames from an
// ephemeral port while its commands come from the control port.
func SameHost(a, b netip.AddrPort) bool {
	return a.Addr().Unmap() == b.Addr().Unmap()
}

// Unmap converts IPv4-mapped IPv6 endpoints to plain IPv4.
func Unmap(ap netip.AddrPort) netip.AddrPort {
	if ap.Addr().Is4In6() {
		return netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port())
	}
	return ap
}
