package mdns

import (
	"net"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/mdns"
	"github.com/realitycrawler/crawlink/pkg/xnet"
)

const ServiceType = "_crawlink._udp"

const TXTAPI = "api"

// Station is one crawlink station found on the LAN.
type Station struct {
	Name string         `json:"name"`
	Addr netip.AddrPort `json:"addr"`
	API  int            `json:"api,omitempty"`
}

// NewServer announces the control port. Empty ips means all local addresses.
func NewServer(name string, port int, ips []netip.Addr, txt []string) (*mdns.Server, error) {
	if len(ips) == 0 {
		ips, _ = xnet.LocalAddrs()
	}

	var netIPs []net.IP
	for _, ip := range ips {
		netIPs = append(netIPs, ip.AsSlice())
	}

	// important to set hostName manually with any value and `.local.` tail
	// important to set ips manually
	service, err := mdns.NewMDNSService(
		name, ServiceType, "", name+".local.", port, netIPs, txt,
	)
	if err != nil {
		return nil, err
	}

	return mdns.NewServer(&mdns.Config{Zone: service})
}

// Browse collects stations answering within timeout.
func Browse(timeout time.Duration) ([]Station, error) {
	entries := make(chan *mdns.ServiceEntry, 16)
	params := &mdns.QueryParam{
		Service: ServiceType, Timeout: timeout, Entries: entries, DisableIPv6: true,
	}

	var stations []Station
	done := make(chan struct{})

	go func() {
		for entry := range entries {
			if station, ok := ParseEntry(entry); ok {
				stations = append(stations, station)
			}
		}
		close(done)
	}()

	err := mdns.Query(params)
	close(entries)
	<-done

	return stations, err
}

func ParseEntry(entry *mdns.ServiceEntry) (Station, bool) {
	if !strings.Contains(entry.Name, ServiceType) {
		return Station{}, false
	}

	ip, ok := netip.AddrFromSlice(entry.AddrV4.To4())
	if !ok {
		return Station{}, false
	}

	station := Station{
		Name: strings.TrimSuffix(entry.Name, "."+ServiceType+".local."),
		Addr: netip.AddrPortFrom(ip, uint16(entry.Port)),
	}

	for _, field := range entry.InfoFields {
		if k, v, ok := strings.Cut(field, "="); ok && k == TXTAPI {
			station.API, _ = strconv.Atoi(v)
		}
	}

	return station, true
}
