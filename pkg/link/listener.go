package link

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"sync/atomic"

	"github.com/realitycrawler/crawlink/pkg/udp"
	"github.com/rs/zerolog"
)

const (
	DefaultPort       = 23232
	DefaultBufferSize = 65535

	// MaxDatagramSize is the largest UDP payload over IPv4
	MaxDatagramSize = 65507
)

// Listener owns the control port socket and runs the receive loop.
type Listener struct {
	conn  *net.UDPConn
	demux *Demuxer
	log   zerolog.Logger

	datagrams atomic.Uint64
	bytes     atomic.Uint64
	controls  atomic.Uint64
	frames    atomic.Uint64
	dropped   atomic.Uint64
}

// Listen binds the control port. A bind failure is the only hard error of
// the link, the caller decides whether to retry.
func Listen(address string, bufferSize int, demux *Demuxer, log zerolog.Logger) (*Listener, error) {
	conn, err := udp.Listen(address)
	if err != nil {
		return nil, fmt.Errorf("link: listen %s: %w", address, err)
	}

	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if err = conn.SetReadBuffer(bufferSize); err != nil {
		log.Warn().Err(err).Int("buffer_size", bufferSize).Msg("[link] set read buffer")
	}

	return &Listener{conn: conn, demux: demux, log: log}, nil
}

// Serve reads datagrams until Close. Every datagram is handled before the
// next read, so the demuxer runs on one goroutine only.
func (l *Listener) Serve() error {
	b := make([]byte, MaxDatagramSize)

	for {
		n, from, err := l.conn.ReadFromUDPAddrPort(b)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			l.log.Warn().Err(err).Msg("[link] read")
			continue
		}

		// the slot keeps frame payloads, so b can't be shared
		payload := make([]byte, n)
		copy(payload, b[:n])

		l.handle(Datagram{From: from, Payload: payload})
	}
}

func (l *Listener) handle(dg Datagram) {
	l.datagrams.Add(1)
	l.bytes.Add(uint64(len(dg.Payload)))

	l.log.Trace().Str("from", dg.From.String()).Int("size", len(dg.Payload)).Msg("[link] recv")

	switch l.demux.Handle(dg) {
	case VerdictControl:
		l.controls.Add(1)
	case VerdictFrame:
		l.frames.Add(1)
	default:
		l.dropped.Add(1)
	}
}

func (l *Listener) Close() error {
	return l.conn.Close()
}

// Conn is shared with the emitter so commands leave from the control port
// and replies come back to it.
func (l *Listener) Conn() *net.UDPConn {
	return l.conn
}

func (l *Listener) Addr() netip.AddrPort {
	return udp.LocalAddrPort(l.conn)
}

type Stats struct {
	Datagrams uint64 `json:"datagrams"`
	Bytes     uint64 `json:"bytes"`
	Controls  uint64 `json:"controls"`
	Frames    uint64 `json:"frames"`
	Dropped   uint64 `json:"dropped"`
}

func (l *Listener) Stats() Stats {
	return Stats{
		Datagrams: l.datagrams.Load(),
		Bytes:     l.bytes.Load(),
		Controls:  l.controls.Load(),
		Frames:    l.frames.Load(),
		Dropped:   l.dropped.Load(),
	}
}
