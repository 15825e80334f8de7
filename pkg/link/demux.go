package link

import (
	"net/netip"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// DefaultThreshold separates control text from image payloads. It is a size
// heuristic, not a framed protocol: a control token must stay below it and a
// JPEG frame always lands above it.
const DefaultThreshold = 1000

type Verdict byte

const (
	VerdictControl Verdict = iota + 1
	VerdictFrame
	VerdictDropLocal
	VerdictDropForeign
	VerdictDropNoSession
)

func (v Verdict) String() string {
	switch v {
	case VerdictControl:
		return "control"
	case VerdictFrame:
		return "frame"
	case VerdictDropLocal:
		return "drop local"
	case VerdictDropForeign:
		return "drop foreign"
	case VerdictDropNoSession:
		return "drop no session"
	}
	return "unknown"
}

// Datagram is one received UDP payload with its sender.
type Datagram struct {
	From    netip.AddrPort
	Payload []byte
}

// Demuxer routes datagrams from the shared port to the session (control)
// or the frame slot (video).
type Demuxer struct {
	Threshold int

	// OnControl, when set, sees every accepted control token
	OnControl func(from netip.AddrPort, cmd Command)

	session *Session
	filter  *Filter
	log     zerolog.Logger
	limiter *rate.Limiter
}

func NewDemuxer(session *Session, filter *Filter, log zerolog.Logger) *Demuxer {
	return &Demuxer{
		Threshold: DefaultThreshold,
		session:   session,
		filter:    filter,
		log:       log,
		limiter:   rate.NewLimiter(rate.Every(time.Second), 5),
	}
}

func (d *Demuxer) IsFrame(size int) bool {
	threshold := d.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return size >= threshold
}

func (d *Demuxer) Handle(dg Datagram) Verdict {
	from := Unmap(dg.From)

	if d.IsFrame(len(dg.Payload)) {
		v := d.session.AcceptFrame(from, dg.Payload)
		if v != VerdictFrame {
			d.drop(v, from, len(dg.Payload))
		}
		return v
	}

	if d.filter.IsLocal(from.Addr()) {
		return VerdictDropLocal
	}

	remote, connected := d.session.Remote()
	if d.filter.IsForeign(from, remote) {
		d.drop(VerdictDropForeign, from, len(dg.Payload))
		return VerdictDropForeign
	}

	if connected {
		d.session.Touch()
	}

	cmd := ParseCommand(dg.Payload)

	switch cmd {
	case CmdConnected:
		if d.session.HandleConnected(from) {
			d.log.Info().Str("remote", from.String()).Msg("[link] connected")
		}
	case CmdDisconnected:
		if d.session.HandleDisconnected() {
			d.log.Info().Str("remote", from.String()).Msg("[link] disconnected")
		}
	default:
		// tokens meant for the crawler, nothing to do locally
		d.log.Debug().Str("from", from.String()).Str("cmd", string(cmd)).Msg("[link] ignore")
	}

	if d.OnControl != nil {
		d.OnControl(from, cmd)
	}

	return VerdictControl
}

func (d *Demuxer) drop(v Verdict, from netip.AddrPort, size int) {
	if d.limiter != nil && !d.limiter.Allow() {
		return
	}
	d.log.Debug().Str("from", from.String()).Int("size", size).Stringer("verdict", v).Msg("[link] drop")
}
