package link

import (
	"errors"
	"net/netip"

	"github.com/rs/zerolog"
)

var ErrClosed = errors.New("link: no socket")

// PacketWriter is implemented by *net.UDPConn.
type PacketWriter interface {
	WriteToUDPAddrPort(b []byte, addr netip.AddrPort) (int, error)
}

// Sender is anything that can deliver a command to the crawler.
type Sender interface {
	Send(cmd Command) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(cmd Command) error

func (f SenderFunc) Send(cmd Command) error {
	return f(cmd)
}

// Emitter sends commands to the connected crawler, or broadcasts them while
// there is no session. Sends are fire and forget.
type Emitter struct {
	Port          int
	Broadcast     netip.Addr
	BroadcastOnly bool

	w       PacketWriter
	session *Session
	log     zerolog.Logger
}

func NewEmitter(w PacketWriter, session *Session, log zerolog.Logger) *Emitter {
	return &Emitter{
		Port:      DefaultPort,
		Broadcast: Broadcast,
		w:         w,
		session:   session,
		log:       log,
	}
}

// Target returns where the next command goes.
func (e *Emitter) Target() netip.AddrPort {
	if !e.BroadcastOnly {
		if remote, ok := e.session.Remote(); ok {
			return netip.AddrPortFrom(remote.Addr(), uint16(e.Port))
		}
	}
	broadcast := e.Broadcast
	if !broadcast.IsValid() {
		broadcast = Broadcast
	}
	return netip.AddrPortFrom(broadcast, uint16(e.Port))
}

// Send transmits one datagram. A disconnect is applied to the local session
// whatever the outcome of the send.
func (e *Emitter) Send(cmd Command) (err error) {
	if cmd.Verb() == VerbDisconnect {
		defer e.session.HandleDisconnected()
	}

	target := e.Target()

	if e.w == nil {
		err = ErrClosed
	} else {
		_, err = e.w.WriteToUDPAddrPort(cmd.Bytes(), target)
	}

	if err != nil {
		e.log.Warn().Err(err).Str("cmd", string(cmd)).Str("to", target.String()).Msg("[link] send")
		return err
	}

	e.log.Debug().Str("cmd", string(cmd)).Str("to", target.String()).Msg("[link] send")
	return nil
}
