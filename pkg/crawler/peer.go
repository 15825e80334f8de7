package crawler

import (
	"errors"
	"net"
	"net/netip"
	"strconv"
	"sync"
	"time"

	"github.com/realitycrawler/crawlink/pkg/link"
	"github.com/realitycrawler/crawlink/pkg/udp"
	"github.com/rs/zerolog"
)

const (
	DefaultTimeout = 120 * time.Second
	DefaultSpeed   = 80
	DefaultFPS     = 30
)

// Action is one movement the crawler was asked to perform.
type Action struct {
	Name  string `json:"name"`
	Speed int    `json:"speed"`
	Step  []int  `json:"step,omitempty"`
}

// Peer is the crawler side of the link. It binds to the first station that
// sends connect and streams camera frames to it from a separate socket.
type Peer struct {
	// Timeout without input before the peer disconnects on its own
	Timeout time.Duration
	FPS     int
	Frames  FrameSource

	OnAction func(action Action)

	conn *net.UDPConn
	log  zerolog.Logger

	mu      sync.Mutex
	remote  netip.AddrPort
	speed   int
	actions []Action
	stream  *streamer
}

func Listen(address string, log zerolog.Logger) (*Peer, error) {
	conn, err := udp.Listen(address)
	if err != nil {
		return nil, err
	}

	return &Peer{
		Timeout: DefaultTimeout,
		FPS:     DefaultFPS,
		Frames:  &Pattern{},
		conn:    conn,
		log:     log,
		speed:   DefaultSpeed,
	}, nil
}

func (p *Peer) Addr() netip.AddrPort {
	return udp.LocalAddrPort(p.conn)
}

// Serve handles commands until quit or Close.
func (p *Peer) Serve() error {
	b := make([]byte, 1024)

	for {
		if p.Timeout > 0 {
			_ = p.conn.SetReadDeadline(time.Now().Add(p.Timeout))
		}

		n, from, err := p.conn.ReadFromUDPAddrPort(b)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				if _, ok := p.Remote(); ok {
					p.log.Info().Dur("timeout", p.Timeout).Msg("[crawler] no input, disconnecting")
					p.disconnect()
				}
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			p.log.Warn().Err(err).Msg("[crawler] read")
			continue
		}

		if p.Handle(link.Unmap(from), link.ParseCommand(b[:n])) {
			return nil
		}
	}
}

// Handle runs one command and returns true when the peer must terminate.
func (p *Peer) Handle(from netip.AddrPort, cmd link.Command) (quit bool) {
	remote, bound := p.Remote()

	p.log.Debug().Str("from", from.String()).Str("cmd", string(cmd)).Bool("bound", bound).Msg("[crawler] recv")

	if bound && from != remote {
		p.log.Debug().Str("from", from.String()).Msg("[crawler] ignore foreign")
		return false
	}

	switch cmd.Verb() {
	case link.VerbConnect:
		if !bound {
			p.connect(from)
		}
		return false
	}

	if !bound {
		return false
	}

	switch cmd.Verb() {
	case link.VerbDisconnect:
		p.disconnect()
	case "quit":
		p.disconnect()
		return true
	case link.VerbStartCam:
		p.startCam()
	case link.VerbStopCam:
		p.stopCam()
	case "move":
		switch cmd {
		case link.CmdMoveForward:
			p.action(Action{Name: "forward"})
		case link.CmdMoveBackward:
			p.action(Action{Name: "backward"})
		case link.CmdMoveLeft:
			p.action(Action{Name: "turn left"})
		case link.CmdMoveRight:
			p.action(Action{Name: "turn right"})
		default:
			p.log.Debug().Str("cmd", string(cmd)).Msg("[crawler] unknown move")
		}
	case link.VerbSpeed:
		p.setSpeed(cmd.Args())
	case link.VerbStep:
		p.step(cmd.Args())
	default:
		p.log.Debug().Str("cmd", string(cmd)).Msg("[crawler] unknown command")
	}

	return false
}

func (p *Peer) connect(addr netip.AddrPort) {
	p.mu.Lock()
	p.remote = addr
	p.mu.Unlock()

	p.log.Info().Str("remote", addr.String()).Msg("[crawler] connected")
	p.reply(link.CmdConnected, addr)
}

func (p *Peer) disconnect() {
	p.mu.Lock()
	remote := p.remote
	p.remote = netip.AddrPort{}
	p.mu.Unlock()

	p.stopCam()

	if remote.IsValid() {
		p.log.Info().Str("remote", remote.String()).Msg("[crawler] disconnected")
		p.reply(link.CmdDisconnected, remote)
	}
}

func (p *Peer) reply(cmd link.Command, addr netip.AddrPort) {
	if _, err := p.conn.WriteToUDPAddrPort(cmd.Bytes(), addr); err != nil {
		p.log.Warn().Err(err).Str("cmd", string(cmd)).Msg("[crawler] reply")
	}
}

func (p *Peer) startCam() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream != nil {
		p.log.Debug().Msg("[crawler] camera already running")
		return
	}

	s, err := newStreamer(p.remote, p.Frames, p.FPS, p.log)
	if err != nil {
		p.log.Warn().Err(err).Msg("[crawler] start camera")
		return
	}
	p.stream = s
	go s.run()
}

func (p *Peer) stopCam() {
	p.mu.Lock()
	s := p.stream
	p.stream = nil
	p.mu.Unlock()

	if s != nil {
		s.stop()
	}
}

func (p *Peer) action(a Action) {
	p.mu.Lock()
	a.Speed = p.speed
	p.actions = append(p.actions, a)
	p.mu.Unlock()

	p.log.Debug().Str("action", a.Name).Int("speed", a.Speed).Msg("[crawler] action")

	if p.OnAction != nil {
		p.OnAction(a)
	}
}

func (p *Peer) setSpeed(args []string) {
	if len(args) != 1 {
		return
	}
	speed, err := strconv.Atoi(args[0])
	if err != nil || speed < 0 || speed > 100 {
		p.log.Debug().Strs("args", args).Msg("[crawler] wrong speed")
		return
	}

	p.mu.Lock()
	p.speed = speed
	p.mu.Unlock()
}

func (p *Peer) step(args []string) {
	if len(args) != 12 {
		p.log.Debug().Strs("args", args).Msg("[crawler] wrong step")
		return
	}

	positions := make([]int, 12)
	for i, arg := range args {
		v, err := strconv.Atoi(arg)
		if err != nil {
			p.log.Debug().Strs("args", args).Msg("[crawler] wrong step")
			return
		}
		positions[i] = v
	}

	p.action(Action{Name: "step", Step: positions})
}

func (p *Peer) Remote() (netip.AddrPort, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.remote, p.remote.IsValid()
}

func (p *Peer) Speed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.speed
}

func (p *Peer) Streaming() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stream != nil
}

func (p *Peer) Actions() []Action {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Action(nil), p.actions...)
}

func (p *Peer) Close() error {
	p.stopCam()
	return p.conn.Close()
}
