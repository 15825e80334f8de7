package link

import (
	"net/netip"
	"strconv"
	"time"

	"github.com/realitycrawler/crawlink/internal/app"
	"github.com/realitycrawler/crawlink/pkg/core"
	"github.com/realitycrawler/crawlink/pkg/link"
	"github.com/realitycrawler/crawlink/pkg/xnet"
	"github.com/rs/zerolog"
)

func Init() {
	var cfg struct {
		Mod struct {
			Port             int      `yaml:"port"`
			BufferSize       int      `yaml:"buffer_size"`
			Threshold        int      `yaml:"threshold"`
			Broadcast        string   `yaml:"broadcast"`
			BroadcastOnly    bool     `yaml:"broadcast_only"`
			LocalIPs         []string `yaml:"local_ips"`
			Debug            bool     `yaml:"debug"`
			ReconnectTimeout string   `yaml:"reconnect_timeout"`
		} `yaml:"link"`
	}

	// default config
	cfg.Mod.Port = link.DefaultPort
	cfg.Mod.BufferSize = link.DefaultBufferSize
	cfg.Mod.Threshold = link.DefaultThreshold
	cfg.Mod.Broadcast = link.Broadcast.String()

	// load config from YAML
	app.LoadConfig(&cfg)

	log = app.GetLogger("link")
	if cfg.Mod.Debug {
		log = log.Level(zerolog.DebugLevel)
	}

	Frames = &link.FrameSlot{}
	filter := link.NewFilter(localAddrs(cfg.Mod.LocalIPs)...)
	Session = link.NewSession(filter, Frames)

	demux := link.NewDemuxer(Session, filter, log)
	demux.Threshold = cfg.Mod.Threshold

	initAPI()

	address := ":" + strconv.Itoa(cfg.Mod.Port)

	var err error
	if Listener, err = link.Listen(address, cfg.Mod.BufferSize, demux, log); err != nil {
		log.Error().Err(err).Msg("[link] listen")
		// commands fail with ErrClosed until restart
		Emitter = link.NewEmitter(nil, Session, log)
		return
	}

	log.Info().Str("addr", Listener.Addr().String()).Int("threshold", demux.Threshold).
		Int("local", len(filter.Local())).Msg("[link] listen")

	Emitter = link.NewEmitter(Listener.Conn(), Session, log)
	Emitter.Port = cfg.Mod.Port
	Emitter.BroadcastOnly = cfg.Mod.BroadcastOnly
	if addr, err := netip.ParseAddr(cfg.Mod.Broadcast); err == nil && addr.Is4() {
		Emitter.Broadcast = addr
	} else {
		log.Warn().Str("broadcast", cfg.Mod.Broadcast).Msg("[link] wrong broadcast address")
	}

	go func() {
		if err := Listener.Serve(); err != nil {
			log.Error().Err(err).Msg("[link] serve")
		}
	}()

	if timeout := parseDuration(cfg.Mod.ReconnectTimeout); timeout > 0 {
		Reconnect = &link.ReconnectPolicy{Timeout: timeout}
		reconnect = core.NewTicker(time.Second, func() {
			if Reconnect.Check(Session, Emitter) {
				log.Info().Dur("timeout", timeout).Msg("[link] reconnect")
			}
		})
	}
}

var (
	Session  *link.Session
	Frames   *link.FrameSlot
	Listener *link.Listener
	Emitter  *link.Emitter

	Reconnect *link.ReconnectPolicy
)

var log = zerolog.Nop()
var reconnect *core.Worker

// Send transmits one command to the crawler.
func Send(cmd link.Command) error {
	if Emitter == nil {
		return link.ErrClosed
	}
	return Emitter.Send(cmd)
}

// Connected reports whether a crawler session is active.
func Connected() bool {
	return Session != nil && Session.Connected()
}

// Close stops the reconnect check and the listener, Serve returns after it.
func Close() {
	reconnect.Stop()
	if Listener != nil {
		_ = Listener.Close()
	}
}

func localAddrs(ips []string) []netip.Addr {
	if len(ips) == 0 {
		addrs, err := xnet.LocalAddrs()
		if err != nil {
			log.Warn().Err(err).Msg("[link] local addrs")
		}
		return addrs
	}

	var addrs []netip.Addr
	for _, s := range ips {
		addr, err := netip.ParseAddr(s)
		if err != nil {
			log.Warn().Err(err).Msg("[link] local_ips")
			continue
		}
		addrs = append(addrs, addr)
	}
	return addrs
}

// parseDuration accepts "30s" style or plain seconds, zero on error
func parseDuration(s string) time.Duration {
	if s == "" {
		return 0
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	if i, err := strconv.Atoi(s); err == nil {
		return time.Duration(i) * time.Second
	}
	log.Warn().Str("value", s).Msg("[link] wrong duration")
	return 0
}
