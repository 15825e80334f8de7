package crawler

import (
	"net"
	"net/netip"
	"time"

	"github.com/realitycrawler/crawlink/pkg/udp"
	"github.com/rs/zerolog"
)

// streamer sends frames from its own ephemeral socket, like the camera
// process of the real crawler.
type streamer struct {
	conn   *net.UDPConn
	remote netip.AddrPort
	frames FrameSource
	period time.Duration
	log    zerolog.Logger

	done chan struct{}
	wait chan struct{}
}

func newStreamer(remote netip.AddrPort, frames FrameSource, fps int, log zerolog.Logger) (*streamer, error) {
	conn, err := udp.Listen(":0")
	if err != nil {
		return nil, err
	}

	if fps <= 0 {
		fps = DefaultFPS
	}
	if frames == nil {
		frames = &Pattern{}
	}

	return &streamer{
		conn:   conn,
		remote: remote,
		frames: frames,
		period: time.Second / time.Duration(fps),
		log:    log,
		done:   make(chan struct{}),
		wait:   make(chan struct{}),
	}, nil
}

func (s *streamer) run() {
	defer close(s.wait)
	defer s.conn.Close()

	s.log.Info().Str("remote", s.remote.String()).Msg("[crawler] camera start")

	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	var sent int

	for {
		b, err := s.frames.NextFrame()
		if err != nil {
			s.log.Warn().Err(err).Msg("[crawler] capture")
		} else if _, err = s.conn.WriteToUDPAddrPort(b, s.remote); err != nil {
			s.log.Debug().Err(err).Msg("[crawler] send frame")
		} else {
			sent++
		}

		select {
		case <-ticker.C:
		case <-s.done:
			s.log.Info().Int("frames", sent).Msg("[crawler] camera stop")
			return
		}
	}
}

func (s *streamer) stop() {
	close(s.done)
	<-s.wait
}
