package video

import (
	"net/http"
	"strconv"

	"github.com/pion/rtp"
	"github.com/realitycrawler/crawlink/internal/api"
	"github.com/realitycrawler/crawlink/internal/api/ws"
	"github.com/realitycrawler/crawlink/internal/app"
	"github.com/realitycrawler/crawlink/internal/link"
	"github.com/realitycrawler/crawlink/pkg/core"
	"github.com/realitycrawler/crawlink/pkg/display"
	"github.com/realitycrawler/crawlink/pkg/mjpeg"
	"github.com/rs/zerolog"
)

func Init() {
	var cfg struct {
		Mod struct {
			FPS    int `yaml:"fps"`
			Width  int `yaml:"width"`
			Height int `yaml:"height"`
		} `yaml:"video"`
	}

	// default config
	cfg.Mod.FPS = 60
	cfg.Mod.Width = display.DefaultWidth
	cfg.Mod.Height = display.DefaultHeight

	app.LoadConfig(&cfg)

	log = app.GetLogger("video")

	Display = display.New(&display.JPEGRenderer{Width: cfg.Mod.Width, Height: cfg.Mod.Height}, log)

	api.HandleFunc("api/frame.jpeg", handlerFrame)
	api.HandleFunc("api/stream.mjpeg", handlerStream)
	api.HandleFunc("api/video", handlerStats)

	ws.HandleFunc("mjpeg", handlerWS)

	interval := core.Interval(cfg.Mod.FPS)
	if interval == 0 {
		log.Warn().Int("fps", cfg.Mod.FPS).Msg("[video] render disabled")
		return
	}

	worker = core.NewTicker(interval, func() {
		_, _ = Display.Step(link.Frames)
	})
}

var Display *display.Display

var log = zerolog.Nop()
var worker *core.Worker

func Close() {
	worker.Stop()
}

func handlerFrame(w http.ResponseWriter, r *http.Request) {
	b := Display.JPEG()
	if b == nil {
		http.Error(w, "no frame", http.StatusNotFound)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "image/jpeg")
	h.Set("Content-Length", strconv.Itoa(len(b)))
	h.Set("Cache-Control", "no-cache")
	h.Set("Pragma", "no-cache")
	if Display.Waiting() {
		h.Set("X-Crawlink-Placeholder", "true")
	}

	if _, err := w.Write(b); err != nil {
		log.Debug().Err(err).Msg("[video] frame")
	}
}

func handlerStats(w http.ResponseWriter, r *http.Request) {
	api.ResponseJSON(w, Display.Stats())
}

func handlerStream(w http.ResponseWriter, r *http.Request) {
	h := w.Header()
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "close")
	h.Set("Pragma", "no-cache")

	wr := mjpeg.NewWriter(w)

	frames, cancel := subscribe()
	defer cancel()

	log.Debug().Str("remote", r.RemoteAddr).Msg("[video] mjpeg start")

	if _, err := wr.Write(Display.JPEG()); err != nil {
		return
	}

	for {
		select {
		case b := <-frames:
			if _, err := wr.Write(b); err != nil {
				log.Debug().Err(err).Msg("[video] mjpeg stop")
				return
			}
		case <-r.Context().Done():
			log.Debug().Str("remote", r.RemoteAddr).Msg("[video] mjpeg stop")
			return
		}
	}
}

func handlerWS(tr *ws.Transport, _ *ws.Message) error {
	frames, cancel := subscribe()
	done := make(chan struct{})
	tr.OnClose(func() {
		cancel()
		close(done)
	})

	tr.Write(&ws.Message{Type: "mjpeg"})
	tr.Write(Display.JPEG())

	go func() {
		for {
			select {
			case b := <-frames:
				tr.Write(b)
			case <-done:
				return
			}
		}
	}()

	return nil
}

// subscribe returns new pictures, slow consumers skip frames
func subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, 1)

	cancel := Display.Subscribe(func(pkt *rtp.Packet) {
		select {
		case ch <- pkt.Payload:
		default:
		}
	})

	return ch, cancel
}
