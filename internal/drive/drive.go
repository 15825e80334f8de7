package drive

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/realitycrawler/crawlink/internal/api"
	"github.com/realitycrawler/crawlink/internal/api/ws"
	"github.com/realitycrawler/crawlink/internal/app"
	"github.com/realitycrawler/crawlink/internal/link"
	"github.com/realitycrawler/crawlink/pkg/core"
	"github.com/realitycrawler/crawlink/pkg/drive"
	pkglink "github.com/realitycrawler/crawlink/pkg/link"
	"github.com/rs/zerolog"
)

func Init() {
	var cfg struct {
		Mod struct {
			Interval      time.Duration `yaml:"interval"`
			Deadzone      float64       `yaml:"deadzone"`
			Hold          time.Duration `yaml:"hold"`
			ConnectedOnly bool          `yaml:"connected_only"`
		} `yaml:"drive"`
	}

	// default config
	cfg.Mod.Interval = 1500 * time.Millisecond
	cfg.Mod.Deadzone = drive.DefaultDeadzone
	cfg.Mod.Hold = 3 * time.Second
	cfg.Mod.ConnectedOnly = true

	app.LoadConfig(&cfg)

	log = app.GetLogger("drive")

	Stick.Hold = cfg.Mod.Hold

	Driver = newDriver(cfg.Mod.Deadzone, cfg.Mod.ConnectedOnly)

	api.HandleFunc("api/stick", apiStick)
	ws.HandleFunc("stick", wsStick)

	if cfg.Mod.Interval <= 0 {
		log.Warn().Dur("interval", cfg.Mod.Interval).Msg("[drive] disabled")
		return
	}

	log.Debug().Dur("interval", cfg.Mod.Interval).Float64("deadzone", cfg.Mod.Deadzone).Msg("[drive] start")

	worker = core.NewTicker(cfg.Mod.Interval, func() {
		if cmd, ok := Driver.Tick(); ok {
			log.Trace().Str("cmd", string(cmd)).Msg("[drive] tick")
		}
	})
}

var Stick drive.Stick
var Driver *drive.Driver

var log = zerolog.Nop()
var worker *core.Worker

func Close() {
	worker.Stop()
}

// newDriver sends stick commands through the link module
func newDriver(deadzone float64, connectedOnly bool) *drive.Driver {
	d := drive.NewDriver(&Stick, pkglink.SenderFunc(link.Send), log)
	d.Deadzone = deadzone
	if connectedOnly {
		d.Gate = link.Connected
	}
	return d
}

type stickState struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Sent    uint64  `json:"sent"`
	Skipped uint64  `json:"skipped"`
}

func getStickState() stickState {
	var state stickState
	state.X, state.Y = Stick.SampleDirection()
	if Driver != nil {
		state.Sent, state.Skipped = Driver.Counters()
	}
	return state
}

func apiStick(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
	case "POST":
		query := r.URL.Query()
		x, err1 := strconv.ParseFloat(query.Get("x"), 64)
		y, err2 := strconv.ParseFloat(query.Get("y"), 64)
		if err := errors.Join(err1, err2); err != nil {
			api.Error(w, err, http.StatusBadRequest)
			return
		}
		Stick.Set(x, y)
	case "DELETE":
		Stick.Center()
	default:
		http.Error(w, "", http.StatusMethodNotAllowed)
		return
	}

	api.ResponseJSON(w, getStickState())
}

func wsStick(tr *ws.Transport, msg *ws.Message) error {
	var v struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}
	if err := msg.Unmarshal(&v); err != nil {
		return err
	}
	Stick.Set(v.X, v.Y)
	return nil
}
