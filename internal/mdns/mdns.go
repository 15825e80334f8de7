package mdns

import (
	"net/http"
	"strconv"
	"time"

	"github.com/realitycrawler/crawlink/internal/api"
	"github.com/realitycrawler/crawlink/internal/app"
	"github.com/realitycrawler/crawlink/internal/link"
	"github.com/realitycrawler/crawlink/pkg/mdns"
)

func Init() {
	var cfg struct {
		Mod struct {
			Name string `yaml:"name"`
		} `yaml:"mdns"`
	}

	cfg.Mod.Name = "crawlink"

	app.LoadConfig(&cfg)

	log := app.GetLogger("mdns")

	api.HandleFunc("api/stations", apiStations)

	if cfg.Mod.Name == "" || link.Listener == nil {
		return
	}

	port := int(link.Listener.Addr().Port())

	var txt []string
	if api.Port != 0 {
		txt = append(txt, mdns.TXTAPI+"="+strconv.Itoa(api.Port))
	}

	server, err := mdns.NewServer(cfg.Mod.Name, port, nil, txt)
	if err != nil {
		log.Warn().Err(err).Msg("[mdns] announce")
		return
	}

	log.Info().Str("name", cfg.Mod.Name).Int("port", port).Msg("[mdns] announce")

	closer = server.Shutdown
}

var closer func() error

func Close() {
	if closer != nil {
		_ = closer()
	}
}

// apiStations lists stations on the LAN, `?timeout=` in seconds
func apiStations(w http.ResponseWriter, r *http.Request) {
	timeout := time.Second
	if s := r.URL.Query().Get("timeout"); s != "" {
		if i, err := strconv.Atoi(s); err == nil && i > 0 && i <= 10 {
			timeout = time.Duration(i) * time.Second
		}
	}

	stations, err := mdns.Browse(timeout)
	if err != nil {
		api.Error(w, err, http.StatusInternalServerError)
		return
	}

	api.ResponseJSON(w, stations)
}
