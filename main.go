package main

import (
	"github.com/realitycrawler/crawlink/internal/api"
	"github.com/realitycrawler/crawlink/internal/api/ws"
	"github.com/realitycrawler/crawlink/internal/app"
	"github.com/realitycrawler/crawlink/internal/drive"
	"github.com/realitycrawler/crawlink/internal/link"
	"github.com/realitycrawler/crawlink/internal/mdns"
	"github.com/realitycrawler/crawlink/internal/mqtt"
	"github.com/realitycrawler/crawlink/internal/video"
	"github.com/realitycrawler/crawlink/pkg/shell"
)

func main() {
	app.Init() // init config and logs

	api.Init() // init HTTP API server
	ws.Init()  // init WebSocket API

	link.Init()  // bind control port (required for all below)
	video.Init() // render tick and MJPEG output
	drive.Init() // command tick

	mdns.Init() // announce station on LAN
	mqtt.Init() // telemetry bridge

	sig := shell.RunUntilSignal()
	app.Logger.Info().Str("signal", sig.String()).Msg("exit")

	mqtt.Close()
	mdns.Close()
	drive.Close()
	video.Close()
	link.Close()
}
