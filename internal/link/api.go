package link

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/realitycrawler/crawlink/internal/api"
	"github.com/realitycrawler/crawlink/internal/api/ws"
	"github.com/realitycrawler/crawlink/pkg/link"
)

func initAPI() {
	api.HandleFunc("api/session", apiSession)
	api.HandleFunc("api/command", apiCommand)

	ws.HandleFunc("command", wsCommand)
	ws.HandleFunc("session", wsSession)
}

type sessionInfo struct {
	link.State
	Stats     *link.Stats `json:"stats,omitempty"`
	Published uint64      `json:"frames_published"`
	Replaced  uint64      `json:"frames_replaced"`
}

func getSessionInfo() *sessionInfo {
	info := &sessionInfo{State: Session.Snapshot()}
	if Listener != nil {
		stats := Listener.Stats()
		info.Stats = &stats
	}
	info.Published, info.Replaced = Frames.Counters()
	return info
}

func apiSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		http.Error(w, "", http.StatusMethodNotAllowed)
		return
	}
	api.ResponseJSON(w, getSessionInfo())
}

var errEmptyCommand = errors.New("empty command")

// apiCommand sends `?cmd=` or the text body
func apiCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "", http.StatusMethodNotAllowed)
		return
	}

	s := r.URL.Query().Get("cmd")
	if s == "" {
		b, err := io.ReadAll(io.LimitReader(r.Body, link.DefaultThreshold))
		if err != nil {
			api.Error(w, err, http.StatusBadRequest)
			return
		}
		s = string(b)
	}

	cmd, err := parseCommand(s)
	if err != nil {
		api.Error(w, err, http.StatusBadRequest)
		return
	}

	if err = Send(cmd); err != nil {
		api.Error(w, err, http.StatusBadGateway)
		return
	}

	api.ResponseJSON(w, getSessionInfo())
}

func parseCommand(s string) (link.Command, error) {
	cmd := link.ParseCommand([]byte(strings.TrimSpace(s)))
	if cmd == "" {
		return "", errEmptyCommand
	}
	// must stay a control datagram on the crawler side too
	if len(cmd) >= link.DefaultThreshold {
		return "", errors.New("command too long")
	}
	return cmd, nil
}

func wsCommand(tr *ws.Transport, msg *ws.Message) error {
	cmd, err := parseCommand(msg.String())
	if err != nil {
		return err
	}
	return Send(cmd)
}

// wsSession sends the current state and every change until the socket closes
func wsSession(tr *ws.Transport, msg *ws.Message) error {
	cancel := Session.Watch(func(state link.State) {
		tr.Write(&ws.Message{Type: "session", Value: state})
	})
	tr.OnClose(cancel)

	tr.Write(&ws.Message{Type: "session", Value: getSessionInfo()})
	return nil
}
