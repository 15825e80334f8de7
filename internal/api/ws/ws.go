package ws

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/realitycrawler/crawlink/internal/api"
	"github.com/realitycrawler/crawlink/internal/app"
	"github.com/rs/zerolog"
)

func Init() {
	var cfg struct {
		Mod struct {
			Origin string `yaml:"origin"`
		} `yaml:"api"`
	}

	app.LoadConfig(&cfg)

	log = app.GetLogger("api")

	initWS(cfg.Mod.Origin)

	api.HandleFunc("api/ws", apiWS)
}

var log = zerolog.Nop()

// Message - struct for data exchange in Web API
type Message struct {
	Type  string `json:"type"`
	Value any    `json:"value,omitempty"`
	Raw   []byte `json:"-"`
}

func (m *Message) String() (value string) {
	_ = json.Unmarshal(m.Raw, &value)
	return
}

func (m *Message) Unmarshal(v any) error {
	return json.Unmarshal(m.Raw, v)
}

type WSHandler func(tr *Transport, msg *Message) error

func HandleFunc(msgType string, handler WSHandler) {
	wsHandlers[msgType] = handler
}

var wsHandlers = make(map[string]WSHandler)

func initWS(origin string) {
	wsUp = &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 256 * 1024, // one JPEG frame
	}

	switch origin {
	case "":
		// same origin + ignore port
		wsUp.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header["Origin"]
			if len(origin) == 0 {
				return true
			}
			o, err := url.Parse(origin[0])
			if err != nil {
				return false
			}
			if o.Host == r.Host {
				return true
			}
			log.Trace().Msgf("[api] ws origin=%s, host=%s", o.Host, r.Host)
			if i := strings.IndexByte(o.Host, ':'); i > 0 {
				return o.Host[:i] == r.Host
			}
			return false
		}
	case "*":
		// any origin
		wsUp.CheckOrigin = func(r *http.Request) bool {
			return true
		}
	}
}

func apiWS(w http.ResponseWriter, r *http.Request) {
	ws, err := wsUp.Upgrade(w, r, nil)
	if err != nil {
		origin := r.Header.Get("Origin")
		log.Error().Err(err).Caller().Msgf("host=%s origin=%s", r.Host, origin)
		return
	}

	tr := &Transport{Request: r}
	tr.onWrite = func(msg any) error {
		_ = ws.SetWriteDeadline(time.Now().Add(time.Second * 5))

		if data, ok := msg.([]byte); ok {
			return ws.WriteMessage(websocket.BinaryMessage, data)
		}
		return ws.WriteJSON(msg)
	}

	Serve(tr, ws.ReadJSON)

	_ = ws.Close()
}

// Serve reads messages with read until it fails and dispatches them to the
// registered handlers. Handler errors are sent back as "error" messages.
func Serve(tr *Transport, read func(v any) error) {
	for {
		var raw struct {
			Type  string          `json:"type"`
			Value json.RawMessage `json:"value"`
		}
		if err := read(&raw); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNoStatusReceived, websocket.CloseNormalClosure) {
				log.Trace().Err(err).Caller().Send()
			}
			break
		}

		msg := &Message{Type: raw.Type, Raw: raw.Value}

		log.Trace().Str("type", msg.Type).Msg("[api] ws msg")

		handler := wsHandlers[msg.Type]
		if handler == nil {
			tr.Write(&Message{Type: "error", Value: "unknown type: " + msg.Type})
			continue
		}

		go func() {
			if err := handler(tr, msg); err != nil {
				tr.Write(&Message{Type: "error", Value: msg.Type + ": " + err.Error()})
			}
		}()
	}

	tr.Close()
}

var wsUp *websocket.Upgrader

type Transport struct {
	Request *http.Request

	closed bool
	mx     sync.Mutex
	wrmx   sync.Mutex

	onWrite func(msg any) error
	onClose []func()
}

// NewTransport is used by tests and by non websocket consumers.
func NewTransport(onWrite func(msg any) error) *Transport {
	return &Transport{onWrite: onWrite}
}

// Write sends a JSON message or a binary frame ([]byte). Writes after Close
// are dropped.
func (t *Transport) Write(msg any) {
	t.wrmx.Lock()
	if !t.Closed() {
		_ = t.onWrite(msg)
	}
	t.wrmx.Unlock()
}

func (t *Transport) Close() {
	t.mx.Lock()
	onClose := t.onClose
	t.onClose = nil
	t.closed = true
	t.mx.Unlock()

	for _, f := range onClose {
		f()
	}
}

func (t *Transport) Closed() bool {
	t.mx.Lock()
	defer t.mx.Unlock()
	return t.closed
}

func (t *Transport) OnClose(f func()) {
	t.mx.Lock()
	if t.closed {
		t.mx.Unlock()
		f()
		return
	}
	t.onClose = append(t.onClose, f)
	t.mx.Unlock()
}
