package drive

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"

	"github.com/realitycrawler/crawlink/internal/api/ws"
	"github.com/realitycrawler/crawlink/internal/link"
	pkglink "github.com/realitycrawler/crawlink/pkg/link"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestAPIStick(t *testing.T) {
	defer Stick.Center()

	rec := httptest.NewRecorder()
	apiStick(rec, httptest.NewRequest("POST", "/api/stick?x=0.25&y=-2", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var state stickState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	require.Equal(t, 0.25, state.X)
	require.Equal(t, -1.0, state.Y)

	rec = httptest.NewRecorder()
	apiStick(rec, httptest.NewRequest("POST", "/api/stick?x=left", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	apiStick(rec, httptest.NewRequest("DELETE", "/api/stick", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	require.Zero(t, state.X)
	require.Zero(t, state.Y)
}

func TestWSStick(t *testing.T) {
	defer Stick.Center()

	err := wsStick(nil, &ws.Message{Type: "stick", Raw: []byte(`{"x":-0.8,"y":0.1}`)})
	require.NoError(t, err)

	x, y := Stick.SampleDirection()
	require.Equal(t, -0.8, x)
	require.Equal(t, 0.1, y)

	err = wsStick(nil, &ws.Message{Type: "stick", Raw: []byte(`"left"`)})
	require.Error(t, err)
}

type recordWriter struct {
	data []string
}

func (w *recordWriter) WriteToUDPAddrPort(b []byte, addr netip.AddrPort) (int, error) {
	w.data = append(w.data, string(b))
	return len(b), nil
}

func TestNewDriver(t *testing.T) {
	defer Stick.Center()

	link.Session = pkglink.NewSession(pkglink.NewFilter(), &pkglink.FrameSlot{})
	w := &recordWriter{}
	link.Emitter = pkglink.NewEmitter(w, link.Session, zerolog.Nop())
	defer func() { link.Session, link.Emitter = nil, nil }()

	d := newDriver(0.5, true)
	Stick.Set(0, 1)

	// no session yet
	_, ok := d.Tick()
	require.False(t, ok)
	require.Empty(t, w.data)

	link.Session.HandleConnected(netip.MustParseAddrPort("10.0.0.5:23232"))

	cmd, ok := d.Tick()
	require.True(t, ok)
	require.Equal(t, pkglink.CmdMoveForward, cmd)
	require.Equal(t, []string{"move forward"}, w.data)

	sent, skipped := d.Counters()
	require.Equal(t, uint64(1), sent)
	require.Equal(t, uint64(1), skipped)
}
