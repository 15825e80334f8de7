package mjpeg

import (
	"image/color"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	b, err := Encode(Blank(64, 48, color.White), 0)
	require.NoError(t, err)
	require.True(t, IsJPEG(b))
	require.True(t, IsComplete(b))

	require.False(t, IsJPEG([]byte("connected")))
	require.False(t, IsComplete(b[:len(b)-2]))

	// some cameras pad datagrams with zeros
	require.True(t, IsComplete(append(b, 0, 0, 0)))
}

func TestWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewWriter(rec)

	n, err := w.Write([]byte("abc"))
	require.NoError(t, err)
	require.Equal(t, 3, n)

	require.Equal(t, ContentType, rec.Header().Get("Content-Type"))
	require.Equal(t, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: 3\r\n\r\nabc\r\n", rec.Body.String())
	require.True(t, rec.Flushed)
}
