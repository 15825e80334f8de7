package display

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"

	"github.com/realitycrawler/crawlink/pkg/mjpeg"
)

var ErrNotJPEG = errors.New("display: not a JPEG")

const (
	DefaultWidth  = 640
	DefaultHeight = 480
)

// Renderer turns drained payloads into images. Both methods run on the
// render goroutine only.
type Renderer interface {
	// OnFrameReady decodes a frame, an error keeps the previous image
	OnFrameReady(payload []byte) (image.Image, error)
	// OnResetRequested returns the image shown while there is no session
	OnResetRequested() image.Image
}

// JPEGRenderer decodes baseline and progressive JPEG frames and resets to a
// white placeholder.
type JPEGRenderer struct {
	Width  int
	Height int
}

func (r *JPEGRenderer) OnFrameReady(payload []byte) (image.Image, error) {
	if !mjpeg.IsJPEG(payload) {
		return nil, ErrNotJPEG
	}
	return jpeg.Decode(bytes.NewReader(payload))
}

func (r *JPEGRenderer) OnResetRequested() image.Image {
	w, h := r.Width, r.Height
	if w <= 0 || h <= 0 {
		w, h = DefaultWidth, DefaultHeight
	}
	return mjpeg.Blank(w, h, color.White)
}
