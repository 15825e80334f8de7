package crawler

import (
	"image"
	"image/color"

	"github.com/realitycrawler/crawlink/pkg/mjpeg"
)

// MinFrameSize keeps frames above the station's control threshold.
// Decoders stop at the EOI marker so zero padding is harmless.
const MinFrameSize = 1000

type FrameSource interface {
	NextFrame() ([]byte, error)
}

// Pattern is a synthetic camera: color bars with a sweeping line.
type Pattern struct {
	Width   int
	Height  int
	Quality int

	n int
}

var bars = []color.RGBA{
	{255, 255, 255, 255},
	{255, 255, 0, 255},
	{0, 255, 255, 255},
	{0, 255, 0, 255},
	{255, 0, 255, 255},
	{255, 0, 0, 255},
	{0, 0, 255, 255},
}

func (p *Pattern) NextFrame() ([]byte, error) {
	w, h := p.Width, p.Height
	if w <= 0 || h <= 0 {
		w, h = 640, 480
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	line := p.n % h
	p.n++

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := bars[x*len(bars)/w]
			if y == line || y == line+1 {
				c = color.RGBA{0, 0, 0, 255}
			}
			img.SetRGBA(x, y, c)
		}
	}

	quality := p.Quality
	if quality <= 0 {
		quality = 50
	}

	b, err := mjpeg.Encode(img, quality)
	if err != nil {
		return nil, err
	}
	return Pad(b), nil
}

// Pad appends zeros up to MinFrameSize.
func Pad(b []byte) []byte {
	if n := MinFrameSize - len(b); n > 0 {
		b = append(b, make([]byte, n)...)
	}
	return b
}
