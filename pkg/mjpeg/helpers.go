package mjpeg

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
)

// FixJPEG - reencode JPEG if it has wrong header
//
// for example, this app produce "bad" images:
// https://github.com/jacksonliam/mjpg-streamer
func FixJPEG(b []byte) []byte {
	// skip non-JPEG
	if len(b) < 10 || b[0] != 0xFF || b[1] != markerSOI {
		return b
	}
	// skip if header OK for imghdr library
	// https://docs.python.org/3/library/imghdr.html
	if string(b[2:4]) == "\xFF\xDB" || string(b[6:10]) == "JFIF" || string(b[6:10]) == "Exif" {
		return b
	}

	img, err := jpeg.Decode(bytes.NewReader(b))
	if err != nil {
		return b
	}
	if b, err := Encode(img, 0); err == nil {
		return b
	}
	return b
}

// Encode image with quality (default when zero)
func Encode(img image.Image, quality int) ([]byte, error) {
	var o *jpeg.Options
	if quality > 0 {
		o = &jpeg.Options{Quality: quality}
	}

	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, img, o); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Blank returns a solid image of the given size
func Blank(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}
