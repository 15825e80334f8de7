package display

import (
	"image"
	"sync"

	"github.com/pion/rtp"
	"github.com/realitycrawler/crawlink/pkg/core"
	"github.com/realitycrawler/crawlink/pkg/mjpeg"
	"github.com/rs/zerolog"
)

// Slot is the reader side of link.FrameSlot.
type Slot interface {
	TryDrain() ([]byte, bool)
	TryConsumeReset() bool
}

// Display is the render step consumer. It keeps the last good picture and
// fans out every shown picture as a JPEG in an RTP envelope.
type Display struct {
	renderer Renderer
	log      zerolog.Logger

	mu    sync.RWMutex
	img   image.Image
	jpeg  []byte
	reset bool // showing the placeholder

	seq    uint16
	subs   map[int]func(*rtp.Packet)
	subsID int

	stats Stats
}

type Stats struct {
	Frames  uint64 `json:"frames"`
	Errors  uint64 `json:"errors"`
	Resets  uint64 `json:"resets"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Waiting bool   `json:"waiting"`
}

func New(renderer Renderer, log zerolog.Logger) *Display {
	if renderer == nil {
		renderer = &JPEGRenderer{}
	}
	d := &Display{renderer: renderer, log: log}
	d.placeholder()
	return d
}

// Step runs one render tick: drain a pending frame, then apply a pending
// reset. When both are pending the reset wins. A decode error keeps the
// previous image and is returned after the reset is handled.
func (d *Display) Step(slot Slot) (changed bool, err error) {
	if payload, ok := slot.TryDrain(); ok {
		var img image.Image
		if img, err = d.renderer.OnFrameReady(payload); err == nil {
			d.show(img, payload)
			changed = true
		} else {
			d.mu.Lock()
			d.stats.Errors++
			d.mu.Unlock()
			d.log.Debug().Err(err).Int("size", len(payload)).Msg("[display] decode")
		}
	}

	if slot.TryConsumeReset() {
		d.placeholder()
		changed = true
	}

	return
}

func (d *Display) show(img image.Image, b []byte) {
	d.mu.Lock()
	d.img = img
	d.jpeg = b
	d.reset = false
	d.stats.Frames++
	pkt, subs := d.packet(b)
	d.mu.Unlock()

	for _, f := range subs {
		f(pkt)
	}
}

func (d *Display) placeholder() {
	img := d.renderer.OnResetRequested()
	b, err := mjpeg.Encode(img, 0)
	if err != nil {
		d.log.Warn().Err(err).Msg("[display] encode placeholder")
	}

	d.mu.Lock()
	d.img = img
	d.jpeg = b
	d.reset = true
	d.stats.Resets++
	pkt, subs := d.packet(b)
	d.mu.Unlock()

	if b == nil {
		return
	}
	for _, f := range subs {
		f(pkt)
	}
}

// packet must be called under lock
func (d *Display) packet(b []byte) (*rtp.Packet, []func(*rtp.Packet)) {
	d.seq++
	pkt := &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			Marker:         true,
			PayloadType:    core.PayloadTypeJPEG,
			SequenceNumber: d.seq,
			Timestamp:      core.Now90000(),
		},
		Payload: b,
	}

	subs := make([]func(*rtp.Packet), 0, len(d.subs))
	for _, f := range d.subs {
		subs = append(subs, f)
	}
	return pkt, subs
}

// Image returns the picture on screen.
func (d *Display) Image() image.Image {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.img
}

// JPEG returns the picture on screen encoded, the original payload for
// frames from the crawler. Callers must not modify it.
func (d *Display) JPEG() []byte {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.jpeg
}

// Waiting reports whether the placeholder is on screen.
func (d *Display) Waiting() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.reset
}

// Subscribe calls f for every new picture on the render goroutine.
// Packets are shared between subscribers and must not be modified.
func (d *Display) Subscribe(f func(pkt *rtp.Packet)) (cancel func()) {
	d.mu.Lock()
	if d.subs == nil {
		d.subs = map[int]func(*rtp.Packet){}
	}
	d.subsID++
	id := d.subsID
	d.subs[id] = f
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		delete(d.subs, id)
		d.mu.Unlock()
	}
}

func (d *Display) Stats() Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()

	stats := d.stats
	stats.Waiting = d.reset
	if d.img != nil {
		size := d.img.Bounds().Size()
		stats.Width, stats.Height = size.X, size.Y
	}
	return stats
}
