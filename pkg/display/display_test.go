package display

import (
	"image/color"
	"testing"

	"github.com/pion/rtp"
	"github.com/realitycrawler/crawlink/pkg/core"
	"github.com/realitycrawler/crawlink/pkg/link"
	"github.com/realitycrawler/crawlink/pkg/mjpeg"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func testFrame(t *testing.T, c color.Color) []byte {
	b, err := mjpeg.Encode(mjpeg.Blank(320, 240, c), 0)
	require.NoError(t, err)
	return b
}

func TestPlaceholder(t *testing.T) {
	d := New(nil, zerolog.Nop())

	require.True(t, d.Waiting())
	require.True(t, mjpeg.IsJPEG(d.JPEG()))

	img := d.Image()
	require.Equal(t, DefaultWidth, img.Bounds().Dx())
	require.Equal(t, DefaultHeight, img.Bounds().Dy())

	r, g, b, _ := img.At(10, 10).RGBA()
	require.Equal(t, []uint32{0xFFFF, 0xFFFF, 0xFFFF}, []uint32{r, g, b})
}

func TestStep(t *testing.T) {
	var slot link.FrameSlot
	d := New(&JPEGRenderer{}, zerolog.Nop())

	changed, err := d.Step(&slot)
	require.NoError(t, err)
	require.False(t, changed)

	frame := testFrame(t, color.Black)
	slot.Publish(frame)

	changed, err = d.Step(&slot)
	require.NoError(t, err)
	require.True(t, changed)
	require.False(t, d.Waiting())
	require.Equal(t, frame, d.JPEG())
	require.Equal(t, 320, d.Stats().Width)

	// drained exactly once
	changed, err = d.Step(&slot)
	require.NoError(t, err)
	require.False(t, changed)
}

func TestStepBadFrame(t *testing.T) {
	var slot link.FrameSlot
	d := New(nil, zerolog.Nop())

	frame := testFrame(t, color.Black)
	slot.Publish(frame)
	_, _ = d.Step(&slot)

	slot.Publish(make([]byte, 2000))
	changed, err := d.Step(&slot)
	require.ErrorIs(t, err, ErrNotJPEG)
	require.False(t, changed)

	// previous image kept
	require.Equal(t, frame, d.JPEG())

	// truncated JPEG
	slot.Publish(frame[:len(frame)/2])
	_, err = d.Step(&slot)
	require.Error(t, err)
	require.Equal(t, frame, d.JPEG())

	require.Equal(t, uint64(2), d.Stats().Errors)
}

func TestStepReset(t *testing.T) {
	var slot link.FrameSlot
	d := New(nil, zerolog.Nop())

	slot.Publish(testFrame(t, color.Black))
	_, _ = d.Step(&slot)
	require.False(t, d.Waiting())

	// frame and reset pending together: reset wins
	slot.Publish(testFrame(t, color.Black))
	slot.RequestReset()

	changed, err := d.Step(&slot)
	require.NoError(t, err)
	require.True(t, changed)
	require.True(t, d.Waiting())
	require.Equal(t, DefaultWidth, d.Image().Bounds().Dx())

	changed, _ = d.Step(&slot)
	require.False(t, changed)
}

func TestSubscribe(t *testing.T) {
	var slot link.FrameSlot
	d := New(nil, zerolog.Nop())

	var packets []*rtp.Packet
	cancel := d.Subscribe(func(pkt *rtp.Packet) {
		packets = append(packets, pkt)
	})

	frame := testFrame(t, color.Black)
	slot.Publish(frame)
	_, _ = d.Step(&slot)

	slot.RequestReset()
	_, _ = d.Step(&slot)

	require.Len(t, packets, 2)
	require.Equal(t, frame, packets[0].Payload)
	require.Equal(t, core.PayloadTypeJPEG, packets[0].PayloadType)
	require.True(t, packets[0].Marker)
	require.Equal(t, packets[0].SequenceNumber+1, packets[1].SequenceNumber)
	require.True(t, mjpeg.IsJPEG(packets[1].Payload))

	cancel()
	slot.Publish(frame)
	_, _ = d.Step(&slot)
	require.Len(t, packets, 2)
}
