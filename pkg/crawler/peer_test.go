package crawler

import (
	"net/netip"
	"testing"
	"time"

	"github.com/realitycrawler/crawlink/pkg/link"
	"github.com/realitycrawler/crawlink/pkg/mjpeg"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type station struct {
	session  *link.Session
	frames   *link.FrameSlot
	listener *link.Listener
	emitter  *link.Emitter
}

func newStation(t *testing.T, peer *Peer) *station {
	frames := &link.FrameSlot{}
	filter := link.NewFilter()
	session := link.NewSession(filter, frames)
	demux := link.NewDemuxer(session, filter, zerolog.Nop())

	listener, err := link.Listen("127.0.0.1:0", 0, demux, zerolog.Nop())
	require.NoError(t, err)
	go func() { _ = listener.Serve() }()
	t.Cleanup(func() { _ = listener.Close() })

	emitter := link.NewEmitter(listener.Conn(), session, zerolog.Nop())
	emitter.Port = int(peer.Addr().Port())
	emitter.Broadcast = netip.MustParseAddr("127.0.0.1")

	return &station{session: session, frames: frames, listener: listener, emitter: emitter}
}

func newPeer(t *testing.T) *Peer {
	peer, err := Listen("127.0.0.1:0", zerolog.Nop())
	require.NoError(t, err)
	peer.Frames = &Pattern{Width: 160, Height: 120}
	t.Cleanup(func() { _ = peer.Close() })
	return peer
}

func TestLoopback(t *testing.T) {
	peer := newPeer(t)
	go func() { _ = peer.Serve() }()

	st := newStation(t, peer)

	require.NoError(t, st.emitter.Send(link.CmdConnect))
	require.Eventually(t, st.session.Connected, time.Second, 5*time.Millisecond)

	remote, _ := st.session.Remote()
	require.Equal(t, peer.Addr(), remote)

	require.NoError(t, st.emitter.Send(link.CmdStartCamNoSound))
	require.Eventually(t, func() bool {
		published, _ := st.frames.Counters()
		return published > 0
	}, 2*time.Second, 5*time.Millisecond)

	b, ok := st.frames.TryDrain()
	require.True(t, ok)
	require.GreaterOrEqual(t, len(b), MinFrameSize)
	require.True(t, mjpeg.IsJPEG(b))

	require.NoError(t, st.emitter.Send(link.Speed(50)))
	require.NoError(t, st.emitter.Send(link.CmdMoveForward))
	require.Eventually(t, func() bool { return len(peer.Actions()) == 1 }, time.Second, 5*time.Millisecond)
	require.Equal(t, Action{Name: "forward", Speed: 50}, peer.Actions()[0])

	require.NoError(t, st.emitter.Send(link.CmdDisconnect))
	require.False(t, st.session.Connected())
	require.True(t, st.frames.TryConsumeReset())

	require.Eventually(t, func() bool {
		_, bound := peer.Remote()
		return !bound && !peer.Streaming()
	}, time.Second, 5*time.Millisecond)

	stats := st.listener.Stats()
	require.Greater(t, stats.Frames, uint64(0))
	require.Greater(t, stats.Controls, uint64(0))
}

func TestTimeout(t *testing.T) {
	peer := newPeer(t)
	peer.Timeout = 100 * time.Millisecond
	go func() { _ = peer.Serve() }()

	st := newStation(t, peer)

	require.NoError(t, st.emitter.Send(link.CmdConnectNoSound))
	require.Eventually(t, st.session.Connected, time.Second, 5*time.Millisecond)

	// crawler gives up and says so
	require.Eventually(t, func() bool { return !st.session.Connected() }, 2*time.Second, 10*time.Millisecond)
	require.True(t, st.frames.TryConsumeReset())
}

func TestHandle(t *testing.T) {
	peer := newPeer(t)

	owner := netip.MustParseAddrPort("127.0.0.1:40001")
	other := netip.MustParseAddrPort("127.0.0.1:40002")

	// nothing works before connect
	require.False(t, peer.Handle(owner, link.CmdMoveForward))
	require.Empty(t, peer.Actions())

	require.False(t, peer.Handle(owner, link.CmdConnect))
	remote, ok := peer.Remote()
	require.True(t, ok)
	require.Equal(t, owner, remote)

	// bound to the first station
	require.False(t, peer.Handle(other, link.CmdConnect))
	require.False(t, peer.Handle(other, link.CmdMoveLeft))
	remote, _ = peer.Remote()
	require.Equal(t, owner, remote)
	require.Empty(t, peer.Actions())

	peer.Handle(owner, link.Speed(120))
	require.Equal(t, DefaultSpeed, peer.Speed())
	peer.Handle(owner, "speed fast")
	require.Equal(t, DefaultSpeed, peer.Speed())
	peer.Handle(owner, link.Speed(40))
	require.Equal(t, 40, peer.Speed())

	peer.Handle(owner, link.CmdMoveRight)
	peer.Handle(owner, link.Step([12]int{45, 45, -75, 45, 0, -75, 45, 0, -30, 45, 45, -75}))
	peer.Handle(owner, "step 1 2 3")
	peer.Handle(owner, "dance")

	require.Equal(t, []Action{
		{Name: "turn right", Speed: 40},
		{Name: "step", Speed: 40, Step: []int{45, 45, -75, 45, 0, -75, 45, 0, -30, 45, 45, -75}},
	}, peer.Actions())

	require.True(t, peer.Handle(owner, link.CmdQuit))
	_, ok = peer.Remote()
	require.False(t, ok)
}

func TestPattern(t *testing.T) {
	p := &Pattern{}
	b, err := p.NextFrame()
	require.NoError(t, err)
	require.True(t, mjpeg.IsJPEG(b))
	require.True(t, mjpeg.IsComplete(b))
	require.GreaterOrEqual(t, len(b), MinFrameSize)
}
