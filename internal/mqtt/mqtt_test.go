package mqtt

import (
	"encoding/json"
	"net/netip"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/realitycrawler/crawlink/pkg/link"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type token struct{}

func (token) Wait() bool                     { return true }
func (token) WaitTimeout(time.Duration) bool { return true }
func (token) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (token) Error() error { return nil }

type published struct {
	topic    string
	retained bool
	payload  any
}

type fakeClient struct {
	mqtt.Client

	mu        sync.Mutex
	published []published
	handlers  map[string]mqtt.MessageHandler
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload any) mqtt.Token {
	c.mu.Lock()
	c.published = append(c.published, published{topic, retained, payload})
	c.mu.Unlock()
	return token{}
}

func (c *fakeClient) sent() []published {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]published(nil), c.published...)
}

func (c *fakeClient) Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token {
	c.mu.Lock()
	if c.handlers == nil {
		c.handlers = map[string]mqtt.MessageHandler{}
	}
	c.handlers[topic] = callback
	c.mu.Unlock()
	return token{}
}

type message struct {
	mqtt.Message
	payload []byte
}

func (m *message) Payload() []byte {
	return m.payload
}

type sender struct {
	cmds []link.Command
}

func (s *sender) Send(cmd link.Command) error {
	s.cmds = append(s.cmds, cmd)
	return nil
}

func TestBridge(t *testing.T) {
	session := link.NewSession(link.NewFilter(), &link.FrameSlot{})
	snd := &sender{}
	b := NewBridge("crawlink", session, snd, zerolog.Nop())

	c := &fakeClient{}
	b.OnConnect(c)

	sent := c.sent()
	require.Len(t, sent, 2)
	require.Equal(t, "crawlink/status", sent[0].topic)
	require.Equal(t, "online", sent[0].payload)
	require.True(t, sent[0].retained)

	require.Equal(t, "crawlink/session", sent[1].topic)
	require.True(t, sent[1].retained)

	session.HandleConnected(netip.MustParseAddrPort("10.0.0.5:23232"))
	require.Eventually(t, func() bool { return len(c.sent()) == 3 }, time.Second, time.Millisecond)

	sent = c.sent()
	require.Equal(t, "crawlink/session", sent[2].topic)

	var state struct {
		Phase  string `json:"phase"`
		Remote string `json:"remote"`
	}
	require.NoError(t, json.Unmarshal(sent[2].payload.([]byte), &state))
	require.Equal(t, "connected", state.Phase)
	require.Equal(t, "10.0.0.5:23232", state.Remote)

	c.mu.Lock()
	handler := c.handlers["crawlink/command"]
	c.mu.Unlock()
	require.NotNil(t, handler)

	handler(c, &message{payload: []byte("startcam nosound")})
	handler(c, &message{payload: []byte("")})
	require.Equal(t, []link.Command{link.CmdStartCamNoSound}, snd.cmds)

	// reconnect doesn't duplicate session events
	b.OnConnect(c)
	n := len(c.sent())
	session.HandleDisconnected()
	require.Eventually(t, func() bool { return len(c.sent()) == n+1 }, time.Second, time.Millisecond)
	require.Never(t, func() bool { return len(c.sent()) > n+1 }, 50*time.Millisecond, 5*time.Millisecond)

	b.cancel()
}

// a broker that stops acknowledging must not hold up the session
func TestBridgeSlowBroker(t *testing.T) {
	session := link.NewSession(link.NewFilter(), &link.FrameSlot{})
	b := NewBridge("crawlink", session, &sender{}, zerolog.Nop())

	c := &blockingClient{fakeClient: &fakeClient{}, release: make(chan struct{})}
	b.OnConnect(c)
	defer b.cancel()

	c.block.Store(true)
	defer close(c.release)

	done := make(chan struct{})
	go func() {
		session.HandleConnected(netip.MustParseAddrPort("10.0.0.5:23232"))
		session.HandleDisconnected()
		session.HandleConnected(netip.MustParseAddrPort("10.0.0.5:23232"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("session transitions waited for the broker")
	}
}

type blockingClient struct {
	*fakeClient
	block   atomic.Bool
	release chan struct{}
}

func (c *blockingClient) Publish(topic string, qos byte, retained bool, payload any) mqtt.Token {
	if c.block.Load() {
		<-c.release
	}
	return c.fakeClient.Publish(topic, qos, retained, payload)
}
