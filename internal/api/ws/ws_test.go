package ws

import (
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu   sync.Mutex
	msgs []any
}

func (r *recorder) write(msg any) error {
	r.mu.Lock()
	r.msgs = append(r.msgs, msg)
	r.mu.Unlock()
	return nil
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

// reader returns msgs one by one, then blocks until release and fails
func reader(release chan struct{}, msgs ...string) func(v any) error {
	return func(v any) error {
		if len(msgs) == 0 {
			<-release
			return io.EOF
		}
		b := msgs[0]
		msgs = msgs[1:]
		return json.Unmarshal([]byte(b), v)
	}
}

func TestServe(t *testing.T) {
	var got []string
	var mu sync.Mutex

	HandleFunc("test_echo", func(tr *Transport, msg *Message) error {
		mu.Lock()
		got = append(got, msg.String())
		mu.Unlock()
		return nil
	})
	HandleFunc("test_fail", func(tr *Transport, msg *Message) error {
		return errors.New("no session")
	})

	rec := &recorder{}
	tr := NewTransport(rec.write)

	var closed bool
	tr.OnClose(func() { closed = true })

	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		Serve(tr, reader(release,
			`{"type":"test_echo","value":"move forward"}`,
			`{"type":"test_fail"}`,
			`{"type":"test_unknown"}`,
		))
		close(done)
	}()

	// two errors: failed handler and unknown type
	require.Eventually(t, func() bool { return rec.len() == 2 }, time.Second, time.Millisecond)

	close(release)
	<-done
	require.True(t, closed)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1 && got[0] == "move forward"
	}, time.Second, time.Millisecond)

	// writes after close are dropped
	tr.Write(&Message{Type: "session"})
	require.Equal(t, 2, rec.len())
}

func TestMessage(t *testing.T) {
	msg := &Message{Raw: []byte(`{"x":0.5,"y":-1}`)}

	var v struct{ X, Y float64 }
	require.NoError(t, msg.Unmarshal(&v))
	require.Equal(t, 0.5, v.X)
	require.Equal(t, -1.0, v.Y)
}
