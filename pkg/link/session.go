package link

import (
	"net/netip"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Phase byte

const (
	PhaseDisconnected Phase = iota
	PhaseConnected
)

func (p Phase) String() string {
	switch p {
	case PhaseDisconnected:
		return "disconnected"
	case PhaseConnected:
		return "connected"
	}
	return "unknown"
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// State is a copy of the session at one moment.
type State struct {
	ID           string         `json:"id,omitempty"`
	Phase        Phase          `json:"phase"`
	Remote       netip.AddrPort `json:"remote"`
	ConnectedAt  time.Time      `json:"connected_at"`
	LastActivity time.Time      `json:"last_activity"`
}

func (s State) Connected() bool {
	return s.Phase == PhaseConnected
}

// Session tracks the one crawler this station talks to.
// Lock order: Session before FrameSlot.
type Session struct {
	// Now is the session clock, time.Now when nil
	Now func() time.Time

	filter *Filter
	frames *FrameSlot

	mu    sync.Mutex
	state State

	subs   map[int]func(State)
	subsID int
}

// NewSession creates a disconnected session. Frames accepted for the session
// and reset requests on disconnect go to frames.
func NewSession(filter *Filter, frames *FrameSlot) *Session {
	return &Session{filter: filter, frames: frames}
}

func (s *Session) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// HandleConnected binds the session to sender. It does nothing when already
// connected or when sender can't be a crawler (sentinel or local address).
func (s *Session) HandleConnected(sender netip.AddrPort) bool {
	sender = Unmap(sender)

	s.mu.Lock()
	if s.state.Phase == PhaseConnected || IsSentinel(sender.Addr()) || s.filter.IsLocal(sender.Addr()) {
		s.mu.Unlock()
		return false
	}

	now := s.now()
	s.state = State{
		ID:           uuid.NewString(),
		Phase:        PhaseConnected,
		Remote:       sender,
		ConnectedAt:  now,
		LastActivity: now,
	}
	state, subs := s.state, s.handlers()
	s.mu.Unlock()

	notify(subs, state)
	return true
}

// HandleDisconnected drops the remote endpoint and asks the display to go
// back to the placeholder. It does nothing when already disconnected.
func (s *Session) HandleDisconnected() bool {
	s.mu.Lock()
	if s.state.Phase == PhaseDisconnected {
		s.mu.Unlock()
		return false
	}

	s.state = State{Phase: PhaseDisconnected, LastActivity: s.now()}
	if s.frames != nil {
		s.frames.RequestReset()
	}
	state, subs := s.state, s.handlers()
	s.mu.Unlock()

	notify(subs, state)
	return true
}

// Touch refreshes the activity time of a connected session.
func (s *Session) Touch() {
	s.mu.Lock()
	if s.state.Phase == PhaseConnected {
		s.state.LastActivity = s.now()
	}
	s.mu.Unlock()
}

// AcceptFrame publishes a frame only when it comes from the connected crawler.
// The check and the publish share the session lock so a frame can't slip in
// after a disconnect has requested the reset.
func (s *Session) AcceptFrame(sender netip.AddrPort, payload []byte) Verdict {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Phase != PhaseConnected {
		return VerdictDropNoSession
	}
	if !SameHost(sender, s.state.Remote) {
		return VerdictDropForeign
	}

	if s.frames != nil {
		s.frames.Publish(payload)
	}
	s.state.LastActivity = s.now()
	return VerdictFrame
}

func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Remote returns the crawler endpoint and false when there is no session.
func (s *Session) Remote() (netip.AddrPort, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Remote, s.state.Phase == PhaseConnected
}

func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Phase == PhaseConnected
}

// Idle returns the time since the last activity of a connected session,
// zero when disconnected.
func (s *Session) Idle() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Phase != PhaseConnected {
		return 0
	}
	return s.now().Sub(s.state.LastActivity)
}

// OnChange registers f for every phase transition. Callbacks run on the
// goroutine that caused the transition, outside the session lock, which may be
// the receive loop. f must not block, use Watch for anything slow.
func (s *Session) OnChange(f func(State)) (cancel func()) {
	s.mu.Lock()
	if s.subs == nil {
		s.subs = map[int]func(State){}
	}
	s.subsID++
	id := s.subsID
	s.subs[id] = f
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Watch runs f on its own goroutine with the current state after every
// transition. Transitions that happen while f is busy collapse into one call,
// so a slow f never holds up the goroutine that changed the session.
func (s *Session) Watch(f func(State)) (cancel func()) {
	wake := make(chan struct{}, 1)
	done := make(chan struct{})

	unsubscribe := s.OnChange(func(State) {
		select {
		case wake <- struct{}{}:
		default:
		}
	})

	go func() {
		for {
			select {
			case <-wake:
				f(s.Snapshot())
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			unsubscribe()
			close(done)
		})
	}
}

func (s *Session) handlers() []func(State) {
	if len(s.subs) == 0 {
		return nil
	}
	subs := make([]func(State), 0, len(s.subs))
	for _, f := range s.subs {
		subs = append(subs, f)
	}
	return subs
}

func notify(subs []func(State), state State) {
	for _, f := range subs {
		f(state)
	}
}
