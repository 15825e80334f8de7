package link

import (
	"sync"
)

// FrameSlot is a single-slot hand-off between the receive loop (writer) and
// the render step (reader). A newer frame replaces an undrained one.
type FrameSlot struct {
	mu      sync.Mutex
	payload []byte
	ready   bool
	reset   bool

	published uint64
	replaced  uint64
}

// Publish stores the payload and marks the slot ready. The slot owns b
// afterwards, callers must not modify it.
func (f *FrameSlot) Publish(b []byte) {
	f.mu.Lock()
	if f.ready {
		f.replaced++
	}
	f.payload = b
	f.ready = true
	f.published++
	f.mu.Unlock()
}

// TryDrain takes the pending payload, if any, and clears the slot.
func (f *FrameSlot) TryDrain() ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.ready {
		return nil, false
	}

	b := f.payload
	f.payload = nil
	f.ready = false
	return b, true
}

func (f *FrameSlot) RequestReset() {
	f.mu.Lock()
	f.reset = true
	f.mu.Unlock()
}

// TryConsumeReset returns true once per RequestReset.
func (f *FrameSlot) TryConsumeReset() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.reset {
		return false
	}
	f.reset = false
	return true
}

// Pending reports the flags without changing them.
func (f *FrameSlot) Pending() (ready, reset bool) {
	f.mu.Lock()
	ready, reset = f.ready, f.reset
	f.mu.Unlock()
	return
}

// Counters returns how many frames were published and how many of them were
// replaced before the reader drained them.
func (f *FrameSlot) Counters() (published, replaced uint64) {
	f.mu.Lock()
	published, replaced = f.published, f.replaced
	f.mu.Unlock()
	return
}
