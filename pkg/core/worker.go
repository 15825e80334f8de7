package core

import (
	"sync"
	"time"
)

type Worker struct {
	timer *time.Timer
	done  chan struct{}
	once  sync.Once
}

// NewWorker run f after d, then after each duration f returns.
// Worker stops when f returns zero or on Stop.
func NewWorker(d time.Duration, f func() time.Duration) *Worker {
	timer := time.NewTimer(d)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-timer.C:
				if d = f(); d > 0 {
					timer.Reset(d)
					continue
				}
			case <-done:
				timer.Stop()
			}
			break
		}
	}()

	return &Worker{timer: timer, done: done}
}

// NewTicker run f every d until Stop
func NewTicker(d time.Duration, f func()) *Worker {
	return NewWorker(d, func() time.Duration {
		f()
		return d
	})
}

// Do - instant timer run
func (w *Worker) Do() {
	if w == nil {
		return
	}
	w.timer.Reset(0)
}

func (w *Worker) Stop() {
	if w == nil {
		return
	}
	w.once.Do(func() {
		close(w.done)
	})
}
