package worker

import (
	"sync"
	"sync/atomic"
	"time"
)

// Signal is the cooperative stop flag handed to a running task. A fresh
// Signal is created on every Start, so a stop request never leaks into the
// next launch.
type Signal struct {
	stop atomic.Bool
	once sync.Once
	done chan struct{}
}

func newSignal() *Signal {
	return &Signal{done: make(chan struct{})}
}

func (s *Signal) raise() {
	s.once.Do(func() {
		s.stop.Store(true)
		close(s.done)
	})
}

// Stopped reports whether a stop was requested. Poll it in the task loop.
func (s *Signal) Stopped() bool {
	return s.stop.Load()
}

// Done is closed on a stop request, for tasks blocked in a select.
func (s *Signal) Done() <-chan struct{} {
	return s.done
}

// Sleep pauses the task for d or until a stop request arrives, whichever
// comes first. Returns false if the sleep was cut short by a stop request.
func (s *Signal) Sleep(d time.Duration) bool {
	if s.Stopped() {
		return false
	}
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-s.done:
		return false
	}
}
