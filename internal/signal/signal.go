// Package signal provides a resettable, waitable completion gate.
//
// A Signal starts unset.  One producer calls Set when its work is done;
// one consumer blocks in Wait until the signal is set or a timeout
// expires.  Reset returns the gate to unset so it can be reused for the
// next round.  All methods are safe for concurrent use.
package signal

import (
	"context"
	"sync"
	"time"
)

// Signal is a manual-reset event.  The zero value is not usable; call
// [New].
type Signal struct {
	mu       sync.Mutex
	ch       chan struct{} // closed while set
	set      bool
	disposed bool
	gone     chan struct{} // closed by Dispose
}

// New returns an unset Signal.
func New() *Signal {
	return &Signal{
		ch:   make(chan struct{}),
		gone: make(chan struct{}),
	}
}

// Set marks the signal and wakes every waiter.  Setting an already-set
// or disposed signal is a no-op.
func (s *Signal) Set() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed || s.set {
		return
	}
	s.set = true
	close(s.ch)
}

// Reset returns the signal to unset.
func (s *Signal) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed || !s.set {
		return
	}
	s.set = false
	s.ch = make(chan struct{})
}

// IsSet reports the current state without blocking.
func (s *Signal) IsSet() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set && !s.disposed
}

// Wait blocks until the signal is set or timeout elapses and reports
// whether it was set.  A negative timeout waits indefinitely; zero
// only checks the current state.
func (s *Signal) Wait(timeout time.Duration) bool {
	return s.WaitContext(context.Background(), timeout)
}

// WaitContext is [Signal.Wait] that also gives up when ctx is done.
// Waiting on a disposed signal returns false.
func (s *Signal) WaitContext(ctx context.Context, timeout time.Duration) bool {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return false
	}
	ch := s.ch
	s.mu.Unlock()

	if timeout == 0 {
		select {
		case <-ch:
			return true
		default:
			return false
		}
	}

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case <-ch:
		return true
	case <-expired:
		return false
	case <-ctx.Done():
		return false
	case <-s.gone:
		return false
	}
}

// Dispose releases the signal.  Blocked waiters return false and later
// calls to Set, Reset and Wait are no-ops.  Dispose is idempotent.
func (s *Signal) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}
	s.disposed = true
	close(s.gone)
}

// Disposed reports whether Dispose has been called.
func (s *Signal) Disposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}
