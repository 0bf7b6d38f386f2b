// Package engine drives batches of inference jobs through a bounded worker
// pool with class-aware retries and adaptive inter-batch pacing.
package engine

import "sync"

// Gate is the process-wide cooperative stop signal. Workers check it before
// pulling a job and before every attempt; it never aborts a call already in
// flight. Tripping is idempotent.
type Gate struct {
	once sync.Once
	ch   chan struct{}
}

// NewGate creates an untripped gate.
func NewGate() *Gate {
	return &Gate{ch: make(chan struct{})}
}

// Trip sets the stop signal. Safe to call from any goroutine, any number of
// times.
func (g *Gate) Trip() {
	g.once.Do(func() { close(g.ch) })
}

// Tripped reports whether the stop signal has been set.
func (g *Gate) Tripped() bool {
	select {
	case <-g.ch:
		return true
	default:
		return false
	}
}

// Done returns a channel closed when the gate trips, for use in select.
func (g *Gate) Done() <-chan struct{} {
	return g.ch
}
