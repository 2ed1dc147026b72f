// Package co collects small cooperative-concurrency primitives shared by
// hubstore's event bus and syncengine's background round loop: a
// broadcast signal, two goroutine-group helpers, and a bounded worker
// pool.
package co

import "sync"

// Signal is a broadcast condition variable expressed as a channel: each
// Broadcast call wakes every Waiter created since the previous Broadcast.
// The zero value is ready to use.
type Signal struct {
	mu sync.Mutex
	ch chan struct{}
}

// Waiter is a one-shot handle on the next broadcast.
type Waiter struct {
	c <-chan struct{}
}

// C returns the channel that closes on the next Broadcast.
func (w Waiter) C() <-chan struct{} {
	return w.c
}

func (s *Signal) chanLocked() chan struct{} {
	if s.ch == nil {
		s.ch = make(chan struct{})
	}
	return s.ch
}

// NewWaiter returns a Waiter for the next Broadcast. It never observes a
// Broadcast that already happened.
func (s *Signal) NewWaiter() Waiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Waiter{c: s.chanLocked()}
}

// Broadcast wakes every outstanding Waiter.
func (s *Signal) Broadcast() {
	s.mu.Lock()
	defer s.mu.Unlock()
	close(s.chanLocked())
	s.ch = nil
}
