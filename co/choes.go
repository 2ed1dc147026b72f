package co

import "sync"

// Choes ("cancellable goes") runs a group of goroutines that each take a
// stop channel, and lets the caller signal all of them to return via
// Stop, idempotently and from any goroutine.
type Choes struct {
	wg        sync.WaitGroup
	stop      chan struct{}
	stopOnce  sync.Once
}

// NewChoes returns a ready-to-use Choes.
func NewChoes() *Choes {
	return &Choes{stop: make(chan struct{})}
}

// Go starts f in a new goroutine, passing it the group's shared stop
// channel.
func (g *Choes) Go(f func(stop chan struct{})) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		f(g.stop)
	}()
}

// Stop closes the shared stop channel, signalling every running goroutine
// to return. Safe to call more than once or concurrently.
func (g *Choes) Stop() {
	g.stopOnce.Do(func() {
		close(g.stop)
	})
}

// Wait blocks until every goroutine started with Go has returned.
func (g *Choes) Wait() {
	g.wg.Wait()
}
