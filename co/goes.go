package co

import "sync"

// Goes runs a group of goroutines and lets callers wait for all of them,
// either synchronously (Wait) or via a channel (Done).
type Goes struct {
	wg   sync.WaitGroup
	once sync.Once
	done chan struct{}
}

// Go starts f in a new goroutine tracked by the group.
func (g *Goes) Go(f func()) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		f()
	}()
}

// Wait blocks until every goroutine started with Go has returned.
func (g *Goes) Wait() {
	g.wg.Wait()
}

// Done returns a channel that closes once every goroutine started with Go
// has returned.
func (g *Goes) Done() <-chan struct{} {
	g.once.Do(func() {
		g.done = make(chan struct{})
		go func() {
			g.wg.Wait()
			close(g.done)
		}()
	})
	return g.done
}
