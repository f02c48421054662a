package reactor

import (
	"os"
	"os/signal"
)

// Signals funnels OS signals onto the reactor goroutine, mirroring
// spec.md §4.A's self-pipe design: signal.Notify's channel already *is*
// the self-pipe (the Go runtime writes to it outside of any signal
// handler restrictions), so the reactor only needs to bridge that
// channel's deliveries into Post calls to get "callbacks run under
// normal rules".
type Signals struct {
	r    *Reactor
	ch   chan os.Signal
	stop chan struct{}
}

// Watch installs a signal watcher for the given signals. Nothing is
// delivered until Dispatch is called on the returned Signals.
func (r *Reactor) Watch(sigs ...os.Signal) *Signals {
	s := &Signals{
		r:    r,
		ch:   make(chan os.Signal, 8),
		stop: make(chan struct{}),
	}
	signal.Notify(s.ch, sigs...)
	return s
}

// Dispatch starts the funnel goroutine; fn runs on the reactor goroutine
// for every signal received until Stop is called.
func (s *Signals) Dispatch(fn func(os.Signal)) {
	go func() {
		for {
			select {
			case sig := <-s.ch:
				s.r.Post(func() { fn(sig) })
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop stops watching for signals.
func (s *Signals) Stop() {
	signal.Stop(s.ch)
	close(s.stop)
}
