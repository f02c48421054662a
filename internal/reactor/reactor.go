// Package reactor implements the single-threaded event loop described in
// spec.md §4.A: every mutation of queue, protocol session, or RTP sender
// state happens on one goroutine, so none of that state needs a mutex
// (spec.md §5 "no locks are required for in-process state"). I/O-bound
// goroutines (socket readers, subprocess waiters, the signal channel) are
// the producers; they never touch shared state directly, they only Post
// a closure onto the Reactor's single event channel for it to run.
//
// This is the idiomatic Go rendering of the original's self-pipe +
// poll/select + min-heap design: Go's netpoller and goroutine scheduler
// already provide the readiness multiplexing, so the reactor's job is
// reduced to being the single consumer that serialises callbacks — the
// part of the original design that actually mattered for correctness.
package reactor

import (
	"container/heap"
	"context"
	"log/slog"
	"time"
)

// Reactor serialises all callbacks onto one goroutine.
type Reactor struct {
	events  chan func()
	timers  timerHeap
	newTime chan *timerEntry
	cancels chan uint64
	nextID  uint64
	log     *slog.Logger
}

// New creates a Reactor. Call Run to start its loop.
func New(log *slog.Logger) *Reactor {
	if log == nil {
		log = slog.Default()
	}
	return &Reactor{
		events:  make(chan func(), 256),
		newTime: make(chan *timerEntry, 64),
		cancels: make(chan uint64, 64),
		log:     log,
	}
}

// Post schedules fn to run on the reactor goroutine as soon as it is next
// idle. Safe to call from any goroutine, including the reactor's own
// callbacks (which simply re-enter the channel).
func (r *Reactor) Post(fn func()) {
	r.events <- fn
}

// timerEntry is one registered timeout. Cancellation marks it inactive
// rather than removing it from the heap (lazy deletion on pop), exactly
// as spec.md §4.A describes.
type timerEntry struct {
	id     uint64
	at     time.Time
	fn     func()
	active bool
	index  int
}

type timerHeap []*timerEntry

func (h timerHeap) Len() int            { return len(h) }
func (h timerHeap) Less(i, j int) bool  { return h[i].at.Before(h[j].at) }
func (h timerHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *timerHeap) Push(x interface{}) {
	e := x.(*timerEntry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *timerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// Cancel stops a previously scheduled timer from firing. It is safe to
// call even after the timer has already fired.
type Cancel func()

// After schedules fn to run on the reactor goroutine at least delay from
// now. The returned Cancel, called before the timer fires, suppresses it.
func (r *Reactor) After(delay time.Duration, fn func()) Cancel {
	return r.At(time.Now().Add(delay), fn)
}

// At schedules fn to run at the given wall-clock time.
func (r *Reactor) At(at time.Time, fn func()) Cancel {
	id := r.nextID
	r.nextID++
	e := &timerEntry{id: id, at: at, fn: fn, active: true}
	r.newTime <- e
	return func() { r.cancels <- id }
}

// Run executes the reactor loop until ctx is cancelled. It must be called
// from the single goroutine that owns the reactor's callbacks.
func (r *Reactor) Run(ctx context.Context) {
	ids := make(map[uint64]*timerEntry)
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()
	if !timer.Stop() {
		<-timer.C
	}
	armed := false

	rearm := func() {
		for r.timers.Len() > 0 && !r.timers[0].active {
			heap.Pop(&r.timers)
		}
		if armed {
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			armed = false
		}
		if r.timers.Len() == 0 {
			return
		}
		d := time.Until(r.timers[0].at)
		if d < 0 {
			d = 0
		}
		timer.Reset(d)
		armed = true
	}

	for {
		select {
		case <-ctx.Done():
			return

		case fn := <-r.events:
			fn()

		case e := <-r.newTime:
			ids[e.id] = e
			heap.Push(&r.timers, e)
			rearm()

		case id := <-r.cancels:
			if e, ok := ids[id]; ok {
				e.active = false
				delete(ids, id)
			}

		case <-timer.C:
			armed = false
			now := time.Now()
			// Snapshot the set of timers due so far so newly-added timers
			// (e.g. one fired callback scheduling another) don't starve
			// the loop by being picked up in the same pass.
			var due []*timerEntry
			for r.timers.Len() > 0 && r.timers[0].active && !r.timers[0].at.After(now) {
				e := heap.Pop(&r.timers).(*timerEntry)
				if e.active {
					due = append(due, e)
					delete(ids, e.id)
				}
			}
			for _, e := range due {
				e.fn()
			}
			rearm()
		}
	}
}
