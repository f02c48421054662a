// Package queue implements the Queue Engine (spec.md §4.C): the playing
// entry's state machine, selection algorithm, prepare-ahead, rights-gated
// mutation commands, and journal persistence. Every exported method on
// Engine is intended to run only from the reactor goroutine (spec.md
// §4.A), so Engine itself holds no lock.
package queue

import "time"

// State is a playing-entry's position in spec.md §4.C's state machine.
type State int

const (
	StateUnplayed State = iota
	StateStarted
	StatePaused
	StateOK
	StateFailed
	StateScratched
	StateQuitting
)

func (s State) String() string {
	switch s {
	case StateUnplayed:
		return "unplayed"
	case StateStarted:
		return "started"
	case StatePaused:
		return "paused"
	case StateOK:
		return "ok"
	case StateFailed:
		return "failed"
	case StateScratched:
		return "scratched"
	case StateQuitting:
		return "quitting"
	default:
		return "unknown"
	}
}

// Terminal reports whether s is one of the state machine's terminal
// states (ok, failed, scratched, quitting).
func (s State) Terminal() bool {
	switch s {
	case StateOK, StateFailed, StateScratched, StateQuitting:
		return true
	default:
		return false
	}
}

// transitions enumerates the state machine's legal edges, per spec.md
// §4.C's diagram. CanTransition consults this table so illegal
// transitions are rejected uniformly rather than scattered across
// call sites.
var transitions = map[State]map[State]bool{
	StateUnplayed: {StateStarted: true, StateQuitting: true},
	StateStarted:  {StateScratched: true, StatePaused: true, StateOK: true, StateFailed: true, StateQuitting: true},
	StatePaused:   {StateStarted: true, StateQuitting: true},
}

// CanTransition reports whether moving from 'from' to 'to' is legal.
func CanTransition(from, to State) bool {
	return transitions[from][to]
}

// Origin records why an entry exists, consulted by right_removable and by
// `adopt` (spec.md §4.C).
type Origin string

const (
	OriginSubmitted Origin = "submitted"
	OriginRandom    Origin = "random"
	OriginScratch   Origin = "scratch"
	OriginAdopted   Origin = "adopted"
)

// Entry is one queue entry: a track awaiting or currently playing.
type Entry struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	Submitter string    `json:"submitter"`
	Origin    Origin    `json:"origin"`
	State     State     `json:"state"`

	// Sofar is the byte count decoded so far, frozen at the moment of a
	// pause and advanced by the decoder while started.
	Sofar int64 `json:"sofar"`

	Queued    time.Time `json:"queued"`
	StartedAt time.Time `json:"startedAt,omitempty"`
	PausedAt  time.Time `json:"pausedAt,omitempty"`

	// Duration is the track's known length in milliseconds, if known
	// from the library, used to compute expected finish times lazily.
	Duration int `json:"duration,omitempty"`
}

// setState validates and applies a transition, returning false (leaving
// the entry untouched) if the transition is illegal.
func (e *Entry) setState(to State) bool {
	if e.State == to {
		return true
	}
	if !CanTransition(e.State, to) {
		return false
	}
	e.State = to
	return true
}

// Expected computes the entry's expected-finish time given the current
// time, recomputed lazily on query rather than maintained incrementally
// (spec.md §4.C "Pause semantics").
func (e *Entry) Expected(now time.Time) time.Time {
	if e.Duration <= 0 {
		return time.Time{}
	}
	// Sofar counts bytes of 44.1 kHz 16-bit stereo PCM: 4 bytes per frame.
	remaining := time.Duration(e.Duration)*time.Millisecond - time.Duration(e.Sofar)*time.Second/(44100*4)
	if e.State == StatePaused {
		return now.Add(remaining)
	}
	if e.StartedAt.IsZero() {
		return now.Add(time.Duration(e.Duration) * time.Millisecond)
	}
	return e.StartedAt.Add(time.Duration(e.Duration) * time.Millisecond)
}
