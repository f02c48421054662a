// Package schedule implements the day/time-based scheduled action list
// named by spec.md §6's schedule-add/del/get/list commands and
// SPEC_FULL.md §12 (the original's server.c scheduling, which spec.md's
// distillation named in the command table but left unspecified).
// Persistence follows the same write-then-rename journal idiom as
// internal/queue's journal; firing is driven by the reactor's timer heap
// from outside this package (internal/protocol's Scheduler wires
// Action.At to reactor.At), keeping schedule itself free of any reactor
// dependency.
package schedule

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound  = errors.New("no such scheduled action")
	ErrForbidden = errors.New("insufficient rights to modify this scheduled action")
)

// Kind names the action a scheduled entry performs when it fires,
// matching the command it would otherwise require a client to send.
type Kind string

const (
	KindEnable  Kind = "enable-at"
	KindDisable Kind = "disable-at"
	KindVolume  Kind = "volume-at"
	KindPlay    Kind = "play-at"
)

// Action is one scheduled entry.
type Action struct {
	ID     string    `json:"id"`
	User   string    `json:"user"`
	Kind   Kind      `json:"kind"`
	Args   []string  `json:"args,omitempty"`
	At     time.Time `json:"at"`
	Daily  bool      `json:"daily"` // repeats every 24h from At's time-of-day
}

// Manager owns the scheduled-action table. All exported methods are
// intended to run only from the reactor goroutine, matching every other
// mutable subsystem in this codebase (spec.md §4.A).
type Manager struct {
	ids     *idAllocator
	actions map[string]*Action
}

// New creates an empty Manager.
func New() *Manager {
	return &Manager{ids: newIDAllocator(), actions: make(map[string]*Action)}
}

// Add schedules a new action, returning its allocated ID.
func (m *Manager) Add(user string, kind Kind, args []string, at time.Time, daily bool) *Action {
	a := &Action{ID: m.ids.next(), User: user, Kind: kind, Args: args, At: at, Daily: daily}
	m.actions[a.ID] = a
	return a
}

// Get returns the named action.
func (m *Manager) Get(id string) (*Action, error) {
	a, ok := m.actions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return a, nil
}

// List returns every action belonging to user, or every action at all
// if all is true (admin listing).
func (m *Manager) List(user string, all bool) []*Action {
	out := make([]*Action, 0, len(m.actions))
	for _, a := range m.actions {
		if all || a.User == user {
			out = append(out, a)
		}
	}
	return out
}

// Del removes a scheduled action. Only its owner or an admin
// (isAdmin=true, checked by the caller) may delete it.
func (m *Manager) Del(id, user string, isAdmin bool) error {
	a, ok := m.actions[id]
	if !ok {
		return ErrNotFound
	}
	if !isAdmin && a.User != user {
		return ErrForbidden
	}
	delete(m.actions, id)
	return nil
}

// Reschedule advances a daily action's At by 24 hours after it fires,
// keeping its time-of-day fixed. Non-daily actions are left untouched;
// removing those once fired is up to the caller, via Del.
func (m *Manager) Reschedule(id string) {
	a, ok := m.actions[id]
	if !ok || !a.Daily {
		return
	}
	a.At = a.At.Add(24 * time.Hour)
}

// All returns every action, for persistence.
func (m *Manager) All() []*Action {
	out := make([]*Action, 0, len(m.actions))
	for _, a := range m.actions {
		out = append(out, a)
	}
	return out
}

// Restore replaces the Manager's actions wholesale from Store.Load.
func (m *Manager) Restore(actions []*Action) {
	m.actions = make(map[string]*Action, len(actions))
	for _, a := range actions {
		m.actions[a.ID] = a
	}
}

type idAllocator struct{ n uint64 }

func newIDAllocator() *idAllocator { return &idAllocator{} }

func (a *idAllocator) next() string {
	a.n++
	return fmt.Sprintf("sched-%x", a.n)
}
