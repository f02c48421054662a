package queue

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/arung-agamani/disorder/internal/library"
	"github.com/arung-agamani/disorder/internal/users"
)

var (
	ErrNotFound        = errors.New("no such queue entry")
	ErrNothingPlaying  = errors.New("nothing is playing")
	ErrNotRemovable    = errors.New("insufficient rights to remove this entry")
	ErrNotAdoptable    = errors.New("entry is not a random pick")
	ErrInvalidPosition = errors.New("invalid queue position")
)

// Config parameterises selection/prepare-ahead policy, sourced from the
// live config.Snapshot (queue_pad, history, replay_min, new_*, and the
// configured scratch clip list).
type Config struct {
	QueuePad   int
	HistoryMax int
	Random     library.RandomConfig
	Scratches  []string
}

// Engine is the Queue Engine (spec.md §4.C). All exported methods must be
// called from the reactor goroutine only.
type Engine struct {
	cfg     Config
	lib     library.Interface
	decoder Decoder
	ids     *IDAllocator
	rng     *rand.Rand
	onEvent func(Event)
	journal *Journal

	list     []*Entry
	history  []*Entry
	prepared map[string]bool
	lastPlayed map[string]time.Time

	playEnabled   bool
	randomEnabled bool
}

// New creates an Engine. journal may be nil to disable persistence
// (tests typically do this).
func New(cfg Config, lib library.Interface, decoder Decoder, ids *IDAllocator, journal *Journal, onEvent func(Event)) *Engine {
	if onEvent == nil {
		onEvent = func(Event) {}
	}
	return &Engine{
		cfg:           cfg,
		lib:           lib,
		decoder:       decoder,
		ids:           ids,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
		onEvent:       onEvent,
		journal:       journal,
		prepared:      make(map[string]bool),
		lastPlayed:    make(map[string]time.Time),
		playEnabled:   true,
		randomEnabled: true,
	}
}

// Restore seeds the engine's queue and history from a previously loaded
// journal (see Journal.Load), which has already converted any crashed
// mid-track head entry to StateFailed-in-history. Any entry still marked
// StateStarted/StatePaused in queue here is re-marked StateUnplayed so it
// is prepared and launched fresh rather than assumed still decoding.
func (e *Engine) Restore(queue, history []*Entry) {
	for _, entry := range queue {
		if entry.State == StateStarted || entry.State == StatePaused {
			entry.State = StateUnplayed
			entry.Sofar = 0
		}
	}
	e.list = queue
	e.history = history
	for _, entry := range history {
		if existing, ok := e.lastPlayed[entry.Path]; !ok || entry.Queued.After(existing) {
			e.lastPlayed[entry.Path] = entry.Queued
		}
	}
}

func (e *Engine) emit(ev Event) { e.onEvent(ev) }

func (e *Engine) find(id string) *Entry {
	for _, ent := range e.list {
		if ent.ID == id {
			return ent
		}
	}
	return nil
}

func (e *Engine) indexOf(id string) int {
	for i, ent := range e.list {
		if ent.ID == id {
			return i
		}
	}
	return -1
}

// List returns a snapshot of the current queue, head first.
func (e *Engine) List() []*Entry {
	out := make([]*Entry, len(e.list))
	copy(out, e.list)
	return out
}

// History returns the recent-history ring, most recent first.
func (e *Engine) History() []*Entry {
	out := make([]*Entry, len(e.history))
	copy(out, e.history)
	return out
}

// Playing returns the currently playing (started or paused) entry, if
// any.
func (e *Engine) Playing() (*Entry, bool) {
	if len(e.list) == 0 {
		return nil, false
	}
	head := e.list[0]
	if head.State == StateStarted || head.State == StatePaused {
		return head, true
	}
	return nil, false
}

// Play appends path to the tail of the queue (the `play` command).
func (e *Engine) Play(user, path string) (*Entry, error) {
	entry := &Entry{
		ID: e.ids.Next(), Path: path, Submitter: user,
		Origin: OriginSubmitted, State: StateUnplayed, Queued: time.Now(),
	}
	if t, ok := e.lib.Get(path); ok {
		entry.Duration = t.Duration * 1000
	}
	e.list = append(e.list, entry)
	e.persist()
	e.emit(newEvent(EventQueue, entry.ID, entry.Path))
	e.ensure()
	return entry, nil
}

// PlayAfter inserts path immediately after the entry named by afterID
// (the `playafter` command).
func (e *Engine) PlayAfter(user, afterID, path string) (*Entry, error) {
	idx := e.indexOf(afterID)
	if idx < 0 {
		return nil, ErrNotFound
	}
	entry := &Entry{
		ID: e.ids.Next(), Path: path, Submitter: user,
		Origin: OriginSubmitted, State: StateUnplayed, Queued: time.Now(),
	}
	if t, ok := e.lib.Get(path); ok {
		entry.Duration = t.Duration * 1000
	}
	e.insertAt(idx+1, entry)
	e.persist()
	e.emit(newEvent(EventQueue, entry.ID, entry.Path))
	e.ensure()
	return entry, nil
}

func (e *Engine) insertAt(idx int, entry *Entry) {
	e.list = append(e.list, nil)
	copy(e.list[idx+1:], e.list[idx:])
	e.list[idx] = entry
}

// Move shifts id by delta positions (negative toward the head, positive
// toward the tail), clamped to the ends of the queue. The currently
// playing head entry (index 0, started or paused) may never be moved.
func (e *Engine) Move(rights users.Rights, user, id string, delta int) error {
	idx := e.indexOf(id)
	if idx < 0 {
		return ErrNotFound
	}
	if idx == 0 && (e.list[0].State == StateStarted || e.list[0].State == StatePaused) {
		return ErrInvalidPosition
	}
	entry := e.list[idx]
	if !users.RightRemovable(rights, user, entry.Submitter, entry.Origin == OriginRandom,
		users.RightMoveMine, users.RightMoveRandom, users.RightMoveAny) {
		return ErrNotRemovable
	}
	newIdx := idx + delta
	if newIdx < 0 {
		newIdx = 0
	}
	if newIdx >= len(e.list) {
		newIdx = len(e.list) - 1
	}
	if newIdx == idx {
		return nil
	}
	e.list = append(e.list[:idx], e.list[idx+1:]...)
	e.insertAt(newIdx, entry)
	e.persist()
	e.emit(newEvent(EventMoved, entry.ID))
	return nil
}

// MoveAfter relocates each of ids to immediately follow afterID, in the
// order given, implementing the `moveafter` command. The currently
// playing head entry may not be moved, same as Move.
func (e *Engine) MoveAfter(rights users.Rights, user, afterID string, ids []string) error {
	anchorIdx := e.indexOf(afterID)
	if afterID != "" && anchorIdx < 0 {
		return ErrNotFound
	}
	for _, id := range ids {
		idx := e.indexOf(id)
		if idx < 0 {
			return ErrNotFound
		}
		if idx == 0 && (e.list[0].State == StateStarted || e.list[0].State == StatePaused) {
			return ErrInvalidPosition
		}
		entry := e.list[idx]
		if !users.RightRemovable(rights, user, entry.Submitter, entry.Origin == OriginRandom,
			users.RightMoveMine, users.RightMoveRandom, users.RightMoveAny) {
			return ErrNotRemovable
		}
		e.list = append(e.list[:idx], e.list[idx+1:]...)
		anchorIdx = e.indexOf(afterID)
		e.insertAt(anchorIdx+1, entry)
		e.emit(newEvent(EventMoved, entry.ID))
		afterID = entry.ID
		anchorIdx = e.indexOf(afterID)
	}
	e.persist()
	return nil
}

// Remove deletes a queued (not currently playing) entry. Use Scratch to
// stop the currently playing track.
func (e *Engine) Remove(rights users.Rights, user, id string) error {
	idx := e.indexOf(id)
	if idx < 0 {
		return ErrNotFound
	}
	entry := e.list[idx]
	if idx == 0 && (entry.State == StateStarted || entry.State == StatePaused) {
		return fmt.Errorf("%w: use scratch to stop the playing track", ErrInvalidPosition)
	}
	if !users.RightRemovable(rights, user, entry.Submitter, entry.Origin == OriginRandom,
		users.RightRemoveMine, users.RightRemoveRandom, users.RightRemoveAny) {
		return ErrNotRemovable
	}
	e.list = append(e.list[:idx], e.list[idx+1:]...)
	delete(e.prepared, entry.ID)
	e.decoder.Abandon(entry.ID)
	e.persist()
	e.emit(newEvent(EventRemoved, entry.ID))
	e.ensure()
	return nil
}

// Scratch stops the currently playing track (spec.md §4.C "Scratch"),
// marking it scratched and inserting a uniformly-chosen scratch clip at
// the head of the queue before normal play resumes.
func (e *Engine) Scratch(rights users.Rights, user string) error {
	head, ok := e.Playing()
	if !ok {
		return ErrNothingPlaying
	}
	if !users.RightRemovable(rights, user, head.Submitter, head.Origin == OriginRandom,
		users.RightScratchMine, users.RightScratchRandom, users.RightScratchAny) {
		return ErrNotRemovable
	}
	e.decoder.Abandon(head.ID)
	head.setState(StateScratched)
	e.emit(newEvent(EventScratched, head.ID, head.Path))
	e.retire(head)

	if len(e.cfg.Scratches) > 0 {
		clip := e.cfg.Scratches[e.rng.Intn(len(e.cfg.Scratches))]
		clipEntry := &Entry{
			ID: e.ids.Next(), Path: clip, Origin: OriginScratch,
			State: StateUnplayed, Queued: time.Now(),
		}
		e.list = append([]*Entry{clipEntry}, e.list...)
		e.emit(newEvent(EventQueue, clipEntry.ID, clipEntry.Path))
	}
	e.persist()
	e.ensure()
	return nil
}

// Pause pauses the currently playing track. Per spec.md §4.C "Pause
// semantics" / §4.E, the actual decoded audio must stop flowing to the
// RTP sender while paused (the sender keeps emitting clock-filler
// packets on its own) — so Pause abandons the running decoder exactly
// as prepare-ahead does on remove/move/scratch, rather than merely
// flipping the state field.
func (e *Engine) Pause() error {
	head, ok := e.Playing()
	if !ok || head.State != StateStarted {
		return ErrNothingPlaying
	}
	head.setState(StatePaused)
	head.PausedAt = time.Now()
	e.decoder.Abandon(head.ID)
	delete(e.prepared, head.ID)
	e.emit(newEvent(EventState, "paused"))
	return nil
}

// Resume resumes a paused track by re-launching its decoder at the byte
// offset it had decoded up to when paused (spec.md §4.C "Pause
// semantics"), using Launch's seek-by-byte-offset argument.
func (e *Engine) Resume() error {
	head, ok := e.Playing()
	if !ok || head.State != StatePaused {
		return ErrNothingPlaying
	}
	played := head.PausedAt.Sub(head.StartedAt)
	head.setState(StateStarted)
	// Shift StartedAt to now minus the time already played before the
	// pause, so Expected's StartedAt-plus-duration arithmetic still
	// lands on the right wall clock time once playback resumes.
	head.StartedAt = time.Now().Add(-played)
	if err := e.decoder.Launch(head.ID, head.Path, head.Sofar); err != nil {
		head.setState(StateFailed)
		e.emit(newEvent(EventFailed, head.ID, head.Path))
		e.retire(head)
		return nil
	}
	e.prepared[head.ID] = true
	e.emit(newEvent(EventState, "playing"))
	return nil
}

// Adopt takes ownership of a random-origin entry (spec.md §4.C "Adopt").
func (e *Engine) Adopt(user, id string) error {
	entry := e.find(id)
	if entry == nil {
		return ErrNotFound
	}
	if entry.Origin != OriginRandom {
		return ErrNotAdoptable
	}
	entry.Origin = OriginAdopted
	entry.Submitter = user
	e.persist()
	e.emit(newEvent(EventAdopted, entry.ID, user))
	return nil
}

// Enable/Disable toggle whether the selection algorithm starts new
// tracks at all; RandomEnable/RandomDisable toggle only the random-pick
// fallback when the queue is empty.
func (e *Engine) Enable()  { e.playEnabled = true; e.ensure() }
func (e *Engine) Disable() { e.playEnabled = false }
func (e *Engine) RandomEnable()  { e.randomEnabled = true; e.ensure() }
func (e *Engine) RandomDisable() { e.randomEnabled = false }

// Shutdown transitions the currently playing entry (if any) to quitting
// and abandons its decoder, for a clean server stop.
func (e *Engine) Shutdown() {
	if head, ok := e.Playing(); ok {
		e.decoder.Abandon(head.ID)
		head.setState(StateQuitting)
		e.retire(head)
	}
}

// Tick runs the selection/prepare-ahead algorithm; wired to a periodic
// reactor timer (spec.md §4.C "Inputs: ... periodic tick").
func (e *Engine) Tick() { e.ensure() }

// Rescan triggers a library rescan and emits the resulting event.
func (e *Engine) Rescan() (added, removed int, err error) {
	added, removed, err = e.lib.Rescan(time.Now())
	if err != nil {
		return 0, 0, err
	}
	e.emit(newEvent(EventRescanned, fmt.Sprintf("%d", added), fmt.Sprintf("%d", removed)))
	return added, removed, nil
}

// ensure implements the selection algorithm (spec.md §4.C "Selection
// algorithm") and prepare-ahead ("whenever the head of the queue is
// non-playing, ensure a decoder subprocess ... is running").
func (e *Engine) ensure() {
	if !e.playEnabled {
		return
	}
	// Top up the queue to queue_pad entries with random picks, so the
	// selection below always has a head to prepare once play is enabled
	// and random fill is on (spec.md §6 "queue_pad").
	if e.randomEnabled {
		for len(e.list) < e.cfg.QueuePad {
			track, ok := e.lib.Random(time.Now(), e.cfg.Random, e.recentlyPlayed)
			if !ok {
				break
			}
			entry := &Entry{
				ID: e.ids.Next(), Path: track.Path, Origin: OriginRandom,
				State: StateUnplayed, Queued: time.Now(), Duration: track.Duration * 1000,
			}
			e.list = append(e.list, entry)
			e.emit(newEvent(EventQueue, entry.ID, entry.Path))
		}
	}
	if len(e.list) == 0 {
		return
	}

	head := e.list[0]
	if head.State != StateUnplayed {
		return
	}
	if e.prepared[head.ID] {
		return
	}
	if err := e.decoder.Launch(head.ID, head.Path, 0); err != nil {
		head.setState(StateFailed)
		e.emit(newEvent(EventFailed, head.ID, head.Path))
		e.retire(head)
		return
	}
	e.prepared[head.ID] = true
}

func (e *Engine) recentlyPlayed(path string) time.Time { return e.lastPlayed[path] }

// retire removes a terminal head entry from the live list into history,
// trims history to HistoryMax, and re-runs selection for the next entry.
func (e *Engine) retire(entry *Entry) {
	idx := e.indexOf(entry.ID)
	if idx == 0 {
		e.list = e.list[1:]
	} else if idx > 0 {
		e.list = append(e.list[:idx], e.list[idx+1:]...)
	}
	delete(e.prepared, entry.ID)
	e.lastPlayed[entry.Path] = time.Now()

	e.history = append([]*Entry{entry}, e.history...)
	e.emit(newEvent(EventRecentAdded, entry.ID, entry.Path))
	max := e.cfg.HistoryMax
	if max <= 0 {
		max = 50
	}
	if len(e.history) > max {
		dropped := e.history[max:]
		e.history = e.history[:max]
		for _, d := range dropped {
			e.emit(newEvent(EventRecentRemove, d.ID))
		}
	}
	e.persist()
	e.ensure()
}

func (e *Engine) persist() {
	if e.journal == nil {
		return
	}
	if err := e.journal.Save(e.list, e.history); err != nil {
		e.emit(newEvent(EventFailed, "journal", err.Error()))
	}
}
