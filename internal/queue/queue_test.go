package queue

import (
	"testing"
	"time"

	"github.com/arung-agamani/disorder/internal/library"
	"github.com/arung-agamani/disorder/internal/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDecoder struct {
	launched   map[string]string
	launchedAt map[string]int64 // sofarBytes passed to the most recent Launch call
	abandoned  map[string]bool
	failOn     map[string]bool
}

func newFakeDecoder() *fakeDecoder {
	return &fakeDecoder{
		launched:   map[string]string{},
		launchedAt: map[string]int64{},
		abandoned:  map[string]bool{},
		failOn:     map[string]bool{},
	}
}

func (d *fakeDecoder) Launch(id, path string, sofar int64) error {
	if d.failOn[path] {
		return assert.AnError
	}
	d.launched[id] = path
	d.launchedAt[id] = sofar
	delete(d.abandoned, id)
	return nil
}

func (d *fakeDecoder) Abandon(id string) { d.abandoned[id] = true }

type fakeLibrary struct {
	tracks map[string]*library.Track
	random *library.Track
}

func newFakeLibrary() *fakeLibrary { return &fakeLibrary{tracks: map[string]*library.Track{}} }

func (l *fakeLibrary) Resolve(alias string) (string, error) { return alias, nil }
func (l *fakeLibrary) Exists(path string) bool              { _, ok := l.tracks[path]; return ok }
func (l *fakeLibrary) Get(path string) (*library.Track, bool) {
	t, ok := l.tracks[path]
	return t, ok
}
func (l *fakeLibrary) List() []*library.Track  { return nil }
func (l *fakeLibrary) Search(string) []*library.Track { return nil }
func (l *fakeLibrary) GetPref(string, string) (string, bool)  { return "", false }
func (l *fakeLibrary) SetPref(string, string, string) error   { return nil }
func (l *fakeLibrary) UnsetPref(string, string) error         { return nil }
func (l *fakeLibrary) GetGlobalPref(string) (string, bool)    { return "", false }
func (l *fakeLibrary) SetGlobalPref(string, string)           {}
func (l *fakeLibrary) UnsetGlobalPref(string)                 {}
func (l *fakeLibrary) Count() int                             { return len(l.tracks) }
func (l *fakeLibrary) Rescan(time.Time) (int, int, error)     { return 0, 0, nil }
func (l *fakeLibrary) Random(time.Time, library.RandomConfig, func(string) time.Time) (*library.Track, bool) {
	if l.random == nil {
		return nil, false
	}
	return l.random, true
}

func newTestEngine(t *testing.T, dec *fakeDecoder, lib *fakeLibrary) *Engine {
	t.Helper()
	e, _ := newTestEngineWithEvents(t, dec, lib)
	return e
}

// newTestEngineWithEvents is newTestEngine plus a handle on every event
// raised, for tests that need to assert on (or count) emitted events.
func newTestEngineWithEvents(t *testing.T, dec *fakeDecoder, lib *fakeLibrary) (*Engine, *[]Event) {
	t.Helper()
	events := &[]Event{}
	cfg := Config{QueuePad: 0, HistoryMax: 5}
	e := New(cfg, lib, dec, NewIDAllocator(), nil, func(ev Event) { *events = append(*events, ev) })
	return e, events
}

func TestPlayAppendsAndPrepares(t *testing.T) {
	dec := newFakeDecoder()
	lib := newFakeLibrary()
	e := newTestEngine(t, dec, lib)

	entry, err := e.Play("alice", "track1.mp3")
	require.NoError(t, err)
	require.Len(t, e.List(), 1)
	assert.Equal(t, StateUnplayed, entry.State)
	assert.Equal(t, "track1.mp3", dec.launched[entry.ID])
}

func TestNotifyStartedTransitionsToStarted(t *testing.T) {
	dec := newFakeDecoder()
	lib := newFakeLibrary()
	e := newTestEngine(t, dec, lib)

	entry, _ := e.Play("alice", "track1.mp3")
	e.NotifyStarted(entry.ID)
	assert.Equal(t, StateStarted, entry.State)

	playing, ok := e.Playing()
	require.True(t, ok)
	assert.Equal(t, entry.ID, playing.ID)
}

func TestNotifyDoneOKRetiresToHistory(t *testing.T) {
	dec := newFakeDecoder()
	lib := newFakeLibrary()
	e := newTestEngine(t, dec, lib)

	entry, _ := e.Play("alice", "track1.mp3")
	e.NotifyStarted(entry.ID)
	e.NotifyDone(entry.ID, true)

	assert.Equal(t, StateOK, entry.State)
	assert.Empty(t, e.List())
	require.Len(t, e.History(), 1)
	assert.Equal(t, entry.ID, e.History()[0].ID)
}

func TestNotifyDoneFailedRetiresToHistory(t *testing.T) {
	dec := newFakeDecoder()
	lib := newFakeLibrary()
	e := newTestEngine(t, dec, lib)

	entry, _ := e.Play("alice", "track1.mp3")
	e.NotifyStarted(entry.ID)
	e.NotifyDone(entry.ID, false)

	assert.Equal(t, StateFailed, entry.State)
	assert.Empty(t, e.List())
}

func TestHistoryTrimmedToMax(t *testing.T) {
	dec := newFakeDecoder()
	lib := newFakeLibrary()
	e := newTestEngine(t, dec, lib)
	e.cfg.HistoryMax = 2

	for i := 0; i < 3; i++ {
		entry, _ := e.Play("alice", "t.mp3")
		e.NotifyStarted(entry.ID)
		e.NotifyDone(entry.ID, true)
	}
	assert.Len(t, e.History(), 2)
}

func TestRemoveRequiresRights(t *testing.T) {
	dec := newFakeDecoder()
	lib := newFakeLibrary()
	e := newTestEngine(t, dec, lib)

	entry, _ := e.Play("alice", "track1.mp3")
	_, _ = e.Play("bob", "track2.mp3")

	err := e.Remove(users.RightRemoveMine, "bob", entry.ID)
	assert.ErrorIs(t, err, ErrNotRemovable)

	err = e.Remove(users.RightRemoveAny, "bob", entry.ID)
	require.NoError(t, err)
	assert.Len(t, e.List(), 1)
}

func TestRemoveMineAllowsOwnEntry(t *testing.T) {
	dec := newFakeDecoder()
	lib := newFakeLibrary()
	e := newTestEngine(t, dec, lib)

	entry, _ := e.Play("alice", "track1.mp3")
	err := e.Remove(users.RightRemoveMine, "alice", entry.ID)
	require.NoError(t, err)
	assert.Empty(t, e.List())
}

func TestRemoveCannotTargetPlayingHead(t *testing.T) {
	dec := newFakeDecoder()
	lib := newFakeLibrary()
	e := newTestEngine(t, dec, lib)

	entry, _ := e.Play("alice", "track1.mp3")
	e.NotifyStarted(entry.ID)

	err := e.Remove(users.RightRemoveAny, "alice", entry.ID)
	assert.ErrorIs(t, err, ErrInvalidPosition)
}

func TestScratchInsertsClipAndRetiresHead(t *testing.T) {
	dec := newFakeDecoder()
	lib := newFakeLibrary()
	e := newTestEngine(t, dec, lib)
	e.cfg.Scratches = []string{"scratch-clip.wav"}

	entry, _ := e.Play("alice", "track1.mp3")
	e.NotifyStarted(entry.ID)

	err := e.Scratch(users.RightScratchAny, "bob")
	require.NoError(t, err)
	assert.True(t, dec.abandoned[entry.ID])
	require.Len(t, e.History(), 1)
	assert.Equal(t, StateScratched, e.History()[0].State)

	require.Len(t, e.List(), 1)
	assert.Equal(t, "scratch-clip.wav", e.List()[0].Path)
	assert.Equal(t, OriginScratch, e.List()[0].Origin)
}

func TestScratchRequiresRights(t *testing.T) {
	dec := newFakeDecoder()
	lib := newFakeLibrary()
	e := newTestEngine(t, dec, lib)

	entry, _ := e.Play("alice", "track1.mp3")
	e.NotifyStarted(entry.ID)

	err := e.Scratch(users.RightScratchMine, "bob")
	assert.ErrorIs(t, err, ErrNotRemovable)
}

func TestPauseResume(t *testing.T) {
	dec := newFakeDecoder()
	lib := newFakeLibrary()
	e, events := newTestEngineWithEvents(t, dec, lib)

	entry, _ := e.Play("alice", "track1.mp3")
	e.NotifyStarted(entry.ID)
	e.NotifyProgress(entry.ID, 4096)

	require.NoError(t, e.Pause())
	assert.Equal(t, StatePaused, entry.State)
	assert.True(t, dec.abandoned[entry.ID], "Pause must abandon the decoder so no PCM keeps flowing to the RTP sender")

	require.NoError(t, e.Resume())
	assert.Equal(t, StateStarted, entry.State)
	assert.False(t, dec.abandoned[entry.ID], "Resume must relaunch the decoder")
	assert.Equal(t, int64(4096), dec.launchedAt[entry.ID], "Resume must relaunch the decoder at the byte offset it paused at")

	// The relaunch's own NotifyStarted callback (ffmpeg's first buffer
	// after reseeking) must not be mistaken for a fresh start.
	before := countPlayingEvents(*events)
	e.NotifyStarted(entry.ID)
	assert.Equal(t, before, countPlayingEvents(*events), "a resume relaunch's NotifyStarted must not emit a second playing event")
}

func countPlayingEvents(events []Event) int {
	n := 0
	for _, ev := range events {
		if ev.Kind == EventPlaying {
			n++
		}
	}
	return n
}

func TestPauseWithNothingPlayingFails(t *testing.T) {
	dec := newFakeDecoder()
	lib := newFakeLibrary()
	e := newTestEngine(t, dec, lib)
	assert.ErrorIs(t, e.Pause(), ErrNothingPlaying)
}

func TestAdoptRequiresRandomOrigin(t *testing.T) {
	dec := newFakeDecoder()
	lib := newFakeLibrary()
	lib.random = &library.Track{Path: "random.mp3"}
	e := newTestEngine(t, dec, lib)
	e.cfg.QueuePad = 1
	e.randomEnabled = true
	e.ensure()

	require.Len(t, e.List(), 1)
	randomEntry := e.List()[0]
	assert.Equal(t, OriginRandom, randomEntry.Origin)

	require.NoError(t, e.Adopt("alice", randomEntry.ID))
	assert.Equal(t, OriginAdopted, randomEntry.Origin)
	assert.Equal(t, "alice", randomEntry.Submitter)

	err := e.Adopt("alice", randomEntry.ID)
	assert.ErrorIs(t, err, ErrNotAdoptable)
}

func TestMoveRepositionsEntry(t *testing.T) {
	dec := newFakeDecoder()
	lib := newFakeLibrary()
	e := newTestEngine(t, dec, lib)

	a, _ := e.Play("alice", "a.mp3")
	_, _ = e.Play("alice", "b.mp3")
	_, _ = e.Play("alice", "c.mp3")

	require.NoError(t, e.Move(users.RightMoveAny, "alice", a.ID, 2))
	assert.Equal(t, "a.mp3", e.List()[2].Path)
}

func TestDisableStopsSelectionOfNewRandomTracks(t *testing.T) {
	dec := newFakeDecoder()
	lib := newFakeLibrary()
	lib.random = &library.Track{Path: "random.mp3"}
	e := newTestEngine(t, dec, lib)
	e.cfg.QueuePad = 1
	e.Disable()
	e.ensure()
	assert.Empty(t, e.List())
}
