package queue

import "time"

// Decoder is the Queue Engine's view of the decoder subprocess manager
// (internal/decoder): launch a track's decode, or abandon one already
// running. Launch/Abandon are idempotent per spec.md §4.C "Prepare-ahead":
// calling Launch twice for the same id without an intervening Abandon
// must not start a second subprocess.
//
// The decoder package calls back into the Engine (NotifyStarted/
// NotifyProgress/NotifyDone) after posting onto the reactor goroutine, so
// those methods — like every other Engine method — are only ever called
// while already running on the reactor goroutine.
type Decoder interface {
	Launch(id, path string, sofarBytes int64) error
	Abandon(id string)
}

// NotifyStarted reports that id's decoder has accepted its first audio
// buffer (spec.md §4.C state machine: unplayed -> started). A decoder
// relaunched by Resume after a pause also reports its first buffer this
// way, but the entry is already in StateStarted by then (Resume set it
// before calling Launch) — that case is a no-op here so it doesn't
// reset StartedAt or re-emit the playing event.
func (e *Engine) NotifyStarted(id string) {
	entry := e.find(id)
	if entry == nil {
		return
	}
	alreadyStarted := entry.State == StateStarted
	if !entry.setState(StateStarted) {
		return
	}
	if alreadyStarted {
		return
	}
	entry.StartedAt = time.Now()
	e.emit(newEvent(EventPlaying, entry.ID, entry.Path))
}

// NotifyProgress updates the decoded byte count for the playing entry.
func (e *Engine) NotifyProgress(id string, sofarBytes int64) {
	if entry := e.find(id); entry != nil {
		entry.Sofar = sofarBytes
	}
}

// NotifyDone reports decoder subprocess exit: ok on clean EOF, failed on
// a nonzero exit (spec.md §4.C state machine). A launch error is returned
// by Launch itself and handled by its caller.
func (e *Engine) NotifyDone(id string, ok bool) {
	entry := e.find(id)
	if entry == nil {
		return
	}
	target := StateOK
	kind := EventCompleted
	if !ok {
		target = StateFailed
		kind = EventFailed
	}
	if !entry.setState(target) {
		return
	}
	e.emit(newEvent(kind, entry.ID, entry.Path))
	e.retire(entry)
}
