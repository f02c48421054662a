package queue

import "time"

// EventKind enumerates the event-log event names spec.md §4.C "Outputs"
// and §6 "Event log line grammar" specify.
type EventKind string

const (
	EventPlaying      EventKind = "playing"
	EventScratched    EventKind = "scratched"
	EventCompleted    EventKind = "completed"
	EventFailed       EventKind = "failed"
	EventMoved        EventKind = "moved"
	EventRemoved      EventKind = "removed"
	EventQueue        EventKind = "queue"
	EventRecentAdded  EventKind = "recent_added"
	EventRecentRemove EventKind = "recent_removed"
	EventState        EventKind = "state"
	EventVolume       EventKind = "volume"
	EventRightsChange EventKind = "rights_changed"
	EventRescanned    EventKind = "rescanned"
	EventAdopted      EventKind = "adopted"
)

// Event is one fanout-able line for the protocol engine's streaming `log`
// subscribers (spec.md §4.D "Streaming log").
type Event struct {
	At   time.Time
	Kind EventKind
	Args []string
}

func newEvent(kind EventKind, args ...string) Event {
	return Event{At: time.Now(), Kind: kind, Args: args}
}
