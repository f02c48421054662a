package protocol

import (
	"fmt"
	"strings"
	"sync"

	"github.com/arung-agamani/disorder/internal/queue"
)

// userManagementEvents are filtered to admin subscribers and (when
// remote_userman is off) local-right subscribers only, per spec.md §4.D
// "Streaming log": "User-management events are filtered to admin
// subscribers and ... local-right subscribers only."
var userManagementEvents = map[queue.EventKind]bool{
	"user_added":   true,
	"user_deleted": true,
	"user_edited":  true,
}

// logSubscriber receives fanned-out event lines (spec.md §4.D "Streaming
// log"): `<hexepoch> <event> <args...>` one per line, until the
// connection closes. Implemented by internal/server's per-connection
// writer adapter.
type logSubscriber interface {
	WriteLogLine(line string)
	Rights() (admin bool, local bool)
}

// Hub fans out queue/volume/rescan/rights events, and synthetic
// user-management events, to every subscribed logSubscriber, preserving
// the total order they were raised in on the reactor goroutine (spec.md
// §8 "Event ordering").
type Hub struct {
	mu   sync.Mutex
	subs map[string]logSubscriber
}

// NewHub creates an empty Hub.
func NewHub() *Hub { return &Hub{subs: make(map[string]logSubscriber)} }

// Subscribe registers tag's subscriber; Unsubscribe (called on
// disconnect) removes it.
func (h *Hub) Subscribe(tag string, sub logSubscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[tag] = sub
}

func (h *Hub) Unsubscribe(tag string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, tag)
}

// Publish formats and delivers ev to every current subscriber, in call
// order (Publish is only ever invoked from the reactor goroutine, so
// this ordering is also wall-clock raise order).
func (h *Hub) Publish(ev queue.Event) {
	line := formatEvent(ev)
	restricted := userManagementEvents[ev.Kind]

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs {
		if restricted {
			admin, local := sub.Rights()
			if !admin && !local {
				continue
			}
		}
		sub.WriteLogLine(line)
	}
}

func formatEvent(ev queue.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%x %s", ev.At.Unix(), ev.Kind)
	for _, a := range ev.Args {
		b.WriteByte(' ')
		b.WriteString(quoteToken(a))
	}
	return b.String()
}
