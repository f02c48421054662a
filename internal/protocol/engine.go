package protocol

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/arung-agamani/disorder/internal/config"
	"github.com/arung-agamani/disorder/internal/library"
	"github.com/arung-agamani/disorder/internal/mail"
	"github.com/arung-agamani/disorder/internal/playlist"
	"github.com/arung-agamani/disorder/internal/queue"
	"github.com/arung-agamani/disorder/internal/rtpsender"
	"github.com/arung-agamani/disorder/internal/schedule"
	"github.com/arung-agamani/disorder/internal/users"
)

// Engine ties the Protocol Engine (D) to the subsystems it drives: the
// queue engine (C), the track database (B), the user database, saved
// playlists, the scheduled-action list, the RTP destination set, and
// outbound mail. Every exported method is intended to be driven from the
// reactor goroutine only (spec.md §4.A).
type Engine struct {
	Queue     *queue.Engine
	Users     *users.Manager
	Library   library.Interface
	Playlists *playlist.Manager
	Schedule  *schedule.Manager
	RTP       *rtpsender.Destinations
	Mail      *mail.Sender
	Live      *config.Live
	Hub       *Hub
	Version   string

	// Scheduler arms and fires the day/time-based scheduled-action list
	// (schedule-add and friends); nil in tests that never exercise
	// scheduling, since nothing in this package requires it to run.
	Scheduler *Scheduler

	// OnDisconnect revokes every outstanding connection hook the server
	// wiring registered (playlist locks, RTP requests, log
	// subscriptions) for a given connection tag, on disconnect.
	OnDisconnect func(tag string)

	// volL/volR hold the software output volume (0-100 per channel, spec.md
	// §6 "volume"). There is no mixer/backend in this corpus to drive, so
	// the value is tracked here and fanned out as an event only.
	volL, volR int
}

// NewEngine wires the subsystems into an Engine with default volume.
func NewEngine(q *queue.Engine, u *users.Manager, lib library.Interface, pl *playlist.Manager, sc *schedule.Manager, rtp *rtpsender.Destinations, ml *mail.Sender, live *config.Live, hub *Hub, version string) *Engine {
	return &Engine{
		Queue: q, Users: u, Library: lib, Playlists: pl, Schedule: sc,
		RTP: rtp, Mail: ml, Live: live, Hub: hub, Version: version,
		volL: 100, volR: 100,
	}
}

func (e *Engine) volume() (int, int) { return e.volL, e.volR }

func (e *Engine) setVolume(l, r int) {
	e.volL, e.volR = l, r
	e.Hub.Publish(queue.Event{At: time.Now(), Kind: queue.EventVolume, Args: []string{fmt.Sprintf("%d", l), fmt.Sprintf("%d", r)}})
}

// NewNonce mints a per-connection authentication challenge, sent in the
// protocol greeting (spec.md §4.D "on connect the server sends ... a
// nonce").
func NewNonce() ([]byte, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return b, nil
}

// Greeting renders the protocol-version-2 greeting line (spec.md §4.D
// "Greeting").
func Greeting(algo string, nonce []byte) string {
	return fmt.Sprintf("231 2 %s %x\n", algo, nonce)
}

// IsCollectingBody reports whether sess is mid dot-stuffed body intake.
func (s *Session) IsCollectingBody() bool { return s.body != nil }

// Dispatch parses and runs one command line. It must not be called while
// sess.IsCollectingBody() — the caller (internal/server) routes those
// lines to FeedBody instead.
func (e *Engine) Dispatch(sess *Session, rawLine string) (*Result, *Error) {
	tokens, err := ParseLine(rawLine)
	if err != nil {
		return nil, errParse("parse error: %s", err)
	}
	if len(tokens) == 0 {
		return nil, nil // blank line: no reply, matching telnet-friendly keepalive behaviour
	}
	name, args := tokens[0], tokens[1:]

	cmd, ok := table[name]
	if !ok {
		return nil, errParse("unknown command %q", name)
	}
	if len(args) < cmd.minArgs || (cmd.maxArgs >= 0 && len(args) > cmd.maxArgs) {
		return nil, errArgument("wrong number of arguments to %s", name)
	}
	if !sess.Authenticated && !noAuthRequired[name] {
		return nil, errAuth("not authenticated")
	}
	if cmd.rights != 0 && !sess.effectiveRights().Any(cmd.rights) {
		return nil, errRights()
	}
	return cmd.handler(e, sess, args)
}

// FeedBody feeds one line to an in-progress body collection. done is
// true once the terminating "." line has been consumed, at which point
// result/errResult carry the final reply (analogous to Dispatch's
// return); lines on a log-subscribed connection are never routed here
// (spec.md §4.D "Lines from the client on a log connection are
// discarded").
func (e *Engine) FeedBody(sess *Session, rawLine string) (result *Result, errResult *Error, done bool) {
	if rawLine == "." {
		lines := sess.body.lines
		finish := sess.body.finish
		sess.body = nil
		result, errResult = finish(e, sess, lines)
		return result, errResult, true
	}
	sess.body.lines = append(sess.body.lines, unstuffBodyLine(rawLine))
	return nil, nil, false
}

// Disconnect releases every per-connection resource the protocol engine
// tracks for sess: its log subscription, any playlist lock, and any RTP
// unicast destination (spec.md §4.F "On reader/writer error: ... release
// per-connection resources").
func (e *Engine) Disconnect(sess *Session) {
	if sess.LogSubscribed {
		e.Hub.Unsubscribe(sess.Tag)
	}
	e.Playlists.UnlockAll(sess.Tag)
	e.RTP.Unregister(sess.Tag)
}
