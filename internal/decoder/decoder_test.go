package decoder

import (
	"context"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/arung-agamani/disorder/internal/reactor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotifier struct {
	mu      sync.Mutex
	started map[string]bool
	done    map[string]bool
	doneOK  map[string]bool
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{started: map[string]bool{}, done: map[string]bool{}, doneOK: map[string]bool{}}
}

func (n *fakeNotifier) NotifyStarted(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.started[id] = true
}
func (n *fakeNotifier) NotifyProgress(id string, sofarBytes int64) {}
func (n *fakeNotifier) NotifyDone(id string, ok bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.done[id] = true
	n.doneOK[id] = ok
}

func (n *fakeNotifier) wasStarted(id string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.started[id]
}
func (n *fakeNotifier) isDone(id string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.done[id]
}

func runReactor(t *testing.T) (*reactor.Reactor, context.CancelFunc) {
	t.Helper()
	r := reactor.New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go r.Run(ctx)
	t.Cleanup(cancel)
	return r, cancel
}

// catCommand builds a harmless short-lived command standing in for
// ffmpeg: it writes a few bytes to stdout and exits 0.
func catCommand(ctx context.Context, path string, seekSeconds float64) *exec.Cmd {
	return exec.CommandContext(ctx, "printf", "some-pcm-bytes")
}

// sleepCommand stands in for a long-running decode, so Abandon has
// something to terminate mid-flight.
func sleepCommand(ctx context.Context, path string, seekSeconds float64) *exec.Cmd {
	return exec.CommandContext(ctx, "sleep", "5")
}

func TestLaunchRunsCommandAndNotifiesStartedAndDone(t *testing.T) {
	r, _ := runReactor(t)
	notifier := newFakeNotifier()
	var gotPCM []byte
	var mu sync.Mutex
	m := New(r, notifier, func(id string, pcm []byte) {
		mu.Lock()
		defer mu.Unlock()
		gotPCM = append(gotPCM, pcm...)
	}, nil)
	m.newCmd = catCommand

	require.NoError(t, m.Launch("track-1", "irrelevant.mp3", 0))

	require.Eventually(t, func() bool { return notifier.isDone("track-1") }, 2*time.Second, 10*time.Millisecond)
	assert.True(t, notifier.wasStarted("track-1"))
	mu.Lock()
	assert.Equal(t, "some-pcm-bytes", string(gotPCM))
	mu.Unlock()
}

func TestLaunchIsIdempotent(t *testing.T) {
	r, _ := runReactor(t)
	notifier := newFakeNotifier()
	m := New(r, notifier, func(string, []byte) {}, nil)
	m.newCmd = sleepCommand

	require.NoError(t, m.Launch("track-1", "irrelevant.mp3", 0))
	require.NoError(t, m.Launch("track-1", "irrelevant.mp3", 0)) // no-op, does not error

	m.Abandon("track-1")
}

func TestAbandonSuppressesNotifyDone(t *testing.T) {
	r, _ := runReactor(t)
	notifier := newFakeNotifier()
	m := New(r, notifier, func(string, []byte) {}, nil)
	m.newCmd = sleepCommand

	require.NoError(t, m.Launch("track-1", "irrelevant.mp3", 0))
	m.Abandon("track-1")

	time.Sleep(200 * time.Millisecond)
	assert.False(t, notifier.isDone("track-1"))
}
