// Package decoder launches one ffmpeg subprocess per queue entry to turn
// an arbitrary library track into raw 16-bit stereo PCM for the RTP
// sender, adapted from the teacher's internal/ffmpeg.Encoder.Stream
// (same ffmpeg invocation shape: exec.CommandContext, a stdout pipe read
// in a goroutine, stderr logged at debug) generalised from mp3-to-writer
// streaming onto queue.Decoder's Launch/Abandon/notify contract.
package decoder

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"syscall"

	"github.com/arung-agamani/disorder/internal/reactor"
)

// Notifier is the subset of queue.Engine the Manager reports back to.
// Kept as a narrow interface (rather than importing queue directly) so
// decoder has no dependency on queue's selection/rights logic.
type Notifier interface {
	NotifyStarted(id string)
	NotifyProgress(id string, sofarBytes int64)
	NotifyDone(id string, ok bool)
}

// PCMSink receives decoded audio as it arrives, destined for the RTP
// sender's playback buffer.
type PCMSink func(id string, pcm []byte)

const readChunk = 32 * 1024

type job struct {
	cancel context.CancelFunc
	sofar  int64
}

// Manager runs and supervises decoder subprocesses, implementing
// queue.Decoder.
type Manager struct {
	r        *reactor.Reactor
	notifier Notifier
	sink     PCMSink
	log      *slog.Logger
	newCmd   func(ctx context.Context, path string, seekSeconds float64) *exec.Cmd

	mu   sync.Mutex
	jobs map[string]*job
}

// New creates a Manager. All Launch/Abandon calls, and all Notifier
// callbacks it triggers, happen on r's goroutine.
func New(r *reactor.Reactor, notifier Notifier, sink PCMSink, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{r: r, notifier: notifier, sink: sink, log: log, jobs: make(map[string]*job), newCmd: ffmpegCommand}
}

// ffmpegCommand builds the real ffmpeg invocation, grounded on the
// teacher's internal/ffmpeg.Encoder.Stream argument shape.
func ffmpegCommand(ctx context.Context, path string, seekSeconds float64) *exec.Cmd {
	args := []string{"-hide_banner", "-loglevel", "error"}
	if seekSeconds > 0 {
		args = append(args, "-ss", fmt.Sprintf("%.3f", seekSeconds))
	}
	args = append(args, "-i", path, "-f", "s16be", "-ar", "44100", "-ac", "2", "-vn", "pipe:1")
	return exec.CommandContext(ctx, "ffmpeg", args...)
}

// Launch starts (or, if already running, no-ops for) id's decoder.
// sofarBytes seeks ffmpeg's output to resume a paused/re-prepared track
// at the given PCM byte offset.
func (m *Manager) Launch(id, path string, sofarBytes int64) error {
	m.mu.Lock()
	if _, running := m.jobs[id]; running {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	// Seek by decoded-sample time: sofarBytes is PCM bytes at 16-bit
	// stereo 44.1kHz, i.e. 4 bytes/sample-pair.
	seconds := float64(sofarBytes) / (44100.0 * 4.0)
	cmd := m.newCmd(ctx, path, seconds)
	// Abandon sends SIGTERM, not the context's default SIGKILL, so
	// ffmpeg can flush/exit cleanly (spec.md §4.C "abandon ... SIGTERM").
	cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGTERM) }

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("create stdout pipe for %s: %w", path, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("create stderr pipe for %s: %w", path, err)
	}

	j := &job{cancel: cancel, sofar: sofarBytes}
	m.mu.Lock()
	m.jobs[id] = j
	m.mu.Unlock()

	err = m.r.Spawn(cmd, func(waitErr error) {
		m.mu.Lock()
		_, stillTracked := m.jobs[id]
		delete(m.jobs, id)
		m.mu.Unlock()
		if !stillTracked {
			return // Abandon already de-registered this job; don't report.
		}
		ok := waitErr == nil || ctx.Err() != nil
		m.notifier.NotifyDone(id, ok)
	})
	if err != nil {
		cancel()
		m.mu.Lock()
		delete(m.jobs, id)
		m.mu.Unlock()
		return fmt.Errorf("start ffmpeg for %s: %w", path, err)
	}

	go m.drainStderr(id, stderr)
	go m.readPCM(id, stdout)
	return nil
}

// Abandon terminates id's decoder (SIGTERM via context cancellation) and
// de-registers it immediately, so the eventual Wait() completion is
// swallowed rather than reported to the queue engine (spec.md §4.C
// "Prepare-ahead": abandon is SIGTERM, de-register, reap asynchronously).
func (m *Manager) Abandon(id string) {
	m.mu.Lock()
	j, ok := m.jobs[id]
	delete(m.jobs, id)
	m.mu.Unlock()
	if ok {
		j.cancel()
	}
}

func (m *Manager) readPCM(id string, stdout io.ReadCloser) {
	first := true
	buf := make([]byte, readChunk)
	for {
		n, err := stdout.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			becameFirst := first
			first = false
			m.r.Post(func() {
				if becameFirst {
					m.notifier.NotifyStarted(id)
				}
				m.sink(id, chunk)
				m.mu.Lock()
				j, ok := m.jobs[id]
				if ok {
					j.sofar += int64(len(chunk))
				}
				sofar := int64(0)
				if ok {
					sofar = j.sofar
				}
				m.mu.Unlock()
				if ok {
					m.notifier.NotifyProgress(id, sofar)
				}
			})
		}
		if err != nil {
			return
		}
	}
}

func (m *Manager) drainStderr(id string, stderr io.ReadCloser) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		m.log.Debug("decoder: ffmpeg stderr", "id", id, "line", scanner.Text())
	}
}
