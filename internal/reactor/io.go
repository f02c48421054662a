package reactor

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"syscall"
	"time"
)

// DefaultWriterTimeBound and DefaultWriterSpaceBound are spec.md §4.A's
// defaults: abandon a connection whose writer hasn't completed a write in
// 10 minutes, or whose unsent buffer exceeds 512 KiB.
const (
	DefaultWriterTimeBound  = 10 * time.Minute
	DefaultWriterSpaceBound = 512 << 10
)

type halfCloser interface {
	CloseRead() error
	CloseWrite() error
}

// Tie binds a Reader and a Writer that share one net.Conn. Whichever side
// shuts down first half-shuts the socket (if the underlying conn supports
// it) and hands close responsibility to the other side; the fd is closed
// exactly once, and always via a zero-delay reactor timer so close never
// happens inside another callback running on the same fd (spec.md §4.A).
type Tie struct {
	r       *Reactor
	conn    net.Conn
	once    sync.Once
	readErr error
	mu      sync.Mutex
	rDone   bool
	wDone   bool
}

// NewTie creates a Tie for conn.
func NewTie(r *Reactor, conn net.Conn) *Tie {
	return &Tie{r: r, conn: conn}
}

func (t *Tie) readerDown() {
	t.mu.Lock()
	t.rDone = true
	both := t.wDone
	t.mu.Unlock()
	if hc, ok := t.conn.(halfCloser); ok {
		_ = hc.CloseRead()
	}
	if both {
		t.scheduleClose()
	}
}

func (t *Tie) writerDown() {
	t.mu.Lock()
	t.wDone = true
	both := t.rDone
	t.mu.Unlock()
	if hc, ok := t.conn.(halfCloser); ok {
		_ = hc.CloseWrite()
	}
	if both {
		t.scheduleClose()
	}
}

func (t *Tie) scheduleClose() {
	t.r.After(0, func() {
		t.once.Do(func() { _ = t.conn.Close() })
	})
}

// Reader accumulates incoming bytes from a connection in an auto-growing
// ring and invokes onData(buffered, eof) on the reactor goroutine.
// onData must consume (slice off) whatever prefix of buffered it
// processed; the Reader retains the remainder for the next callback.
type Reader struct {
	r      *Reactor
	conn   net.Conn
	tie    *Tie
	log    *slog.Logger
	label  string
	onData func(data []byte, eof bool, consumed *int)
	onErr  func(error)
	buf    []byte
}

// NewReader starts a reader goroutine over conn. onData is invoked on the
// reactor goroutine with the currently buffered bytes; it must report via
// *consumed how many leading bytes it handled.
func (r *Reactor) NewReader(conn net.Conn, tie *Tie, label string, onData func(data []byte, eof bool, consumed *int), onErr func(error)) *Reader {
	rd := &Reader{r: r, conn: conn, tie: tie, log: r.log, label: label, onData: onData, onErr: onErr}
	go rd.loop()
	return rd
}

func (rd *Reader) loop() {
	chunk := make([]byte, 64*1024)
	for {
		n, err := rd.conn.Read(chunk)
		eof := errors.Is(err, io.EOF)
		if n > 0 {
			data := make([]byte, n)
			copy(data, chunk[:n])
			done := make(chan struct{})
			rd.r.Post(func() {
				rd.buf = append(rd.buf, data...)
				consumed := 0
				rd.onData(rd.buf, false, &consumed)
				rd.buf = rd.buf[consumed:]
				close(done)
			})
			<-done
		}
		if err != nil {
			done := make(chan struct{})
			rd.r.Post(func() {
				consumed := 0
				rd.onData(rd.buf, true, &consumed)
				rd.buf = rd.buf[consumed:]
				if !eof {
					rd.onErr(err)
				}
				close(done)
			})
			<-done
			if rd.tie != nil {
				rd.tie.readerDown()
			}
			return
		}
	}
}

// writeRequest is one chunk queued for output.
type writeRequest struct {
	data []byte
}

// Writer is a space- and time-bounded output queue for a connection.
// Writes are asynchronous: Write enqueues data and returns immediately;
// a dedicated goroutine drains the queue to the socket. If the queue
// would exceed spaceBound, or no write succeeds within timeBound, the
// writer abandons the connection via onErr (which normally tears the
// whole connection down through the Tie).
type Writer struct {
	r          *Reactor
	conn       net.Conn
	tie        *Tie
	spaceBound int64
	timeBound  time.Duration
	onErr      func(error)

	mu       sync.Mutex
	queue     [][]byte
	queued    int64
	closed    bool
	lastWrite time.Time
	wake      chan struct{}
}

// NewWriter starts a writer goroutine over conn.
func (r *Reactor) NewWriter(conn net.Conn, tie *Tie, spaceBound int64, timeBound time.Duration, onErr func(error)) *Writer {
	if spaceBound <= 0 {
		spaceBound = DefaultWriterSpaceBound
	}
	if timeBound <= 0 {
		timeBound = DefaultWriterTimeBound
	}
	w := &Writer{
		r:          r,
		conn:       conn,
		tie:        tie,
		spaceBound: spaceBound,
		timeBound:  timeBound,
		onErr:      onErr,
		lastWrite:  time.Now(),
		wake:       make(chan struct{}, 1),
	}
	go w.loop()
	return w
}

// Write enqueues data for output. If queuing data would take the queue
// over the space bound, it enqueues nothing, abandons the connection and
// returns an error.
func (w *Writer) Write(data []byte) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return errors.New("writer closed")
	}
	if w.queued+int64(len(data)) > w.spaceBound {
		w.mu.Unlock()
		w.abandon(errors.New("writer space bound exceeded"))
		return errors.New("writer space bound exceeded")
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	w.queue = append(w.queue, cp)
	w.queued += int64(len(cp))
	w.mu.Unlock()
	select {
	case w.wake <- struct{}{}:
	default:
	}
	return nil
}

// Pending reports the number of bytes currently buffered but unsent.
func (w *Writer) Pending() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.queued
}

func (w *Writer) abandon(err error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.mu.Unlock()
	w.r.Post(func() { w.onErr(err) })
	if w.tie != nil {
		w.tie.writerDown()
	}
}

func (w *Writer) loop() {
	ticker := time.NewTicker(w.timeBound / 4)
	defer ticker.Stop()
	for {
		select {
		case <-w.wake:
		case <-ticker.C:
		}

		w.mu.Lock()
		if w.closed {
			w.mu.Unlock()
			return
		}
		if len(w.queue) == 0 {
			if time.Since(w.lastWrite) > w.timeBound {
				w.mu.Unlock()
				w.abandon(errors.New("writer time bound exceeded"))
				return
			}
			w.mu.Unlock()
			continue
		}
		batch := w.queue
		w.queue = nil
		w.mu.Unlock()

		for _, chunk := range batch {
			_ = w.conn.SetWriteDeadline(time.Now().Add(w.timeBound))
			n, err := w.conn.Write(chunk)
			w.mu.Lock()
			w.queued -= int64(n)
			w.mu.Unlock()
			if err != nil {
				if errors.Is(err, syscall.EPIPE) {
					w.r.log.Info("write: broken pipe", "error", err)
				}
				w.abandon(err)
				return
			}
			w.mu.Lock()
			w.lastWrite = time.Now()
			w.mu.Unlock()
		}
	}
}
