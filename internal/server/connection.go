package server

import (
	"bytes"
	"net"

	"github.com/arung-agamani/disorder/internal/protocol"
	"github.com/arung-agamani/disorder/internal/reactor"
	"github.com/arung-agamani/disorder/internal/users"
)

// conn drives one accepted connection's full lifecycle: greeting,
// read-dispatch loop, dot-stuffed body intake, reply writing, and
// teardown (spec.md §4.F). Its exported-looking methods (WriteLogLine,
// Rights) exist only to satisfy protocol's logSubscriber interface.
type conn struct {
	srv    *Server
	raw    net.Conn
	tie    *reactor.Tie
	writer *reactor.Writer
	sess   *protocol.Session

	subscribed bool
}

// newConn completes the accept: it sends the greeting, wires the reader
// and writer over a shared Tie, and creates the protocol.Session that
// will own this connection's authentication and command state.
func newConn(srv *Server, raw net.Conn, tag string, local bool) *conn {
	nonce, err := protocol.NewNonce()
	if err != nil {
		srv.log.Error("generate connection nonce", "tag", tag, "error", err)
		raw.Close()
		return nil
	}

	tie := reactor.NewTie(srv.reactor, raw)
	snap := srv.engine.Live.Get()

	c := &conn{srv: srv, raw: raw, tie: tie, sess: protocol.NewSession(tag, local, nonce)}
	c.writer = srv.reactor.NewWriter(raw, tie, snap.WriterSpaceBound, snap.WriterTimeBound, c.onWriteErr)
	srv.reactor.NewReader(raw, tie, tag, c.onData, c.onReadErr)
	_ = c.writer.Write([]byte(protocol.Greeting(snap.AuthAlgorithm, nonce)))
	return c
}

// onData is invoked on the reactor goroutine with every byte received so
// far; it consumes each complete "\n"-terminated line (spec.md §4.D
// "Wire format": lines are terminated by a single LF, an optional CR
// immediately before it is stripped) and leaves any trailing partial
// line for the next callback.
func (c *conn) onData(data []byte, eof bool, consumed *int) {
	start := 0
	for {
		nl := bytes.IndexByte(data[start:], '\n')
		if nl < 0 {
			break
		}
		line := data[start : start+nl]
		line = bytes.TrimSuffix(line, []byte("\r"))
		c.handleLine(string(line))
		start += nl + 1
	}
	*consumed = start
	if eof {
		c.srv.engine.Disconnect(c.sess)
	}
}

func (c *conn) handleLine(line string) {
	// Lines from a log-subscribed connection are discarded (spec.md
	// §4.D "Streaming log"): the connection is output-only from here on.
	if c.sess.LogSubscribed {
		return
	}

	if c.sess.IsCollectingBody() {
		result, errResult, done := c.srv.engine.FeedBody(c.sess, line)
		if !done {
			return
		}
		c.writeReply(result, errResult)
		return
	}

	result, errResult := c.srv.engine.Dispatch(c.sess, line)
	if result == nil && errResult == nil {
		return // blank line: no reply
	}
	c.writeReply(result, errResult)

	if c.sess.LogSubscribed && !c.subscribed {
		c.subscribed = true
		c.srv.engine.Hub.Subscribe(c.sess.Tag, c)
	}
}

func (c *conn) writeReply(result *protocol.Result, errResult *protocol.Error) {
	var out string
	if errResult != nil {
		out = protocol.FormatError(errResult)
	} else {
		out = protocol.FormatResult(result)
	}
	if err := c.writer.Write([]byte(out)); err != nil {
		c.srv.log.Debug("write reply", "tag", c.sess.Tag, "error", err)
	}
}

// WriteLogLine implements protocol's logSubscriber: it pushes one
// fanned-out event line straight to this connection's writer.
func (c *conn) WriteLogLine(line string) {
	_ = c.writer.Write([]byte(line + "\n"))
}

// Rights implements protocol's logSubscriber, gating user-management
// events to admin and local subscribers (spec.md §4.D "Streaming log").
func (c *conn) Rights() (admin bool, local bool) {
	return c.sess.Rights.Has(users.RightAdmin), c.sess.Local
}

func (c *conn) onReadErr(err error) {
	c.srv.log.Debug("connection read error", "tag", c.sess.Tag, "error", err)
	c.srv.engine.Disconnect(c.sess)
}

func (c *conn) onWriteErr(err error) {
	c.srv.log.Debug("connection write error", "tag", c.sess.Tag, "error", err)
	c.srv.engine.Disconnect(c.sess)
}
