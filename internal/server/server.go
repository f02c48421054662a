// Package server implements the Listener/Connection component (spec.md
// §4.F): binding the privileged and unprivileged listeners, accepting
// connections through the reactor, and driving each connection's
// greeting/read-dispatch-write lifecycle against a protocol.Engine.
// internal/protocol knows the wire format and command semantics but
// nothing about sockets; this package is the only place that touches
// net.Conn.
package server

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/arung-agamani/disorder/internal/protocol"
	"github.com/arung-agamani/disorder/internal/reactor"
)

// Server owns the set of listeners bound against one protocol.Engine.
type Server struct {
	reactor *reactor.Reactor
	engine  *protocol.Engine
	log     *slog.Logger

	listeners []*reactor.Listener
}

// New creates a Server. Call one of ListenTCP/ListenUnix per configured
// address before calling reactor.Run.
func New(r *reactor.Reactor, engine *protocol.Engine, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{reactor: r, engine: engine, log: log}
}

// ListenTCP binds the unprivileged TCP listener (spec.md §6 "listen").
func (s *Server) ListenTCP(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen tcp %s: %w", addr, err)
	}
	s.addListener(ln, "tcp", false)
	return nil
}

// ListenUnix binds a UNIX-domain socket. local grants every connection
// accepted on it the synthetic "local" right (spec.md §4.F "Listeners":
// the privileged socket grants rights no network client can hold).
func (s *Server) ListenUnix(path string, local bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create socket directory for %s: %w", path, err)
	}
	// A stale socket file left behind by an unclean shutdown must be
	// removed before binding, or net.Listen fails with "address in use".
	_ = os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return fmt.Errorf("listen unix %s: %w", path, err)
	}
	if local {
		if err := os.Chmod(path, 0o600); err != nil {
			ln.Close()
			return fmt.Errorf("chmod privileged socket %s: %w", path, err)
		}
	}
	label := "unix"
	if local {
		label = "unix-priv"
	}
	s.addListener(ln, label, local)
	return nil
}

func (s *Server) addListener(ln net.Listener, label string, local bool) {
	rl := s.reactor.Listen(ln, label, func(c net.Conn) {
		s.accept(c, label, local)
	})
	s.listeners = append(s.listeners, rl)
}

// Close stops every listener from accepting new connections. Connections
// already established are unaffected; the reactor context cancellation
// is what tears those down.
func (s *Server) Close() {
	for _, ln := range s.listeners {
		_ = ln.Close()
	}
}

func (s *Server) accept(c net.Conn, label string, local bool) {
	tag := fmt.Sprintf("%s-%s", label, uuid.NewString())
	newConn(s, c, tag, local)
}
