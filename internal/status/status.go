// Package status implements the optional, unauthenticated HTTP status
// surface SPEC_FULL.md carries over from the teacher alongside the
// TCP/UNIX protocol listeners: a "/healthz" liveness check and a
// "/status" snapshot of what's currently playing and queued. It never
// touches queue/reactor state directly from an HTTP handler goroutine;
// every read is posted onto the reactor and answered over a channel, so
// the single-goroutine invariant (spec.md §4.A) still holds.
package status

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/arung-agamani/disorder/internal/queue"
	"github.com/arung-agamani/disorder/internal/reactor"
)

// Server is a read-only HTTP status endpoint. It owns no state of its
// own; every request reads through to the reactor-owned queue.Engine.
type Server struct {
	httpServer *http.Server
	log        *slog.Logger
}

// New builds a Server that answers status queries by posting reads onto
// r, matching the teacher's healthHandler/statusHandler split but
// fed from the Queue Engine instead of a single broadcaster.
func New(r *reactor.Reactor, q *queue.Engine, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	mux := http.NewServeMux()
	s := &Server{log: log}

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("/status", func(w http.ResponseWriter, req *http.Request) {
		snap := queryQueue(req.Context(), r, q)
		if snap == nil {
			s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "shutting down"})
			return
		}
		s.writeJSON(w, http.StatusOK, snap)
	})

	s.httpServer = &http.Server{Handler: mux}
	return s
}

// queueSnapshot is the JSON body "/status" answers with: the playing
// entry (if any), the rest of the queue, and the most recent history.
type queueSnapshot struct {
	Playing *queue.Entry   `json:"playing,omitempty"`
	Queue   []*queue.Entry `json:"queue"`
	History []*queue.Entry `json:"history"`
}

// queryQueue posts a read onto the reactor and blocks for its answer,
// bounded by the request's own context so a wedged reactor can't hang
// an HTTP client forever. Returns nil if the request is cancelled
// before the reactor gets to it.
func queryQueue(ctx context.Context, r *reactor.Reactor, q *queue.Engine) *queueSnapshot {
	result := make(chan *queueSnapshot, 1)
	r.Post(func() {
		snap := &queueSnapshot{Queue: q.List(), History: q.History()}
		if playing, ok := q.Playing(); ok {
			snap.Playing = playing
		}
		select {
		case result <- snap:
		default:
		}
	})
	select {
	case snap := <-result:
		return snap
	case <-ctx.Done():
		return nil
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("status: write response", "error", err)
	}
}

// ListenAndServe binds addr and serves until the server is closed. Run
// it in its own goroutine; it never touches the reactor goroutine
// itself, only posts onto it per request.
func (s *Server) ListenAndServe(addr string) error {
	s.httpServer.Addr = addr
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Close shuts the HTTP server down, waiting up to 5 seconds for
// in-flight requests to finish.
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
