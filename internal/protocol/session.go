package protocol

import "github.com/arung-agamani/disorder/internal/users"

// Result is a handler's successful outcome. FormatResult (called by
// internal/server) translates it into the wire format spec.md §4.D
// "Response codes" describes.
type Result struct {
	Code    int
	Message string
	Body    []string // non-nil selects the dot-stuffed body reply kind
}

func ok(message string) *Result          { return &Result{Code: 250, Message: message} }
func okLiteral(message string) *Result   { return &Result{Code: 251, Message: message} }
func okString(message string) *Result    { return &Result{Code: 252, Message: message} }
func okBody(message string, body []string) *Result {
	return &Result{Code: 253, Message: message, Body: body}
}
func okInfo(message string) *Result { return &Result{Code: 259, Message: message} }

// bodyContinuation is stashed on a Session between a body-introducing
// acknowledgement and the terminating "." line (spec.md §4.D "Command
// body intake").
type bodyContinuation struct {
	lines  []string
	finish func(e *Engine, sess *Session, lines []string) (*Result, *Error)
}

// Session is one connection's protocol-level state: authentication,
// rights, the active log subscription, held playlist locks, and any
// in-progress body collection. internal/server owns the socket; Session
// owns everything spec.md §4.D specifies about a connection's protocol
// behaviour.
type Session struct {
	Tag    string // unique per boot, for diagnostics and playlist-lock/rtp-request ownership
	Local  bool   // accepted on the privileged UNIX socket: grants the synthetic "local" right

	Authenticated bool
	User          string
	Rights        users.Rights
	Nonce         []byte

	LogSubscribed bool
	body          *bodyContinuation
}

// NewSession creates a Session for a freshly accepted connection. nonce
// is the per-connection challenge handed out in the greeting.
func NewSession(tag string, local bool, nonce []byte) *Session {
	s := &Session{Tag: tag, Local: local, Nonce: nonce}
	if local {
		s.Rights |= users.RightLocal
	}
	return s
}

// effectiveRights is what the session currently holds, including the
// synthetic local bit, used for every rights check.
func (s *Session) effectiveRights() users.Rights {
	if s.Local {
		return s.Rights | users.RightLocal
	}
	return s.Rights
}
