package users

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUnknownUser     = errors.New("no such user")
	ErrUserExists      = errors.New("user already exists")
	ErrBadCredentials  = errors.New("bad credentials")
	ErrAlreadyAuthed   = errors.New("connection already authenticated")
	ErrNotConfirmed    = errors.New("registration not confirmed")
	ErrBadConfirmation = errors.New("bad confirmation token")
)

// User is one account record (spec.md §3 "User record").
type User struct {
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Rights   Rights `json:"rights"`
	Password sealedPassword `json:"password"`

	// Confirmed is false between `register` and a successful `confirm`.
	Confirmed bool `json:"confirmed"`
	// ConfirmHash is the bcrypt hash of the one-time confirmation/reset
	// token mailed to the user; empty when no confirmation is pending.
	ConfirmHash   string `json:"confirmHash,omitempty"`
	ConfirmRights Rights `json:"confirmRights,omitempty"` // rights to grant once confirmed, for register

	LastReminder time.Time `json:"lastReminder,omitempty"`
}

// Manager owns the user database: account CRUD, registration/confirmation,
// and cookie issuance/verification. All mutating methods are intended to
// be called only from the reactor goroutine (spec.md §4.A); Manager itself
// holds a mutex only to make List/Lookup safe to call from e.g. the mail
// package's background goroutine.
type Manager struct {
	mu       sync.RWMutex
	sealKey  [32]byte
	users    map[string]*User
	keys     *KeyRing
	cookieLoginTTL time.Duration
}

// NewManager creates an empty Manager. sealKey is the server-wide key used
// to seal/unseal stored passwords (a random key persisted in the home
// directory — see cmd/disorderd); cookieLoginTTL is the default cookie
// lifetime (cookie_login_lifetime).
func NewManager(sealKey [32]byte, keys *KeyRing, cookieLoginTTL time.Duration) *Manager {
	return &Manager{
		sealKey:        sealKey,
		users:          make(map[string]*User),
		keys:           keys,
		cookieLoginTTL: cookieLoginTTL,
	}
}

// AddUser creates a confirmed account directly (the `adduser` command;
// spec.md §3 "Users are created by register ... or adduser").
func (m *Manager) AddUser(name, password, email string, rights Rights) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[name]; ok {
		return ErrUserExists
	}
	sp, err := sealPassword(&m.sealKey, password)
	if err != nil {
		return err
	}
	m.users[name] = &User{Name: name, Email: email, Rights: rights, Password: sp, Confirmed: true}
	return nil
}

// DelUser removes an account. Cookies already issued for it stop
// authenticating at once, since AuthenticateCookie looks up the live
// record. Connections already authenticated as the user keep their
// session rights: DelUser changes only the account record, and its
// caller (the deluser command) does not touch live sessions.
func (m *Manager) DelUser(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[name]; !ok {
		return ErrUnknownUser
	}
	delete(m.users, name)
	return nil
}

// Edit applies fn to the named user's record in place (the `edituser`
// command). fn must not retain u past its call.
func (m *Manager) Edit(name string, fn func(u *User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[name]
	if !ok {
		return ErrUnknownUser
	}
	fn(u)
	return nil
}

// Lookup returns a copy of the named user's public fields, if any.
func (m *Manager) Lookup(name string) (User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[name]
	if !ok {
		return User{}, false
	}
	cp := *u
	cp.ConfirmHash = ""
	return cp, true
}

// List returns every account name, for the `users` command.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.users))
	for name := range m.users {
		out = append(out, name)
	}
	return out
}

// Authenticate verifies the `user <name> <response>` challenge-response
// handshake (spec.md §5 "Authentication"): response must equal
// hex(hash(nonce||password)) for the account's stored password.
func (m *Manager) Authenticate(algo HashAlgorithm, name string, nonce []byte, response string) (Rights, error) {
	m.mu.RLock()
	u, ok := m.users[name]
	m.mu.RUnlock()
	if !ok {
		return 0, ErrUnknownUser
	}
	if !u.Confirmed {
		return 0, ErrNotConfirmed
	}
	password, err := unsealPassword(&m.sealKey, u.Password)
	if err != nil {
		return 0, fmt.Errorf("unseal password for %s: %w", name, err)
	}
	want, err := ChallengeResponse(algo, nonce, password)
	if err != nil {
		return 0, err
	}
	if !secureCompare(want, response) {
		return 0, ErrBadCredentials
	}
	return u.Rights, nil
}

// IssueCookie signs a bearer token for an already-authenticated user.
func (m *Manager) IssueCookie(name string, rights Rights) (string, error) {
	return m.keys.Sign(Cookie{User: name, Rights: rights, Expires: time.Now().Add(m.cookieLoginTTL)})
}

// AuthenticateCookie verifies the `cookie <token>` handshake, returning
// the live rights for the account (not merely the rights frozen in the
// token) so a rights change takes effect on the next command.
func (m *Manager) AuthenticateCookie(token string) (string, Rights, error) {
	c, err := m.keys.Verify(token, time.Now())
	if err != nil {
		return "", 0, err
	}
	m.mu.RLock()
	u, ok := m.users[c.User]
	m.mu.RUnlock()
	if !ok {
		return "", 0, ErrUnknownUser
	}
	return c.User, u.Rights, nil
}

// Register begins account creation with confirmation (the `register`
// command). It returns the one-time plaintext token to mail the user; the
// account is unusable for Authenticate until Confirm succeeds.
func (m *Manager) Register(name, password, email string, rights Rights) (token string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[name]; ok {
		return "", ErrUserExists
	}
	sp, err := sealPassword(&m.sealKey, password)
	if err != nil {
		return "", err
	}
	token, hash, err := newConfirmationToken()
	if err != nil {
		return "", err
	}
	m.users[name] = &User{
		Name: name, Email: email, Rights: 0, Password: sp,
		Confirmed: false, ConfirmHash: hash, ConfirmRights: rights,
	}
	return token, nil
}

// Confirm completes registration (the `confirm` command).
func (m *Manager) Confirm(name, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[name]
	if !ok {
		return ErrUnknownUser
	}
	if u.Confirmed || u.ConfirmHash == "" {
		return ErrBadConfirmation
	}
	if bcrypt.CompareHashAndPassword([]byte(u.ConfirmHash), []byte(token)) != nil {
		return ErrBadConfirmation
	}
	u.Confirmed = true
	u.Rights = u.ConfirmRights
	u.ConfirmHash = ""
	return nil
}

// Reminder issues a fresh one-time password-reset token (the `reminder`
// command), rate-limited by the caller against LastReminder and
// reminder_interval.
func (m *Manager) Reminder(name string, now time.Time) (token string, email string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[name]
	if !ok {
		return "", "", ErrUnknownUser
	}
	token, hash, err := newConfirmationToken()
	if err != nil {
		return "", "", err
	}
	u.ConfirmHash = hash
	u.LastReminder = now
	return token, u.Email, nil
}

func newConfirmationToken() (token, hash string, err error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("generate confirmation token: %w", err)
	}
	token = hex.EncodeToString(raw)
	h, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", "", fmt.Errorf("hash confirmation token: %w", err)
	}
	return token, string(h), nil
}
