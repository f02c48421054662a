package users

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrCookieExpired and ErrCookieInvalid are returned by KeyRing.Verify.
var (
	ErrCookieExpired = errors.New("cookie expired")
	ErrCookieInvalid = errors.New("cookie invalid")
)

// Cookie is the decoded payload of a server-signed bearer token (spec.md
// §3 "Cookies are server-signed bearer tokens carrying (username, rights,
// expiry)").
type Cookie struct {
	User    string
	Rights  Rights
	Expires time.Time
}

// signingKey is one generation of a rotating HMAC key.
type signingKey struct {
	id      uint32
	key     [32]byte
	created time.Time
}

// KeyRing signs and verifies cookies, rotating its signing key on demand
// while keeping prior generations around for verification until they age
// out past lifetime — spec.md §9 Open Question (d): "keep old keys for
// validation until expiry".
type KeyRing struct {
	mu        sync.RWMutex
	keys      map[uint32]*signingKey
	current   uint32
	nextID    uint32
	lifetime  time.Duration
}

// NewKeyRing creates a KeyRing whose superseded keys are retained until
// lifetime has passed since their creation; they are pruned on the next
// Rotate after that.
func NewKeyRing(lifetime time.Duration) (*KeyRing, error) {
	kr := &KeyRing{keys: make(map[uint32]*signingKey), lifetime: lifetime}
	if _, err := kr.Rotate(time.Now()); err != nil {
		return nil, err
	}
	return kr, nil
}

// Rotate generates a new signing key and makes it current, as when
// cookie_key_lifetime elapses.
func (kr *KeyRing) Rotate(now time.Time) (uint32, error) {
	var key [32]byte
	if _, err := rand.Read(key[:]); err != nil {
		return 0, fmt.Errorf("generate signing key: %w", err)
	}
	kr.mu.Lock()
	defer kr.mu.Unlock()
	id := kr.nextID
	kr.nextID++
	kr.keys[id] = &signingKey{id: id, key: key, created: now}
	kr.current = id
	kr.expireLocked(now)
	return id, nil
}

func (kr *KeyRing) expireLocked(now time.Time) {
	for id, k := range kr.keys {
		if id != kr.current && now.Sub(k.created) > kr.lifetime {
			delete(kr.keys, id)
		}
	}
}

// Sign encodes and signs c with the current key, returning the cookie
// token text sent to clients.
func (kr *KeyRing) Sign(c Cookie) (string, error) {
	kr.mu.RLock()
	k, ok := kr.keys[kr.current]
	kr.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("no current signing key")
	}

	payload := encodePayload(k.id, c)
	mac := hmac.New(sha256.New, k.key[:])
	mac.Write(payload)
	sig := mac.Sum(nil)

	token := append(payload, sig...)
	return base64.RawURLEncoding.EncodeToString(token), nil
}

// Verify decodes and checks a cookie token, returning ErrCookieExpired if
// its expiry has passed and ErrCookieInvalid if it fails to parse or its
// signature doesn't match any retained key.
func (kr *KeyRing) Verify(token string, now time.Time) (Cookie, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(raw) < 4+8+8+32 {
		return Cookie{}, ErrCookieInvalid
	}
	sig := raw[len(raw)-32:]
	payload := raw[:len(raw)-32]

	keyID := binary.BigEndian.Uint32(payload[0:4])
	kr.mu.RLock()
	k, ok := kr.keys[keyID]
	kr.mu.RUnlock()
	if !ok {
		return Cookie{}, ErrCookieInvalid
	}

	mac := hmac.New(sha256.New, k.key[:])
	mac.Write(payload)
	expected := mac.Sum(nil)
	if !hmac.Equal(expected, sig) {
		return Cookie{}, ErrCookieInvalid
	}

	c, err := decodePayload(payload)
	if err != nil {
		return Cookie{}, ErrCookieInvalid
	}
	if now.After(c.Expires) {
		return Cookie{}, ErrCookieExpired
	}
	return c, nil
}

// encodePayload lays out: keyID(4) | expires-unix(8) | rights(8) | user(n).
func encodePayload(keyID uint32, c Cookie) []byte {
	user := []byte(c.User)
	buf := make([]byte, 4+8+8+len(user))
	binary.BigEndian.PutUint32(buf[0:4], keyID)
	binary.BigEndian.PutUint64(buf[4:12], uint64(c.Expires.Unix()))
	binary.BigEndian.PutUint64(buf[12:20], uint64(c.Rights))
	copy(buf[20:], user)
	return buf
}

func decodePayload(payload []byte) (Cookie, error) {
	if len(payload) < 20 {
		return Cookie{}, ErrCookieInvalid
	}
	expires := time.Unix(int64(binary.BigEndian.Uint64(payload[4:12])), 0)
	rights := Rights(binary.BigEndian.Uint64(payload[12:20]))
	user := string(payload[20:])
	return Cookie{User: user, Rights: rights, Expires: expires}, nil
}
