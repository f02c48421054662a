package users

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"

	"golang.org/x/crypto/nacl/secretbox"
)

// HashAlgorithm names a challenge-response hash construction, selected by
// the authorization_algorithm config key (spec.md §6).
type HashAlgorithm string

const (
	AlgoSHA1   HashAlgorithm = "sha1"
	AlgoSHA256 HashAlgorithm = "sha256"
	AlgoSHA512 HashAlgorithm = "sha512"
)

func newHash(algo HashAlgorithm) (hash.Hash, error) {
	switch algo {
	case "", AlgoSHA1:
		return sha1.New(), nil
	case AlgoSHA256:
		return sha256.New(), nil
	case AlgoSHA512:
		return sha512.New(), nil
	default:
		return nil, fmt.Errorf("unknown authorization algorithm %q", algo)
	}
}

// ChallengeResponse computes hex(hash(nonce||password)) per spec.md §6
// "Authentication hash": the client and server must agree bit-exactly on
// this construction.
func ChallengeResponse(algo HashAlgorithm, nonce []byte, password string) (string, error) {
	h, err := newHash(algo)
	if err != nil {
		return "", err
	}
	h.Write(nonce)
	h.Write([]byte(password))
	return hex.EncodeToString(h.Sum(nil)), nil
}

// sealedPassword is a nacl/secretbox-sealed password, recoverable by the
// server so it can recompute ChallengeResponse for any advertised nonce.
// A one-way hash (bcrypt, scrypt, ...) cannot serve here: the server must
// be able to run the *same* hash(nonce||password) construction the client
// ran, not merely verify a client-submitted password (see DESIGN.md).
type sealedPassword struct {
	Nonce      [24]byte `json:"nonce"`
	Ciphertext []byte   `json:"ciphertext"`
}

func sealPassword(key *[32]byte, password string) (sealedPassword, error) {
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return sealedPassword{}, fmt.Errorf("generate seal nonce: %w", err)
	}
	ct := secretbox.Seal(nil, []byte(password), &nonce, key)
	return sealedPassword{Nonce: nonce, Ciphertext: ct}, nil
}

func unsealPassword(key *[32]byte, sp sealedPassword) (string, error) {
	pt, ok := secretbox.Open(nil, sp.Ciphertext, &sp.Nonce, key)
	if !ok {
		return "", fmt.Errorf("password seal authentication failed")
	}
	return string(pt), nil
}

// secureCompare is a constant-time hex-string comparison, used to check a
// submitted challenge response against the expected one.
func secureCompare(a, b string) bool {
	return hmac.Equal([]byte(a), []byte(b))
}
