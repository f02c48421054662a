package users

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCookieSignVerifyRoundTrip(t *testing.T) {
	kr, err := NewKeyRing(time.Hour)
	require.NoError(t, err)

	c := Cookie{User: "alice", Rights: RightPlay | RightVolume, Expires: time.Now().Add(time.Hour)}
	token, err := kr.Sign(c)
	require.NoError(t, err)

	got, err := kr.Verify(token, time.Now())
	require.NoError(t, err)
	assert.Equal(t, c.User, got.User)
	assert.Equal(t, c.Rights, got.Rights)
	assert.WithinDuration(t, c.Expires, got.Expires, time.Second)
}

func TestCookieExpired(t *testing.T) {
	kr, err := NewKeyRing(time.Hour)
	require.NoError(t, err)

	token, err := kr.Sign(Cookie{User: "alice", Expires: time.Now().Add(-time.Minute)})
	require.NoError(t, err)

	_, err = kr.Verify(token, time.Now())
	assert.ErrorIs(t, err, ErrCookieExpired)
}

func TestCookieTamperedSignatureRejected(t *testing.T) {
	kr, err := NewKeyRing(time.Hour)
	require.NoError(t, err)

	token, err := kr.Sign(Cookie{User: "alice", Expires: time.Now().Add(time.Hour)})
	require.NoError(t, err)

	tampered := token[:len(token)-1] + "x"
	_, err = kr.Verify(tampered, time.Now())
	assert.Error(t, err)
}

func TestCookieRotationKeepsOldKeyValidUntilExpiry(t *testing.T) {
	kr, err := NewKeyRing(time.Hour)
	require.NoError(t, err)

	token, err := kr.Sign(Cookie{User: "alice", Expires: time.Now().Add(time.Hour)})
	require.NoError(t, err)

	_, err = kr.Rotate(time.Now())
	require.NoError(t, err)

	got, err := kr.Verify(token, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "alice", got.User)
}

func TestCookieGarbageTokenRejected(t *testing.T) {
	kr, err := NewKeyRing(time.Hour)
	require.NoError(t, err)

	_, err = kr.Verify("not-a-valid-token", time.Now())
	assert.ErrorIs(t, err, ErrCookieInvalid)
}
