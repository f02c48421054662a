package users

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChallengeResponseDeterministic(t *testing.T) {
	nonce := []byte{1, 2, 3, 4}
	a, err := ChallengeResponse(AlgoSHA1, nonce, "hunter2")
	require.NoError(t, err)
	b, err := ChallengeResponse(AlgoSHA1, nonce, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestChallengeResponseChangesWithNonceOrPassword(t *testing.T) {
	base, err := ChallengeResponse(AlgoSHA1, []byte{1, 2, 3}, "hunter2")
	require.NoError(t, err)

	diffNonce, err := ChallengeResponse(AlgoSHA1, []byte{1, 2, 4}, "hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, base, diffNonce)

	diffPassword, err := ChallengeResponse(AlgoSHA1, []byte{1, 2, 3}, "hunter3")
	require.NoError(t, err)
	assert.NotEqual(t, base, diffPassword)
}

func TestChallengeResponseUnknownAlgorithm(t *testing.T) {
	_, err := ChallengeResponse("rot13", []byte{1}, "x")
	assert.Error(t, err)
}

func TestSealUnsealPasswordRoundTrip(t *testing.T) {
	var key [32]byte
	copy(key[:], "0123456789abcdef0123456789abcdef")

	sp, err := sealPassword(&key, "correct horse battery staple")
	require.NoError(t, err)

	recovered, err := unsealPassword(&key, sp)
	require.NoError(t, err)
	assert.Equal(t, "correct horse battery staple", recovered)
}

func TestUnsealPasswordWrongKeyFails(t *testing.T) {
	var key1, key2 [32]byte
	copy(key1[:], "0123456789abcdef0123456789abcdef")
	copy(key2[:], "fedcba9876543210fedcba9876543210")

	sp, err := sealPassword(&key1, "secret")
	require.NoError(t, err)

	_, err = unsealPassword(&key2, sp)
	assert.Error(t, err)
}
