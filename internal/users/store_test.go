package users

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.AddUser("alice", "hunter2", "alice@example.com", RightPlay|RightAdmin))

	path := filepath.Join(t.TempDir(), "users.json")
	store, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Save(m))
	assert.True(t, store.Exists())

	reloaded := newTestManager(t)
	require.NoError(t, store.Load(reloaded))

	nonce := []byte("n")
	response, err := ChallengeResponse(AlgoSHA1, nonce, "hunter2")
	require.NoError(t, err)
	rights, err := reloaded.Authenticate(AlgoSHA1, "alice", nonce, response)
	require.NoError(t, err)
	assert.Equal(t, RightPlay|RightAdmin, rights)
}

func TestStoreLoadMissingFile(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.False(t, store.Exists())
	err = store.Load(newTestManager(t))
	assert.Error(t, err)
}
