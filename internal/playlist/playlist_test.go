package playlist

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockExclusivity(t *testing.T) {
	m := New(0, 5*time.Minute)
	now := time.Now()
	require.NoError(t, m.Lock("mylist", "conn-a", now))
	err := m.Lock("mylist", "conn-b", now)
	assert.ErrorIs(t, err, ErrLocked)

	m.Unlock("mylist", "conn-a")
	require.NoError(t, m.Lock("mylist", "conn-b", now))
}

func TestLockExpiresAndIsReclaimable(t *testing.T) {
	m := New(0, time.Minute)
	now := time.Now()
	require.NoError(t, m.Lock("mylist", "conn-a", now))
	require.NoError(t, m.Lock("mylist", "conn-b", now.Add(2*time.Minute)))
}

func TestSetRequiresLock(t *testing.T) {
	m := New(0, 5*time.Minute)
	now := time.Now()
	err := m.Set("mylist", "conn-a", "alice", false, []string{"a.mp3"}, now)
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, m.Lock("mylist", "conn-a", now))
	require.NoError(t, m.Set("mylist", "conn-a", "alice", false, []string{"a.mp3", "b.mp3"}, now))

	p, err := m.Get("mylist")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.mp3", "b.mp3"}, p.Tracks)
}

func TestSetEnforcesPlaylistMax(t *testing.T) {
	m := New(1, 5*time.Minute)
	now := time.Now()
	require.NoError(t, m.Lock("mylist", "conn-a", now))
	err := m.Set("mylist", "conn-a", "alice", false, []string{"a.mp3", "b.mp3"}, now)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestUnlockAllOnDisconnect(t *testing.T) {
	m := New(0, 5*time.Minute)
	now := time.Now()
	require.NoError(t, m.Lock("one", "conn-a", now))
	require.NoError(t, m.Lock("two", "conn-a", now))
	m.UnlockAll("conn-a")

	_, locked := m.LockedBy("one", now)
	assert.False(t, locked)
	_, locked = m.LockedBy("two", now)
	assert.False(t, locked)
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	m := New(0, 5*time.Minute)
	now := time.Now()
	require.NoError(t, m.Lock("mylist", "conn-a", now))
	require.NoError(t, m.Set("mylist", "conn-a", "alice", true, []string{"a.mp3"}, now))

	path := filepath.Join(t.TempDir(), "playlists.json")
	store, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Save(m))

	reloaded := New(0, 5*time.Minute)
	require.NoError(t, store.Load(reloaded))
	p, err := reloaded.Get("mylist")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.mp3"}, p.Tracks)
	assert.True(t, p.Shared)
}

func TestListVisibility(t *testing.T) {
	m := New(0, 5*time.Minute)
	now := time.Now()
	require.NoError(t, m.Lock("shared", "c", now))
	require.NoError(t, m.Set("shared", "c", "", true, nil, now))
	require.NoError(t, m.Lock("alices", "c", now))
	require.NoError(t, m.Set("alices", "c", "alice", false, nil, now))
	require.NoError(t, m.Lock("bobs", "c", now))
	require.NoError(t, m.Set("bobs", "c", "bob", false, nil, now))

	visible := m.List("alice")
	assert.Contains(t, visible, "shared")
	assert.Contains(t, visible, "alices")
	assert.NotContains(t, visible, "bobs")
}
