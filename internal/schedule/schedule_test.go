package schedule

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddGetList(t *testing.T) {
	m := New()
	at := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	a := m.Add("alice", KindEnable, nil, at, true)
	assert.NotEmpty(t, a.ID)

	got, err := m.Get(a.ID)
	require.NoError(t, err)
	assert.Equal(t, KindEnable, got.Kind)

	m.Add("bob", KindVolume, []string{"50"}, at, false)
	assert.Len(t, m.List("alice", false), 1)
	assert.Len(t, m.List("", true), 2)
}

func TestDelRequiresOwnerOrAdmin(t *testing.T) {
	m := New()
	a := m.Add("alice", KindEnable, nil, time.Now(), false)
	err := m.Del(a.ID, "bob", false)
	assert.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, m.Del(a.ID, "bob", true))
	_, err = m.Get(a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRescheduleDailyAdvances(t *testing.T) {
	m := New()
	at := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	a := m.Add("alice", KindEnable, nil, at, true)
	m.Reschedule(a.ID)
	got, err := m.Get(a.ID)
	require.NoError(t, err)
	assert.Equal(t, at.Add(24*time.Hour), got.At)
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	m := New()
	at := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	m.Add("alice", KindPlay, []string{"/music/a.ogg"}, at, false)

	path := filepath.Join(t.TempDir(), "schedule.json")
	store, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Save(m))

	reloaded := New()
	require.NoError(t, store.Load(reloaded))
	assert.Len(t, reloaded.All(), 1)
}
