package queue

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJournalSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.journal")
	j, err := NewJournal(path)
	require.NoError(t, err)

	queue := []*Entry{{ID: "1", Path: "a.mp3", Submitter: "alice", Origin: OriginSubmitted, State: StateUnplayed, Queued: time.Now()}}
	history := []*Entry{{ID: "0", Path: "z.mp3", Submitter: "bob", Origin: OriginSubmitted, State: StateOK, Queued: time.Now()}}
	require.NoError(t, j.Save(queue, history))
	assert.True(t, j.Exists())

	gotQueue, gotHistory, err := j.Load()
	require.NoError(t, err)
	require.Len(t, gotQueue, 1)
	assert.Equal(t, "a.mp3", gotQueue[0].Path)
	assert.Equal(t, "alice", gotQueue[0].Submitter)
	require.Len(t, gotHistory, 1)
	assert.Equal(t, "z.mp3", gotHistory[0].Path)
}

func TestJournalLoadMarksCrashedHeadFailed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.journal")
	j, err := NewJournal(path)
	require.NoError(t, err)

	queue := []*Entry{
		{ID: "1", Path: "mid-track.mp3", State: StateStarted, Queued: time.Now()},
		{ID: "2", Path: "next.mp3", State: StateUnplayed, Queued: time.Now()},
	}
	require.NoError(t, j.Save(queue, nil))

	gotQueue, gotHistory, err := j.Load()
	require.NoError(t, err)
	require.Len(t, gotQueue, 1)
	assert.Equal(t, "next.mp3", gotQueue[0].Path)
	require.Len(t, gotHistory, 1)
	assert.Equal(t, StateFailed, gotHistory[0].State)
	assert.Equal(t, "mid-track.mp3", gotHistory[0].Path)
}

func TestJournalLoadMissingFile(t *testing.T) {
	j, err := NewJournal(filepath.Join(t.TempDir(), "nope.journal"))
	require.NoError(t, err)
	assert.False(t, j.Exists())
	_, _, err = j.Load()
	assert.Error(t, err)
}

// TestJournalLineIsOneLinePerEntry locks in the on-disk shape: one line
// per entry, key="value" pairs, NL-terminated — not a JSON blob.
func TestJournalLineIsOneLinePerEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.journal")
	j, err := NewJournal(path)
	require.NoError(t, err)

	queue := []*Entry{
		{ID: "1", Path: "a.mp3", Submitter: "alice", Origin: OriginSubmitted, State: StateUnplayed, Queued: time.Now()},
		{ID: "2", Path: "b.mp3", Submitter: "bob", Origin: OriginSubmitted, State: StateUnplayed, Queued: time.Now()},
	}
	require.NoError(t, j.Save(queue, nil))

	line := formatEntryLine(sectionQueue, queue[0])
	assert.Contains(t, line, `id="1"`)
	assert.Contains(t, line, `path="a.mp3"`)
	assert.Contains(t, line, `section="queue"`)
	assert.NotContains(t, line, "{")
	assert.NotContains(t, line, "\n")
}

// TestJournalLineRoundTrips is the §8 law directly: parsing then
// reformatting a queue-journal line yields the same line.
func TestJournalLineRoundTrips(t *testing.T) {
	entries := []*Entry{
		{ID: "42", Path: "/music/a track.mp3", Submitter: "alice", Origin: OriginRandom, State: StateStarted, Sofar: 123456, Queued: time.Now(), StartedAt: time.Now(), Duration: 180},
		{ID: "7", Path: `weird"quote\path.mp3`, Submitter: "", Origin: OriginScratch, State: StatePaused, Sofar: 0, Duration: 0},
	}
	for _, e := range entries {
		line := formatEntryLine(sectionQueue, e)
		section, parsed, err := parseEntryLine(line)
		require.NoError(t, err)
		assert.Equal(t, sectionQueue, section)
		reformatted := formatEntryLine(section, parsed)
		assert.Equal(t, line, reformatted)
	}
}

func TestJournalQuoteUnquoteValue(t *testing.T) {
	for _, s := range []string{"", "plain", `has "quotes"`, `has\backslash`, `both " and \`} {
		quoted := quoteJournalValue(s)
		got, err := unquoteJournalValue(quoted)
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
}
