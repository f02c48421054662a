package users

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRightsStringRoundTrip(t *testing.T) {
	r := RightPlay | RightAdmin | RightScratchMine
	parsed, err := ParseRights(r.String())
	require.NoError(t, err)
	assert.Equal(t, r, parsed)
}

func TestRightsStringEmpty(t *testing.T) {
	assert.Equal(t, "none", Rights(0).String())
	parsed, err := ParseRights("none")
	require.NoError(t, err)
	assert.Equal(t, Rights(0), parsed)
}

func TestParseRightsUnknown(t *testing.T) {
	_, err := ParseRights("play,not-a-right")
	require.Error(t, err)
	var unknown *UnknownRightError
	assert.ErrorAs(t, err, &unknown)
	assert.Equal(t, "not-a-right", unknown.Name)
}

func TestRightsAny(t *testing.T) {
	r := RightScratchMine
	assert.True(t, r.Any(RightScratchMine|RightScratchAny))
	assert.False(t, r.Any(RightScratchAny|RightScratchRandom))
}

func TestRightRemovable(t *testing.T) {
	mine, random, any := RightRemoveMine, RightRemoveRandom, RightRemoveAny

	assert.True(t, RightRemovable(any, "alice", "bob", false, mine, random, any))
	assert.True(t, RightRemovable(random, "alice", "bob", true, mine, random, any))
	assert.False(t, RightRemovable(random, "alice", "bob", false, mine, random, any))
	assert.True(t, RightRemovable(mine, "alice", "alice", false, mine, random, any))
	assert.False(t, RightRemovable(mine, "alice", "bob", false, mine, random, any))
	assert.False(t, RightRemovable(0, "alice", "alice", false, mine, random, any))
}
