package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDAllocatorMonotonicAndUnique(t *testing.T) {
	a := NewIDAllocator()
	seen := make(map[string]bool)
	var prev string
	for i := 0; i < 100; i++ {
		id := a.Next()
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
		assert.NotEqual(t, prev, id)
		prev = id
	}
}

func TestIDAllocatorsFromDifferentBootsDiffer(t *testing.T) {
	a := NewIDAllocator()
	b := NewIDAllocator()
	assert.NotEqual(t, a.Next(), b.Next())
}
