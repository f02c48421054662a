package rtpsender

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSampleClockAdvance(t *testing.T) {
	start := time.Now()
	c := newSampleClock(start, 44100, 2)
	assert.EqualValues(t, 0, c.rtpTime)
	c.advance(200)
	assert.EqualValues(t, 200, c.rtpTime)
	assert.False(t, c.idle)
}

func TestSampleClockTargetAtTracksWallClock(t *testing.T) {
	start := time.Now()
	c := newSampleClock(start, 44100, 2)
	target := c.targetAt(start.Add(1 * time.Second))
	assert.EqualValues(t, 44100*2, target)
}

func TestSampleClockResumeAfterIdleSkipsForward(t *testing.T) {
	start := time.Now()
	c := newSampleClock(start, 44100, 2)
	c.markIdle()
	// a full second has passed with nothing sent
	marked := c.resumeAfterIdle(start.Add(1 * time.Second))
	assert.True(t, marked)
	assert.EqualValues(t, 44100*2, c.rtpTime)
	assert.False(t, c.idle)
}

func TestSampleClockResumeAfterIdleNeverRewinds(t *testing.T) {
	start := time.Now()
	c := newSampleClock(start, 44100, 2)
	// sender had pre-buffered well ahead of the wall clock
	c.rtpTime = 44100 * 2 * 5
	c.markIdle()
	c.resumeAfterIdle(start.Add(1 * time.Second))
	// target for +1s is 44100*2, far less than rtpTime: must not rewind
	assert.EqualValues(t, 44100*2*5, c.rtpTime)
}

func TestSampleClockResumeAfterIdleNoopWhenNotIdle(t *testing.T) {
	start := time.Now()
	c := newSampleClock(start, 44100, 2)
	c.rtpTime = 10
	marked := c.resumeAfterIdle(start.Add(time.Hour))
	assert.False(t, marked)
	assert.EqualValues(t, 10, c.rtpTime)
}

func TestSampleClockAheadBy(t *testing.T) {
	start := time.Now()
	c := newSampleClock(start, 44100, 2)
	c.rtpTime = 44100 * 2 // 1 second's worth sent instantly
	ahead := c.aheadBy(start)
	assert.EqualValues(t, 44100*2, ahead)
}
