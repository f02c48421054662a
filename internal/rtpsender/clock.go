package rtpsender

import "time"

// sampleClock tracks rtp_time, the 64-bit count of samples transmitted
// since session start (spec.md §4.E "Timestamp discipline"). Stereo
// frames count both channels, so a single L+R sample pair advances the
// clock by two.
type sampleClock struct {
	sessionStart time.Time
	rate         int // samples/sec, per channel
	channels     int
	rtpTime      uint64
	idle         bool
}

func newSampleClock(start time.Time, rate, channels int) *sampleClock {
	return &sampleClock{sessionStart: start, rate: rate, channels: channels}
}

// targetAt returns the rtp_time a perfectly wall-clock-synced sender
// would be at right now.
func (c *sampleClock) targetAt(now time.Time) uint64 {
	elapsed := now.Sub(c.sessionStart).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	return uint64(elapsed * float64(c.rate) * float64(c.channels))
}

// advance accounts for nSamples (individual channel samples, i.e.
// len(payload)/bytesPerSample) having just been transmitted.
func (c *sampleClock) advance(nSamples uint64) {
	c.rtpTime += nSamples
	c.idle = false
}

// markIdle records that the sender has just gone quiet for lack of
// audio to send.
func (c *sampleClock) markIdle() {
	c.idle = true
}

// resumeAfterIdle implements the idle-gap recompute: if real time has
// moved further than rtp_time, skip forward (silence-equivalent skip);
// otherwise rtp_time already leads wall-clock by more than the
// RTP-ahead window, so it is left untouched — it must never move
// backward, or a later packet could carry a timestamp smaller than an
// earlier one.
func (c *sampleClock) resumeAfterIdle(now time.Time) (becameMarker bool) {
	if !c.idle {
		return false
	}
	target := c.targetAt(now)
	if target > c.rtpTime {
		c.rtpTime = target
	}
	c.idle = false
	return true
}

// aheadBy reports how far rtp_time currently leads the wall-clock
// target, in samples (individual channel samples).
func (c *sampleClock) aheadBy(now time.Time) int64 {
	return int64(c.rtpTime) - int64(c.targetAt(now))
}
