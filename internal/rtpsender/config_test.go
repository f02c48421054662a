package rtpsender

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStereoAndMonoConfig(t *testing.T) {
	stereo := StereoConfig(1400)
	assert.Equal(t, 2, stereo.Channels)
	assert.EqualValues(t, 10, stereo.PayloadType)

	mono := MonoConfig(1400)
	assert.Equal(t, 1, mono.Channels)
	assert.EqualValues(t, 11, mono.PayloadType)
	assert.Equal(t, stereo.SampleRate, mono.SampleRate)
}
