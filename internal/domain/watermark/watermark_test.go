package watermark

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func syntheticTone(sampleRate, frames int, hz float64) []int16 {
	out := make([]int16, frames)
	for i := range out {
		out[i] = int16(8000 * math.Sin(2*math.Pi*hz*float64(i)/float64(sampleRate)))
	}
	return out
}

func TestEmbedIsInaudibleLevel(t *testing.T) {
	const sampleRate = 44100
	frames := ChipsPerBit * 4
	source := syntheticTone(sampleRate, frames, 440)

	watermarked := Embed(source, sampleRate, 1, []byte("session-a"))
	require.Len(t, watermarked, len(source))

	var maxDelta int
	for i := range source {
		d := int(watermarked[i]) - int(source[i])
		if d < 0 {
			d = -d
		}
		if d > maxDelta {
			maxDelta = d
		}
	}
	// -40 dBFS of a 16-bit signal is roughly 327 units; allow slack for
	// the underlying tone's own amplitude.
	require.Less(t, maxDelta, 1200)
}

func TestDetectSessionIdentifiesCorrectSession(t *testing.T) {
	const sampleRate = 44100
	frames := ChipsPerBit * 8

	reg := NewRegistry()
	reg.Register([]byte("session-a"))
	reg.Register([]byte("session-b"))
	reg.Register([]byte("session-c"))

	source := syntheticTone(sampleRate, frames, 440)
	watermarked := Embed(source, sampleRate, 1, []byte("session-b"))

	result := reg.DetectSession(watermarked, sampleRate, 1)
	require.True(t, result.Matched)
	require.Equal(t, []byte("session-b"), result.SessionID)
}

func TestDetectSessionNoMatchBelowThreshold(t *testing.T) {
	const sampleRate = 44100
	frames := ChipsPerBit * 8

	reg := NewRegistry()
	reg.Register([]byte("session-a"))

	source := syntheticTone(sampleRate, frames, 440)
	result := reg.DetectSession(source, sampleRate, 1)
	require.False(t, result.Matched)
}
