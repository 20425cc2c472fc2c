package timecode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrameToTimecode(t *testing.T) {
	assert.Equal(t, "00:00:00:00", FrameToTimecode(0, 24))
	assert.Equal(t, "00:00:01:00", FrameToTimecode(24, 24))
	assert.Equal(t, "00:00:01:06", FrameToTimecode(30, 24))
	assert.Equal(t, "00:01:00:00", FrameToTimecode(60*24, 24))
	assert.Equal(t, "01:00:00:00", FrameToTimecode(3600*30, 29.97))
	assert.Equal(t, "00:00:00:00", FrameToTimecode(-5, 24))
}

func TestTimecodeToFrame(t *testing.T) {
	assert.Equal(t, 0, TimecodeToFrame("00:00:00:00", 24))
	assert.Equal(t, 24, TimecodeToFrame("00:00:01:00", 24))
	assert.Equal(t, 30, TimecodeToFrame("00:00:01:06", 24))
	assert.Equal(t, 3600*25+7, TimecodeToFrame("01:00:00:07", 25))
}

func TestTimecodeToFrameMalformedFallsBackToZero(t *testing.T) {
	for _, tc := range []string{"", "1:2:3", "00:00:00:00:00", "aa:bb:cc:dd", "00:-1:00:00", "1.5:00:00:00"} {
		assert.Equal(t, 0, TimecodeToFrame(tc, 24), "input %q", tc)
	}
}

func TestRoundTripAcrossRates(t *testing.T) {
	rates := []float64{1, 12, 23.976, 24, 25, 29.97, 30, 48, 59.94, 60, 120}
	frames := []int{0, 1, 7, 23, 24, 25, 29, 30, 1000, 86399, 123456}
	for _, fps := range rates {
		for _, frame := range frames {
			tc := FrameToTimecode(frame, fps)
			back := TimecodeToFrame(tc, fps)
			tc2 := FrameToTimecode(back, fps)
			assert.Equal(t, tc, tc2, "fps=%v frame=%d", fps, frame)
		}
	}
}

func TestRoundTripFromTimecodeString(t *testing.T) {
	// The spec-level property: forward(back(tc)) == tc for any well formed
	// timecode produced by the forward function.
	for _, fps := range []float64{24, 29.97, 60} {
		for frame := 0; frame < 500; frame++ {
			tc := FrameToTimecode(frame, fps)
			assert.Equal(t, tc, FrameToTimecode(TimecodeToFrame(tc, fps), fps))
		}
	}
}

func TestSecondsFrameScaling(t *testing.T) {
	assert.Equal(t, 0, SecondsToFrame(0, 24))
	assert.Equal(t, 24, SecondsToFrame(1.0, 24))
	assert.Equal(t, 35, SecondsToFrame(1.5, 23.976))
	assert.Equal(t, 0, SecondsToFrame(-1, 24))
	assert.Equal(t, 0, SecondsToFrame(10, 0))
	assert.InDelta(t, 1.0, FrameToSeconds(24, 24), 1e-9)
	assert.Equal(t, 0.0, FrameToSeconds(-1, 24))
}

func TestSecondsToTimecode(t *testing.T) {
	assert.Equal(t, "00:01:01:12", SecondsToTimecode(61.5, 24))
}
