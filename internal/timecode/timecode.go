// Package timecode converts between elapsed seconds, frame indexes and
// "HH:MM:SS:FF" timecode strings for a given frame rate.
package timecode

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// nominalRate collapses fractional rates (23.976, 29.97) to the integer
// frame count used for the FF segment. Rates at or below zero degrade to 1
// so the conversions stay total.
func nominalRate(fps float64) int {
	rate := int(math.Round(fps))
	if rate < 1 {
		rate = 1
	}
	return rate
}

// FrameToTimecode renders a frame index as "HH:MM:SS:FF".
func FrameToTimecode(frame int, fps float64) string {
	if frame < 0 {
		frame = 0
	}
	rate := nominalRate(fps)
	totalSeconds := frame / rate
	ff := frame % rate
	hh := totalSeconds / 3600
	mm := (totalSeconds % 3600) / 60
	ss := totalSeconds % 60
	return fmt.Sprintf("%02d:%02d:%02d:%02d", hh, mm, ss, ff)
}

// TimecodeToFrame parses "HH:MM:SS:FF" back to a frame index. Malformed
// input (wrong segment count or non-numeric segment) yields frame 0; this is
// the documented fallback, not an error path.
func TimecodeToFrame(tc string, fps float64) int {
	parts := strings.Split(strings.TrimSpace(tc), ":")
	if len(parts) != 4 {
		return 0
	}
	segments := make([]int, 4)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0
		}
		segments[i] = n
	}
	rate := nominalRate(fps)
	hh, mm, ss, ff := segments[0], segments[1], segments[2], segments[3]
	return (hh*3600+mm*60+ss)*rate + ff
}

// SecondsToFrame scales playback seconds to a frame index: floor(sec * fps).
func SecondsToFrame(seconds, fps float64) int {
	if seconds < 0 || fps <= 0 {
		return 0
	}
	return int(math.Floor(seconds * fps))
}

// FrameToSeconds is the inverse scaling of SecondsToFrame.
func FrameToSeconds(frame int, fps float64) float64 {
	if frame < 0 || fps <= 0 {
		return 0
	}
	return float64(frame) / fps
}

// SecondsToTimecode is a convenience composition used by display code.
func SecondsToTimecode(seconds, fps float64) string {
	return FrameToTimecode(SecondsToFrame(seconds, fps), fps)
}
