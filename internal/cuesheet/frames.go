package cuesheet

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FramesPerSecond is the CUE time-offset granularity (CD sectors).
const FramesPerSecond = 75

// Frames counts 1/75 second units from the start of an audio stream.
// All offset arithmetic stays integral to avoid cumulative rounding
// drift across long albums; conversion to wall-clock units happens once
// at the rendering edge.
type Frames int64

// ParseTimestamp converts a "mm:ss:ff" directive operand into frames.
// Minutes may exceed 99 (long concert recordings do this); seconds and
// frames must stay within their ranges.
func ParseTimestamp(value string) (Frames, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("timestamp %q: want mm:ss:ff", value)
	}
	fields := make([]int64, 3)
	for i, part := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("timestamp %q: %w", value, err)
		}
		if n < 0 {
			return 0, fmt.Errorf("timestamp %q: negative component", value)
		}
		fields[i] = n
	}
	if fields[1] >= 60 {
		return 0, fmt.Errorf("timestamp %q: seconds out of range", value)
	}
	if fields[2] >= FramesPerSecond {
		return 0, fmt.Errorf("timestamp %q: frames out of range", value)
	}
	return Frames((fields[0]*60+fields[1])*FramesPerSecond + fields[2]), nil
}

// Duration converts the offset to a time.Duration, rounding once to the
// nearest nanosecond.
func (f Frames) Duration() time.Duration {
	whole := int64(f) / FramesPerSecond
	rem := int64(f) % FramesPerSecond
	return time.Duration(whole)*time.Second + time.Duration(rem*int64(time.Second)/FramesPerSecond)
}

// String renders the offset back in mm:ss:ff form.
func (f Frames) String() string {
	if f < 0 {
		return fmt.Sprintf("-%s", (-f).String())
	}
	total := int64(f)
	frames := total % FramesPerSecond
	seconds := total / FramesPerSecond
	return fmt.Sprintf("%02d:%02d:%02d", seconds/60, seconds%60, frames)
}

// Position renders the offset as a decimal seconds value with
// microsecond precision, the form ffmpeg accepts for -ss and -t.
func (f Frames) Position() string {
	total := int64(f)
	seconds := total / FramesPerSecond
	micros := (total % FramesPerSecond) * 1_000_000 / FramesPerSecond
	return fmt.Sprintf("%d.%06d", seconds, micros)
}
