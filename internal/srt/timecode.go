package srt

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Timecode is the display interval of an entry, measured from 00:00:00,000.
// Start < End is expected but not enforced.
type Timecode struct {
	Start time.Duration `json:"start"`
	End   time.Duration `json:"end"`
}

var timecodePattern = regexp.MustCompile(`^\s*(\d{2,}):(\d{2}):(\d{2}),(\d{3})\s*-->\s*(\d{2,}):(\d{2}):(\d{2}),(\d{3})\s*$`)

// ParseTimecode parses a "HH:MM:SS,mmm --> HH:MM:SS,mmm" line.
func ParseTimecode(line string) (Timecode, bool) {
	m := timecodePattern.FindStringSubmatch(line)
	if m == nil {
		return Timecode{}, false
	}
	start, ok := clock(m[1], m[2], m[3], m[4])
	if !ok {
		return Timecode{}, false
	}
	end, ok := clock(m[5], m[6], m[7], m[8])
	if !ok {
		return Timecode{}, false
	}
	return Timecode{Start: start, End: end}, true
}

func clock(h, m, s, ms string) (time.Duration, bool) {
	hours, err := strconv.Atoi(h)
	if err != nil {
		return 0, false
	}
	minutes, _ := strconv.Atoi(m)
	seconds, _ := strconv.Atoi(s)
	millis, _ := strconv.Atoi(ms)
	if minutes > 59 || seconds > 59 {
		return 0, false
	}
	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(millis)*time.Millisecond, true
}

// FormatClock renders d as HH:MM:SS,mmm. Negative durations clamp to zero.
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	return fmt.Sprintf("%02d:%02d:%02d,%03d",
		ms/3_600_000, (ms/60_000)%60, (ms/1000)%60, ms%1000)
}

func (tc Timecode) String() string {
	return FormatClock(tc.Start) + " --> " + FormatClock(tc.End)
}

// Shift moves both endpoints by d.
func (tc Timecode) Shift(d time.Duration) Timecode {
	return Timecode{Start: tc.Start + d, End: tc.End + d}
}
