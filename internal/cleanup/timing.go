package cleanup

import (
	"time"

	"github.com/dgallion1/subtrans/internal/srt"
)

// Shift moves every entry by d. Times that would become negative are kept at
// zero when formatted.
func Shift(entries []srt.Entry, d time.Duration) []srt.Entry {
	out := make([]srt.Entry, len(entries))
	for i, e := range entries {
		out[i] = e.WithTimecode(e.Timecode.Shift(d))
	}
	return out
}

// Merge pairs translated and original entries by position and shows the
// translated lines above the original ones. Entries without a counterpart are
// dropped.
func Merge(translated, original []srt.Entry) []srt.Entry {
	n := min(len(translated), len(original))
	out := make([]srt.Entry, n)
	for i := 0; i < n; i++ {
		lines := make([]string, 0, len(translated[i].Lines)+len(original[i].Lines))
		lines = append(lines, translated[i].Lines...)
		lines = append(lines, original[i].Lines...)
		out[i] = translated[i].WithLines(lines)
	}
	return out
}
