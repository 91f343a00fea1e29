package cleanup

import (
	"slices"
	"strings"

	"github.com/dgallion1/subtrans/internal/language"
	"github.com/dgallion1/subtrans/internal/srt"
)

// Prewash prepares source entries for segmentation using the source
// language's tables. Continuation markers joining consecutive entries are
// removed in pairs, unwanted characters are deleted, and lines left empty or
// holding a lone hyphen are dropped. Entries left without lines are dropped.
//
// Entries whose id is in disabled keep their lines; changes to them are
// still reported.
func Prewash(entries []srt.Entry, profile *language.Profile, disabled map[string]bool) ([]srt.Entry, []Change) {
	work := make([]srt.Entry, len(entries))
	copy(work, entries)
	changed := make(map[int]bool)

	for i := 0; i+1 < len(work); i++ {
		prev, next := work[i].Lines, work[i+1].Lines
		p, n, ok := removeContinuation(prev, next, profile.Continuations)
		if !ok {
			continue
		}
		if !disabled[work[i].ID] {
			work[i] = work[i].WithLines(p)
		}
		if !disabled[work[i+1].ID] {
			work[i+1] = work[i+1].WithLines(n)
		}
		changed[i], changed[i+1] = true, true
	}

	for i, e := range work {
		lines := make([]string, 0, len(e.Lines))
		for _, l := range e.Lines {
			cleaned := l
			for _, u := range profile.Unwanted {
				cleaned = strings.ReplaceAll(cleaned, u, "")
			}
			if cleaned != l {
				cleaned = strings.TrimSpace(cleaned)
				changed[i] = true
			}
			if t := strings.TrimSpace(cleaned); t == "" || t == "-" {
				changed[i] = true
				continue
			}
			lines = append(lines, cleaned)
		}
		if changed[i] && !disabled[e.ID] {
			work[i] = e.WithLines(lines)
		}
	}

	var (
		out     []srt.Entry
		changes []Change
	)
	for i, e := range work {
		if changed[i] {
			changes = append(changes, Change{Index: i, Original: entries[i], Processed: e})
		}
		if len(e.Lines) > 0 {
			out = append(out, e)
		}
	}
	return out, changes
}

// removeContinuation strips the first continuation pair found at the end of
// prev and the start of next. The inputs are not modified.
func removeContinuation(prev, next []string, pairs []language.Continuation) ([]string, []string, bool) {
	if len(prev) == 0 || len(next) == 0 {
		return prev, next, false
	}
	last, first := prev[len(prev)-1], next[0]
	for _, c := range pairs {
		if c.LineEnd == "" || c.LineStart == "" {
			continue
		}
		if !strings.HasSuffix(last, c.LineEnd) || !strings.HasPrefix(first, c.LineStart) {
			continue
		}
		p := slices.Clone(prev)
		n := slices.Clone(next)
		p[len(p)-1] = strings.TrimSuffix(last, c.LineEnd)
		n[0] = strings.TrimPrefix(first, c.LineStart)
		return p, n, true
	}
	return prev, next, false
}
