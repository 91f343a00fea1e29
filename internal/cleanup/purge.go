// Package cleanup holds the cosmetic passes applied to subtitle entries
// around translation: closed-caption purge, markup stripping, prewash,
// time shift and bilingual merge.
package cleanup

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/dgallion1/subtrans/internal/srt"
)

// Change records an entry altered by a cleanup pass. Index refers to the
// input slice.
type Change struct {
	Index     int       `json:"index"`
	Original  srt.Entry `json:"original"`
	Processed srt.Entry `json:"processed"`
}

// Pattern is a closed-caption annotation removed from every line.
type Pattern struct {
	Description string
	re          *regexp.Regexp
}

func NewPattern(expr, description string) (Pattern, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return Pattern{}, fmt.Errorf("compile cc pattern %q: %w", expr, err)
	}
	return Pattern{Description: description, re: re}, nil
}

func (p Pattern) String() string { return p.re.String() }

// DefaultPatterns returns the built-in closed-caption annotations.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{Description: `Remove "[Music]"`, re: regexp.MustCompile(`\[[^\]]+\]`)},
		{Description: `Remove "(Frank)"`, re: regexp.MustCompile(`\([^\)]+\)`)},
		{Description: `Remove "FRANK:"`, re: regexp.MustCompile(`[A-Z ]+:`)},
		{Description: `Remove "♪ Something ♪"`, re: regexp.MustCompile(`♪[^♪]+♪`)},
	}
}

// PurgeLine applies the patterns until the line stops changing and trims it.
// A line that lost a leading speaker annotation is marked as dialogue with
// "- " unless it already starts with a hyphen.
func PurgeLine(line string, patterns []Pattern) string {
	out := line
	for changed := true; changed; {
		changed = false
		for _, p := range patterns {
			if next := p.re.ReplaceAllString(out, ""); next != out {
				out = next
				changed = true
			}
		}
	}
	out = strings.TrimSpace(out)
	if out != line && out != "" && !strings.HasPrefix(out, "-") && strings.HasSuffix(line, out) {
		out = "- " + out
	}
	return out
}

// PurgeCC removes closed-caption annotations. Lines that end up empty are
// dropped, and so are entries without lines. Entries whose id is in disabled
// are passed through untouched, but their would-be changes are reported.
func PurgeCC(entries []srt.Entry, patterns []Pattern, disabled map[string]bool) ([]srt.Entry, []Change) {
	var (
		out     []srt.Entry
		changes []Change
	)
	for i, e := range entries {
		var lines []string
		for _, l := range e.Lines {
			if p := PurgeLine(l, patterns); p != "" {
				lines = append(lines, p)
			}
		}
		processed := e.WithLines(lines)
		if !slices.Equal(lines, e.Lines) {
			changes = append(changes, Change{Index: i, Original: e, Processed: processed})
		}
		if disabled[e.ID] {
			out = append(out, e)
			continue
		}
		if len(lines) > 0 {
			out = append(out, processed)
		}
	}
	return out, changes
}
