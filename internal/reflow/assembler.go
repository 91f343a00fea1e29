package reflow

import (
	"github.com/dgallion1/subtrans/internal/boundary"
	"github.com/dgallion1/subtrans/internal/language"
	"github.com/dgallion1/subtrans/internal/sentence"
	"github.com/dgallion1/subtrans/internal/srt"
)

// Reason classifies a layout problem found while assembling entries.
type Reason string

const (
	// LessLines: a split produced no text.
	LessLines Reason = "less_lines"
	// LongLineSplit: a line was broken to stay under the maximum length.
	LongLineSplit Reason = "long_line_split"
	// MoreThanTwoLines: an entry grew past two display lines.
	MoreThanTwoLines Reason = "more_than_two_lines"
	// Overflow: a fragment did not fit on an occupied line and got its own.
	Overflow Reason = "overflow"
)

// Warning is a non-fatal layout problem tied to a sentence and an entry.
type Warning struct {
	Sentence int    `json:"sentence"`
	Entry    int    `json:"entry"`
	Reason   Reason `json:"reason"`
	Text     string `json:"text,omitempty"`
}

// Assembler builds translated entries from reflowed sentences. Entries keep
// the ids and timecodes of the originals.
type Assembler struct {
	engine   *Engine
	profile  *language.Profile
	original []srt.Entry
	entries  []srt.Entry
	// offsets counts extra lines inserted into each entry so that later
	// fragments for the same entry land below them.
	offsets  []int
	warnings []Warning
}

func NewAssembler(original []srt.Entry, profile *language.Profile) *Assembler {
	entries := make([]srt.Entry, len(original))
	for i, e := range original {
		entries[i] = e.WithLines(nil)
	}
	return &Assembler{
		engine:   New(profile),
		profile:  profile,
		original: original,
		entries:  entries,
		offsets:  make([]int, len(original)),
	}
}

// Add reflows translated sentence s, the index-th of the document, and
// places its fragments.
func (a *Assembler) Add(index int, s sentence.Sentence) {
	res := a.engine.Reflow(s, a.original)
	for i, sp := range res.Splits {
		a.place(index, sp, res.Fragments[i])
	}
}

func (a *Assembler) place(index int, sp Split, fragment string) {
	if fragment == "" {
		a.warn(index, sp.Entry, LessLines, "")
		return
	}

	e := &a.entries[sp.Entry]
	at := sp.Line + a.offsets[sp.Entry]
	virtual := sp.Virtual

	if at < len(e.Lines) {
		joined := a.profile.Join(e.Lines[at], fragment)
		if boundary.Count(joined) > a.profile.MaxLineLength && len(e.Lines) < 3 {
			e.Lines = append(e.Lines, fragment)
			virtual = true
			a.warn(index, sp.Entry, Overflow, fragment)
		} else {
			e.Lines[at] = joined
		}
	} else {
		e.Lines = append(e.Lines, fragment)
	}

	tooMany := len(e.Lines) > 2
	switch {
	case virtual:
		a.offsets[sp.Entry]++
		if tooMany {
			a.warn(index, sp.Entry, MoreThanTwoLines, "")
		} else {
			a.warn(index, sp.Entry, LongLineSplit, "")
		}
	case tooMany:
		a.warn(index, sp.Entry, MoreThanTwoLines, "")
	}
}

func (a *Assembler) warn(sentence, entry int, reason Reason, text string) {
	a.warnings = append(a.warnings, Warning{Sentence: sentence, Entry: entry, Reason: reason, Text: text})
}

// Entries returns the assembled entries, parallel to the originals. Entries
// that received no text have no lines.
func (a *Assembler) Entries() []srt.Entry {
	out := make([]srt.Entry, len(a.entries))
	for i, e := range a.entries {
		out[i] = e.WithLines(append([]string(nil), e.Lines...))
	}
	return out
}

// Warnings returns the layout problems recorded so far.
func (a *Assembler) Warnings() []Warning {
	return append([]Warning(nil), a.warnings...)
}
