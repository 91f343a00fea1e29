// Package sentence reassembles subtitle line fragments into full sentences
// and records where every piece of a sentence came from.
package sentence

import (
	"strings"

	"github.com/dgallion1/subtrans/internal/srt"
)

// Extras records continuation punctuation removed before translation that
// has to be put back when the translated text is laid out again.
type Extras uint8

const (
	Hyphenated Extras = 1 << iota
	StartsWithEllipsis
)

// Has reports whether all flags in f are set.
func (e Extras) Has(f Extras) bool { return e&f == f }

func (e Extras) String() string {
	var parts []string
	if e.Has(Hyphenated) {
		parts = append(parts, "hyphenated")
	}
	if e.Has(StartsWithEllipsis) {
		parts = append(parts, "starts_with_ellipsis")
	}
	return strings.Join(parts, "|")
}

// Source points at the byte range [Start, End) of one line of one entry.
type Source struct {
	Entry int `json:"entry"`
	Line  int `json:"line"`
	Start int `json:"start"`
	End   int `json:"end"`
}

// Text returns the referenced sub-string.
func (s Source) Text(entries []srt.Entry) string {
	return entries[s.Entry].Lines[s.Line][s.Start:s.End]
}

// Sentence is a unit of translatable text with its provenance.
type Sentence struct {
	Text    string   `json:"text"`
	Extras  Extras   `json:"extras,omitempty"`
	Sources []Source `json:"sources"`
}

// WithText returns a copy carrying text, typically its translation.
func (s Sentence) WithText(text string) Sentence {
	return Sentence{Text: text, Extras: s.Extras, Sources: s.Sources}
}

// TextForSplitting is Text with the stripped continuation markers put back.
func (s Sentence) TextForSplitting() string {
	out := s.Text
	if s.Extras.Has(StartsWithEllipsis) {
		out = "… " + out
	}
	if s.Extras.Has(Hyphenated) {
		out = "- " + out
	}
	return out
}

// SourceText joins the referenced original sub-strings with single spaces.
func (s Sentence) SourceText(entries []srt.Entry) string {
	parts := make([]string, len(s.Sources))
	for i, src := range s.Sources {
		parts[i] = src.Text(entries)
	}
	return strings.Join(parts, " ")
}
