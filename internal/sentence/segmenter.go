package sentence

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/dgallion1/subtrans/internal/boundary"
	"github.com/dgallion1/subtrans/internal/srt"
)

var (
	hyphenStart   = regexp.MustCompile(`^[\-–—]\s*(.+)$`)
	ellipsisStart = regexp.MustCompile(`^[…\.]+\s*(.+)$`)
	ellipsisEnd   = regexp.MustCompile(`^(.+)\s*(…|\.{3})$`)
)

// piece is a source fragment placed at byte offset at of the compound.
type piece struct {
	src Source
	at  int
}

// accumulator holds text that has not yet been confirmed as a complete
// sentence, together with where each of its fragments came from.
type accumulator struct {
	entries  []srt.Entry
	compound string
	pieces   []piece
	extras   Extras
	out      []Sentence
}

// Segment splits the text of entries into sentences using oracle to detect
// sentence ends. Leading dashes and ellipses force a sentence break and are
// recorded as extras on the sentence that follows.
func Segment(entries []srt.Entry, oracle boundary.Oracle) []Sentence {
	acc := &accumulator{entries: entries}

	for ei, e := range entries {
		for li, line := range e.Lines {
			start := len(line) - len(strings.TrimLeftFunc(line, unicode.IsSpace))
			end := len(strings.TrimRightFunc(line, unicode.IsSpace))
			if start >= end {
				continue
			}

			if m := hyphenStart.FindStringSubmatchIndex(line[start:end]); m != nil {
				acc.flush()
				acc.extras |= Hyphenated
				start += m[2]
			} else if m := ellipsisStart.FindStringSubmatchIndex(line[start:end]); m != nil {
				acc.flush()
				acc.extras |= StartsWithEllipsis
				start += m[2]
			}
			if m := ellipsisEnd.FindStringSubmatchIndex(line[start:end]); m != nil {
				end = start + len(strings.TrimRightFunc(line[start:start+m[3]], unicode.IsSpace))
			}
			if start >= end {
				continue
			}

			acc.append(Source{Entry: ei, Line: li, Start: start, End: end})

			for {
				r, ok := oracle.FirstSentence(acc.compound)
				if !ok || r.End >= len(acc.compound) {
					break
				}
				acc.cut(r.End)
			}
		}
	}
	acc.flush()

	return acc.out
}

func (a *accumulator) append(src Source) {
	if a.compound != "" {
		a.compound += " "
	}
	a.pieces = append(a.pieces, piece{src: src, at: len(a.compound)})
	a.compound += src.Text(a.entries)
}

// cut emits compound[:n] as a sentence and keeps the remainder, minus the
// whitespace separating the two, as the new compound.
func (a *accumulator) cut(n int) {
	tail := len(a.compound) - len(strings.TrimLeftFunc(a.compound[n:], unicode.IsSpace))

	var head, rest []piece
	for _, p := range a.pieces {
		pend := p.at + p.src.End - p.src.Start
		if p.at < n {
			h := p
			h.src.End = p.src.Start + min(pend, n) - p.at
			head = append(head, h)
		}
		if pend > tail {
			from := max(p.at, tail)
			r := piece{src: p.src, at: from - tail}
			r.src.Start = p.src.Start + from - p.at
			rest = append(rest, r)
		}
	}

	a.emit(a.compound[:n], head)
	a.compound = a.compound[tail:]
	a.pieces = rest
}

// flush emits whatever is accumulated as a sentence.
func (a *accumulator) flush() {
	if a.compound == "" {
		return
	}
	a.emit(a.compound, a.pieces)
	a.compound = ""
	a.pieces = nil
}

func (a *accumulator) emit(text string, pieces []piece) {
	s := Sentence{Text: text, Extras: a.extras, Sources: make([]Source, len(pieces))}
	for i, p := range pieces {
		s.Sources[i] = p.src
	}
	if got := s.SourceText(a.entries); got != text {
		panic(fmt.Sprintf("sentence: provenance %q does not reproduce %q", got, text))
	}
	a.out = append(a.out, s)
	a.extras = 0
}
