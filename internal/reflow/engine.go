// Package reflow lays translated sentences back out over the display lines
// their source text came from.
package reflow

import (
	"strings"

	"github.com/dgallion1/subtrans/internal/boundary"
	"github.com/dgallion1/subtrans/internal/language"
	"github.com/dgallion1/subtrans/internal/sentence"
	"github.com/dgallion1/subtrans/internal/srt"
)

// Split is one display slot of a translated sentence. Position is the
// grapheme offset in the translated text where the slot ends.
type Split struct {
	Entry    int     `json:"entry"`
	Line     int     `json:"line"`
	Position int     `json:"position"`
	Share    float64 `json:"share"`
	// Virtual marks a cut made only to respect the maximum line length.
	Virtual bool `json:"virtual,omitempty"`
}

// Result is a reflowed sentence: the refined splits and one trimmed text
// fragment per split.
type Result struct {
	Splits    []Split  `json:"splits"`
	Fragments []string `json:"fragments"`
}

// Engine reflows sentences using one target-language profile.
type Engine struct {
	profile *language.Profile
	oracle  boundary.Oracle
}

func New(profile *language.Profile) *Engine {
	return &Engine{profile: profile, oracle: profile.Boundaries()}
}

// Reflow proposes, refines and slices the splits of a translated sentence
// whose sources point into original.
func (e *Engine) Reflow(s sentence.Sentence, original []srt.Entry) Result {
	text := s.TextForSplitting()
	splits := e.Optimize(text, e.Propose(s, original))
	return Result{Splits: splits, Fragments: Fragments(text, splits)}
}

// ProposedLengths distributes targetLen over the sources in proportion to
// their lengths. The result always sums to targetLen; rounding losses go to
// the currently shortest share, first one wins on ties.
func ProposedLengths(sourceLens []int, targetLen int) []int {
	var total int
	for _, l := range sourceLens {
		total += l
	}
	out := make([]int, len(sourceLens))
	if total == 0 {
		return out
	}
	sum := 0
	for i, l := range sourceLens {
		out[i] = l * targetLen / total
		sum += out[i]
	}
	for ; sum < targetLen; sum++ {
		m := 0
		for i := range out {
			if out[i] < out[m] {
				m = i
			}
		}
		out[m]++
	}
	return out
}

// Propose computes the unrefined splits of s. A share longer than the
// maximum line length is cut once more at its midpoint with a virtual split.
func (e *Engine) Propose(s sentence.Sentence, original []srt.Entry) []Split {
	if len(s.Sources) == 0 {
		return nil
	}
	targetLen := boundary.Count(s.TextForSplitting())

	lens := make([]int, len(s.Sources))
	total := 0
	for i, src := range s.Sources {
		lens[i] = boundary.Count(src.Text(original))
		total += lens[i]
	}
	if total == 0 {
		first := s.Sources[0]
		return []Split{{Entry: first.Entry, Line: first.Line, Position: 0, Share: 1}}
	}

	var (
		out  []Split
		last int
	)
	for i, l := range ProposedLengths(lens, targetLen) {
		src := s.Sources[i]
		share := float64(lens[i]) / float64(total)
		if l > e.profile.MaxLineLength {
			share /= 2
			out = append(out, Split{Entry: src.Entry, Line: src.Line, Position: last + l/2, Share: share, Virtual: true})
		}
		last += l
		out = append(out, Split{Entry: src.Entry, Line: src.Line, Position: last, Share: share})
	}
	return out
}

// Optimize moves every split but the last onto a nearby word boundary,
// preferring punctuation and then trigger words. The last split always ends
// at the end of text.
func (e *Engine) Optimize(text string, splits []Split) []Split {
	if len(splits) == 0 {
		return nil
	}
	t := boundary.NewText(text)
	out := append([]Split(nil), splits...)

	lower := 0
	for i := range out[:len(out)-1] {
		proposed := out[i].Position
		words := e.words(t, lower)
		pos := -1
		for k, w := range words {
			if w.End < proposed {
				continue
			}
			pos = w.End
			if c, ok := e.punctuationSplit(t, lower, w.End, proposed); ok {
				pos = c
			} else if c, ok := e.wordSplit(t, words, k, lower, proposed); ok {
				pos = c
			}
			if pos < lower {
				pos = w.End
			}
			break
		}
		if pos < 0 {
			pos = max(lower, min(proposed, t.Len()))
		}
		out[i].Position = pos
		lower = pos
	}
	out[len(out)-1].Position = t.Len()
	return out
}

// Fragments slices text at the split positions and trims each piece.
func Fragments(text string, splits []Split) []string {
	t := boundary.NewText(text)
	out := make([]string, len(splits))
	prev := 0
	for i, sp := range splits {
		end := max(prev, min(sp.Position, t.Len()))
		if i == len(splits)-1 {
			end = t.Len()
		}
		out[i] = strings.TrimSpace(t.Slice(prev, end))
		prev = end
	}
	return out
}

// span is a grapheme range.
type span struct{ Start, End int }

// words tokenizes text from grapheme lower onward.
func (e *Engine) words(t *boundary.Text, lower int) []span {
	base := t.Offset(lower)
	ranges := e.oracle.Words(t.String()[base:])
	out := make([]span, len(ranges))
	for i, r := range ranges {
		out[i] = span{Start: t.Index(base + r.Start), End: t.Index(base + r.End)}
	}
	return out
}

type candidate struct {
	pos  int
	dist int
}

func nearest(cands []candidate) (int, bool) {
	if len(cands) == 0 {
		return 0, false
	}
	best := cands[0]
	for _, c := range cands[1:] {
		if c.dist < best.dist {
			best = c
		}
	}
	return best.pos, true
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// punctuationSplit looks for a trigger within the punctuation window around
// grapheme at. Backward scans start one cluster before at.
func (e *Engine) punctuationSplit(t *boundary.Text, lower, at, proposed int) (int, bool) {
	var cands []candidate
	search := func(backward bool, triggers []string, before bool) {
		start, dir := at, 1
		if backward {
			start, dir = at-1, -1
		}
		for step := 0; step < e.profile.PunctuationWindow; step++ {
			pos := start + step*dir
			if pos <= lower || pos >= t.Len() {
				return
			}
			for _, trig := range triggers {
				n := boundary.Count(trig)
				if n == 0 || t.Slice(pos, pos+n) != trig {
					continue
				}
				c := pos + n
				if before {
					c = pos
				}
				cands = append(cands, candidate{pos: c, dist: abs(c - proposed)})
				return
			}
		}
	}
	search(true, e.profile.SplitAfter, false)
	search(true, e.profile.SplitBefore, true)
	search(false, e.profile.SplitAfter, false)
	search(false, e.profile.SplitBefore, true)
	return nearest(cands)
}

// wordSplit looks for a trigger word among the WordWindow-1 neighbours of
// words[k] on each side. Triggers match case-sensitively.
func (e *Engine) wordSplit(t *boundary.Text, words []span, k, lower, proposed int) (int, bool) {
	var cands []candidate
	search := func(backward bool, triggers []string, before bool) {
		dir := 1
		if backward {
			dir = -1
		}
		for step := 1; step < e.profile.WordWindow; step++ {
			j := k + step*dir
			if j < 0 || j >= len(words) {
				return
			}
			if !matchesWord(triggers, t.Slice(words[j].Start, words[j].End)) {
				continue
			}
			c := words[j].End
			if before {
				c = words[j].Start
			}
			if c <= lower {
				return
			}
			cands = append(cands, candidate{pos: c, dist: abs(c - proposed)})
			return
		}
	}
	search(true, e.profile.SplitBeforeWords, true)
	search(false, e.profile.SplitBeforeWords, true)
	search(true, e.profile.SplitAfterWords, false)
	search(false, e.profile.SplitAfterWords, false)
	return nearest(cands)
}

func matchesWord(triggers []string, word string) bool {
	for _, t := range triggers {
		if t == word {
			return true
		}
	}
	return false
}
