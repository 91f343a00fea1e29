// Package boundary finds sentence and word boundaries in text and indexes
// strings by user-perceived character (grapheme cluster).
package boundary

import (
	"strings"
	"unicode"

	"github.com/rivo/uniseg"
)

// Range is a half-open byte range [Start, End) into a string.
type Range struct {
	Start int
	End   int
}

// Len returns the range length in bytes.
func (r Range) Len() int { return r.End - r.Start }

// Oracle locates sentence and word boundaries for one language.
type Oracle interface {
	// FirstSentence returns the range of the first sentence in text, with
	// trailing whitespace excluded. ok is false when text holds no sentence.
	FirstSentence(text string) (r Range, ok bool)
	// Words returns the ranges of all word tokens in text, in order.
	// Punctuation and whitespace are not words.
	Words(text string) []Range
}

// Unicode is an Oracle implementing the UAX #29 default segmentation rules.
// It suits languages that separate words with spaces; CJK text gets one token
// per ideograph.
type Unicode struct{}

func (Unicode) FirstSentence(text string) (Range, bool) {
	if strings.TrimSpace(text) == "" {
		return Range{}, false
	}
	lead := len(text) - len(strings.TrimLeftFunc(text, unicode.IsSpace))
	sentence, _, _ := uniseg.FirstSentenceInString(text[lead:], -1)
	end := lead + len(strings.TrimRightFunc(sentence, unicode.IsSpace))
	return Range{Start: lead, End: end}, true
}

func (Unicode) Words(text string) []Range {
	var (
		out   []Range
		pos   int
		state = -1
		word  string
		rest  = text
	)
	for len(rest) > 0 {
		word, rest, state = uniseg.FirstWordInString(rest, state)
		if isWord(word) {
			out = append(out, Range{Start: pos, End: pos + len(word)})
		}
		pos += len(word)
	}
	return out
}

func isWord(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			return true
		}
	}
	return false
}

// Count returns the number of grapheme clusters in s.
func Count(s string) int {
	return uniseg.GraphemeClusterCount(s)
}
