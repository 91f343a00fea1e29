// Package language holds per-language tables that drive sentence
// segmentation, source cleanup and line reflow.
package language

import (
	"github.com/dgallion1/subtrans/internal/boundary"
)

// Continuation is a marker pair that signals a sentence running on from one
// entry into the next, e.g. "…" at the end of one entry and "…" at the start
// of the following one.
type Continuation struct {
	LineEnd   string `yaml:"line_end" json:"line_end"`
	LineStart string `yaml:"line_start" json:"line_start"`
}

// Profile carries everything the pipeline needs to know about one language,
// whether it is used as the source or the target.
type Profile struct {
	Code string `yaml:"code" json:"code"`
	Name string `yaml:"name" json:"name"`

	// Target-side reflow tables.
	MaxLineLength     int      `yaml:"max_line_length" json:"max_line_length"`
	SplitAfter        []string `yaml:"split_after" json:"split_after,omitempty"`
	SplitBefore       []string `yaml:"split_before" json:"split_before,omitempty"`
	SplitAfterWords   []string `yaml:"split_after_words" json:"split_after_words,omitempty"`
	SplitBeforeWords  []string `yaml:"split_before_words" json:"split_before_words,omitempty"`
	PunctuationWindow int      `yaml:"punctuation_window" json:"punctuation_window"`
	WordWindow        int      `yaml:"word_window" json:"word_window"`
	// NoSpace joins fragments without a separator (Japanese, Chinese).
	NoSpace bool `yaml:"no_space" json:"no_space,omitempty"`

	// Source-side prewash tables.
	Continuations []Continuation `yaml:"continuations" json:"continuations,omitempty"`
	Unwanted      []string       `yaml:"unwanted" json:"unwanted,omitempty"`

	Oracle boundary.Oracle `yaml:"-" json:"-"`
}

const (
	defaultMaxLineLength     = 42
	defaultPunctuationWindow = 5
	defaultWordWindow        = 2
)

// Boundaries returns the profile's oracle, falling back to UAX #29 rules.
func (p *Profile) Boundaries() boundary.Oracle {
	if p.Oracle == nil {
		return boundary.Unicode{}
	}
	return p.Oracle
}

// Join appends fragment to an existing display line.
func (p *Profile) Join(line, fragment string) string {
	if line == "" {
		return fragment
	}
	if fragment == "" {
		return line
	}
	if p.NoSpace {
		return line + fragment
	}
	return line + " " + fragment
}

func (p *Profile) normalize() {
	if p.MaxLineLength <= 0 {
		p.MaxLineLength = defaultMaxLineLength
	}
	if p.PunctuationWindow <= 0 {
		p.PunctuationWindow = defaultPunctuationWindow
	}
	if p.WordWindow <= 0 {
		p.WordWindow = defaultWordWindow
	}
	if p.Name == "" {
		p.Name = p.Code
	}
}

func (p *Profile) clone() *Profile {
	c := *p
	c.SplitAfter = append([]string(nil), p.SplitAfter...)
	c.SplitBefore = append([]string(nil), p.SplitBefore...)
	c.SplitAfterWords = append([]string(nil), p.SplitAfterWords...)
	c.SplitBeforeWords = append([]string(nil), p.SplitBeforeWords...)
	c.Continuations = append([]Continuation(nil), p.Continuations...)
	c.Unwanted = append([]string(nil), p.Unwanted...)
	return &c
}

var (
	westernSplitAfter  = []string{",", ".", "…", ")", "}", "]", ":"}
	westernSplitBefore = []string{"(", "[", "{"}
	ellipsisContinues  = []Continuation{{LineEnd: "…", LineStart: "…"}, {LineEnd: "...", LineStart: "..."}}
	unwanted           = []string{"♪"}
)

func builtins() []*Profile {
	return []*Profile{
		{
			Code:             "en",
			Name:             "English",
			MaxLineLength:    50,
			SplitAfter:       westernSplitAfter,
			SplitBefore:      westernSplitBefore,
			SplitBeforeWords: []string{"and", "or", "but"},
			Continuations:    ellipsisContinues,
			Unwanted:         unwanted,
		},
		{
			Code:             "de",
			Name:             "German",
			MaxLineLength:    50,
			SplitAfter:       westernSplitAfter,
			SplitBefore:      westernSplitBefore,
			SplitBeforeWords: []string{"und", "oder", "dass", "daß", "weil"},
			Continuations:    ellipsisContinues,
			Unwanted:         unwanted,
		},
		{
			Code:             "nl",
			Name:             "Dutch",
			MaxLineLength:    50,
			SplitAfter:       westernSplitAfter,
			SplitBefore:      westernSplitBefore,
			SplitBeforeWords: []string{"en", "of", "maar", "omdat"},
			Continuations:    ellipsisContinues,
			Unwanted:         unwanted,
		},
		{
			Code:             "sv",
			Name:             "Swedish",
			MaxLineLength:    50,
			SplitAfter:       westernSplitAfter,
			SplitBefore:      westernSplitBefore,
			SplitBeforeWords: []string{"och", "eller", "men", "att"},
			Continuations:    []Continuation{{LineEnd: "-", LineStart: "-"}},
			Unwanted:         unwanted,
		},
		{
			Code:          "ja",
			Name:          "Japanese",
			MaxLineLength: 40,
			SplitAfter: []string{"、", "，", "。", " ", "　", "」", "』", "〝", "‥", "…",
				"】", "］", "）", "｝", "：", ")", "]", "\" ", ","},
			SplitBefore:     []string{"「", "『", "〟", "【", "［", "（", "｛", "(", "[", " \""},
			SplitAfterWords: []string{"は", "が", "を", "に", "へ", "と", "の", "より", "から", "にて"},
			NoSpace:         true,
			Unwanted:        unwanted,
		},
	}
}
