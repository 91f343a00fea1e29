package translate

import "strings"

// Glossary maps exact source sentences to their translations for one
// (source, target) language pair. It is not safe for concurrent use.
type Glossary struct {
	source  string
	target  string
	entries map[string]string
}

func NewGlossary(source, target string) *Glossary {
	return &Glossary{
		source:  strings.ToLower(source),
		target:  strings.ToLower(target),
		entries: make(map[string]string),
	}
}

// Pair returns the language pair the glossary is valid for.
func (g *Glossary) Pair() (source, target string) { return g.source, g.target }

func (g *Glossary) Lookup(text string) (string, bool) {
	tr, ok := g.entries[text]
	return tr, ok
}

func (g *Glossary) Put(text, translation string) {
	g.entries[text] = translation
}

func (g *Glossary) Len() int { return len(g.entries) }

// Entries returns a copy of all entries.
func (g *Glossary) Entries() map[string]string {
	out := make(map[string]string, len(g.entries))
	for k, v := range g.entries {
		out[k] = v
	}
	return out
}
