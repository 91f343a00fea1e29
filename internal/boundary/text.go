package boundary

import (
	"sort"

	"github.com/rivo/uniseg"
)

// Text indexes a string by grapheme cluster so that positions count
// user-perceived characters rather than bytes.
type Text struct {
	s    string
	offs []int // offs[i] is the byte offset of cluster i; offs[Len()] == len(s)
}

// NewText builds the cluster index for s.
func NewText(s string) *Text {
	t := &Text{s: s}
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		from, _ := g.Positions()
		t.offs = append(t.offs, from)
	}
	t.offs = append(t.offs, len(s))
	return t
}

func (t *Text) String() string { return t.s }

// Len returns the number of clusters.
func (t *Text) Len() int { return len(t.offs) - 1 }

// Offset returns the byte offset of cluster i. i is clamped to [0, Len()].
func (t *Text) Offset(i int) int {
	return t.offs[t.clamp(i)]
}

// Index returns the index of the first cluster starting at or after byte b.
func (t *Text) Index(b int) int {
	return sort.SearchInts(t.offs, b)
}

// Slice returns clusters [i, j).
func (t *Text) Slice(i, j int) string {
	i, j = t.clamp(i), t.clamp(j)
	if j < i {
		return ""
	}
	return t.s[t.offs[i]:t.offs[j]]
}

// At returns cluster i, or "" when i is out of range.
func (t *Text) At(i int) string {
	if i < 0 || i >= t.Len() {
		return ""
	}
	return t.s[t.offs[i]:t.offs[i+1]]
}

func (t *Text) clamp(i int) int {
	return max(0, min(i, t.Len()))
}
