package cleanup

import (
	"fmt"
	"testing"
	"time"

	"github.com/dgallion1/subtrans/internal/boundary"
	"github.com/dgallion1/subtrans/internal/language"
	"github.com/dgallion1/subtrans/internal/sentence"
	"github.com/dgallion1/subtrans/internal/srt"
)

func entries(blocks ...[]string) []srt.Entry {
	out := make([]srt.Entry, len(blocks))
	for i, lines := range blocks {
		out[i] = srt.Entry{
			ID:       fmt.Sprint(i + 1),
			Timecode: srt.Timecode{Start: time.Duration(i) * time.Second, End: time.Duration(i+1) * time.Second},
			Lines:    lines,
		}
	}
	return out
}

func profile(t *testing.T, code string) *language.Profile {
	t.Helper()
	p, err := language.DefaultRegistry().Lookup(code)
	if err != nil {
		t.Fatalf("lookup %s: %v", code, err)
	}
	return p
}

func TestPurgeCC(t *testing.T) {
	in := entries(
		[]string{"[Frank] Text1"},
		[]string{"Frank: Text2"},
		[]string{"FRANK: Text3"},
		[]string{"(Frank) Text4"},
		[]string{"Ein Lied: ♪ 2, 3, 4 ♪"},
		[]string{"♪ 2, 3, 4 ♪"},
		[]string{"FRANK: Text5", "♪ 2, 3, 4 ♪"},
	)

	out, changes := PurgeCC(in, DefaultPatterns(), nil)
	if len(out) != 6 {
		t.Fatalf("expected 6 entries, got %d", len(out))
	}

	want := []struct {
		id    string
		lines string
	}{
		{"1", "[- Text1]"},
		{"2", "[Frank: Text2]"},
		{"3", "[- Text3]"},
		{"4", "[- Text4]"},
		{"5", "[Ein Lied:]"},
		{"7", "[- Text5]"},
	}
	for i, w := range want {
		if out[i].ID != w.id || fmt.Sprint(out[i].Lines) != w.lines {
			t.Errorf("entry %d: expected %s %s, got %s %v", i, w.id, w.lines, out[i].ID, out[i].Lines)
		}
		if out[i].Timecode != in[out[i].ID[0]-'1'].Timecode {
			t.Errorf("entry %d: timecode changed", i)
		}
	}

	var changed []int
	for _, c := range changes {
		changed = append(changed, c.Index)
	}
	if fmt.Sprint(changed) != "[0 2 3 4 5 6]" {
		t.Errorf("expected changes for [0 2 3 4 5 6], got %v", changed)
	}
}

func TestPurgeCC_DisabledEntriesPassThrough(t *testing.T) {
	in := entries([]string{"[Music]"}, []string{"(door closes) Hello"})
	out, changes := PurgeCC(in, DefaultPatterns(), map[string]bool{"1": true})

	if len(out) != 2 || fmt.Sprint(out[0].Lines) != "[[Music]]" {
		t.Errorf("expected disabled entry to be kept as is, got %+v", out)
	}
	if out[1].Lines[0] != "- Hello" {
		t.Errorf("expected purged second entry, got %q", out[1].Lines)
	}
	if len(changes) != 2 {
		t.Errorf("expected both entries reported, got %d", len(changes))
	}
}

func TestPurgeLine_NoHyphenWhenAlreadyDialogue(t *testing.T) {
	if got := PurgeLine("[laughs] - Sure.", DefaultPatterns()); got != "- Sure." {
		t.Errorf("expected %q, got %q", "- Sure.", got)
	}
	if got := PurgeLine("Nothing to do", DefaultPatterns()); got != "Nothing to do" {
		t.Errorf("expected line unchanged, got %q", got)
	}
}

func TestNewPattern(t *testing.T) {
	if _, err := NewPattern(`(unclosed`, "broken"); err == nil {
		t.Error("expected compile error")
	}
	p, err := NewPattern(`<[^>]+>`, "angle")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := PurgeLine("<laughs> Hi", []Pattern{p}); got != "- Hi" {
		t.Errorf("expected %q, got %q", "- Hi", got)
	}
}

func TestStripTags(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"<i>Hello</i> &amp; <font color=\"red\">bye</font>", "Hello & bye"},
		{`{\an8}On top`, "On top"},
		{"plain", "plain"},
		{"<b></b>", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := StripLine(tt.in); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}

	out := StripTags(entries([]string{"<i></i>"}, []string{"<i>Yes</i>", "<b></b>"}))
	if len(out) != 1 || out[0].ID != "2" || fmt.Sprint(out[0].Lines) != "[Yes]" {
		t.Errorf("expected only entry 2 with one line, got %+v", out)
	}
}

func TestPrewash_ContinuationThenSegment(t *testing.T) {
	in := entries(
		[]string{"...feelings of..."},
		[]string{"...remorse to authorities."},
	)
	out, changes := Prewash(in, profile(t, "en"), nil)

	if len(changes) != 2 {
		t.Fatalf("expected 2 changed entries, got %d", len(changes))
	}
	if out[0].Lines[0] != "...feelings of" || out[1].Lines[0] != "remorse to authorities." {
		t.Fatalf("unexpected prewash result %q / %q", out[0].Lines, out[1].Lines)
	}

	got := sentence.Segment(out, boundary.Unicode{})
	if len(got) != 1 {
		t.Fatalf("expected one sentence, got %d: %+v", len(got), got)
	}
	if got[0].Text != "feelings of remorse to authorities." {
		t.Errorf("unexpected text %q", got[0].Text)
	}
	if got[0].Extras != sentence.StartsWithEllipsis {
		t.Errorf("expected only the leading ellipsis flag, got %v", got[0].Extras)
	}
	if len(got[0].Sources) != 2 || got[0].Sources[1].Entry != 1 {
		t.Errorf("expected sources in both entries, got %+v", got[0].Sources)
	}
}

func TestPrewash_UnwantedCharacters(t *testing.T) {
	in := entries(
		[]string{"♪ la la ♪", "- ♪"},
		[]string{"♪"},
		[]string{"Keep me."},
	)
	out, changes := Prewash(in, profile(t, "en"), nil)

	if len(out) != 2 {
		t.Fatalf("expected the empty entry to be dropped, got %+v", out)
	}
	if fmt.Sprint(out[0].Lines) != "[la la]" {
		t.Errorf("expected [la la], got %q", out[0].Lines)
	}
	if out[1].ID != "3" {
		t.Errorf("expected entry 3 to follow, got %s", out[1].ID)
	}
	if len(changes) != 2 {
		t.Errorf("expected 2 changes, got %d", len(changes))
	}
}

func TestPrewash_DisabledEntries(t *testing.T) {
	in := entries(
		[]string{"Und dann…"},
		[]string{"…ging er."},
	)
	out, changes := Prewash(in, profile(t, "de"), map[string]bool{"2": true})

	if out[0].Lines[0] != "Und dann" {
		t.Errorf("expected marker removed from enabled entry, got %q", out[0].Lines[0])
	}
	if out[1].Lines[0] != "…ging er." {
		t.Errorf("expected disabled entry to keep its marker, got %q", out[1].Lines[0])
	}
	if len(changes) != 2 {
		t.Errorf("expected disabled entry to be counted, got %d changes", len(changes))
	}
}

func TestPrewash_SwedishHyphenContinuation(t *testing.T) {
	in := entries([]string{"Jag vet inte om-"}, []string{"-hon kommer."})
	out, _ := Prewash(in, profile(t, "sv"), nil)
	if out[0].Lines[0] != "Jag vet inte om" || out[1].Lines[0] != "hon kommer." {
		t.Errorf("unexpected result %q / %q", out[0].Lines, out[1].Lines)
	}
}

func TestShift(t *testing.T) {
	in := entries([]string{"a"})
	out := Shift(in, 1500*time.Millisecond)
	if out[0].Timecode.Start != 1500*time.Millisecond || out[0].Timecode.End != 2500*time.Millisecond {
		t.Errorf("unexpected timecode %v", out[0].Timecode)
	}
	if in[0].Timecode.Start != 0 {
		t.Error("expected input to be left alone")
	}
}

func TestMerge(t *testing.T) {
	translated := entries([]string{"Hello."}, []string{"Bye."})
	original := entries([]string{"Hallo."}, []string{"Tschüss."}, []string{"extra"})

	out := Merge(translated, original)
	if len(out) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(out))
	}
	if fmt.Sprint(out[1].Lines) != "[Bye. Tschüss.]" {
		t.Errorf("unexpected merged lines %q", out[1].Lines)
	}
}
