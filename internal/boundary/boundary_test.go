package boundary

import "testing"

func TestUnicode_FirstSentence(t *testing.T) {
	tests := []struct {
		text string
		want Range
		ok   bool
	}{
		{"Hello world. How are you?", Range{0, 12}, true},
		{"Hello world.", Range{0, 12}, true},
		{"feelings of", Range{0, 11}, true},
		{"   ", Range{}, false},
		{"", Range{}, false},
	}
	for _, tt := range tests {
		got, ok := Unicode{}.FirstSentence(tt.text)
		if ok != tt.ok || got != tt.want {
			t.Errorf("FirstSentence(%q): expected %v/%v, got %v/%v", tt.text, tt.want, tt.ok, got, ok)
		}
	}
}

func TestUnicode_Words(t *testing.T) {
	text := "Hello, big world!"
	got := Unicode{}.Words(text)
	want := []string{"Hello", "big", "world"}
	if len(got) != len(want) {
		t.Fatalf("expected %d words, got %v", len(want), got)
	}
	for i, r := range got {
		if text[r.Start:r.End] != want[i] {
			t.Errorf("word %d: expected %q, got %q", i, want[i], text[r.Start:r.End])
		}
	}
}

func TestText(t *testing.T) {
	// "é" written as e + combining acute is one cluster.
	s := "cafe\u0301 ok"
	tx := NewText(s)

	if tx.Len() != 7 {
		t.Fatalf("expected 7 clusters, got %d", tx.Len())
	}
	if got := tx.At(3); got != "e\u0301" {
		t.Errorf("expected combined cluster, got %q", got)
	}
	if got := tx.Slice(0, 4); got != "cafe\u0301" {
		t.Errorf("expected %q, got %q", "cafe\u0301", got)
	}
	if got := tx.Index(len("cafe\u0301")); got != 4 {
		t.Errorf("expected index 4, got %d", got)
	}
	if got := tx.Offset(99); got != len(s) {
		t.Errorf("expected clamped offset %d, got %d", len(s), got)
	}
	if Count(s) != 7 {
		t.Errorf("expected Count 7, got %d", Count(s))
	}
}
