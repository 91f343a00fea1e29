package report

import (
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/subtrans/internal/cleanup"
	"github.com/dgallion1/subtrans/internal/reflow"
	"github.com/dgallion1/subtrans/internal/srt"
)

func sample() *Report {
	return &Report{
		Title:      "movie.srt",
		SourceLang: "de",
		TargetLang: "en",
		Engine:     "claude",
		Model:      "claude-test",
		Entries:    12,
		Sentences:  []string{"Hallo.", "<script>alert(1)</script>"},
		Usage:      Usage{CharsToTranslate: 40, TranslatedChars: 30, GlossaryHits: 1, Duration: 1500 * time.Millisecond},
		Issues: []srt.Issue{
			{FirstLine: 4, LastLine: 5, Reason: srt.TimecodeMissing, Excerpt: "2\nbroken"},
		},
		PurgeChanges: []cleanup.Change{{
			Original:  srt.Entry{ID: "3", Lines: []string{"[Music] Hi | there"}},
			Processed: srt.Entry{ID: "3", Lines: []string{"- Hi | there"}},
		}},
		Warnings: []reflow.Warning{
			{Sentence: 1, Entry: 6, Reason: reflow.MoreThanTwoLines},
		},
	}
}

func TestMarkdown(t *testing.T) {
	md := sample().Markdown()

	for _, want := range []string{
		"# movie.srt",
		"| Languages | de → en |",
		"| Model | claude-test |",
		"| Glossary hits | 1 |",
		"## Parser issues (1)",
		"timecodes are missing (lines 5-6)",
		"## Closed caption purge (1 changed)",
		`\[Music\] Hi \| there`,
		"## Layout warnings (1)",
		"| 2 | 7 | More than 2 lines |",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("expected markdown to contain %q\n%s", want, md)
		}
	}
	if strings.Contains(md, "No issues found.") {
		t.Error("did not expect the all-clear line")
	}
}

func TestMarkdown_Clean(t *testing.T) {
	md := (&Report{SourceLang: "de", TargetLang: "en"}).Markdown()
	if !strings.Contains(md, "# Translation report") || !strings.Contains(md, "No issues found.") {
		t.Errorf("unexpected clean report:\n%s", md)
	}
}

func TestHTML(t *testing.T) {
	out, err := sample().HTML()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	html := string(out)
	if !strings.Contains(html, "<h1>movie.srt</h1>") {
		t.Errorf("expected heading in html:\n%s", html)
	}
	if !strings.Contains(html, "<table>") {
		t.Errorf("expected tables in html:\n%s", html)
	}
	if strings.Contains(html, "<script>") {
		t.Errorf("expected subtitle text to be escaped:\n%s", html)
	}
}
