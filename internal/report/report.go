// Package report summarizes a translation run as Markdown and HTML.
package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/dgallion1/subtrans/internal/cleanup"
	"github.com/dgallion1/subtrans/internal/reflow"
	"github.com/dgallion1/subtrans/internal/srt"
)

// Usage is the accounting part of a report.
type Usage struct {
	CharsToTranslate int           `json:"chars_to_translate"`
	TranslatedChars  int           `json:"translated_chars"`
	GlossaryHits     int           `json:"glossary_hits"`
	Duration         time.Duration `json:"duration"`
}

// Report collects everything worth telling a user about one run.
type Report struct {
	Title      string
	SourceLang string
	TargetLang string
	Engine     string
	// Model is set for engines backed by a named model.
	Model   string
	Entries int
	// Sentences holds the source text of every sentence, by index.
	Sentences []string
	Usage     Usage

	Issues         []srt.Issue
	PurgeChanges   []cleanup.Change
	PrewashChanges []cleanup.Change
	Warnings       []reflow.Warning
}

// Markdown renders the report.
func (r *Report) Markdown() string {
	var b strings.Builder
	title := r.Title
	if title == "" {
		title = "Translation report"
	}
	fmt.Fprintf(&b, "# %s\n\n", cell(title))

	b.WriteString("| | |\n|---|---|\n")
	fmt.Fprintf(&b, "| Languages | %s → %s |\n", cell(r.SourceLang), cell(r.TargetLang))
	if r.Engine != "" {
		fmt.Fprintf(&b, "| Engine | %s |\n", cell(r.Engine))
	}
	if r.Model != "" {
		fmt.Fprintf(&b, "| Model | %s |\n", cell(r.Model))
	}
	fmt.Fprintf(&b, "| Entries | %d |\n", r.Entries)
	fmt.Fprintf(&b, "| Sentences | %d |\n", len(r.Sentences))
	fmt.Fprintf(&b, "| Characters to translate | %d |\n", r.Usage.CharsToTranslate)
	fmt.Fprintf(&b, "| Characters sent to engine | %d |\n", r.Usage.TranslatedChars)
	fmt.Fprintf(&b, "| Glossary hits | %d |\n", r.Usage.GlossaryHits)
	fmt.Fprintf(&b, "| Processing time | %s |\n\n", r.Usage.Duration.Round(time.Millisecond))

	if len(r.Issues) > 0 {
		fmt.Fprintf(&b, "## Parser issues (%d)\n\n", len(r.Issues))
		for _, is := range r.Issues {
			fmt.Fprintf(&b, "- %s\n", inline(is.String()))
			if is.Excerpt != "" {
				b.WriteString("\n  ```\n")
				for _, l := range strings.Split(is.Excerpt, "\n") {
					b.WriteString("  " + strings.ReplaceAll(l, "```", "'''") + "\n")
				}
				b.WriteString("  ```\n\n")
			}
		}
		b.WriteString("\n")
	}

	writeChanges(&b, "Closed caption purge", r.PurgeChanges)
	writeChanges(&b, "Prewash", r.PrewashChanges)

	if len(r.Warnings) > 0 {
		fmt.Fprintf(&b, "## Layout warnings (%d)\n\n", len(r.Warnings))
		b.WriteString("| Sentence | Entry | Reason | Text |\n|---|---|---|---|\n")
		for _, w := range r.Warnings {
			text := w.Text
			if text == "" && w.Sentence >= 0 && w.Sentence < len(r.Sentences) {
				text = r.Sentences[w.Sentence]
			}
			fmt.Fprintf(&b, "| %d | %d | %s | %s |\n", w.Sentence+1, w.Entry+1, describe(w.Reason), cell(text))
		}
		b.WriteString("\n")
	}

	if len(r.Issues) == 0 && len(r.Warnings) == 0 {
		b.WriteString("No issues found.\n")
	}
	return b.String()
}

// HTML renders the Markdown report to HTML. Raw HTML in subtitle text is not
// passed through.
func (r *Report) HTML() ([]byte, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	var buf bytes.Buffer
	if err := md.Convert([]byte(r.Markdown()), &buf); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	return buf.Bytes(), nil
}

func writeChanges(b *strings.Builder, heading string, changes []cleanup.Change) {
	if len(changes) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s (%d changed)\n\n", heading, len(changes))
	b.WriteString("| # | Before | After |\n|---|---|---|\n")
	for _, c := range changes {
		fmt.Fprintf(b, "| %s | %s | %s |\n", cell(c.Original.ID),
			cell(strings.Join(c.Original.Lines, " / ")),
			cell(strings.Join(c.Processed.Lines, " / ")))
	}
	b.WriteString("\n")
}

func describe(r reflow.Reason) string {
	switch r {
	case reflow.LessLines:
		return "Less lines"
	case reflow.LongLineSplit:
		return "Long line split"
	case reflow.MoreThanTwoLines:
		return "More than 2 lines"
	case reflow.Overflow:
		return "Overflow"
	default:
		return string(r)
	}
}

var mdEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", "*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`,
	"<", `\<`, ">", `\>`, "#", `\#`, "|", `\|`,
)

// inline escapes s for use in running Markdown text.
func inline(s string) string {
	return mdEscaper.Replace(strings.ReplaceAll(s, "\n", " "))
}

// cell escapes s for use in a table cell.
func cell(s string) string {
	if s == "" {
		return "–"
	}
	return inline(s)
}
