package cleanup

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/dgallion1/subtrans/internal/srt"
)

// ssaOverride matches inline SSA/ASS override blocks such as {\an8} or {\i1}.
var ssaOverride = regexp.MustCompile(`\{\\[^}]*\}`)

// StripLine removes markup such as <i>, <font color=...> and {\an8} from a
// line and decodes HTML entities.
func StripLine(line string) string {
	line = ssaOverride.ReplaceAllString(line, "")
	if !strings.ContainsAny(line, "<&") {
		return strings.TrimSpace(line)
	}

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(line))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(b.String())
		case html.TextToken:
			b.Write(z.Text())
		}
	}
}

// StripTags removes markup from every line. Lines left empty are dropped,
// and so are entries without lines.
func StripTags(entries []srt.Entry) []srt.Entry {
	var out []srt.Entry
	for _, e := range entries {
		var lines []string
		for _, l := range e.Lines {
			if s := StripLine(l); s != "" {
				lines = append(lines, s)
			}
		}
		if len(lines) > 0 {
			out = append(out, e.WithLines(lines))
		}
	}
	return out
}
