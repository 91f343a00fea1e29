package srt

import (
	"fmt"
	"regexp"
	"strings"
)

// IssueReason classifies a recoverable parse problem.
type IssueReason string

const (
	NumberMissing   IssueReason = "number_missing"
	TimecodeMissing IssueReason = "timecode_missing"
	EmptyText       IssueReason = "empty_text"
	UnexpectedText  IssueReason = "unexpected_text"
)

// Issue records a malformed region of the input. Line numbers are 0-based
// indexes into the input line slice.
type Issue struct {
	FirstLine int         `json:"first_line"`
	LastLine  int         `json:"last_line"`
	Reason    IssueReason `json:"reason"`
	// Detail is the entry number for EmptyText and the skipped line for UnexpectedText.
	Detail  string `json:"detail,omitempty"`
	Excerpt string `json:"excerpt,omitempty"`
}

func (i Issue) String() string {
	var msg string
	switch i.Reason {
	case EmptyText:
		msg = fmt.Sprintf("no text for subtitle #%s", i.Detail)
	case NumberMissing:
		msg = "subtitle number is missing"
	case TimecodeMissing:
		msg = "timecodes are missing"
	case UnexpectedText:
		msg = fmt.Sprintf("skipped unexpected text: %q", i.Detail)
	default:
		msg = string(i.Reason)
	}
	return fmt.Sprintf("%s (lines %d-%d)", msg, i.FirstLine+1, i.LastLine+1)
}

var numberPattern = regexp.MustCompile(`^\s*(\d+)\s*$`)

// Parse turns a line stream into entries. It never fails: malformed regions
// are reported as issues and parsing resumes at the next plausible entry.
func Parse(lines []string) ([]Entry, []Issue) {
	var (
		entries []Entry
		issues  []Issue
	)
	at := func(n int) string { return strings.TrimSpace(lines[n]) }

	i := 0
	for i < len(lines) {
		for i < len(lines) && at(i) == "" {
			i++
		}
		if i >= len(lines) {
			break
		}
		start := i

		m := numberPattern.FindStringSubmatch(at(i))
		if m == nil {
			issues = append(issues, Issue{FirstLine: start, LastLine: i, Reason: UnexpectedText, Detail: at(i)})
			i++
			continue
		}
		id := m[1]
		i++

		if i >= len(lines) {
			issues = append(issues, Issue{FirstLine: start, LastLine: i - 1, Reason: TimecodeMissing})
			break
		}
		tc, ok := ParseTimecode(at(i))
		if !ok {
			issues = append(issues, Issue{FirstLine: start, LastLine: i, Reason: TimecodeMissing})
			// Resynchronize on the next bare number.
			for i < len(lines) && !numberPattern.MatchString(at(i)) {
				i++
			}
			continue
		}
		i++

		var text []string
		for i < len(lines) && at(i) != "" {
			text = append(text, at(i))
			i++
		}
		if len(text) == 0 {
			issues = append(issues, Issue{FirstLine: start, LastLine: i - 1, Reason: EmptyText, Detail: id})
		}
		entries = append(entries, Entry{ID: id, Timecode: tc, Lines: text})
	}

	for n := range issues {
		issues[n].Excerpt = excerpt(lines, issues[n].FirstLine, issues[n].LastLine)
	}
	return entries, issues
}

// ParseString splits s on line breaks and parses the result.
func ParseString(s string) ([]Entry, []Issue) {
	return Parse(SplitLines(s))
}

// SplitLines splits on \n, \r\n and lone \r.
func SplitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.Split(s, "\n")
}

const excerptContext = 5

func excerpt(lines []string, first, last int) string {
	lo := max(0, first-excerptContext)
	hi := min(len(lines), last+excerptContext+1)
	if lo >= hi {
		return ""
	}
	return strings.Join(lines[lo:hi], "\n")
}

// Trim drops the first n and last m entries, as used to cut credits or
// studio captions from the ends of a file.
func Trim(entries []Entry, first, last int) []Entry {
	if first < 0 {
		first = 0
	}
	if last < 0 {
		last = 0
	}
	if first+last >= len(entries) {
		return nil
	}
	return entries[first : len(entries)-last]
}
