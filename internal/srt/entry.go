package srt

import "strings"

// Entry is one timed caption unit.
type Entry struct {
	ID       string   `json:"id"`
	Timecode Timecode `json:"timecode"`
	Lines    []string `json:"lines"`
}

// WithLines returns a copy of e carrying lines instead of its own.
func (e Entry) WithLines(lines []string) Entry {
	return Entry{ID: e.ID, Timecode: e.Timecode, Lines: lines}
}

// WithTimecode returns a copy of e with a different display interval.
func (e Entry) WithTimecode(tc Timecode) Entry {
	return Entry{ID: e.ID, Timecode: tc, Lines: e.Lines}
}

func (e Entry) String() string {
	var sb strings.Builder
	sb.WriteString(e.ID)
	sb.WriteString("\n")
	sb.WriteString(e.Timecode.String())
	for _, line := range e.Lines {
		sb.WriteString("\n")
		sb.WriteString(line)
	}
	sb.WriteString("\n")
	return sb.String()
}
