package srt

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/asticode/go-astisub"
)

// Supported export formats.
const (
	FormatSRT  = "srt"
	FormatVTT  = "vtt"
	FormatSSA  = "ssa"
	FormatTTML = "ttml"
)

// ContentType returns the MIME type for an export format.
func ContentType(format string) string {
	switch format {
	case FormatVTT:
		return "text/vtt; charset=utf-8"
	case FormatTTML:
		return "application/ttml+xml"
	case FormatSSA:
		return "text/x-ssa; charset=utf-8"
	default:
		return "application/x-subrip; charset=utf-8"
	}
}

// Export renders entries in the requested format. SRT output goes through
// Format so numbering and timecodes stay byte-exact; the other formats are
// produced by astisub.
func Export(entries []Entry, format string) ([]byte, error) {
	format = strings.ToLower(format)
	if format == "" || format == FormatSRT {
		return []byte(Format(entries)), nil
	}

	subs := astisub.NewSubtitles()
	for i, e := range entries {
		item := &astisub.Item{
			Index:   i + 1,
			StartAt: e.Timecode.Start,
			EndAt:   e.Timecode.End,
		}
		for _, line := range e.Lines {
			item.Lines = append(item.Lines, astisub.Line{Items: []astisub.LineItem{{Text: line}}})
		}
		subs.Items = append(subs.Items, item)
	}

	var buf bytes.Buffer
	var err error
	switch format {
	case FormatVTT:
		err = subs.WriteToWebVTT(&buf)
	case FormatSSA:
		err = subs.WriteToSSA(&buf)
	case FormatTTML:
		err = subs.WriteToTTML(&buf)
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", format, err)
	}
	return buf.Bytes(), nil
}
