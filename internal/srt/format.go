package srt

import (
	"strconv"
	"strings"
)

// Format serializes entries, renumbering them sequentially from 1.
// Blocks are separated by a single blank line.
func Format(entries []Entry) string {
	var sb strings.Builder
	for i, e := range entries {
		if i > 0 {
			sb.WriteString("\n")
		}
		e.ID = strconv.Itoa(i + 1)
		sb.WriteString(e.String())
	}
	return sb.String()
}
