package srt

import (
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/gogs/chardet"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var utf8BOM = []byte{0xef, 0xbb, 0xbf}

// Decode converts raw subtitle bytes of any detectable charset to NFC-normalized
// UTF-8 text. A leading byte-order mark is removed.
func Decode(data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}

	// Valid UTF-8 is taken as is; chardet is unreliable on short inputs.
	if !utf8.Valid(data) {
		res, err := chardet.NewTextDetector().DetectBest(data)
		if err != nil {
			return "", fmt.Errorf("detect charset: %w", err)
		}
		enc, err := ianaindex.MIB.Encoding(res.Charset)
		if err != nil {
			return "", fmt.Errorf("charset %s: %w", res.Charset, err)
		}
		if enc == nil {
			return "", fmt.Errorf("charset %s: unsupported", res.Charset)
		}
		data, err = io.ReadAll(transform.NewReader(bytes.NewReader(data), enc.NewDecoder()))
		if err != nil {
			return "", fmt.Errorf("decode %s: %w", res.Charset, err)
		}
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	return norm.NFC.String(string(data)), nil
}
