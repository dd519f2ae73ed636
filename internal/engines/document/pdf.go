package document

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// maxPDFPages bounds extraction so a thousand-page book cannot stall a
// scan (spec.md §4.4).
const maxPDFPages = 50

// pdfTextOperator matches a parenthesized string literal immediately
// followed by a Tj (show text) or TJ (show text array) operator in a
// decoded PDF content stream.
var pdfTextOperator = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)\s*Tj|\[((?:[^\[\]]|\\.)*)\]\s*TJ`)

var pdfEscapeRe = regexp.MustCompile(`\\([nrtbf()\\]|[0-7]{1,3})`)

// extractPDFText extracts the text layer of a PDF, capped at
// maxPDFPages. pdfcpu has no plain-text accessor, so page count comes
// from pdfcpu's validated page tree while the text itself is pulled
// from decoded content streams with a small Tj/TJ scraper (see
// DESIGN.md).
func extractPDFText(path string, data []byte) (string, error) {
	pageCount, err := api.PageCountFile(path)
	if err != nil {
		return "", fmt.Errorf("read PDF page tree: %w", err)
	}
	if pageCount > maxPDFPages {
		pageCount = maxPDFPages
	}

	var out strings.Builder
	pages := 0
	for _, stream := range extractContentStreams(data) {
		if pages >= maxPDFPages {
			break
		}
		out.WriteString(scrapeText(stream))
		out.WriteByte('\n')
		pages++
	}
	return out.String(), nil
}

// extractContentStreams finds every "stream ... endstream" block in
// the raw PDF body and returns its decoded bytes (FlateDecode, the
// overwhelming majority case, falls back to the raw bytes otherwise).
func extractContentStreams(data []byte) [][]byte {
	var streams [][]byte
	const startTok = "stream"
	const endTok = "endstream"

	i := 0
	for {
		s := bytes.Index(data[i:], []byte(startTok))
		if s < 0 {
			break
		}
		s += i
		bodyStart := s + len(startTok)
		// Content begins after an optional CRLF/LF immediately following
		// the "stream" keyword.
		if bodyStart < len(data) && data[bodyStart] == '\r' {
			bodyStart++
		}
		if bodyStart < len(data) && data[bodyStart] == '\n' {
			bodyStart++
		}

		e := bytes.Index(data[bodyStart:], []byte(endTok))
		if e < 0 {
			break
		}
		e += bodyStart

		raw := data[bodyStart:e]
		if decoded, ok := tryInflate(raw); ok {
			streams = append(streams, decoded)
		} else {
			streams = append(streams, raw)
		}
		i = e + len(endTok)
	}
	return streams
}

func tryInflate(raw []byte) ([]byte, bool) {
	zr, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, false
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, false
	}
	return out, true
}

func scrapeText(stream []byte) string {
	var out strings.Builder
	for _, m := range pdfTextOperator.FindAllSubmatch(stream, -1) {
		var raw []byte
		if len(m[1]) > 0 {
			raw = m[1]
		} else {
			raw = m[2]
		}
		out.WriteString(unescapePDFString(raw))
		out.WriteByte(' ')
	}
	return out.String()
}

func unescapePDFString(raw []byte) string {
	return pdfEscapeRe.ReplaceAllStringFunc(string(raw), func(m string) string {
		switch m {
		case `\n`:
			return "\n"
		case `\r`:
			return "\r"
		case `\t`:
			return "\t"
		case `\(`:
			return "("
		case `\)`:
			return ")"
		case `\\`:
			return "\\"
		default:
			return ""
		}
	})
}
