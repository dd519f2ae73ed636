package document

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// maxParagraphs bounds Word/slide text extraction (spec.md §4.4).
const maxParagraphs = 2000

// wordDocument mirrors just enough of word/document.xml's OOXML shape
// to pull paragraph text out of <w:p><w:r><w:t>...</w:t></w:r></w:p>.
type wordDocument struct {
	Body struct {
		Paragraphs []struct {
			Runs []struct {
				Text []string `xml:"t"`
			} `xml:"r"`
		} `xml:"p"`
	} `xml:"body"`
}

// extractDOCXText flattens word/document.xml to paragraph text, since
// no DOCX library exists in the dependency corpus; the OOXML package
// is just a zip of XML parts, which the standard library handles
// directly.
func extractDOCXText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytesReaderAt(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx as zip: %w", err)
	}

	var member *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			member = f
			break
		}
	}
	if member == nil {
		return "", fmt.Errorf("word/document.xml not found")
	}

	rc, err := member.Open()
	if err != nil {
		return "", fmt.Errorf("open word/document.xml: %w", err)
	}
	defer rc.Close()

	var doc wordDocument
	if err := xml.NewDecoder(rc).Decode(&doc); err != nil {
		return "", fmt.Errorf("parse word/document.xml: %w", err)
	}

	var out strings.Builder
	count := 0
	for _, p := range doc.Body.Paragraphs {
		if count >= maxParagraphs {
			break
		}
		for _, r := range p.Runs {
			out.WriteString(strings.Join(r.Text, ""))
		}
		out.WriteByte('\n')
		count++
	}
	return out.String(), nil
}

// pptxSlideText mirrors ppt/slides/slideN.xml's text shapes.
type pptxSlideText struct {
	Body struct {
		Shapes []struct {
			TextBody struct {
				Paragraphs []struct {
					Runs []struct {
						Text string `xml:"t"`
					} `xml:"r"`
				} `xml:"p"`
			} `xml:"txBody"`
		} `xml:"sp"`
	} `xml:"cSld>spTree"`
}

// extractPPTXText flattens every slide's shape text, in slide order,
// capped at maxParagraphs total paragraphs across all slides.
func extractPPTXText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytesReaderAt(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pptx as zip: %w", err)
	}

	var slides []*zip.File
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, "ppt/slides/slide") && strings.HasSuffix(f.Name, ".xml") {
			slides = append(slides, f)
		}
	}

	var out strings.Builder
	count := 0
	for _, f := range slides {
		if count >= maxParagraphs {
			break
		}
		rc, err := f.Open()
		if err != nil {
			continue
		}
		var slide pptxSlideText
		err = xml.NewDecoder(rc).Decode(&slide)
		rc.Close()
		if err != nil {
			continue
		}
		for _, shape := range slide.Body.Shapes {
			for _, p := range shape.TextBody.Paragraphs {
				if count >= maxParagraphs {
					break
				}
				for _, r := range p.Runs {
					out.WriteString(r.Text)
				}
				out.WriteByte('\n')
				count++
			}
		}
	}
	return out.String(), nil
}

type bytesReaderAt []byte

func (b bytesReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(b)) {
		return 0, io.EOF
	}
	n := copy(p, b[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}
