// Package transcript lays out academic records as fixed-width documents.
//
// A Document is an ordered list of lines, each carrying the formatting
// directives a page renderer needs (font, style, size, alignment). Encoding
// to PDF happens elsewhere; nothing here touches bytes or files.
package transcript

import (
	"strings"
	"time"
)

// Font names a core typeface.
type Font string

const (
	FontSerif Font = "Times"
	FontMono  Font = "Courier"
)

// Style is a font style.
type Style string

const (
	StyleRegular Style = ""
	StyleBold    Style = "B"
	StyleItalic  Style = "I"
)

// Align is the horizontal alignment of a line.
type Align string

const (
	AlignLeft   Align = "L"
	AlignCenter Align = "C"
	AlignRight  Align = "R"
)

// Line is one line of a document with its formatting directives. A line
// with empty Text is vertical space.
type Line struct {
	Text      string  `json:"text"`
	Font      Font    `json:"font"`
	Style     Style   `json:"style,omitempty"`
	Size      float64 `json:"size"`
	Align     Align   `json:"align"`
	Underline bool    `json:"underline,omitempty"`
}

// IsBlank reports whether the line only adds vertical space.
func (l Line) IsBlank() bool {
	return l.Text == ""
}

// Document is a rendered transcript.
type Document struct {
	// Title is the document heading, e.g. "Enrichment Transcript".
	Title string `json:"title"`
	// Subject identifies the student, usually the registration number.
	Subject string `json:"subject"`
	// IssuedOn is the only value that varies between renders of the same record.
	IssuedOn time.Time `json:"issuedOn"`
	Lines    []Line    `json:"lines"`
}

// Text returns the document as plain text, one line per Line.
func (d *Document) Text() string {
	var sb strings.Builder
	for _, l := range d.Lines {
		sb.WriteString(l.Text)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// builder accumulates lines under a current style.
type builder struct {
	lines []Line
	font  Font
	style Style
	size  float64
}

func (b *builder) setFont(font Font, style Style, size float64) *builder {
	b.font, b.style, b.size = font, style, size
	return b
}

func (b *builder) add(text string, align Align) *builder {
	b.lines = append(b.lines, Line{Text: text, Font: b.font, Style: b.style, Size: b.size, Align: align})
	return b
}

func (b *builder) underlined(text string, align Align) *builder {
	b.add(text, align)
	b.lines[len(b.lines)-1].Underline = true
	return b
}

func (b *builder) space(n int) *builder {
	for i := 0; i < n; i++ {
		b.lines = append(b.lines, Line{Font: b.font, Style: b.style, Size: b.size, Align: AlignLeft})
	}
	return b
}
