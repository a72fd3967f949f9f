package export

import (
	"bytes"

	"github.com/go-pdf/fpdf"

	"github.com/smcen/registrar/internal/domain/shared"
	"github.com/smcen/registrar/internal/domain/transcript"
)

// PDFConfig controls page geometry.
type PDFConfig struct {
	// Margin on every side, in millimetres.
	Margin float64
	// LineFactor converts a font size in points to a line height in mm.
	LineFactor float64
	// Creator is written to the document info dictionary.
	Creator string
}

// DefaultPDFConfig returns A4 settings close to the printed originals.
func DefaultPDFConfig() PDFConfig {
	return PDFConfig{
		Margin:     18,
		LineFactor: 0.5,
		Creator:    "smcen-registrar",
	}
}

// PDFEncoder turns transcript Documents into PDF bytes using the core
// Times and Courier fonts. Creation and modification dates are pinned to
// the document's issue date so equal documents encode to equal bytes.
type PDFEncoder struct {
	cfg PDFConfig
}

// NewPDFEncoder creates an encoder.
func NewPDFEncoder(cfg PDFConfig) *PDFEncoder {
	if cfg.LineFactor <= 0 {
		cfg.LineFactor = DefaultPDFConfig().LineFactor
	}
	return &PDFEncoder{cfg: cfg}
}

// ContentType is the MIME type of Encode's output.
func (e *PDFEncoder) ContentType() string { return "application/pdf" }

// Extension is the file extension of Encode's output.
func (e *PDFEncoder) Extension() string { return ".pdf" }

// Encode renders doc.
func (e *PDFEncoder) Encode(doc *transcript.Document) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(e.cfg.Margin, e.cfg.Margin, e.cfg.Margin)
	pdf.SetAutoPageBreak(true, e.cfg.Margin)
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(doc.IssuedOn)
	pdf.SetModificationDate(doc.IssuedOn)
	pdf.SetTitle(doc.Title, true)
	pdf.SetSubject(doc.Subject, true)
	pdf.SetCreator(e.cfg.Creator, true)

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	for _, line := range doc.Lines {
		style := string(line.Style)
		if line.Underline {
			style += "U"
		}
		pdf.SetFont(string(line.Font), style, line.Size)

		height := line.Size * e.cfg.LineFactor
		if line.IsBlank() {
			pdf.Ln(height)
			continue
		}
		pdf.CellFormat(0, height, tr(line.Text), "", 1, string(line.Align), false, 0, "")
	}

	if err := pdf.Error(); err != nil {
		return nil, shared.WrapError("transcript", "EncodePDF", shared.ErrRendering, "layout "+doc.Subject, err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, shared.WrapError("transcript", "EncodePDF", shared.ErrRendering, "write "+doc.Subject, err)
	}
	return buf.Bytes(), nil
}
