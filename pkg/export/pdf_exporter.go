package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// Relative widths of the roster columns on a landscape A4 page.
var pdfColumnWidths = []float64{55, 28, 18, 45, 55, 22, 54}

// PDFExporter renders a roster as a landscape table.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates the PDF. The status column is filled with the card colour.
func (e *PDFExporter) Render(roster Roster) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(false, 12)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 8, fmt.Sprintf("%d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	if roster.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, tr(roster.Title), "", 1, "C", false, 0, "")
	}
	if !roster.GeneratedAt.IsZero() {
		pdf.SetFont("Arial", "", 8)
		pdf.CellFormat(0, 6, tr("Gerado em "+roster.GeneratedAt.Format("02/01/2006 15:04")), "", 1, "R", false, 0, "")
	}
	pdf.Ln(2)

	header := func() {
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		for i, h := range rosterHeaders {
			pdf.CellFormat(pdfColumnWidths[i], 8, tr(h), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
	}
	header()

	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	pdf.SetFont("Arial", "", 8)
	for _, entry := range roster.Entries {
		if pdf.GetY()+7 > pageHeight-bottom-12 {
			pdf.AddPage()
			header()
			pdf.SetFont("Arial", "", 8)
		}
		for i, cell := range entry.cells() {
			fill := false
			if i == 5 {
				pdf.SetFillColor(entry.Band[0], entry.Band[1], entry.Band[2])
				fill = true
			}
			pdf.CellFormat(pdfColumnWidths[i], 7, fitCell(pdf, tr(cell), pdfColumnWidths[i]-2), "1", 0, "", fill, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// fitCell shortens s with "..." until it fits width at the current font.
// s is already in the single-byte PDF encoding, so it is cut bytewise.
func fitCell(pdf *gofpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	for len(s) > 0 && pdf.GetStringWidth(s+"...") > width {
		s = s[:len(s)-1]
	}
	return s + "..."
}
