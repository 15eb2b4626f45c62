package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/garyjia/trip-finance/internal/application/port"
)

var costColumnWidths = []float64{30, 30, 25, 22, 22, 16, 30, 15}

// PDFRenderer renders the trip report as a one-document financial summary
type PDFRenderer struct{}

// NewPDFRenderer creates a new PDFRenderer
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

// Format returns port.ReportFormatPDF
func (r *PDFRenderer) Format() port.ReportFormat {
	return port.ReportFormatPDF
}

// Render lays out the summary followed by the cost table
func (r *PDFRenderer) Render(report *port.TripReport) ([]byte, error) {
	if report == nil || report.Trip == nil {
		return nil, fmt.Errorf("report has no trip")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, tr("Trip financial report - "+report.Trip.FleetNumber), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	for _, fld := range summaryFields(report) {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(45, 6, tr(fld.Label), "", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, tr(fld.Value), "", 1, "", false, 0, "")
	}
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 9)
	for i, header := range costHeaders {
		pdf.CellFormat(costColumnWidths[i], 7, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	for _, row := range costRows(report) {
		for i, value := range row {
			align := ""
			if i == 4 {
				align = "R"
			}
			pdf.CellFormat(costColumnWidths[i], 6, tr(truncate(pdf, value, costColumnWidths[i]-2)), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// truncate shortens s to fit width at the current font
func truncate(pdf *gofpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"...") > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}

// Verify interface compliance
var _ port.ReportRenderer = (*PDFRenderer)(nil)
