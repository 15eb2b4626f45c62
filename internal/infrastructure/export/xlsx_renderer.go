package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/garyjia/trip-finance/internal/application/port"
)

const (
	summarySheet = "Summary"
	costsSheet   = "Costs"
)

// XLSXRenderer renders the trip report as a two-sheet workbook
type XLSXRenderer struct{}

// NewXLSXRenderer creates a new XLSXRenderer
func NewXLSXRenderer() *XLSXRenderer {
	return &XLSXRenderer{}
}

// Format returns port.ReportFormatXLSX
func (r *XLSXRenderer) Format() port.ReportFormat {
	return port.ReportFormatXLSX
}

// Render builds the workbook in memory
func (r *XLSXRenderer) Render(report *port.TripReport) ([]byte, error) {
	if report == nil || report.Trip == nil {
		return nil, fmt.Errorf("report has no trip")
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(costsSheet); err != nil {
		return nil, fmt.Errorf("add sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create style: %w", err)
	}

	for i, fld := range summaryFields(report) {
		row := i + 1
		if err := setRow(f, summarySheet, row, []string{fld.Label, fld.Value}); err != nil {
			return nil, err
		}
	}
	if err := f.SetColStyle(summarySheet, "A", bold); err != nil {
		return nil, fmt.Errorf("style column: %w", err)
	}
	if err := f.SetColWidth(summarySheet, "A", "B", 28); err != nil {
		return nil, fmt.Errorf("set width: %w", err)
	}

	if err := setRow(f, costsSheet, 1, costHeaders); err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(costsSheet, 1, 1, bold); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}
	for i, values := range costRows(report) {
		if err := setRow(f, costsSheet, i+2, values); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, sheet string, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("cell name: %w", err)
	}
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("write row %d on %s: %w", row, sheet, err)
	}
	return nil
}

// Verify interface compliance
var _ port.ReportRenderer = (*XLSXRenderer)(nil)
