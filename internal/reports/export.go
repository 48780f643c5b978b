package reports

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	telemetry "cement-cloud/internal/telemetry/domain"
)

// recentWindow is how many trailing records the tabular reports show.
const recentWindow = 15

var tableColumns = []struct {
	Field  string
	Header string
}{
	{"spc", "SPC (kWh/t)"},
	{"tsr", "TSR (%)"},
	{"clinker_quality", "Clinker Quality (%)"},
	{"co2", "CO2 (t/t)"},
}

// BuildTimelineCSV renders the full timeline as a delimited document.
func BuildTimelineCSV(timeline telemetry.Timeline) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	fields := timeline.Fields()
	if err := writer.Write(fields); err != nil {
		return nil, err
	}
	for i := 0; i < timeline.Len(); i++ {
		record := timeline.At(i)
		row := make([]string, len(fields))
		for j, field := range fields {
			row[j] = rawValue(record[field])
		}
		if err := writer.Write(row); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildOperationalPDF renders the paginated operational report: header,
// footer with page number, and the most recent records' KPI table.
func BuildOperationalPDF(timeline telemetry.Timeline, generatedAt time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetHeaderFunc(func() {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 10, "Cement-AI Operational Report", "", 1, "C", false, 0, "")
		pdf.SetFont("Helvetica", "", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("Generated on: %s", generatedAt.Format("2006-01-02 15:04:05")), "", 1, "C", false, 0, "")
		pdf.Ln(10)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 10, "Latest KPI Readings", "", 1, "L", false, 0, "")

	pageWidth, _ := pdf.GetPageSize()
	colWidth := pageWidth / 5.5

	pdf.SetFont("Helvetica", "B", 10)
	for _, column := range tableColumns {
		pdf.CellFormat(colWidth, 10, column.Header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, record := range timeline.Tail(recentWindow) {
		for _, column := range tableColumns {
			pdf.CellFormat(colWidth, 10, cellValue(record, column.Field), "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildOperationalXLSX renders the timeline as a workbook: a recent-KPI
// sheet mirroring the PDF table plus the full timeline sheet.
func BuildOperationalXLSX(timeline telemetry.Timeline) ([]byte, error) {
	f := excelize.NewFile()
	recentSheet := "recent"
	timelineSheet := "timeline"
	f.SetSheetName("Sheet1", recentSheet)
	f.NewSheet(timelineSheet)

	for i, column := range tableColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(recentSheet, cell, column.Header)
	}
	for i, record := range timeline.Tail(recentWindow) {
		for j, column := range tableColumns {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+2)
			_ = f.SetCellValue(recentSheet, cell, record[column.Field])
		}
	}

	fields := timeline.Fields()
	for i, field := range fields {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(timelineSheet, cell, field)
	}
	for i := 0; i < timeline.Len(); i++ {
		record := timeline.At(i)
		for j, field := range fields {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+2)
			_ = f.SetCellValue(timelineSheet, cell, record[field])
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func rawValue(value any) string {
	switch v := value.(type) {
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

func cellValue(record telemetry.Record, field string) string {
	if value, ok := record.Float(field); ok {
		return fmt.Sprintf("%.2f", value)
	}
	return rawValue(record[field])
}
