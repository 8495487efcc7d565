package pdfreport

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	readings "zaehlerwerk/internal/readings/domain"
)

// BuildSummaryPDF renders the monthly utility overview of one folder
// as a single page: the highest reading per month and utility kind.
func BuildSummaryPDF(folder string, rows []readings.SummaryRow, generated time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, tr(fmt.Sprintf("Monatsübersicht %s", folder)))
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Stand: %s", generated.Format("2006-01-02 15:04:05")))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(30, 6, "Monat", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Wasser", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, tr("Wärme"), "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Strom", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Einheit", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, row := range rows {
		pdf.CellFormat(30, 6, row.Month, "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 6, formatReading(row.Water), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, formatReading(row.Heat), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, formatReading(row.Power), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, tr(row.Unit), "1", 0, "L", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	err := pdf.Output(&buf)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatReading(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.2f", *v)
}
