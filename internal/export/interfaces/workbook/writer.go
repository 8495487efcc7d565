package workbook

import (
	"bytes"
	"fmt"
	"os"
	"os/user"
	"time"

	"github.com/xuri/excelize/v2"

	readings "zaehlerwerk/internal/readings/domain"
)

// Sheet names are part of the data contract: downstream Excel formulas
// reference them verbatim.
const (
	SheetRaw         = "Zählerdaten"
	SheetYearly      = "Zählerdaten_Jahr"
	SheetMonthly     = "Zählerdaten_Monat"
	SheetConsumption = "Verbrauch+Norm"
	SheetAllMeters   = "Alle Zähler"
)

const (
	tableRaw     = "tblEHW"
	tableYearly  = "tblehwJahr"
	tableMonthly = "tblehwMonat"

	styleRaw     = "TableStyleMedium9"
	styleYearly  = "TableStyleMedium4"
	styleMonthly = "TableStyleMedium7"
)

const (
	exportLabel   = "zaehlerwerk"
	combinedLabel = "zaehlerwerk-combined"
)

var rawColumns = []string{
	"Object", "Room", "CounterName", "Bild",
	"CounterType", "CounterUnit", "CounterId", "RoomId",
	"Date_Orig", "Date_Year", "Date_YearMonth", "Date_Full",
	"Value_Orig", "Value_Num",
	"PrevValue", "PrevDate", "Delta", "DeltaPerDay", "Days",
	"ResetDetected", "Bemerkung", "CreatedAt",
}

var yearlyColumns = []string{
	"Object", "Room", "CounterName", "CounterId", "CounterType", "CounterUnit",
	"Year", "Date", "Value_Num",
	"PrevValue", "PrevDate", "Delta", "DeltaPerDay", "Days",
	"ResetDetected", "Bemerkung", "CreatedAt",
}

var monthlyColumns = []string{
	"Object", "Room", "CounterName", "CounterId", "CounterType", "CounterUnit",
	"YearMonth", "Date", "Value_Num",
	"PrevValue", "PrevDate", "Delta", "DeltaPerDay", "Days",
	"ResetDetected", "Bemerkung", "CreatedAt",
}

var consumptionColumns = []string{
	"meter_id", "meter_name", "unit", "date", "reading",
	"days", "consumption", "daily_rate", "annualized_consumption",
	"Quelle", "prev_date", "prev_reading",
}

// Dataset is one folder's report content.
type Dataset struct {
	Folder      string
	Raw         []readings.AnnotatedReading
	Yearly      []readings.SnapshotRow
	Monthly     []readings.SnapshotRow
	Consumption []readings.ConsumptionRow
}

// FolderConsumption is one folder's consumption series for the
// cross-folder sheet.
type FolderConsumption struct {
	Folder string
	Rows   []readings.ConsumptionRow
}

// Combined is the cross-folder report content.
type Combined struct {
	Raw     []readings.AnnotatedReading
	Yearly  []readings.SnapshotRow
	Monthly []readings.SnapshotRow
	Folders []FolderConsumption
}

// Writer renders report workbooks.
type Writer struct {
	clock    readings.Clock
	username string
	hostname string
}

// NewWriter resolves the user and host names once for the info line.
func NewWriter(clock readings.Clock) *Writer {
	if clock == nil {
		clock = readings.SystemClock{}
	}
	w := &Writer{clock: clock, username: "unknown", hostname: "unknown"}
	if u, err := user.Current(); err == nil && u.Username != "" {
		w.username = u.Username
	}
	if h, err := os.Hostname(); err == nil && h != "" {
		w.hostname = h
	}
	return w
}

// BuildDataset renders a folder workbook: the raw reading table, the
// yearly and monthly snapshot tables and the consumption sheet. dir is
// the directory the workbook is written to, shown in the info line.
func (w *Writer) BuildDataset(ds Dataset, dir string) ([]byte, error) {
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", SheetRaw)
	f.NewSheet(SheetYearly)
	f.NewSheet(SheetMonthly)
	f.NewSheet(SheetConsumption)

	w.writeRawSheet(f, SheetRaw, ds.Raw, w.infoLine(exportLabel, dir))
	writeSnapshotSheet(f, SheetYearly, yearlyColumns, tableYearly, styleYearly, ds.Yearly)
	writeSnapshotSheet(f, SheetMonthly, monthlyColumns, tableMonthly, styleMonthly, ds.Monthly)
	writeConsumptionSheet(f, SheetConsumption, ds.Consumption)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildCombined renders the cross-folder workbook: the concatenated
// reading tables plus one sheet listing every folder's consumption
// series.
func (w *Writer) BuildCombined(c Combined, dir string) ([]byte, error) {
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", SheetRaw)
	f.NewSheet(SheetYearly)
	f.NewSheet(SheetMonthly)
	f.NewSheet(SheetAllMeters)

	w.writeRawSheet(f, SheetRaw, c.Raw, w.infoLine(combinedLabel, dir))
	writeSnapshotSheet(f, SheetYearly, yearlyColumns, tableYearly, styleYearly, c.Yearly)
	writeSnapshotSheet(f, SheetMonthly, monthlyColumns, tableMonthly, styleMonthly, c.Monthly)
	writeAllMetersSheet(f, SheetAllMeters, c.Folders)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (w *Writer) infoLine(label, dir string) string {
	return fmt.Sprintf("%s -- %s -- %s -- %s -- %s",
		label, dir, w.clock.Now().Format("2006-01-02 15:04:05"), w.username, w.hostname)
}

// writeRawSheet writes the info line in A1, headers in row 3 and data
// from row 4 on. Photo cells carry a file hyperlink next to the text.
func (w *Writer) writeRawSheet(f *excelize.File, sheet string, rows []readings.AnnotatedReading, info string) {
	_ = f.SetCellValue(sheet, "A1", info)
	for i, name := range rawColumns {
		_ = f.SetCellValue(sheet, cellName(i+1, 3), name)
	}
	for i, row := range rows {
		r := i + 4
		_ = f.SetCellValue(sheet, cellName(1, r), row.Object)
		_ = f.SetCellValue(sheet, cellName(2, r), row.Room)
		_ = f.SetCellValue(sheet, cellName(3, r), row.Name)
		if row.ImagePath != "" {
			_ = f.SetCellValue(sheet, cellName(4, r), "Bild")
			if row.ImageTarget != "" {
				_ = f.SetCellHyperLink(sheet, cellName(4, r), "file://"+row.ImageTarget, "External")
			}
		}
		_ = f.SetCellValue(sheet, cellName(5, r), row.Type)
		_ = f.SetCellValue(sheet, cellName(6, r), row.Unit)
		_ = f.SetCellValue(sheet, cellName(7, r), row.CounterID)
		_ = f.SetCellValue(sheet, cellName(8, r), row.RoomID)
		_ = f.SetCellValue(sheet, cellName(9, r), row.Taken.Display)
		_ = f.SetCellValue(sheet, cellName(10, r), row.Taken.Year)
		_ = f.SetCellValue(sheet, cellName(11, r), row.Taken.YearMonth)
		_ = f.SetCellValue(sheet, cellName(12, r), row.Taken.ISO)
		_ = f.SetCellValue(sheet, cellName(13, r), row.RawValue)
		setFloat(f, sheet, cellName(14, r), row.Value)
		setFloat(f, sheet, cellName(15, r), row.PrevValue)
		if row.PrevDate != nil {
			_ = f.SetCellValue(sheet, cellName(16, r), row.PrevDate.Format("2006-01-02"))
		}
		setFloat(f, sheet, cellName(17, r), row.Delta)
		setFloat(f, sheet, cellName(18, r), row.DeltaPerDay)
		setInt(f, sheet, cellName(19, r), row.Days)
		_ = f.SetCellValue(sheet, cellName(20, r), row.Reset)
		_ = f.SetCellValue(sheet, cellName(21, r), row.Remark)
		_ = f.SetCellValue(sheet, cellName(22, r), row.CreatedAt.Format("2006-01-02T15:04:05"))
	}

	stripes := true
	_ = f.AddTable(sheet, &excelize.Table{
		Range:          "A3:" + cellName(len(rawColumns), 3+len(rows)),
		Name:           tableRaw,
		StyleName:      styleRaw,
		ShowRowStripes: &stripes,
	})
}

// writeSnapshotSheet writes a period view with headers in row 1. The
// table is only added when the view has rows.
func writeSnapshotSheet(f *excelize.File, sheet string, columns []string, table, style string, rows []readings.SnapshotRow) {
	for i, name := range columns {
		_ = f.SetCellValue(sheet, cellName(i+1, 1), name)
	}
	for i, row := range rows {
		r := i + 2
		_ = f.SetCellValue(sheet, cellName(1, r), row.Object)
		_ = f.SetCellValue(sheet, cellName(2, r), row.Room)
		_ = f.SetCellValue(sheet, cellName(3, r), row.Name)
		_ = f.SetCellValue(sheet, cellName(4, r), row.CounterID)
		_ = f.SetCellValue(sheet, cellName(5, r), row.Type)
		_ = f.SetCellValue(sheet, cellName(6, r), row.Unit)
		if row.Granularity == readings.GranularityYear {
			_ = f.SetCellValue(sheet, cellName(7, r), row.PeriodStart.Year())
		} else {
			_ = f.SetCellValue(sheet, cellName(7, r), row.PeriodLabel)
		}
		if row.Taken.Valid {
			_ = f.SetCellValue(sheet, cellName(8, r), row.Taken.Time)
		}
		setFloat(f, sheet, cellName(9, r), row.Value)
		setFloat(f, sheet, cellName(10, r), row.PrevValue)
		setDate(f, sheet, cellName(11, r), row.PrevDate)
		setFloat(f, sheet, cellName(12, r), row.Delta)
		setFloat(f, sheet, cellName(13, r), row.DeltaPerDay)
		setInt(f, sheet, cellName(14, r), row.Days)
		_ = f.SetCellValue(sheet, cellName(15, r), row.Reset)
		_ = f.SetCellValue(sheet, cellName(16, r), row.Remark)
		_ = f.SetCellValue(sheet, cellName(17, r), row.CreatedAt.Format("2006-01-02T15:04:05"))
	}

	if len(rows) == 0 {
		return
	}
	stripes := true
	_ = f.AddTable(sheet, &excelize.Table{
		Range:          "A1:" + cellName(len(columns), 1+len(rows)),
		Name:           table,
		StyleName:      style,
		ShowRowStripes: &stripes,
	})
}

func writeConsumptionSheet(f *excelize.File, sheet string, rows []readings.ConsumptionRow) {
	for i, name := range consumptionColumns {
		_ = f.SetCellValue(sheet, cellName(i+1, 1), name)
	}
	for i, row := range rows {
		writeConsumptionRow(f, sheet, row, i+2, 0)
	}
}

// writeAllMetersSheet prefixes every consumption row with its folder.
func writeAllMetersSheet(f *excelize.File, sheet string, folders []FolderConsumption) {
	_ = f.SetCellValue(sheet, "A1", "folder")
	for i, name := range consumptionColumns {
		_ = f.SetCellValue(sheet, cellName(i+2, 1), name)
	}
	r := 2
	for _, fc := range folders {
		for _, row := range fc.Rows {
			_ = f.SetCellValue(sheet, cellName(1, r), fc.Folder)
			writeConsumptionRow(f, sheet, row, r, 1)
			r++
		}
	}
}

func writeConsumptionRow(f *excelize.File, sheet string, row readings.ConsumptionRow, r, offset int) {
	_ = f.SetCellValue(sheet, cellName(offset+1, r), row.MeterID)
	_ = f.SetCellValue(sheet, cellName(offset+2, r), row.MeterName)
	_ = f.SetCellValue(sheet, cellName(offset+3, r), row.Unit)
	_ = f.SetCellValue(sheet, cellName(offset+4, r), row.Date)
	setFloat(f, sheet, cellName(offset+5, r), row.Reading)
	setInt(f, sheet, cellName(offset+6, r), row.Days)
	setFloat(f, sheet, cellName(offset+7, r), row.Consumption)
	setFloat(f, sheet, cellName(offset+8, r), row.DailyRate)
	setFloat(f, sheet, cellName(offset+9, r), row.Annualized)
	_ = f.SetCellValue(sheet, cellName(offset+10, r), row.Source)
	setDate(f, sheet, cellName(offset+11, r), row.PrevDate)
	setFloat(f, sheet, cellName(offset+12, r), row.PrevReading)
}

func setFloat(f *excelize.File, sheet, cell string, v *float64) {
	if v != nil {
		_ = f.SetCellValue(sheet, cell, *v)
	}
}

func setInt(f *excelize.File, sheet, cell string, v *int) {
	if v != nil {
		_ = f.SetCellValue(sheet, cell, *v)
	}
}

func setDate(f *excelize.File, sheet, cell string, v *time.Time) {
	if v != nil {
		_ = f.SetCellValue(sheet, cell, *v)
	}
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
