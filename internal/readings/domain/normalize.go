package readings

import "strings"

// VolumetricRemark marks rows whose values were rescaled from liters
// to cubic meters. Its presence guards against a second division.
const VolumetricRemark = "Wasser geteilt durch 1000; "

var volumetricUnits = map[string]bool{
	"qbm": true,
	"m3":  true,
	"m³":  true,
	"m^3": true,
}

// IsVolumetricUnit reports whether a counter unit denotes cubic
// meters, in any of the spellings the source systems use.
func IsVolumetricUnit(unit string) bool {
	return volumetricUnits[strings.ToLower(unit)]
}

// NormalizeVolumetric rescales liter-based water readings to cubic
// meters. Value, PrevValue and Delta are divided by 1000 and the rate
// is re-derived from the rescaled delta. Rows already carrying the
// remark are left untouched, so the pass is safe to repeat.
func NormalizeVolumetric(rows []AnnotatedReading) {
	for i := range rows {
		normalizeRow(&rows[i])
	}
}

// NormalizeVolumetricSnapshots applies the liter-to-cubic-meter
// rescale to a snapshot table.
func NormalizeVolumetricSnapshots(rows []SnapshotRow) {
	for i := range rows {
		normalizeRow(&rows[i].AnnotatedReading)
	}
}

// NormalizeVolumetricConsumption rescales liter-based rows of the
// consumption series to cubic meters. The series carries no remark
// column; it is built fresh per run and rescaled exactly once before
// writing.
func NormalizeVolumetricConsumption(rows []ConsumptionRow) {
	for i := range rows {
		row := &rows[i]
		if !IsVolumetricUnit(row.Unit) {
			continue
		}
		row.Reading = scaleDown(row.Reading)
		row.PrevReading = scaleDown(row.PrevReading)
		row.Consumption = scaleDown(row.Consumption)
		row.DailyRate = scaleDown(row.DailyRate)
		row.Annualized = nil
		if row.DailyRate != nil {
			annualized := *row.DailyRate * 365
			row.Annualized = &annualized
		}
	}
}

func normalizeRow(row *AnnotatedReading) {
	if !IsVolumetricUnit(row.Unit) {
		return
	}
	if strings.Contains(row.Remark, VolumetricRemark) {
		return
	}
	row.Value = scaleDown(row.Value)
	row.PrevValue = scaleDown(row.PrevValue)
	row.Delta = scaleDown(row.Delta)
	row.DeltaPerDay = nil
	if row.Delta != nil && row.Days != nil && *row.Days > 0 {
		rate := *row.Delta / float64(*row.Days)
		row.DeltaPerDay = &rate
	}
	row.Remark += VolumetricRemark
}

func scaleDown(v *float64) *float64 {
	if v == nil {
		return nil
	}
	scaled := *v / 1000
	return &scaled
}
