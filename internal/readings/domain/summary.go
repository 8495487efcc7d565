package readings

import (
	"sort"
	"strings"
)

// Utility kinds recognized in counter names and types.
const (
	UtilityWater = "wasser"
	UtilityHeat  = "wärme"
	UtilityPower = "strom"
)

// SummaryRow is one month of the cross-utility overview: the highest
// reading per utility kind and the housing unit the readings belong
// to.
type SummaryRow struct {
	Month string
	Water *float64
	Heat  *float64
	Power *float64
	Unit  string
}

// UtilityOf detects the utility kind from counter type and name.
// German and English keywords both match; unknown meters yield "".
func UtilityOf(counterType, counterName string) string {
	text := strings.ToLower(counterType + " " + counterName)
	switch {
	case strings.Contains(text, "wasser"), strings.Contains(text, "water"):
		return UtilityWater
	case strings.Contains(text, "wärme"), strings.Contains(text, "waerme"), strings.Contains(text, "heat"):
		return UtilityHeat
	case strings.Contains(text, "strom"), strings.Contains(text, "electric"):
		return UtilityPower
	default:
		return ""
	}
}

// HousingUnitOf extracts the housing unit prefix from a counter name,
// the first two dot-separated segments of names like
// "DBMP.EG.Wasser-Küche".
func HousingUnitOf(counterName string) string {
	parts := strings.Split(counterName, ".")
	if len(parts) >= 2 {
		return parts[0] + "." + parts[1]
	}
	return parts[0]
}

// BuildMonthlySummary pivots the monthly snapshot table into one row
// per observed month with the maximum reading per utility kind. The
// month comes from the reading's actual date, not the period label,
// and the housing unit from the month's first row in table order.
// Meters of unrecognized kind still claim the unit but fill no value
// column.
func BuildMonthlySummary(rows []SnapshotRow) []SummaryRow {
	byMonth := make(map[string]*SummaryRow)
	var months []string

	for _, row := range rows {
		if !row.Taken.Valid {
			continue
		}
		month := row.Taken.Time.Format("2006.01")
		cell := byMonth[month]
		if cell == nil {
			cell = &SummaryRow{Month: month, Unit: HousingUnitOf(row.Name)}
			byMonth[month] = cell
			months = append(months, month)
		}
		if row.Value == nil {
			continue
		}
		switch UtilityOf(row.Type, row.Name) {
		case UtilityWater:
			cell.Water = maxOf(cell.Water, *row.Value)
		case UtilityHeat:
			cell.Heat = maxOf(cell.Heat, *row.Value)
		case UtilityPower:
			cell.Power = maxOf(cell.Power, *row.Value)
		}
	}

	sort.Strings(months)
	result := make([]SummaryRow, 0, len(months))
	for _, m := range months {
		result = append(result, *byMonth[m])
	}
	return result
}

func maxOf(current *float64, v float64) *float64 {
	if current == nil || v > *current {
		return &v
	}
	return current
}
