package readings

import (
	"sort"
	"time"
)

// Source tags distinguishing measured rows from estimated
// year-boundary rows in the consumption series.
const (
	SourceMeasured  = "gemessen"
	SourceEstimated = "ermittelt"
)

// ConsumptionRow is one line of the consumption series: a measured
// reading with the consumption since the previous one, or an estimated
// reading at a calendar year boundary.
type ConsumptionRow struct {
	MeterKey  string
	MeterID   string
	MeterName string
	Unit      string
	Date      time.Time

	Reading     *float64
	PrevDate    *time.Time
	PrevReading *float64
	Days        *int
	Consumption *float64
	DailyRate   *float64
	Annualized  *float64
	Source      string
}

// BuildConsumptionSeries derives the consumption table from parsed
// readings. Per meter it emits one measured row per dated reading with
// the plain difference to the preceding one, then estimated rows for
// January 1 and December 31 of every year the document covers,
// interpolated or extrapolated from the surrounding readings.
// Estimated rows sort before measured ones on the same date.
//
// Unlike the delta engine this series keeps negative differences: a
// meter swap shows up as negative consumption here and as a reset in
// the reading tables.
func BuildConsumptionSeries(rows []Reading) []ConsumptionRow {
	byMeter := make(map[string][]Reading)
	var order []string
	for _, row := range rows {
		if !row.Taken.Valid {
			continue
		}
		if _, seen := byMeter[row.MeterKey]; !seen {
			order = append(order, row.MeterKey)
		}
		byMeter[row.MeterKey] = append(byMeter[row.MeterKey], row)
	}

	yearMin, yearMax, haveYears := coveredYears(byMeter)

	var result []ConsumptionRow
	for _, key := range order {
		series := byMeter[key]
		sort.SliceStable(series, func(i, j int) bool {
			return series[i].Taken.Time.Before(series[j].Taken.Time)
		})

		measured := measuredConsumption(series)
		result = append(result, measured...)
		if haveYears {
			result = append(result, boundaryEstimates(measured, yearMin, yearMax)...)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.MeterID != b.MeterID {
			return a.MeterID < b.MeterID
		}
		if a.MeterKey != b.MeterKey {
			return a.MeterKey < b.MeterKey
		}
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.Source < b.Source
	})
	return result
}

func measuredConsumption(series []Reading) []ConsumptionRow {
	rows := make([]ConsumptionRow, 0, len(series))
	for i, r := range series {
		row := ConsumptionRow{
			MeterKey:  r.MeterKey,
			MeterID:   displayMeterID(r),
			MeterName: r.Name,
			Unit:      r.Unit,
			Date:      r.Taken.Time,
			Reading:   r.Value,
			Source:    SourceMeasured,
		}
		if i > 0 {
			prev := series[i-1]
			prevDate := prev.Taken.Time
			row.PrevDate = &prevDate
			row.PrevReading = prev.Value
			days := daysBetween(prevDate, r.Taken.Time)
			row.Days = &days
			if r.Value != nil && prev.Value != nil {
				consumption := *r.Value - *prev.Value
				row.Consumption = &consumption
				if days > 0 {
					rate := consumption / float64(days)
					row.DailyRate = &rate
					annualized := rate * 365
					row.Annualized = &annualized
				}
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// boundaryEstimates emits estimated readings for January 1 and
// December 31 of every covered year. Rows without a parsed value
// cannot anchor an estimate and are skipped.
func boundaryEstimates(measured []ConsumptionRow, yearMin, yearMax int) []ConsumptionRow {
	anchors := make([]ConsumptionRow, 0, len(measured))
	for _, row := range measured {
		if row.Reading != nil {
			anchors = append(anchors, row)
		}
	}
	if len(anchors) == 0 {
		return nil
	}

	first := measured[0]
	loc := first.Date.Location()
	var result []ConsumptionRow
	for y := yearMin; y <= yearMax; y++ {
		targets := []time.Time{
			time.Date(y, time.January, 1, 0, 0, 0, 0, loc),
			time.Date(y, time.December, 31, 0, 0, 0, 0, loc),
		}
		for _, target := range targets {
			reading, rate, ok := estimateAt(anchors, target)
			if !ok {
				continue
			}
			r := reading
			dr := rate
			annualized := rate * 365
			result = append(result, ConsumptionRow{
				MeterKey:   first.MeterKey,
				MeterID:    first.MeterID,
				MeterName:  first.MeterName,
				Unit:       first.Unit,
				Date:       target,
				Reading:    &r,
				DailyRate:  &dr,
				Annualized: &annualized,
				Source:     SourceEstimated,
			})
		}
	}
	return result
}

// estimateAt derives a reading for an arbitrary date from the
// surrounding anchors: the exact value when one exists, a linear
// interpolation between the neighbouring readings, or an extrapolation
// along the nearest anchor's rate.
func estimateAt(anchors []ConsumptionRow, target time.Time) (float64, float64, bool) {
	for _, a := range anchors {
		if a.Date.Equal(target) {
			return *a.Reading, rateOrZero(a.DailyRate), true
		}
	}

	var before, after *ConsumptionRow
	for i := range anchors {
		if anchors[i].Date.Before(target) {
			before = &anchors[i]
		} else if after == nil {
			after = &anchors[i]
		}
	}

	if before != nil && after != nil {
		totalDays := daysBetween(before.Date, after.Date)
		if totalDays > 0 {
			frac := float64(daysBetween(before.Date, target)) / float64(totalDays)
			reading := *before.Reading + frac*(*after.Reading-*before.Reading)
			rate := (*after.Reading - *before.Reading) / float64(totalDays)
			if after.DailyRate != nil {
				rate = *after.DailyRate
			}
			return reading, rate, true
		}
	}
	if before != nil {
		rate := rateOrZero(before.DailyRate)
		return *before.Reading + rate*float64(daysBetween(before.Date, target)), rate, true
	}
	if after != nil {
		rate := rateOrZero(after.DailyRate)
		return *after.Reading - rate*float64(daysBetween(target, after.Date)), rate, true
	}
	return 0, 0, false
}

func coveredYears(byMeter map[string][]Reading) (int, int, bool) {
	found := false
	var yearMin, yearMax int
	for _, series := range byMeter {
		for _, r := range series {
			y := r.Taken.Time.Year()
			if !found {
				yearMin, yearMax = y, y
				found = true
				continue
			}
			if y < yearMin {
				yearMin = y
			}
			if y > yearMax {
				yearMax = y
			}
		}
	}
	return yearMin, yearMax, found
}

func displayMeterID(r Reading) string {
	if r.CounterID != "" {
		return r.CounterID
	}
	return r.MeterKey
}

func rateOrZero(rate *float64) float64 {
	if rate == nil {
		return 0
	}
	return *rate
}
