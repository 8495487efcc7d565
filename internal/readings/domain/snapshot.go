package readings

import (
	"sort"
	"time"
)

// Look-ahead windows for periods that end without a reading, counted
// in days from the start of the following period.
const (
	yearLookaheadDays  = 15
	monthLookaheadDays = 10
)

// BuildSnapshots derives one representative reading per meter and
// calendar period, then re-runs the delta engine over each meter's
// snapshot sequence. The representative is the chronologically last
// reading within or before the period; a period without one borrows
// the first reading inside the look-ahead window, or is skipped.
//
// Input rows must carry unscaled values; volumetric normalization is a
// separate, final step per output table.
func BuildSnapshots(rows []Reading, g Granularity, createdAt time.Time) ([]SnapshotRow, error) {
	if !g.IsValid() {
		return nil, ErrInvalidGranularity
	}

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

	var result []SnapshotRow
	for _, key := range order {
		series := byMeter[key]
		sort.SliceStable(series, func(i, j int) bool {
			return series[i].Taken.Time.Before(series[j].Taken.Time)
		})

		var picks []Reading
		var periods []time.Time
		for _, periodStart := range periodRange(series, g) {
			pick, ok := representative(series, periodStart, g)
			if !ok {
				continue
			}
			picks = append(picks, pick)
			periods = append(periods, periodStart)
		}

		for i, row := range AnnotateSeries(picks, createdAt) {
			label, err := PeriodLabel(g, periods[i])
			if err != nil {
				return nil, err
			}
			result = append(result, SnapshotRow{
				AnnotatedReading: row,
				Granularity:      g,
				PeriodStart:      periods[i],
				PeriodLabel:      label,
			})
		}
	}
	return result, nil
}

// periodRange lists every period start between a meter's first and
// last reading, inclusive. Quiet periods in between stay in the range;
// the representative lookup carries the last reading forward.
func periodRange(series []Reading, g Granularity) []time.Time {
	if len(series) == 0 {
		return nil
	}
	first := series[0].Taken.Time
	last := series[len(series)-1].Taken.Time

	var starts []time.Time
	switch g {
	case GranularityYear:
		for y := first.Year(); y <= last.Year(); y++ {
			starts = append(starts, time.Date(y, time.January, 1, 0, 0, 0, 0, first.Location()))
		}
	case GranularityMonth:
		cursor := time.Date(first.Year(), first.Month(), 1, 0, 0, 0, 0, first.Location())
		end := time.Date(last.Year(), last.Month(), 1, 0, 0, 0, 0, last.Location())
		for !cursor.After(end) {
			starts = append(starts, cursor)
			cursor = cursor.AddDate(0, 1, 0)
		}
	}
	return starts
}

func representative(series []Reading, periodStart time.Time, g Granularity) (Reading, bool) {
	var next time.Time
	var lookahead int
	switch g {
	case GranularityYear:
		next = periodStart.AddDate(1, 0, 0)
		lookahead = yearLookaheadDays
	case GranularityMonth:
		next = periodStart.AddDate(0, 1, 0)
		lookahead = monthLookaheadDays
	default:
		return Reading{}, false
	}

	for i := len(series) - 1; i >= 0; i-- {
		if series[i].Taken.Time.Before(next) {
			return series[i], true
		}
	}

	limit := next.AddDate(0, 0, lookahead)
	for _, r := range series {
		if !r.Taken.Time.Before(next) && r.Taken.Time.Before(limit) {
			return r, true
		}
	}
	return Reading{}, false
}
