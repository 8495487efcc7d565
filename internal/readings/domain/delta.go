package readings

import (
	"sort"
	"time"
)

// Clock provides time for domain services.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

// Now returns current time.
func (SystemClock) Now() time.Time { return time.Now() }

// deltaState is the reference the engine carries from one reading of a
// meter to the next. It advances to the current reading after every
// step, including resets and missing values.
type deltaState struct {
	hasPrior  bool
	value     *float64
	date      time.Time
	dateValid bool
}

// AnnotateSeries runs the delta engine over one meter's chronological
// readings. State never leaks across invocations: the raw, yearly and
// monthly passes each start fresh.
//
// Per reading:
//   - first reading: previous fields, delta and rate stay nil, no reset
//   - either value missing: the same, the reference still advances
//   - value below the reference: reset, delta is the current value,
//     previous fields stay nil
//   - otherwise: delta is current minus previous, previous fields and
//     elapsed days are emitted, the per-day rate when days are positive
func AnnotateSeries(series []Reading, createdAt time.Time) []AnnotatedReading {
	rows := make([]AnnotatedReading, 0, len(series))
	var state deltaState

	for _, reading := range series {
		row := AnnotatedReading{Reading: reading, CreatedAt: createdAt}
		if state.hasPrior {
			applyDelta(&row, state)
		}
		state = deltaState{
			hasPrior:  true,
			value:     reading.Value,
			date:      reading.Taken.Time,
			dateValid: reading.Taken.Valid,
		}
		rows = append(rows, row)
	}
	return rows
}

func applyDelta(row *AnnotatedReading, state deltaState) {
	current := row.Value
	previous := state.value

	switch {
	case current == nil || previous == nil:
	case *current < *previous:
		row.Reset = true
		delta := *current
		row.Delta = &delta
	default:
		delta := *current - *previous
		row.Delta = &delta
		prevValue := *previous
		row.PrevValue = &prevValue
		if state.dateValid && row.Taken.Valid {
			prevDate := state.date
			row.PrevDate = &prevDate
			days := daysBetween(state.date, row.Taken.Time)
			row.Days = &days
			if days > 0 {
				rate := delta / float64(days)
				row.DeltaPerDay = &rate
			}
		}
	}
}

// AnnotateAll groups readings by meter key, orders every sequence
// chronologically and runs the delta engine per meter. Readings whose
// date did not parse skip the engine and pass through untouched at the
// end of their meter's block.
func AnnotateAll(rows []Reading, createdAt time.Time) []AnnotatedReading {
	byMeter := make(map[string][]Reading)
	var order []string
	for _, row := range rows {
		if _, seen := byMeter[row.MeterKey]; !seen {
			order = append(order, row.MeterKey)
		}
		byMeter[row.MeterKey] = append(byMeter[row.MeterKey], row)
	}

	result := make([]AnnotatedReading, 0, len(rows))
	for _, key := range order {
		var dated, undated []Reading
		for _, r := range byMeter[key] {
			if r.Taken.Valid {
				dated = append(dated, r)
			} else {
				undated = append(undated, r)
			}
		}
		sort.SliceStable(dated, func(i, j int) bool {
			return dated[i].Taken.Time.Before(dated[j].Taken.Time)
		})

		result = append(result, AnnotateSeries(dated, createdAt)...)
		for _, r := range undated {
			result = append(result, AnnotatedReading{Reading: r, CreatedAt: createdAt})
		}
	}
	return result
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
