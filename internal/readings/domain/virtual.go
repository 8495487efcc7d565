package readings

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// VirtualMapping is the explicit composition state derived from a
// document's meters. It is passed to every function that needs the
// virtual/physical relationship instead of living in package state.
type VirtualMapping struct {
	compositions map[string]Composition
	parents      map[string]string
}

// BuildVirtualMapping derives both relationship views from the loaded
// meters. A physical constituent belongs to at most one virtual meter:
// the first virtual meter referencing it claims it, later claims are
// ignored.
func BuildVirtualMapping(meters []Meter) VirtualMapping {
	m := VirtualMapping{
		compositions: make(map[string]Composition),
		parents:      make(map[string]string),
	}
	for _, meter := range meters {
		if meter.Key == "" || !meter.IsVirtual() {
			continue
		}
		if _, exists := m.compositions[meter.Key]; exists {
			continue
		}
		comp := *meter.Composition
		m.compositions[meter.Key] = comp
		for _, child := range comp.Children() {
			if child == "" {
				continue
			}
			if _, claimed := m.parents[child]; claimed {
				continue
			}
			m.parents[child] = meter.Key
		}
	}
	return m
}

// IsVirtualKey reports whether the key belongs to a composed meter.
func (m VirtualMapping) IsVirtualKey(key string) bool {
	_, ok := m.compositions[key]
	return ok
}

// CompositionOf returns the composition of a virtual meter.
func (m VirtualMapping) CompositionOf(key string) (Composition, bool) {
	c, ok := m.compositions[key]
	return c, ok
}

// ParentOf returns the virtual meter that claimed a physical
// constituent.
func (m VirtualMapping) ParentOf(key string) (string, bool) {
	p, ok := m.parents[key]
	return p, ok
}

// ValueSeries holds one meter's parsed observations collapsed to
// calendar days. When a day has several observations the latest one
// wins.
type ValueSeries struct {
	days   []time.Time
	values map[time.Time]float64
}

// BuildValueSeries indexes parsed readings by meter key for
// at-or-before lookups. Readings without a parsed value or date are
// left out.
func BuildValueSeries(rows []Reading) map[string]*ValueSeries {
	sorted := make([]Reading, 0, len(rows))
	for _, row := range rows {
		if row.Value == nil || !row.Taken.Valid {
			continue
		}
		sorted = append(sorted, row)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Taken.Time.Before(sorted[j].Taken.Time)
	})

	series := make(map[string]*ValueSeries)
	for _, row := range sorted {
		s := series[row.MeterKey]
		if s == nil {
			s = &ValueSeries{values: make(map[time.Time]float64)}
			series[row.MeterKey] = s
		}
		day := truncateToDay(row.Taken.Time)
		if _, seen := s.values[day]; !seen {
			s.days = append(s.days, day)
		}
		s.values[day] = *row.Value
	}
	return series
}

// ValueAt returns the latest value observed at or before the given
// day.
func (s *ValueSeries) ValueAt(day time.Time) (float64, bool) {
	if s == nil || len(s.days) == 0 {
		return 0, false
	}
	day = truncateToDay(day)
	idx := sort.Search(len(s.days), func(i int) bool { return s.days[i].After(day) })
	if idx == 0 {
		return 0, false
	}
	return s.values[s.days[idx-1]], true
}

// Days returns the observation days in chronological order.
func (s *ValueSeries) Days() []time.Time {
	if s == nil {
		return nil
	}
	return s.days
}

// VirtualValueAt combines constituent values for a composition at a
// day. Without a master value at or before the day there is no
// result; added and subtracted constituents without values count as
// zero.
func VirtualValueAt(comp Composition, series map[string]*ValueSeries, day time.Time) (float64, bool) {
	base, ok := series[comp.MasterKey].ValueAt(day)
	if !ok {
		return 0, false
	}

	total := base
	for _, key := range comp.AddKeys {
		if v, ok := series[key].ValueAt(day); ok {
			total += v
		}
	}
	for _, key := range comp.SubtractKeys {
		if v, ok := series[key].ValueAt(day); ok {
			total -= v
		}
	}
	return total, true
}

// SynthesizeVirtualReadings emits readings for every virtual meter at
// the union of its constituents' observation days. Days before the
// master's first observation are skipped, as are virtual meters whose
// master is not part of the document.
func SynthesizeVirtualReadings(meters []Meter, rows []Reading, roomNames map[string]string) []Reading {
	series := BuildValueSeries(rows)
	byKey := make(map[string]Meter, len(meters))
	for _, meter := range meters {
		byKey[meter.Key] = meter
	}

	var result []Reading
	for _, meter := range meters {
		if !meter.IsVirtual() || meter.Composition.MasterKey == "" {
			continue
		}
		comp := *meter.Composition
		master, ok := byKey[comp.MasterKey]
		if !ok {
			continue
		}

		unit := meter.Unit
		if unit == "" {
			unit = master.Unit
		}
		if unit == "" {
			unit = InferUnit(master.Name)
		}
		room := roomNames[meter.RoomID]
		if room == "" {
			room = meter.Name
		}
		obj := namePrefix(room)

		for _, day := range constituentDays(comp, series) {
			value, ok := VirtualValueAt(comp, series, day)
			if !ok {
				continue
			}
			v := value
			result = append(result, Reading{
				MeterKey:  meter.Key,
				CounterID: meter.CounterID,
				Name:      meter.Name,
				Object:    obj,
				Room:      room,
				RoomID:    meter.RoomID,
				Kind:      KindVirtual,
				Type:      string(KindVirtual),
				Unit:      unit,
				Taken:     ParseReadingDate(day.Format("2006-01-02")),
				RawValue:  strconv.FormatFloat(value, 'f', -1, 64),
				Value:     &v,
			})
		}
	}
	return result
}

// InferUnit guesses the measurement unit from a meter name when the
// source document leaves it empty.
func InferUnit(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "wasser"), strings.Contains(lower, "water"):
		return "m3"
	case strings.Contains(lower, "strom"), strings.Contains(lower, "electric"):
		return "kwh"
	case strings.Contains(lower, "wärme"), strings.Contains(lower, "waerme"), strings.Contains(lower, "heat"):
		return "kwh"
	default:
		return "unknown"
	}
}

func constituentDays(comp Composition, series map[string]*ValueSeries) []time.Time {
	seen := make(map[time.Time]bool)
	var days []time.Time
	collect := func(key string) {
		for _, day := range series[key].Days() {
			if seen[day] {
				continue
			}
			seen[day] = true
			days = append(days, day)
		}
	}
	collect(comp.MasterKey)
	for _, key := range comp.AddKeys {
		collect(key)
	}
	for _, key := range comp.SubtractKeys {
		collect(key)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}

func namePrefix(name string) string {
	for _, delim := range []string{".", "-"} {
		if idx := strings.Index(name, delim); idx >= 0 {
			return name[:idx]
		}
	}
	return name
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
