package readings

import (
	"fmt"
	"sort"
)

// MeterLabel pairs a stable meter key with its display name for
// ordering.
type MeterLabel struct {
	Key  string
	Name string
}

// Labels collects the distinct meters of a table in first-seen order.
func Labels(rows []AnnotatedReading) []MeterLabel {
	seen := make(map[string]bool, len(rows))
	var labels []MeterLabel
	for _, row := range rows {
		if seen[row.MeterKey] {
			continue
		}
		seen[row.MeterKey] = true
		labels = append(labels, MeterLabel{Key: row.MeterKey, Name: row.Name})
	}
	return labels
}

// SnapshotLabels collects the distinct meters of a snapshot table.
func SnapshotLabels(rows []SnapshotRow) []MeterLabel {
	seen := make(map[string]bool, len(rows))
	var labels []MeterLabel
	for _, row := range rows {
		if seen[row.MeterKey] {
			continue
		}
		seen[row.MeterKey] = true
		labels = append(labels, MeterLabel{Key: row.MeterKey, Name: row.Name})
	}
	return labels
}

// BuildSortKeys computes the hierarchical report order for the meters
// of one table. A virtual meter heads its group, its constituents
// follow in declaration order, and unrelated meters form single-meter
// groups. Group leaders are ordered alphabetically by display name.
// Keys are zero-padded dotted ordinals so plain string comparison
// yields the intended total order.
func BuildSortKeys(labels []MeterLabel, mapping VirtualMapping) map[string]string {
	present := make(map[string]bool, len(labels))
	for _, l := range labels {
		present[l.Key] = true
	}

	leaders := make([]MeterLabel, 0, len(labels))
	for _, l := range labels {
		if parent, ok := mapping.ParentOf(l.Key); ok && present[parent] {
			continue
		}
		leaders = append(leaders, l)
	}
	sort.Slice(leaders, func(i, j int) bool {
		if leaders[i].Name != leaders[j].Name {
			return leaders[i].Name < leaders[j].Name
		}
		return leaders[i].Key < leaders[j].Key
	})

	keys := make(map[string]string, len(labels))
	for i, leader := range leaders {
		keys[leader.Key] = sortKey(i+1, 0)
		comp, ok := mapping.CompositionOf(leader.Key)
		if !ok {
			continue
		}
		for j, child := range comp.Children() {
			parent, claimed := mapping.ParentOf(child)
			if !claimed || parent != leader.Key || !present[child] {
				continue
			}
			keys[child] = sortKey(i+1, j+1)
		}
	}
	return keys
}

// SortRows orders annotated rows by their meters' sort keys, keeping
// the chronological order within each meter.
func SortRows(rows []AnnotatedReading, keys map[string]string) {
	sort.SliceStable(rows, func(i, j int) bool {
		return keys[rows[i].MeterKey] < keys[rows[j].MeterKey]
	})
}

// SortSnapshotRows orders snapshot rows by their meters' sort keys,
// keeping the period order within each meter.
func SortSnapshotRows(rows []SnapshotRow, keys map[string]string) {
	sort.SliceStable(rows, func(i, j int) bool {
		return keys[rows[i].MeterKey] < keys[rows[j].MeterKey]
	})
}

func sortKey(group, member int) string {
	return fmt.Sprintf("%04d.0.%04d", group, member)
}
