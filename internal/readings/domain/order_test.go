package readings

import (
	"fmt"
	"sort"
	"testing"
)

func TestBuildSortKeysVirtualGroupLeads(t *testing.T) {
	mapping := BuildVirtualMapping([]Meter{
		virtualMeter("v", Composition{MasterKey: "m", AddKeys: []string{"a"}, SubtractKeys: []string{"b"}}),
	})
	labels := []MeterLabel{
		{Key: "z", Name: "Strom Keller"},
		{Key: "a", Name: "Wasser Bad"},
		{Key: "b", Name: "Wasser Garten"},
		{Key: "v", Name: "Wasser gesamt"},
	}

	keys := BuildSortKeys(labels, mapping)
	order := []string{"z", "v", "a", "b"}
	for i := 1; i < len(order); i++ {
		prev, cur := keys[order[i-1]], keys[order[i]]
		if prev >= cur {
			t.Fatalf("expected %s before %s, got keys %q >= %q", order[i-1], order[i], prev, cur)
		}
	}
	if keys["v"] != "0002.0.0000" {
		t.Fatalf("expected the virtual group after Strom Keller, got %q", keys["v"])
	}
	if keys["a"] != "0002.0.0001" || keys["b"] != "0002.0.0002" {
		t.Fatalf("expected children in declaration order, got %q/%q", keys["a"], keys["b"])
	}
	if keys["z"] != "0001.0.0000" {
		t.Fatalf("expected Strom Keller as first group, got %q", keys["z"])
	}
}

func TestBuildSortKeysGroupOrderFollowsNames(t *testing.T) {
	mapping := BuildVirtualMapping([]Meter{
		virtualMeter("v", Composition{MasterKey: "m", AddKeys: []string{"a"}}),
	})
	labels := []MeterLabel{
		{Key: "v", Name: "Alles Wasser"},
		{Key: "a", Name: "Wasser Bad"},
		{Key: "z", Name: "Zirkulation"},
	}

	keys := BuildSortKeys(labels, mapping)
	if keys["v"] != "0001.0.0000" {
		t.Fatalf("expected the virtual group first when its name sorts first, got %q", keys["v"])
	}
	if keys["a"] != "0001.0.0001" {
		t.Fatalf("expected the constituent inside the virtual group, got %q", keys["a"])
	}
	if keys["z"] != "0002.0.0000" {
		t.Fatalf("expected Zirkulation as its own later group, got %q", keys["z"])
	}
}

func TestBuildSortKeysPadsBeyondTenGroups(t *testing.T) {
	var labels []MeterLabel
	for i := 0; i < 12; i++ {
		name := fmt.Sprintf("Meter %c", 'A'+i)
		labels = append(labels, MeterLabel{Key: name, Name: name})
	}

	keys := BuildSortKeys(labels, BuildVirtualMapping(nil))
	sorted := make([]string, 0, len(labels))
	for _, l := range labels {
		sorted = append(sorted, keys[l.Key])
	}
	if !sort.StringsAreSorted(sorted) {
		t.Fatalf("expected string order to hold past ten groups, got %v", sorted)
	}
	if keys["Meter J"] != "0010.0.0000" {
		t.Fatalf("expected zero-padded tenth group, got %q", keys["Meter J"])
	}
}

func TestBuildSortKeysIgnoresAbsentConstituents(t *testing.T) {
	mapping := BuildVirtualMapping([]Meter{
		virtualMeter("v", Composition{MasterKey: "m", AddKeys: []string{"ghost", "a"}}),
	})
	labels := []MeterLabel{
		{Key: "v", Name: "Gesamt"},
		{Key: "a", Name: "Wasser"},
	}

	keys := BuildSortKeys(labels, mapping)
	if _, ok := keys["ghost"]; ok {
		t.Fatalf("expected no key for a constituent missing from the table")
	}
	if keys["a"] <= keys["v"] {
		t.Fatalf("expected the present constituent after its group leader")
	}
}

func TestBuildSortKeysConstituentOfAbsentVirtual(t *testing.T) {
	mapping := BuildVirtualMapping([]Meter{
		virtualMeter("v", Composition{MasterKey: "m", AddKeys: []string{"a"}}),
	})
	labels := []MeterLabel{
		{Key: "a", Name: "Wasser Bad"},
		{Key: "z", Name: "Zirkulation"},
	}

	keys := BuildSortKeys(labels, mapping)
	if keys["a"] != "0001.0.0000" {
		t.Fatalf("expected orphaned constituent to lead its own group, got %q", keys["a"])
	}
	if keys["z"] != "0002.0.0000" {
		t.Fatalf("expected Zirkulation as second group, got %q", keys["z"])
	}
}

func TestSortRowsKeepsChronologyWithinMeter(t *testing.T) {
	rows := []AnnotatedReading{
		{Reading: testReading("b", "2023-01-01", floatPtr(1))},
		{Reading: testReading("b", "2023-02-01", floatPtr(2))},
		{Reading: testReading("a", "2023-01-01", floatPtr(3))},
		{Reading: testReading("a", "2023-02-01", floatPtr(4))},
	}
	keys := BuildSortKeys(Labels(rows), BuildVirtualMapping(nil))
	SortRows(rows, keys)

	want := []float64{3, 4, 1, 2}
	for i, w := range want {
		if *rows[i].Value != w {
			t.Fatalf("expected value %v at index %d, got %v", w, i, *rows[i].Value)
		}
	}
}
