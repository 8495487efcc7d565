package readings

import "testing"

func TestParseReadingDateVariants(t *testing.T) {
	cases := []struct {
		raw       string
		display   string
		year      string
		yearMonth string
		iso       string
	}{
		{"2023-06-15T10:30:00", "15.06.2023 10:30", "2023", "2023-06", "2023-06-15"},
		{"2023-06-15T10:30:00Z", "15.06.2023 10:30", "2023", "2023-06", "2023-06-15"},
		{"2023-06-15T10:30", "15.06.2023 10:30", "2023", "2023-06", "2023-06-15"},
		{"2023-06-15 10:30:00", "15.06.2023 10:30", "2023", "2023-06", "2023-06-15"},
		{"2023-06-15", "15.06.2023", "2023", "2023-06", "2023-06-15"},
		{"2024-03-05T00:00:00", "05.03.2024", "2024", "2024-03", "2024-03-05"},
		{"2024-03-05T14:30:00", "05.03.2024 14:30", "2024", "2024-03", "2024-03-05"},
		{"2024-03-05T00:30:00", "05.03.2024 00:30", "2024", "2024-03", "2024-03-05"},
	}
	for _, tc := range cases {
		got := ParseReadingDate(tc.raw)
		if !got.Valid {
			t.Fatalf("expected %q to parse", tc.raw)
		}
		if got.Display != tc.display {
			t.Fatalf("expected display %q for %q, got %q", tc.display, tc.raw, got.Display)
		}
		if got.Year != tc.year || got.YearMonth != tc.yearMonth || got.ISO != tc.iso {
			t.Fatalf("expected %s/%s/%s for %q, got %s/%s/%s",
				tc.year, tc.yearMonth, tc.iso, tc.raw, got.Year, got.YearMonth, got.ISO)
		}
	}
}

func TestParseReadingDateKeepsOriginalOnFailure(t *testing.T) {
	got := ParseReadingDate("15.06.2023")
	if got.Valid {
		t.Fatalf("expected day-first input to stay unparsed")
	}
	if got.Display != "15.06.2023" {
		t.Fatalf("expected original text as display, got %q", got.Display)
	}
	if got.Year != "" || got.YearMonth != "" || got.ISO != "" {
		t.Fatalf("expected empty derived fields, got %q/%q/%q", got.Year, got.YearMonth, got.ISO)
	}
}

func TestParseReadingDateEmpty(t *testing.T) {
	got := ParseReadingDate("   ")
	if got.Valid || got.Display != "" {
		t.Fatalf("expected empty result for blank input, got %+v", got)
	}
}

func TestParseDecimal(t *testing.T) {
	cases := []struct {
		raw  string
		want float64
	}{
		{"1234,5", 1234.5},
		{"1234.5", 1234.5},
		{"1 234,5 kWh", 1234.5},
		{"-12,5", -12.5},
		{"0042", 42},
	}
	for _, tc := range cases {
		got := ParseDecimal(tc.raw)
		if got == nil {
			t.Fatalf("expected %q to parse", tc.raw)
		}
		if *got != tc.want {
			t.Fatalf("expected %v for %q, got %v", tc.want, tc.raw, *got)
		}
	}
}

func TestParseDecimalRejects(t *testing.T) {
	for _, raw := range []string{"", "   ", "abc", "1.234,56", "12-34"} {
		if got := ParseDecimal(raw); got != nil {
			t.Fatalf("expected nil for %q, got %v", raw, *got)
		}
	}
}
