package readings

import (
	"strconv"
	"strings"
	"time"
)

// DateParts carries every derived form of a reading timestamp.
// A failed parse keeps the original text as Display and leaves the
// rest empty with Valid false, so raw output still shows the source
// value while computations skip it.
type DateParts struct {
	Display   string
	Year      string
	YearMonth string
	ISO       string
	Time      time.Time
	Valid     bool
}

var timestampLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseReadingDate parses a source timestamp into all report forms.
// A trailing zone marker is stripped before parsing. The display form
// is day-first and carries the time of day only when it is not
// midnight.
func ParseReadingDate(raw string) DateParts {
	text := strings.TrimSpace(raw)
	if text == "" {
		return DateParts{}
	}

	candidate := strings.TrimSuffix(text, "Z")
	var ts time.Time
	parsed := false
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, candidate); err == nil {
			ts = t
			parsed = true
			break
		}
	}
	if !parsed {
		return DateParts{Display: text}
	}

	display := ts.Format("02.01.2006")
	if ts.Hour() != 0 || ts.Minute() != 0 {
		display = ts.Format("02.01.2006 15:04")
	}
	return DateParts{
		Display:   display,
		Year:      ts.Format("2006"),
		YearMonth: ts.Format("2006-01"),
		ISO:       ts.Format("2006-01-02"),
		Time:      ts,
		Valid:     true,
	}
}

// ParseDecimal extracts a numeric value from free-form reading text.
// Everything except digits, separators and the sign is stripped and
// the decimal comma mapped to a period. Empty or unparsable input
// yields nil, never an error.
func ParseDecimal(raw string) *float64 {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9', r == ',', r == '.', r == '-':
			b.WriteRune(r)
		}
	}
	cleaned := strings.ReplaceAll(b.String(), ",", ".")
	if cleaned == "" {
		return nil
	}

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return &value
}
