package readings

import "time"

// Granularity is the time resolution of a snapshot series.
type Granularity string

const (
	GranularityMonth Granularity = "MONTH"
	GranularityYear  Granularity = "YEAR"
)

// IsValid checks if the granularity is one of the supported values.
func (g Granularity) IsValid() bool {
	switch g {
	case GranularityMonth, GranularityYear:
		return true
	default:
		return false
	}
}

// TimeKey is the persisted representation of a period start.
type TimeKey string

// NewTimeKey builds a TimeKey for the given granularity and period start.
func NewTimeKey(g Granularity, periodStart time.Time) (TimeKey, error) {
	if !g.IsValid() {
		return "", ErrInvalidGranularity
	}
	if periodStart.IsZero() {
		return "", ErrInvalidPeriodStart
	}

	layout, err := timeKeyLayout(g)
	if err != nil {
		return "", err
	}
	return TimeKey(periodStart.Format(layout)), nil
}

// String returns the raw string for storage.
func (k TimeKey) String() string { return string(k) }

func timeKeyLayout(g Granularity) (string, error) {
	switch g {
	case GranularityMonth:
		return "200601", nil
	case GranularityYear:
		return "2006", nil
	default:
		return "", ErrInvalidGranularity
	}
}

// PeriodLabel formats the operator-facing period column for a row.
func PeriodLabel(g Granularity, periodStart time.Time) (string, error) {
	switch g {
	case GranularityMonth:
		return periodStart.Format("2006-01"), nil
	case GranularityYear:
		return periodStart.Format("2006"), nil
	default:
		return "", ErrInvalidGranularity
	}
}
