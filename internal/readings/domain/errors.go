package readings

import "errors"

var (
	// ErrInvalidGranularity is returned when granularity is unsupported.
	ErrInvalidGranularity = errors.New("readings: invalid granularity")
	// ErrInvalidPeriodStart is returned when the period start is zero.
	ErrInvalidPeriodStart = errors.New("readings: invalid period start")
	// ErrEmptyMeterKey is returned when a meter has no stable key.
	ErrEmptyMeterKey = errors.New("readings: empty meter key")
)
