package domain

import (
	"fmt"
	"time"
)

// TimeSeries is the assembled (time, range) table: one composite profile per
// successfully processed scan, in input order. Times are not deduplicated or
// sorted; they mirror the key list.
type TimeSeries struct {
	Station string
	Field   string
	Azimuth float64

	Times  []time.Time
	Ranges []float64   // shared range axis, meters
	Values [][]float64 // Values[i] is the profile at Times[i]

	BuiltAt time.Time
}

// NewTimeSeries creates an empty table. The range axis is adopted from the
// first appended profile.
func NewTimeSeries(station, field string, azimuth float64) *TimeSeries {
	return &TimeSeries{
		Station: station,
		Field:   field,
		Azimuth: azimuth,
		BuiltAt: clock.Now().UTC(),
	}
}

// Len returns the number of time entries.
func (ts *TimeSeries) Len() int {
	return len(ts.Times)
}

// Append adds one profile row. The first profile fixes the table's range
// axis; later profiles must match it exactly, and a mismatch fails the
// append rather than discarding the new axis.
func (ts *TimeSeries) Append(t time.Time, p CompositeProfile) error {
	if len(p.Values) != len(p.Ranges) {
		return fmt.Errorf("profile has %d values for %d range bins", len(p.Values), len(p.Ranges))
	}

	if len(ts.Values) == 0 {
		ts.Ranges = p.Ranges
	} else {
		if len(p.Ranges) != len(ts.Ranges) {
			return fmt.Errorf("%w: got %d bins, table has %d", ErrRangeAxisMismatch, len(p.Ranges), len(ts.Ranges))
		}
		for i := range p.Ranges {
			if p.Ranges[i] != ts.Ranges[i] {
				return fmt.Errorf("%w: bin %d at %.1f m, table has %.1f m", ErrRangeAxisMismatch, i, p.Ranges[i], ts.Ranges[i])
			}
		}
	}

	ts.Times = append(ts.Times, t)
	ts.Values = append(ts.Values, p.Values)
	return nil
}
