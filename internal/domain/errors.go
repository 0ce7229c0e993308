package domain

import "errors"

// Sentinel errors used to classify per-file failures. Sources wrap their
// errors with one of these so the pipeline can tell a backend read failure
// from an archive that would not decode.
var (
	// ErrRead marks failures fetching bytes from the backend or disk.
	ErrRead = errors.New("read volume")

	// ErrDecode marks archives that were fetched but would not decode.
	ErrDecode = errors.New("decode volume")

	// ErrRangeAxisMismatch is returned when a profile's range axis differs
	// from the axis already adopted by a time series.
	ErrRangeAxisMismatch = errors.New("range axis mismatch")
)
