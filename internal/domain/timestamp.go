package domain

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// Scan names follow <station>20060102_150405_V06, with the ICAO station code
// prepended verbatim. This is a format contract with the NOAA bucket, not
// free text.
const (
	scanTimeLayout = "20060102_150405"
	scanNameSuffix = "_V06"
)

// ScanName formats the object base name for a scan at time t.
func ScanName(station string, t time.Time) string {
	return station + t.UTC().Format(scanTimeLayout) + scanNameSuffix
}

// ParseScanTime extracts the UTC scan time from a key's base name. The key
// may be a bucket-qualified object key or a local path; a trailing ".gz" is
// tolerated. Any other deviation from the template is an error naming the
// offending key.
func ParseScanTime(station, key string) (time.Time, error) {
	name := strings.TrimSuffix(path.Base(strings.ReplaceAll(key, "\\", "/")), ".gz")

	rest, ok := strings.CutPrefix(name, station)
	if !ok {
		return time.Time{}, fmt.Errorf("scan name %q does not start with station %s (key %s)", name, station, key)
	}
	rest, ok = strings.CutSuffix(rest, scanNameSuffix)
	if !ok {
		return time.Time{}, fmt.Errorf("scan name %q does not end with %s (key %s)", name, scanNameSuffix, key)
	}

	t, err := time.ParseInLocation(scanTimeLayout, rest, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("scan name %q: bad timestamp (key %s): %w", name, key, err)
	}
	return t, nil
}
