// Package pipeline turns a list of located keys into a composite range
// profile time series, one volume at a time.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/nguy/AR-Spillover/internal/domain"
	"github.com/nguy/AR-Spillover/internal/observability"
)

// VolumeSource opens one located key as a decoded single-moment volume.
type VolumeSource interface {
	OpenVolume(ctx context.Context, key, field string) (*domain.Volume, error)
}

// ErrorPolicy controls what a per-file read or decode failure does to a run.
// Filename-parse and range-axis mismatches are always fatal regardless of
// policy.
type ErrorPolicy string

const (
	// PolicySkip logs and counts the failure, then moves to the next key.
	PolicySkip ErrorPolicy = "skip"
	// PolicyAbort stops the run on the first failure.
	PolicyAbort ErrorPolicy = "abort"
)

// ParsePolicy validates a policy string from configuration.
func ParsePolicy(s string) (ErrorPolicy, error) {
	switch ErrorPolicy(s) {
	case PolicySkip, PolicyAbort:
		return ErrorPolicy(s), nil
	case "":
		return PolicySkip, nil
	}
	return "", fmt.Errorf("unknown error policy %q (want skip or abort)", s)
}

// Class labels one per-file failure for reporting.
type Class string

const (
	ClassRead   Class = "read"   // fetching bytes from the backend or disk
	ClassDecode Class = "decode" // the archive itself would not decode
)

// Classify maps an error onto a failure class using the domain sentinels.
// Unrecognized errors count as decode failures.
func Classify(err error) Class {
	if errors.Is(err, domain.ErrRead) {
		return ClassRead
	}
	return ClassDecode
}

// SkipReport counts the per-file failures tolerated during one run.
type SkipReport struct {
	ReadErrors   int
	DecodeErrors int
	Keys         []string // skipped keys, in input order
}

// Total returns the number of skipped files.
func (r SkipReport) Total() int {
	return r.ReadErrors + r.DecodeErrors
}

// Builder assembles time series tables from located keys.
type Builder struct {
	source  VolumeSource
	policy  ErrorPolicy
	logger  *slog.Logger
	metrics *observability.Metrics
	ready   atomic.Bool
}

// NewBuilder creates a Builder over the given source.
func NewBuilder(source VolumeSource, policy ErrorPolicy, logger *slog.Logger, metrics *observability.Metrics) *Builder {
	return &Builder{
		source:  source,
		policy:  policy,
		logger:  logger,
		metrics: metrics,
	}
}

// CheckReadiness returns nil once the current run has produced at least one
// table row.
func (b *Builder) CheckReadiness(_ context.Context) error {
	if !b.ready.Load() {
		return errors.New("no composite profile extracted yet")
	}
	return nil
}

// BuildTimeSeries processes keys in order: parse the scan time from the key,
// open the volume, extract the composite profile at the requested azimuth,
// and append to the table. Per-file read/decode failures follow the
// configured policy and are classified in the returned SkipReport. A run in
// which no key yields a profile is an error.
func (b *Builder) BuildTimeSeries(ctx context.Context, keys []string, station, field string, azimuth float64) (*domain.TimeSeries, SkipReport, error) {
	b.metrics.RunActive.Set(1)
	defer b.metrics.RunActive.Set(0)

	series := domain.NewTimeSeries(station, field, azimuth)
	var report SkipReport

	b.logger.Info("building time series",
		"station", station, "field", field, "azimuth", azimuth, "keys", len(keys), "policy", string(b.policy))

	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, report, err
		}

		scanTime, err := domain.ParseScanTime(station, key)
		if err != nil {
			// A name that does not match the template means the key list
			// itself is wrong; never skippable.
			return nil, report, err
		}

		start := time.Now()
		vol, err := b.source.OpenVolume(ctx, key, field)
		if err != nil {
			if b.skip(key, err, &report) {
				continue
			}
			return nil, report, fmt.Errorf("open %s: %w", key, err)
		}

		profile, err := domain.ExtractComposite(vol, azimuth)
		if err != nil {
			err = fmt.Errorf("%w: %v", domain.ErrDecode, err)
			if b.skip(key, err, &report) {
				continue
			}
			return nil, report, fmt.Errorf("extract %s: %w", key, err)
		}

		if err := series.Append(scanTime, profile); err != nil {
			// Axis mismatches abort regardless of policy.
			return nil, report, fmt.Errorf("append %s: %w", key, err)
		}

		b.ready.Store(true)
		b.metrics.VolumesProcessed.Inc()
		b.metrics.ExtractDuration.Observe(time.Since(start).Seconds())
		b.logger.Debug("extracted composite", "key", key, "scan_time", scanTime, "bins", len(profile.Values))
	}

	if series.Len() == 0 {
		return nil, report, fmt.Errorf("no volumes produced a profile (%d keys, %d skipped)", len(keys), report.Total())
	}
	return series, report, nil
}

// skip records one tolerated failure. Returns false when the policy says the
// run must abort instead.
func (b *Builder) skip(key string, err error, report *SkipReport) bool {
	if b.policy != PolicySkip {
		return false
	}
	class := Classify(err)
	switch class {
	case ClassRead:
		report.ReadErrors++
	default:
		report.DecodeErrors++
	}
	report.Keys = append(report.Keys, key)
	b.metrics.VolumesSkipped.WithLabelValues(string(class)).Inc()
	b.logger.Warn("skipping volume", "key", key, "class", string(class), "error", err)
	return true
}
