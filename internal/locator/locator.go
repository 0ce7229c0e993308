// Package locator builds NOAA bucket key prefixes and lists the object keys
// matching them. It never transfers file content.
package locator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nguy/AR-Spillover/internal/domain"
	"github.com/nguy/AR-Spillover/internal/observability"
)

// Lister enumerates object keys in a bucket under a prefix.
type Lister interface {
	List(ctx context.Context, bucket, prefix string) ([]string, error)
}

// Locator resolves date/station queries into bucket-qualified object keys.
type Locator struct {
	lister  Lister
	bucket  string
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates a Locator over the given bucket.
func New(lister Lister, bucket string, logger *slog.Logger, metrics *observability.Metrics) *Locator {
	return &Locator{
		lister:  lister,
		bucket:  bucket,
		logger:  logger,
		metrics: metrics,
	}
}

// PartitionPrefix builds the s3fs-style query prefix for one time bucket:
//
//	{bucket}/{year}/{month}/{day}/{station}/{station}{year}{month}{day}[_{hhmm}]
//
// year, month and day are zero-padded digit strings; hhmm narrows the match
// within the day and may be empty.
func PartitionPrefix(bucket, year, month, day, hhmm, station string) string {
	q := fmt.Sprintf("%s/%s/%s/%s/%s/%s%s%s%s",
		bucket, year, month, day, station, station, year, month, day)
	if hhmm != "" {
		q += "_" + hhmm
	}
	return q
}

// HourPrefix formats the hourly partition prefix for t, matching the bucket
// layout {bucket}/YYYY/MM/DD/{station}/{station}YYYYMMDD_HH.
func HourPrefix(bucket, station string, t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%s/%s/%s/%s%s_%s",
		bucket, t.Format("2006/01/02"), station, station, t.Format("20060102"), t.Format("15"))
}

// ListByPartition returns all keys in one time bucket. An empty hhmm widens
// the match to the whole day. No matching keys is an empty result, not an
// error.
func (l *Locator) ListByPartition(ctx context.Context, year, month, day, hhmm, station string) ([]string, error) {
	keys, err := l.list(ctx, PartitionPrefix(l.bucket, year, month, day, hhmm, station))
	if err != nil {
		return nil, err
	}
	l.logger.Debug("listed partition", "station", station, "year", year, "month", month, "day", day, "hhmm", hhmm, "keys", len(keys))
	return keys, nil
}

// ListByRange returns all keys between start and end by issuing one listing
// query per hour boundary, start through end inclusive, and concatenating
// the results in chronological hour order. Keys matched by more than one
// hour query are not deduplicated.
func (l *Locator) ListByRange(ctx context.Context, start, end time.Time, station string) ([]string, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("range end %s is before start %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}

	var keys []string
	for t := start; !t.After(end); t = t.Add(time.Hour) {
		hourKeys, err := l.list(ctx, HourPrefix(l.bucket, station, t))
		if err != nil {
			return nil, err
		}
		keys = append(keys, hourKeys...)
	}
	l.logger.Debug("listed range", "station", station,
		"start", start.Format(time.RFC3339), "end", end.Format(time.RFC3339), "keys", len(keys))
	return keys, nil
}

// DefaultRange returns the query window [now-window, now] from the domain clock.
func DefaultRange(window time.Duration) (time.Time, time.Time) {
	now := domain.Now().UTC()
	return now.Add(-window), now
}

// list issues one backend query for a bucket-qualified prefix and returns
// bucket-qualified keys, mirroring the prefix form so results round-trip
// into the composite pipeline.
func (l *Locator) list(ctx context.Context, fullPrefix string) ([]string, error) {
	prefix, ok := strings.CutPrefix(fullPrefix, l.bucket+"/")
	if !ok {
		return nil, errors.New("prefix does not start with bucket name")
	}

	l.metrics.ListQueries.Inc()
	keys, err := l.lister.List(ctx, l.bucket, prefix)
	if err != nil {
		return nil, fmt.Errorf("list %s/%s: %w", l.bucket, prefix, err)
	}
	l.metrics.KeysLocated.Add(float64(len(keys)))

	qualified := make([]string, len(keys))
	for i, k := range keys {
		qualified[i] = l.bucket + "/" + k
	}
	return qualified, nil
}
