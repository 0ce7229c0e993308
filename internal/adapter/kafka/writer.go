// Package kafka publishes assembled composite profiles to a Kafka topic.
// The sink is optional; runs work without it.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/nguy/AR-Spillover/internal/config"
	"github.com/nguy/AR-Spillover/internal/domain"
	"github.com/nguy/AR-Spillover/internal/observability"
)

// Writer produces one message per composite profile row.
type Writer struct {
	writer  *kafkago.Writer
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewWriter creates a Kafka producer for the configured profile topic.
func NewWriter(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger, metrics: metrics}
}

// PublishSeries serializes every table row and publishes them in a single
// WriteMessages call.
func (w *Writer) PublishSeries(ctx context.Context, series *domain.TimeSeries) error {
	if series.Len() == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, series.Len())
	for i := range series.Times {
		msg, err := serializeRow(series, i)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d profiles: %w", len(msgs), err)
	}
	w.metrics.ProfilesPublished.Add(float64(len(msgs)))
	w.logger.Info("published profiles", "count", len(msgs), "station", series.Station)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// profileRecord is the JSON wire form of one table row. Missing bins are
// null because JSON has no NaN.
type profileRecord struct {
	Station    string     `json:"station"`
	Field      string     `json:"field"`
	AzimuthDeg float64    `json:"azimuth_deg"`
	ScanTime   time.Time  `json:"scan_time"`
	RangeM     []float64  `json:"range_m"`
	Values     []*float64 `json:"values"`
}

// serializeRow marshals table row i into a Kafka message keyed by station
// and scan time.
func serializeRow(series *domain.TimeSeries, i int) (kafkago.Message, error) {
	rec := profileRecord{
		Station:    series.Station,
		Field:      series.Field,
		AzimuthDeg: series.Azimuth,
		ScanTime:   series.Times[i].UTC(),
		RangeM:     series.Ranges,
		Values:     nullableValues(series.Values[i]),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize profile row: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(domain.ScanName(series.Station, series.Times[i])),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "station", Value: []byte(series.Station)},
			{Key: "field", Value: []byte(series.Field)},
			{Key: "built_at", Value: []byte(series.BuiltAt.Format(time.RFC3339))},
		},
	}, nil
}

func nullableValues(values []float64) []*float64 {
	out := make([]*float64, len(values))
	for i, v := range values {
		if !math.IsNaN(v) {
			v := v
			out[i] = &v
		}
	}
	return out
}
