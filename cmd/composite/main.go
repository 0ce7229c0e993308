// Command composite builds a composite range-profile time series for one
// radar station: locate Level-II volumes (on the NOAA bucket or local disk),
// extract one max-projection profile per scan at a fixed azimuth, and write
// the assembled (time, range) table to CSV or Parquet.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	httpadapter "github.com/nguy/AR-Spillover/internal/adapter/http"
	kafkaadapter "github.com/nguy/AR-Spillover/internal/adapter/kafka"
	"github.com/nguy/AR-Spillover/internal/adapter/nexrad"
	s3adapter "github.com/nguy/AR-Spillover/internal/adapter/s3"
	"github.com/nguy/AR-Spillover/internal/config"
	"github.com/nguy/AR-Spillover/internal/domain"
	"github.com/nguy/AR-Spillover/internal/export"
	"github.com/nguy/AR-Spillover/internal/locator"
	"github.com/nguy/AR-Spillover/internal/observability"
	"github.com/nguy/AR-Spillover/internal/pipeline"
)

type options struct {
	station string
	date    string
	hhmm    string
	start   string
	end     string
	window  time.Duration
	field   string
	azimuth float64
	source  string
	out     string
	format  string
}

func main() {
	var opts options
	flag.StringVar(&opts.station, "station", "", "ICAO radar station code, e.g. KATX (required)")
	flag.StringVar(&opts.date, "date", "", "single-day partition query, YYYY-MM-DD")
	flag.StringVar(&opts.hhmm, "hhmm", "", "narrow -date to an hour or minute prefix, e.g. 12 or 1203")
	flag.StringVar(&opts.start, "start", "", "range query start, RFC3339")
	flag.StringVar(&opts.end, "end", "", "range query end, RFC3339 (defaults to now)")
	flag.DurationVar(&opts.window, "window", 6*time.Hour, "lookback window when no -date or -start is given")
	flag.StringVar(&opts.field, "field", "reflectivity", "moment field to extract")
	flag.Float64Var(&opts.azimuth, "azimuth", 235, "azimuth of the composite profile, degrees")
	flag.StringVar(&opts.source, "source", "s3", "volume source: s3, or local with file paths as arguments")
	flag.StringVar(&opts.out, "out", "composite.csv", "output file")
	flag.StringVar(&opts.format, "format", "", "output format: csv or parquet (default from -out extension)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	if opts.station == "" {
		logger.Error("-station is required")
		os.Exit(1)
	}
	format, err := resolveFormat(opts.format, opts.out)
	if err != nil {
		logger.Error("bad output format", "error", err)
		os.Exit(1)
	}

	mode, err := nexrad.ParseMode(cfg.DecodeMode)
	if err != nil {
		logger.Error("bad decode mode", "error", err)
		os.Exit(1)
	}
	policy, err := pipeline.ParsePolicy(cfg.ErrorPolicy)
	if err != nil {
		logger.Error("bad error policy", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	decoder := nexrad.NewReader(mode, logger)

	var keys []string
	var source pipeline.VolumeSource
	switch opts.source {
	case "local":
		keys = flag.Args()
		if len(keys) == 0 {
			logger.Error("local source needs file paths as arguments")
			os.Exit(1)
		}
		source = pipeline.LocalSource{Decoder: decoder}
	case "s3":
		store, err := s3adapter.NewClient(ctx, cfg.Region, logger)
		if err != nil {
			logger.Error("failed to build s3 client", "error", err)
			os.Exit(1)
		}
		loc := locator.New(store, cfg.Bucket, logger, metrics)
		keys, err = locate(ctx, loc, opts)
		if err != nil {
			logger.Error("failed to locate volumes", "error", err)
			os.Exit(1)
		}
		source = pipeline.RemoteSource{Store: store, Decoder: decoder, Split: s3adapter.SplitKey}
	default:
		logger.Error("unknown source", "source", opts.source)
		os.Exit(1)
	}

	if len(keys) == 0 {
		logger.Error("no volumes matched the query", "station", opts.station)
		os.Exit(1)
	}
	logger.Info("located volumes", "station", opts.station, "keys", len(keys))

	builder := pipeline.NewBuilder(source, policy, logger, metrics)

	// Optional metrics endpoint for long backfills.
	var srv *httpadapter.Server
	if cfg.MetricsAddr != "" {
		srv = httpadapter.NewServer(cfg.MetricsAddr, builder, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
	}

	series, report, err := builder.BuildTimeSeries(ctx, keys, opts.station, opts.field, opts.azimuth)
	if err != nil {
		logger.Error("failed to build time series", "error", err,
			"skipped_read", report.ReadErrors, "skipped_decode", report.DecodeErrors)
		shutdown(srv, cfg.ShutdownTimeout, logger)
		os.Exit(1)
	}
	if report.Total() > 0 {
		logger.Warn("some volumes were skipped",
			"read_errors", report.ReadErrors, "decode_errors", report.DecodeErrors, "keys", report.Keys)
	}

	if err := write(series, opts.out, format); err != nil {
		logger.Error("failed to write output", "error", err)
		shutdown(srv, cfg.ShutdownTimeout, logger)
		os.Exit(1)
	}
	logger.Info("wrote time series", "out", opts.out, "format", format,
		"rows", series.Len(), "range_bins", len(series.Ranges))

	if cfg.KafkaEnabled {
		writer := kafkaadapter.NewWriter(cfg, logger, metrics)
		if err := writer.PublishSeries(ctx, series); err != nil {
			logger.Error("failed to publish profiles", "error", err)
		}
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	shutdown(srv, cfg.ShutdownTimeout, logger)
}

// locate resolves the query flags into object keys: an explicit day
// partition, an explicit time range, or the default lookback window.
func locate(ctx context.Context, loc *locator.Locator, opts options) ([]string, error) {
	if opts.date != "" {
		day, err := time.Parse("2006-01-02", opts.date)
		if err != nil {
			return nil, fmt.Errorf("parse -date: %w", err)
		}
		return loc.ListByPartition(ctx,
			day.Format("2006"), day.Format("01"), day.Format("02"), opts.hhmm, opts.station)
	}

	start, end, err := resolveRange(opts)
	if err != nil {
		return nil, err
	}
	return loc.ListByRange(ctx, start, end, opts.station)
}

func resolveRange(opts options) (time.Time, time.Time, error) {
	if opts.start == "" {
		start, end := locator.DefaultRange(opts.window)
		return start, end, nil
	}
	start, err := time.Parse(time.RFC3339, opts.start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse -start: %w", err)
	}
	end := domain.Now().UTC()
	if opts.end != "" {
		if end, err = time.Parse(time.RFC3339, opts.end); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parse -end: %w", err)
		}
	}
	return start, end, nil
}

func resolveFormat(format, out string) (string, error) {
	if format == "" {
		if strings.HasSuffix(out, ".parquet") {
			return "parquet", nil
		}
		return "csv", nil
	}
	if format != "csv" && format != "parquet" {
		return "", fmt.Errorf("unknown format %q (want csv or parquet)", format)
	}
	return format, nil
}

func write(series *domain.TimeSeries, out, format string) error {
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create %s: %w", out, err)
	}
	if format == "parquet" {
		err = export.WriteParquet(f, series)
	} else {
		err = export.WriteCSV(f, series)
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	return err
}

func shutdown(srv *httpadapter.Server, timeout time.Duration, logger *slog.Logger) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
}
