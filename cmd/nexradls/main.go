// Command nexradls lists the Level-II object keys matching a station and
// time query without fetching any file content.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	s3adapter "github.com/nguy/AR-Spillover/internal/adapter/s3"
	"github.com/nguy/AR-Spillover/internal/config"
	"github.com/nguy/AR-Spillover/internal/locator"
	"github.com/nguy/AR-Spillover/internal/observability"
)

func main() {
	station := flag.String("station", "", "ICAO radar station code, e.g. KATX (required)")
	date := flag.String("date", "", "single-day partition query, YYYY-MM-DD")
	hhmm := flag.String("hhmm", "", "narrow -date to an hour or minute prefix")
	start := flag.String("start", "", "range query start, RFC3339")
	end := flag.String("end", "", "range query end, RFC3339")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	if *station == "" {
		logger.Error("-station is required")
		os.Exit(1)
	}

	ctx := context.Background()
	store, err := s3adapter.NewClient(ctx, cfg.Region, logger)
	if err != nil {
		logger.Error("failed to build s3 client", "error", err)
		os.Exit(1)
	}
	loc := locator.New(store, cfg.Bucket, logger, metrics)

	var keys []string
	switch {
	case *date != "":
		day, err := time.Parse("2006-01-02", *date)
		if err != nil {
			logger.Error("bad -date", "error", err)
			os.Exit(1)
		}
		keys, err = loc.ListByPartition(ctx,
			day.Format("2006"), day.Format("01"), day.Format("02"), *hhmm, *station)
		if err != nil {
			logger.Error("listing failed", "error", err)
			os.Exit(1)
		}
	case *start != "" && *end != "":
		from, err := time.Parse(time.RFC3339, *start)
		if err != nil {
			logger.Error("bad -start", "error", err)
			os.Exit(1)
		}
		to, err := time.Parse(time.RFC3339, *end)
		if err != nil {
			logger.Error("bad -end", "error", err)
			os.Exit(1)
		}
		keys, err = loc.ListByRange(ctx, from, to, *station)
		if err != nil {
			logger.Error("listing failed", "error", err)
			os.Exit(1)
		}
	default:
		logger.Error("need -date or both -start and -end")
		os.Exit(1)
	}

	for _, k := range keys {
		fmt.Println(k)
	}
}
