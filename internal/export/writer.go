// Package export writes assembled time series tables to files. CSV keeps
// the (time, range) grid wide for eyeballing; Parquet flattens to long-form
// rows for downstream query engines.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/nguy/AR-Spillover/internal/domain"
)

// WriteCSV writes the table in wide form: one header row of range bins in
// meters, then one row per scan time. Missing values are empty cells.
func WriteCSV(w io.Writer, ts *domain.TimeSeries) error {
	cw := csv.NewWriter(w)

	header := make([]string, 0, len(ts.Ranges)+1)
	header = append(header, "scan_time")
	for _, r := range ts.Ranges {
		header = append(header, strconv.FormatFloat(r, 'f', -1, 64))
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	row := make([]string, len(header))
	for i, t := range ts.Times {
		row[0] = t.UTC().Format(time.RFC3339)
		for j, v := range ts.Values[i] {
			if math.IsNaN(v) {
				row[j+1] = ""
			} else {
				row[j+1] = strconv.FormatFloat(v, 'f', -1, 64)
			}
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ProfileRow is one (scan, range bin) cell in Parquet long form.
type ProfileRow struct {
	Station    string  `parquet:"station,zstd"`
	Field      string  `parquet:"field,zstd"`
	AzimuthDeg float64 `parquet:"azimuth_deg"`
	ScanTimeMs int64   `parquet:"scan_time_ms"`
	RangeM     float64 `parquet:"range_m"`
	Value      float64 `parquet:"value"`
	Valid      bool    `parquet:"valid"`
}

// Rows flattens the table into Parquet long form, one row per cell. Missing
// values come out with Valid false and a zero Value.
func Rows(ts *domain.TimeSeries) []ProfileRow {
	rows := make([]ProfileRow, 0, len(ts.Times)*len(ts.Ranges))
	for i, t := range ts.Times {
		for j, r := range ts.Ranges {
			row := ProfileRow{
				Station:    ts.Station,
				Field:      ts.Field,
				AzimuthDeg: ts.Azimuth,
				ScanTimeMs: t.UnixMilli(),
				RangeM:     r,
			}
			if v := ts.Values[i][j]; !math.IsNaN(v) {
				row.Value = v
				row.Valid = true
			}
			rows = append(rows, row)
		}
	}
	return rows
}

// WriteParquet writes the table in long form with zstd compression.
func WriteParquet(w io.Writer, ts *domain.TimeSeries) error {
	pw := parquet.NewGenericWriter[ProfileRow](w, parquet.Compression(&parquet.Zstd))

	if _, err := pw.Write(Rows(ts)); err != nil {
		pw.Close()
		return fmt.Errorf("write parquet rows: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}
