package export

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/nguy/AR-Spillover/internal/domain"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSeries(t *testing.T) *domain.TimeSeries {
	t.Helper()
	ts := domain.NewTimeSeries("KATX", "reflectivity", 235)
	axis := []float64{2125, 2375}

	require.NoError(t, ts.Append(
		time.Date(2020, 6, 15, 0, 4, 35, 0, time.UTC),
		domain.CompositeProfile{Values: []float64{12.5, 30}, Ranges: axis},
	))
	require.NoError(t, ts.Append(
		time.Date(2020, 6, 15, 0, 11, 12, 0, time.UTC),
		domain.CompositeProfile{Values: []float64{math.NaN(), 45.5}, Ranges: axis},
	))
	return ts
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, testSeries(t)))

	want := "scan_time,2125,2375\n" +
		"2020-06-15T00:04:35Z,12.5,30\n" +
		"2020-06-15T00:11:12Z,,45.5\n"
	assert.Equal(t, want, buf.String())
}

func TestRows_FlattensWithValidity(t *testing.T) {
	rows := Rows(testSeries(t))
	require.Len(t, rows, 4)

	assert.Equal(t, "KATX", rows[0].Station)
	assert.Equal(t, "reflectivity", rows[0].Field)
	assert.Equal(t, 235.0, rows[0].AzimuthDeg)
	assert.Equal(t, 2125.0, rows[0].RangeM)
	assert.Equal(t, 12.5, rows[0].Value)
	assert.True(t, rows[0].Valid)

	// The NaN cell becomes an invalid zero row.
	assert.False(t, rows[2].Valid)
	assert.Equal(t, 0.0, rows[2].Value)
	assert.Equal(t, 2125.0, rows[2].RangeM)
}

func TestWriteParquet_RoundTrips(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteParquet(&buf, testSeries(t)))
	require.NotZero(t, buf.Len())

	got, err := parquet.Read[ProfileRow](bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	assert.Equal(t, Rows(testSeries(t)), got)
}
