package domain

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func profile(ranges []float64, values ...float64) CompositeProfile {
	return CompositeProfile{Values: values, Ranges: ranges}
}

func TestTimeSeries_AppendKeepsInputOrder(t *testing.T) {
	axis := []float64{2125, 2375}
	ts := NewTimeSeries("KATX", "reflectivity", 235)

	t2 := time.Date(2020, 6, 15, 1, 0, 0, 0, time.UTC)
	t1 := t2.Add(time.Hour) // deliberately out of chronological order

	require.NoError(t, ts.Append(t1, profile(axis, 10, 20)))
	require.NoError(t, ts.Append(t2, profile(axis, 30, 40)))

	assert.Equal(t, 2, ts.Len())
	assert.Equal(t, []time.Time{t1, t2}, ts.Times)
	if diff := cmp.Diff([][]float64{{10, 20}, {30, 40}}, ts.Values); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestTimeSeries_FirstProfileFixesAxis(t *testing.T) {
	ts := NewTimeSeries("KATX", "reflectivity", 235)
	require.NoError(t, ts.Append(time.Now(), profile([]float64{0, 250, 500}, 1, 2, 3)))
	assert.Equal(t, []float64{0, 250, 500}, ts.Ranges)
}

func TestTimeSeries_RejectsAxisMismatch(t *testing.T) {
	ts := NewTimeSeries("KATX", "reflectivity", 235)
	require.NoError(t, ts.Append(time.Now(), profile([]float64{0, 250}, 1, 2)))

	err := ts.Append(time.Now(), profile([]float64{0, 250, 500}, 1, 2, 3))
	require.ErrorIs(t, err, ErrRangeAxisMismatch)

	err = ts.Append(time.Now(), profile([]float64{0, 300}, 1, 2))
	require.ErrorIs(t, err, ErrRangeAxisMismatch)

	assert.Equal(t, 1, ts.Len())
}

func TestTimeSeries_RejectsRaggedProfile(t *testing.T) {
	ts := NewTimeSeries("KATX", "reflectivity", 235)
	err := ts.Append(time.Now(), profile([]float64{0, 250, 500}, 1, 2))
	require.Error(t, err)
	assert.Equal(t, 0, ts.Len())
}

func TestNewTimeSeries_StampsBuildTime(t *testing.T) {
	frozen := time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(frozen))
	t.Cleanup(func() { SetClock(nil) })

	ts := NewTimeSeries("KATX", "reflectivity", 235)
	assert.Equal(t, frozen, ts.BuiltAt)
}
