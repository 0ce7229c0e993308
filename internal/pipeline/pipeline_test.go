package pipeline_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/nguy/AR-Spillover/internal/domain"
	"github.com/nguy/AR-Spillover/internal/observability"
	"github.com/nguy/AR-Spillover/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

// mockSource serves synthetic volumes and fails for keys registered in fail.
type mockSource struct {
	opened []string
	fail   map[string]error
	gates  map[string][]float64 // per-key gate override
}

func (m *mockSource) OpenVolume(_ context.Context, key, field string) (*domain.Volume, error) {
	m.opened = append(m.opened, key)
	if err, ok := m.fail[key]; ok {
		return nil, err
	}
	gates := m.gates[key]
	if gates == nil {
		gates = []float64{10, 20, 30}
	}
	return &domain.Volume{
		Field: field,
		Sweeps: []domain.Sweep{{
			Rays: []domain.Ray{{
				Azimuth:          235,
				RangeToFirstGate: 2125,
				GateSpacing:      250,
				Gates:            gates,
			}},
		}},
	}, nil
}

func key(hhmmss string) string {
	return "noaa-nexrad-level2/2020/06/15/KATX/KATX20200615_" + hhmmss + "_V06"
}

func newBuilder(src pipeline.VolumeSource, policy pipeline.ErrorPolicy) *pipeline.Builder {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return pipeline.NewBuilder(src, policy, logger, observability.NewMetricsForTesting())
}

func readErr() error {
	return fmt.Errorf("%w: connection reset", domain.ErrRead)
}

func decodeErr() error {
	return fmt.Errorf("%w: truncated archive", domain.ErrDecode)
}

// --- tests ---

func TestBuildTimeSeries_HappyPath(t *testing.T) {
	keys := []string{key("000435"), key("001112"), key("002248")}
	src := &mockSource{}
	b := newBuilder(src, pipeline.PolicySkip)

	series, report, err := b.BuildTimeSeries(context.Background(), keys, "KATX", "reflectivity", 235)
	require.NoError(t, err)

	assert.Equal(t, 0, report.Total())
	require.Equal(t, 3, series.Len())
	assert.Equal(t, keys, src.opened)
	assert.Equal(t, []float64{2125, 2375, 2625}, series.Ranges)
	assert.Equal(t, time.Date(2020, 6, 15, 0, 4, 35, 0, time.UTC), series.Times[0])
	assert.Equal(t, time.Date(2020, 6, 15, 0, 22, 48, 0, time.UTC), series.Times[2])
	assert.NoError(t, b.CheckReadiness(context.Background()))
}

func TestBuildTimeSeries_SkipPolicyClassifiesFailures(t *testing.T) {
	keys := []string{key("000435"), key("001112"), key("002248"), key("003301")}
	src := &mockSource{fail: map[string]error{
		keys[1]: decodeErr(),
		keys[2]: readErr(),
	}}
	b := newBuilder(src, pipeline.PolicySkip)

	series, report, err := b.BuildTimeSeries(context.Background(), keys, "KATX", "reflectivity", 235)
	require.NoError(t, err)

	assert.Equal(t, 2, series.Len())
	assert.Equal(t, 1, report.DecodeErrors)
	assert.Equal(t, 1, report.ReadErrors)
	assert.Equal(t, 2, report.Total())
	assert.Equal(t, []string{keys[1], keys[2]}, report.Keys)
	// Surviving rows keep input order.
	assert.Equal(t, time.Date(2020, 6, 15, 0, 4, 35, 0, time.UTC), series.Times[0])
	assert.Equal(t, time.Date(2020, 6, 15, 0, 33, 1, 0, time.UTC), series.Times[1])
}

func TestBuildTimeSeries_AbortPolicyStopsOnFirstFailure(t *testing.T) {
	keys := []string{key("000435"), key("001112"), key("002248")}
	src := &mockSource{fail: map[string]error{keys[1]: decodeErr()}}
	b := newBuilder(src, pipeline.PolicyAbort)

	_, report, err := b.BuildTimeSeries(context.Background(), keys, "KATX", "reflectivity", 235)
	require.ErrorIs(t, err, domain.ErrDecode)
	assert.Contains(t, err.Error(), keys[1])
	assert.Equal(t, 0, report.Total())
	// The third key is never opened.
	assert.Equal(t, keys[:2], src.opened)
}

func TestBuildTimeSeries_ParseFailureIsAlwaysFatal(t *testing.T) {
	keys := []string{key("000435"), "noaa-nexrad-level2/2020/06/15/KATX/garbage"}
	src := &mockSource{}
	b := newBuilder(src, pipeline.PolicySkip)

	_, _, err := b.BuildTimeSeries(context.Background(), keys, "KATX", "reflectivity", 235)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "garbage")
}

func TestBuildTimeSeries_AxisMismatchIsFatalUnderSkipPolicy(t *testing.T) {
	keys := []string{key("000435"), key("001112")}
	src := &mockSource{gates: map[string][]float64{
		keys[1]: {1, 2, 3, 4, 5},
	}}
	b := newBuilder(src, pipeline.PolicySkip)

	_, _, err := b.BuildTimeSeries(context.Background(), keys, "KATX", "reflectivity", 235)
	require.ErrorIs(t, err, domain.ErrRangeAxisMismatch)
}

func TestBuildTimeSeries_AllSkippedIsAnError(t *testing.T) {
	keys := []string{key("000435"), key("001112")}
	src := &mockSource{fail: map[string]error{
		keys[0]: decodeErr(),
		keys[1]: readErr(),
	}}
	b := newBuilder(src, pipeline.PolicySkip)

	_, report, err := b.BuildTimeSeries(context.Background(), keys, "KATX", "reflectivity", 235)
	require.Error(t, err)
	assert.Equal(t, 2, report.Total())
	assert.Error(t, b.CheckReadiness(context.Background()))
}

func TestBuildTimeSeries_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := newBuilder(&mockSource{}, pipeline.PolicySkip)
	_, _, err := b.BuildTimeSeries(ctx, []string{key("000435")}, "KATX", "reflectivity", 235)
	require.ErrorIs(t, err, context.Canceled)
}

func TestParsePolicy(t *testing.T) {
	p, err := pipeline.ParsePolicy("skip")
	require.NoError(t, err)
	assert.Equal(t, pipeline.PolicySkip, p)

	p, err = pipeline.ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, pipeline.PolicySkip, p)

	p, err = pipeline.ParsePolicy("abort")
	require.NoError(t, err)
	assert.Equal(t, pipeline.PolicyAbort, p)

	_, err = pipeline.ParsePolicy("ignore")
	require.Error(t, err)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, pipeline.ClassRead, pipeline.Classify(readErr()))
	assert.Equal(t, pipeline.ClassDecode, pipeline.Classify(decodeErr()))
	assert.Equal(t, pipeline.ClassDecode, pipeline.Classify(fmt.Errorf("mystery")))
}

// --- source tests ---

type mockStore struct {
	bucket, key string
	body        string
	err         error
	closed      bool
}

type trackingCloser struct {
	io.Reader
	closed *bool
}

func (c trackingCloser) Close() error {
	*c.closed = true
	return nil
}

func (m *mockStore) Open(_ context.Context, bucket, key string) (io.ReadCloser, error) {
	m.bucket, m.key = bucket, key
	if m.err != nil {
		return nil, m.err
	}
	return trackingCloser{strings.NewReader(m.body), &m.closed}, nil
}

type mockDecoder struct {
	spooled string
}

func (m *mockDecoder) DecodeFile(path, field string) (*domain.Volume, error) {
	return &domain.Volume{Field: field}, nil
}

func (m *mockDecoder) Decode(src io.Reader, field string) (*domain.Volume, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}
	m.spooled = string(data)
	return &domain.Volume{Field: field}, nil
}

func TestRemoteSource_SplitsStreamsAndCloses(t *testing.T) {
	store := &mockStore{body: "archive-bytes"}
	decoder := &mockDecoder{}
	src := pipeline.RemoteSource{Store: store, Decoder: decoder, Split: splitQualified}

	vol, err := src.OpenVolume(context.Background(), key("000435"), "reflectivity")
	require.NoError(t, err)

	assert.Equal(t, "reflectivity", vol.Field)
	assert.Equal(t, "noaa-nexrad-level2", store.bucket)
	assert.Equal(t, "2020/06/15/KATX/KATX20200615_000435_V06", store.key)
	assert.Equal(t, "archive-bytes", decoder.spooled)
	assert.True(t, store.closed, "remote stream must be closed")
}

func TestRemoteSource_StoreFailureIsReadError(t *testing.T) {
	store := &mockStore{err: fmt.Errorf("timeout")}
	src := pipeline.RemoteSource{Store: store, Decoder: &mockDecoder{}, Split: splitQualified}

	_, err := src.OpenVolume(context.Background(), key("000435"), "reflectivity")
	require.ErrorIs(t, err, domain.ErrRead)
}

func TestRemoteSource_BadKeyIsReadError(t *testing.T) {
	src := pipeline.RemoteSource{Store: &mockStore{}, Decoder: &mockDecoder{}, Split: splitQualified}

	_, err := src.OpenVolume(context.Background(), "not-qualified", "reflectivity")
	require.ErrorIs(t, err, domain.ErrRead)
}

func splitQualified(qualified string) (string, string, error) {
	bucket, key, ok := strings.Cut(qualified, "/")
	if !ok {
		return "", "", fmt.Errorf("key %q is not bucket-qualified", qualified)
	}
	return bucket, key, nil
}
