package history

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ricesearch/rice-eval/internal/evaluation"
	"github.com/ricesearch/rice-eval/internal/pkg/errors"
)

func setupStore(t *testing.T, ttl time.Duration) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	store, err := NewStore("redis://"+mr.Addr(), "test:eval:", ttl)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, mr
}

func TestNewStore_InvalidURL(t *testing.T) {
	_, err := NewStore("invalid://url", "p:", 0)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestNewStore_ConnectionFailure(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = NewStore("redis://"+addr, "p:", 0)
	require.Error(t, err)
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeUnavailable, appErr.Code)
}

func TestStore_RecordAndLoad(t *testing.T) {
	store, _ := setupStore(t, 0)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i, m := range []float64{0.25, 0.25, 0.5} {
		s := &evaluation.RunSummary{Run: "bm25.run", MAP: m, P5: 0.4, MRR: 1}
		require.NoError(t, store.Record(ctx, s, base.Add(time.Duration(i)*time.Minute)))
	}

	points, err := store.LoadHistory(ctx, "bm25.run", evaluation.MetricMAP, base.Add(-time.Minute))
	require.NoError(t, err)
	require.Len(t, points, 3, "equal values at different times are kept")
	assert.Equal(t, 0.25, points[0].Value)
	assert.Equal(t, 0.25, points[1].Value)
	assert.Equal(t, 0.5, points[2].Value)
	assert.True(t, points[0].Timestamp.Before(points[2].Timestamp))

	p5, err := store.LoadHistory(ctx, "bm25.run", evaluation.MetricP5, time.Time{})
	require.NoError(t, err)
	require.Len(t, p5, 3)
	assert.Equal(t, 0.4, p5[0].Value)

	recent, err := store.LoadHistory(ctx, "bm25.run", evaluation.MetricMAP, base.Add(90*time.Second))
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, 0.5, recent[0].Value)
}

func TestStore_LoadHistory_UnknownMetric(t *testing.T) {
	store, _ := setupStore(t, 0)

	_, err := store.LoadHistory(context.Background(), "bm25.run", "bleu", time.Time{})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestStore_LoadHistory_UnknownRun(t *testing.T) {
	store, _ := setupStore(t, 0)

	points, err := store.LoadHistory(context.Background(), "missing.run", evaluation.MetricMAP, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestStore_TTLTrimsOldPoints(t *testing.T) {
	store, _ := setupStore(t, time.Hour)
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, store.Record(ctx, &evaluation.RunSummary{Run: "r", MAP: 0.1}, now.Add(-3*time.Hour)))
	require.NoError(t, store.Record(ctx, &evaluation.RunSummary{Run: "r", MAP: 0.2}, now))

	points, err := store.LoadHistory(ctx, "r", evaluation.MetricMAP, time.Time{})
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, 0.2, points[0].Value)
}

func TestStore_RunsAndDelete(t *testing.T) {
	store, mr := setupStore(t, 0)
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, store.Record(ctx, &evaluation.RunSummary{Run: "b.run"}, now))
	require.NoError(t, store.Record(ctx, &evaluation.RunSummary{Run: "a.run"}, now))

	runs, err := store.Runs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.run", "b.run"}, runs)

	require.NoError(t, store.DeleteRun(ctx, "a.run"))
	for _, metric := range evaluation.MetricNames {
		assert.False(t, mr.Exists("test:eval:a.run:"+metric))
	}

	runs, err = store.Runs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b.run"}, runs)
}

func TestMemberRoundTrip(t *testing.T) {
	at := time.Unix(1700000000, 123456789)

	dp, err := decodeMember(encodeMember(at, 0.123456789))
	require.NoError(t, err)
	assert.True(t, at.Equal(dp.Timestamp))
	assert.Equal(t, 0.123456789, dp.Value)

	_, err = decodeMember("0.25")
	assert.Error(t, err)
}
