package recorder

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PickSentinel/internal/model"
	"PickSentinel/internal/strategy"
)

func openRecorder(t *testing.T) *SQLiteRecorder {
	t.Helper()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "data", "picks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func countSnapshots(t *testing.T, r *SQLiteRecorder, mode string) int {
	t.Helper()
	var n int
	require.NoError(t, r.db.Get(&n, `SELECT COUNT(*) FROM pick_snapshots WHERE mode = ?`, mode))
	return n
}

func TestSQLiteRecorder_RecordRun(t *testing.T) {
	r := openRecorder(t)
	ctx := context.Background()

	picks := strategy.EvaluateAll([]model.Pick{
		{Symbol: "INFY", BlendScore: model.NewScore(81)},
		{Symbol: "TCS", BlendScore: model.NewScore(51)},
		{Symbol: "NIFTY24OCT25000CE"},
	}, "intraday")

	err := r.RecordRun(ctx, &PollRun{
		ID:        "run-1",
		Mode:      "intraday",
		StartedAt: time.Now(),
		Duration:  120 * time.Millisecond,
		Picks:     picks,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, countSnapshots(t, r, "intraday"))

	var signals int
	require.NoError(t, r.db.GetContext(ctx, &signals, `SELECT signal_count FROM poll_runs WHERE id = ?`, "run-1"))
	assert.Equal(t, 2, signals)

	var rec string
	require.NoError(t, r.db.GetContext(ctx, &rec, `SELECT recommendation FROM pick_snapshots WHERE symbol = ?`, "NIFTY24OCT25000CE"))
	assert.Equal(t, model.LabelBuyPut, rec)
}

func TestSQLiteRecorder_DuplicateRunRollsBack(t *testing.T) {
	r := openRecorder(t)
	ctx := context.Background()
	run := &PollRun{ID: "dup", Mode: "swing", StartedAt: time.Now(), Picks: strategy.EvaluateAll([]model.Pick{{Symbol: "A"}}, "swing")}

	require.NoError(t, r.RecordRun(ctx, run))
	require.Error(t, r.RecordRun(ctx, run))

	assert.Equal(t, 1, countSnapshots(t, r, "swing"))
}

func TestSQLiteRecorder_Alerts(t *testing.T) {
	r := openRecorder(t)
	ctx := context.Background()

	base := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	score := 72.0
	for i, sym := range []string{"A", "B", "C"} {
		evt := &AlertEvent{
			RunID:      "run",
			Time:       base.Add(time.Duration(i) * time.Minute),
			Mode:       "futures",
			Symbol:     sym,
			Current:    model.LabelStrongBuy,
			BlendScore: &score,
			Delivered:  i%2 == 0,
		}
		require.NoError(t, r.RecordAlert(ctx, evt))
		assert.NotZero(t, evt.ID)
	}

	alerts, err := r.ListAlerts(ctx, 2)
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, "C", alerts[0].Symbol)
	assert.Equal(t, "B", alerts[1].Symbol)
	assert.True(t, alerts[0].Delivered)
	assert.False(t, alerts[1].Delivered)
	require.NotNil(t, alerts[0].BlendScore)
	assert.Equal(t, 72.0, *alerts[0].BlendScore)
	assert.Nil(t, alerts[0].ScoreNorm)
	assert.True(t, alerts[0].Time.Equal(base.Add(2*time.Minute)))
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NewNoopRecorder()
	ctx := context.Background()
	assert.NoError(t, r.RecordRun(ctx, &PollRun{}))
	assert.NoError(t, r.RecordAlert(ctx, &AlertEvent{}))
	alerts, err := r.ListAlerts(ctx, 10)
	assert.NoError(t, err)
	assert.Empty(t, alerts)
	assert.NoError(t, r.Close())
}
