package watchlist

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PickSentinel/internal/model"
)

func openTracker(t *testing.T) (*Tracker, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state", "alerts.db")
	tr, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { tr.Close() })
	return tr, path
}

func cp(mode, symbol, rec string) model.ClassifiedPick {
	return model.ClassifiedPick{
		Pick:           model.Pick{Symbol: symbol},
		Mode:           mode,
		Recommendation: rec,
		EvaluatedAt:    time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC),
	}
}

func TestTracker_Observe(t *testing.T) {
	tr, _ := openTracker(t)

	tests := []struct {
		name     string
		pick     model.ClassifiedPick
		changed  bool
		previous string
	}{
		{"first neutral is quiet", cp("intraday", "TCS", ""), false, ""},
		{"neutral to buy", cp("intraday", "TCS", "Buy"), true, ""},
		{"same label is quiet", cp("intraday", "TCS", "Buy"), false, "Buy"},
		{"upgrade", cp("intraday", "TCS", "Strong Buy"), true, "Buy"},
		{"back to neutral", cp("intraday", "TCS", ""), true, "Strong Buy"},
		{"first signal alerts", cp("intraday", "INFY", "Sell"), true, ""},
		{"other mode is independent", cp("swing", "INFY", ""), false, ""},
		{"symbol case folds", cp("intraday", "infy", "Sell"), false, "Sell"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch, changed, err := tr.Observe(tt.pick)
			require.NoError(t, err)
			assert.Equal(t, tt.changed, changed)
			assert.Equal(t, tt.previous, ch.Previous)
			assert.Equal(t, tt.pick.Recommendation, ch.Current)
		})
	}
}

func TestTracker_PersistsAcrossReopen(t *testing.T) {
	tr, path := openTracker(t)
	_, changed, err := tr.Observe(cp("futures", "SBIN", "Strong Sell"))
	require.NoError(t, err)
	require.True(t, changed)
	require.NoError(t, tr.Close())

	tr2, err := Open(path)
	require.NoError(t, err)
	defer tr2.Close()

	_, changed, err = tr2.Observe(cp("futures", "SBIN", "Strong Sell"))
	require.NoError(t, err)
	assert.False(t, changed, "restart must not re-alert")

	labels, err := tr2.Labels("futures")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"SBIN": "Strong Sell"}, labels)
}

func TestTracker_ObserveAllAndReset(t *testing.T) {
	tr, _ := openTracker(t)
	batch := []model.ClassifiedPick{
		cp("scalping", "A", "Buy"),
		cp("scalping", "B", ""),
		cp("scalping", "C", "Buy Put"),
	}
	changes, err := tr.ObserveAll(batch)
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, "A", changes[0].Symbol)
	assert.Equal(t, "C", changes[1].Symbol)

	changes, err = tr.ObserveAll(batch)
	require.NoError(t, err)
	assert.Empty(t, changes)

	require.NoError(t, tr.Reset())
	labels, err := tr.Labels("scalping")
	require.NoError(t, err)
	assert.Empty(t, labels)

	changes, err = tr.ObserveAll(batch)
	require.NoError(t, err)
	assert.Len(t, changes, 2)
}

func TestTracker_CloseTwice(t *testing.T) {
	tr, _ := openTracker(t)
	assert.NoError(t, tr.Close())
	assert.NoError(t, tr.Close())
}

func TestTracker_UseAfterClose(t *testing.T) {
	tr, _ := openTracker(t)
	require.NoError(t, tr.Close())

	_, changed, err := tr.Observe(cp("intraday", "TCS", "Buy"))
	assert.ErrorIs(t, err, ErrClosed)
	assert.False(t, changed)

	_, err = tr.ObserveAll([]model.ClassifiedPick{cp("intraday", "TCS", "Buy")})
	assert.ErrorIs(t, err, ErrClosed)

	_, err = tr.Labels("intraday")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, tr.Reset(), ErrClosed)
}

func TestTracker_CloseDuringObserve(t *testing.T) {
	tr, _ := openTracker(t)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_, _, err := tr.Observe(cp("intraday", fmt.Sprintf("S%d", i), "Buy"))
			if err != nil {
				assert.ErrorIs(t, err, ErrClosed)
				return
			}
		}
	}()
	require.NoError(t, tr.Close())
	wg.Wait()
}

func TestChange_Cleared(t *testing.T) {
	assert.True(t, Change{Previous: "Buy"}.Cleared())
	assert.False(t, Change{Current: "Sell"}.Cleared())
}
