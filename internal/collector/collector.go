package collector

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"PickSentinel/internal/model"
	"PickSentinel/internal/strategy"
)

// MockFetcher returns controllable fixed picks. The daemon runs on one when
// backend.mock is set (see NewDemoFetcher); tests drive it directly.
type MockFetcher struct {
	mu    sync.Mutex
	Picks map[string][]model.Pick
	Err   map[string]error
	Calls int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchPicks(_ context.Context, mode string) ([]model.Pick, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if err := m.Err[mode]; err != nil {
		return nil, err
	}
	picks := m.Picks[mode]
	out := make([]model.Pick, len(picks))
	copy(out, picks)
	return out, nil
}

// Set replaces the picks returned for a mode.
func (m *MockFetcher) Set(mode string, picks []model.Pick) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Picks == nil {
		m.Picks = make(map[string][]model.Pick)
	}
	m.Picks[mode] = picks
}

// NewDemoFetcher returns a MockFetcher seeded with a spread of picks for
// every mode, so the daemon can run without a backend.
func NewDemoFetcher() *MockFetcher {
	now := time.Now()
	m := &MockFetcher{}
	m.Set("scalping", []model.Pick{
		{Symbol: "RELIANCE", BlendScore: model.NewScore(74), Price: 2950.4, UpdatedAt: now},
		{Symbol: "HDFCBANK", BlendScore: model.NewScore(52), Price: 1680.1, UpdatedAt: now},
		{Symbol: "TATAMOTORS", BlendScore: model.NewScore(33), Price: 980.5, UpdatedAt: now},
	})
	m.Set("intraday", []model.Pick{
		{Symbol: "TCS", BlendScore: model.NewScore(63), Price: 4120, UpdatedAt: now},
		{Symbol: "SBIN", BlendScore: model.NewScore(42), Price: 812.3, UpdatedAt: now},
		{Symbol: "NIFTY24500CE", BlendScore: model.NewScore(71), InstrumentType: "OPTIDX", UpdatedAt: now},
	})
	m.Set("futures", []model.Pick{
		{Symbol: "BANKNIFTY", BlendScore: model.NewScore(38), InstrumentType: "FUTIDX", UpdatedAt: now},
		{Symbol: "INFY", BlendScore: model.NewScore(66), InstrumentType: "FUTSTK", UpdatedAt: now},
	})
	m.Set("swing", []model.Pick{
		{Symbol: "LT", BlendScore: model.NewScore(81), Price: 3610, UpdatedAt: now},
		{Symbol: "WIPRO", BlendScore: model.NewScore(28), Price: 540.2, UpdatedAt: now},
	})
	return m
}

// Collector orchestrates pick fetching and classification.
type Collector struct {
	Fetcher Fetcher
	Now     func() time.Time
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher) *Collector {
	return &Collector{Fetcher: fetcher, Now: time.Now}
}

// Collect fetches the picks for mode and classifies each of them.
func (c *Collector) Collect(ctx context.Context, mode string) ([]model.ClassifiedPick, error) {
	mode = string(strategy.NormalizeMode(mode))
	picks, err := c.Fetcher.FetchPicks(ctx, mode)
	if err != nil {
		return nil, fmt.Errorf("collect %s: %w", mode, err)
	}

	now := c.Now()
	out := make([]model.ClassifiedPick, 0, len(picks))
	for _, p := range picks {
		p.Symbol = strings.TrimSpace(p.Symbol)
		if p.Symbol == "" {
			continue
		}
		if strings.TrimSpace(p.Mode) == "" {
			p.Mode = mode
		}
		cp := strategy.Evaluate(p, mode)
		cp.EvaluatedAt = now
		out = append(out, cp)
	}
	return out, nil
}
