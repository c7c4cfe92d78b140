package strategy

import (
	"strings"

	"PickSentinel/internal/model"
)

// Raw-score cutoffs on the 0-100 scale. They are the ladder bounds below
// mapped back through score = 50 + norm*50.
const (
	strongBuyMin  = 70.0
	buyMin        = 60.0
	sellMax       = 45.0
	strongSellMax = 35.0
)

// NormalizeMode lowercases and trims a mode string.
func NormalizeMode(mode string) model.Mode {
	return model.Mode(strings.ToLower(strings.TrimSpace(mode)))
}

// longOnly reports whether a mode never emits short signals.
// Swing is the only such mode; unknown modes keep shorts.
func longOnly(mode string) bool {
	return NormalizeMode(mode) == model.ModeSwing
}

// PickThresholds returns the score cutoffs used to classify picks in mode.
func PickThresholds(mode string) model.Thresholds {
	t := model.Thresholds{
		StrongBuyMin: strongBuyMin,
		BuyMin:       buyMin,
	}
	if longOnly(mode) {
		return t
	}
	sell, strongSell := sellMax, strongSellMax
	t.SellMax = &sell
	t.StrongSellMax = &strongSell
	t.HasShorts = true
	return t
}
