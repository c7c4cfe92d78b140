package strategy

import (
	"math"

	"PickSentinel/internal/model"
)

// rung is one step of a classification ladder. Long rungs match when the
// normalized score is >= Bound, short rungs when it is <= Bound.
type rung struct {
	Bound     float64
	Direction model.Direction
}

// longLadder and shortLadder are evaluated top-down, strong before normal.
var longLadder = []rung{
	{0.4, model.Direction{Side: model.SideLong, Strength: model.StrengthStrong, Label: model.LabelStrongBuy}},
	{0.2, model.Direction{Side: model.SideLong, Strength: model.StrengthNormal, Label: model.LabelBuy}},
}

var shortLadder = []rung{
	{-0.3, model.Direction{Side: model.SideShort, Strength: model.StrengthStrong, Label: model.LabelStrongSell}},
	{-0.1, model.Direction{Side: model.SideShort, Strength: model.StrengthNormal, Label: model.LabelSell}},
}

// NormalizeScore maps a 0-100 blend score onto [-1, 1] around 50.
// A missing or non-finite score counts as 0, so it normalizes to -1.
func NormalizeScore(score *float64) float64 {
	s := 0.0
	if score != nil && !math.IsNaN(*score) && !math.IsInf(*score, 0) {
		s = *score
	}
	return (s - 50) / 50
}

// ClassifyDirection maps a blend score to a recommendation for mode.
// It returns nil when the score falls in the neutral band, and for any
// non-long score in a long-only mode.
func ClassifyDirection(score *float64, mode string) *model.Direction {
	norm := NormalizeScore(score)

	for _, r := range longLadder {
		if norm >= r.Bound {
			return r.direction(norm)
		}
	}
	if longOnly(mode) {
		return nil
	}
	for _, r := range shortLadder {
		if norm <= r.Bound {
			return r.direction(norm)
		}
	}
	return nil
}

func (r rung) direction(norm float64) *model.Direction {
	d := r.Direction
	d.ScoreNorm = norm
	return &d
}
