package strategy

import (
	"strings"

	"PickSentinel/internal/model"
)

// Evaluate classifies a single pick. The pick's own mode wins; fallbackMode
// is used when the record carries none, which is the usual case for picks
// fetched per mode.
func Evaluate(p model.Pick, fallbackMode string) model.ClassifiedPick {
	mode := strings.TrimSpace(p.Mode)
	if mode == "" || optionModes[strings.ToLower(mode)] {
		mode = fallbackMode
	}
	mode = string(NormalizeMode(mode))

	dir := ClassifyDirection(p.BlendScore.Ptr(), mode)
	cp := model.ClassifiedPick{
		Pick:           p,
		Mode:           mode,
		Direction:      dir,
		Thresholds:     PickThresholds(mode),
		IsOption:       IsOptionPick(p),
		Recommendation: RecommendationLabel(p, dir),
	}
	if cp.IsOption {
		cp.OptionType = OptionType(p)
	}
	return cp
}

// EvaluateAll classifies a batch of picks fetched under mode.
func EvaluateAll(picks []model.Pick, mode string) []model.ClassifiedPick {
	out := make([]model.ClassifiedPick, 0, len(picks))
	for _, p := range picks {
		out = append(out, Evaluate(p, mode))
	}
	return out
}
