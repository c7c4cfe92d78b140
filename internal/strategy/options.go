package strategy

import (
	"regexp"
	"strings"

	"PickSentinel/internal/model"
)

// optionSymbol matches derivative symbols such as NIFTY24OCT25000CE. The
// digit before the suffix keeps equities like RELIANCE from matching.
var optionSymbol = regexp.MustCompile(`\d\s*(CE|PE)\s*$`)

var optionModes = map[string]bool{
	"option":  true,
	"options": true,
}

// IsOptionPick guesses whether a pick is an options contract. It is a
// best-effort heuristic over the mode, instrument type, option type and
// symbol fields.
func IsOptionPick(p model.Pick) bool {
	if optionModes[strings.ToLower(strings.TrimSpace(p.Mode))] {
		return true
	}
	it := strings.ToUpper(strings.TrimSpace(p.InstrumentType))
	switch {
	case it == "CE" || it == "PE":
		return true
	case strings.HasPrefix(it, "OPT"):
		return true
	}
	if normalizeOptionType(p.OptionType) != "" {
		return true
	}
	return optionSymbol.MatchString(strings.ToUpper(p.Symbol))
}

// OptionType returns "CE", "PE" or "" for a pick.
func OptionType(p model.Pick) string {
	if t := normalizeOptionType(p.OptionType); t != "" {
		return t
	}
	if m := optionSymbol.FindStringSubmatch(strings.ToUpper(p.Symbol)); m != nil {
		return m[1]
	}
	return ""
}

func normalizeOptionType(s string) string {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CE", "CALL", "C":
		return "CE"
	case "PE", "PUT", "P":
		return "PE"
	}
	return ""
}

// RecommendationLabel formats the display label for a classified pick.
// Option picks are relabeled by side; nothing is relabeled without a direction.
func RecommendationLabel(p model.Pick, dir *model.Direction) string {
	if dir == nil {
		return ""
	}
	if !IsOptionPick(p) {
		return dir.Label
	}
	if dir.Side == model.SideShort {
		return model.LabelBuyPut
	}
	return model.LabelBuyCall
}
