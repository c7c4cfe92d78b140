package strategy

import (
	"testing"

	"PickSentinel/internal/model"
)

func TestIsOptionPick(t *testing.T) {
	tests := []struct {
		name string
		pick model.Pick
		want bool
	}{
		{"options mode", model.Pick{Symbol: "NIFTY", Mode: "Options"}, true},
		{"instrument OPTIDX", model.Pick{Symbol: "BANKNIFTY", InstrumentType: "OPTIDX"}, true},
		{"instrument CE", model.Pick{Symbol: "X", InstrumentType: "ce"}, true},
		{"option type put", model.Pick{Symbol: "X", OptionType: "PUT"}, true},
		{"symbol suffix CE", model.Pick{Symbol: "NIFTY24OCT25000CE"}, true},
		{"symbol suffix with space", model.Pick{Symbol: "BANKNIFTY 48000 PE"}, true},
		{"lowercase symbol", model.Pick{Symbol: "nifty24500ce"}, true},
		{"equity ending in CE", model.Pick{Symbol: "RELIANCE"}, false},
		{"equity ending in PE", model.Pick{Symbol: "ESCAPE"}, false},
		{"plain equity", model.Pick{Symbol: "INFY", InstrumentType: "EQ"}, false},
		{"futures", model.Pick{Symbol: "NIFTY24OCTFUT", InstrumentType: "FUTIDX"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsOptionPick(tt.pick); got != tt.want {
				t.Errorf("IsOptionPick(%+v) = %v, want %v", tt.pick, got, tt.want)
			}
		})
	}
}

func TestOptionType(t *testing.T) {
	tests := []struct {
		pick model.Pick
		want string
	}{
		{model.Pick{OptionType: "call"}, "CE"},
		{model.Pick{OptionType: "PE"}, "PE"},
		{model.Pick{Symbol: "NIFTY24OCT25000CE"}, "CE"},
		{model.Pick{Symbol: "NIFTY24OCT25000PE", OptionType: "CE"}, "CE"},
		{model.Pick{Symbol: "RELIANCE"}, ""},
		{model.Pick{}, ""},
	}
	for _, tt := range tests {
		if got := OptionType(tt.pick); got != tt.want {
			t.Errorf("OptionType(%+v) = %q, want %q", tt.pick, got, tt.want)
		}
	}
}

func TestRecommendationLabel(t *testing.T) {
	long := ClassifyDirection(score(80), "intraday")
	short := ClassifyDirection(score(40), "intraday")
	equity := model.Pick{Symbol: "INFY"}
	option := model.Pick{Symbol: "NIFTY24OCT25000CE"}

	if got := RecommendationLabel(equity, long); got != model.LabelStrongBuy {
		t.Errorf("equity long: got %q", got)
	}
	if got := RecommendationLabel(equity, short); got != model.LabelSell {
		t.Errorf("equity short: got %q", got)
	}
	if got := RecommendationLabel(option, long); got != model.LabelBuyCall {
		t.Errorf("option long: got %q", got)
	}
	if got := RecommendationLabel(option, short); got != model.LabelBuyPut {
		t.Errorf("option short: got %q", got)
	}
	if got := RecommendationLabel(option, nil); got != "" {
		t.Errorf("no direction must not relabel, got %q", got)
	}
}
