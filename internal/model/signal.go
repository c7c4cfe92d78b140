package model

// Side is the direction of a recommended position.
type Side string

// Strength distinguishes strong recommendations from normal ones.
type Strength string

const (
	SideLong  Side = "long"
	SideShort Side = "short"

	StrengthStrong Strength = "strong"
	StrengthNormal Strength = "normal"
)

// Recommendation labels.
const (
	LabelStrongBuy  = "Strong Buy"
	LabelBuy        = "Buy"
	LabelStrongSell = "Strong Sell"
	LabelSell       = "Sell"
	LabelBuyCall    = "Buy Call"
	LabelBuyPut     = "Buy Put"
)

// Direction is a classified recommendation. A nil *Direction means no signal.
type Direction struct {
	Side      Side     `json:"side"`
	Strength  Strength `json:"strength"`
	Label     string   `json:"label"`
	ScoreNorm float64  `json:"scoreNorm"`
}

// Thresholds are the score cutoffs of a mode on the raw 0-100 scale.
// SellMax and StrongSellMax are nil for long-only modes.
type Thresholds struct {
	StrongBuyMin  float64  `json:"strongBuyMin"`
	BuyMin        float64  `json:"buyMin"`
	SellMax       *float64 `json:"sellMax"`
	StrongSellMax *float64 `json:"strongSellMax"`
	HasShorts     bool     `json:"hasShorts"`
}
