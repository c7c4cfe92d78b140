package model

import "time"

// Mode names the trading style a pick was produced for.
type Mode string

const (
	ModeScalping Mode = "scalping"
	ModeIntraday Mode = "intraday"
	ModeFutures  Mode = "futures"
	ModeSwing    Mode = "swing"
)

// Pick is a single record from the picks backend.
type Pick struct {
	Symbol         string    `json:"symbol"`
	Name           string    `json:"name,omitempty"`
	Mode           string    `json:"mode,omitempty"`
	BlendScore     Score     `json:"blend_score"`
	InstrumentType string    `json:"instrument_type,omitempty"`
	OptionType     string    `json:"option_type,omitempty"`
	Price          float64   `json:"price,omitempty"`
	UpdatedAt      time.Time `json:"updated_at,omitempty"`
}

// ClassifiedPick is a pick together with everything derived from its score.
type ClassifiedPick struct {
	Pick           Pick       `json:"pick"`
	Mode           string     `json:"mode"`
	Direction      *Direction `json:"direction"`
	Thresholds     Thresholds `json:"thresholds"`
	IsOption       bool       `json:"is_option"`
	OptionType     string     `json:"option_type,omitempty"`
	Recommendation string     `json:"recommendation"`
	EvaluatedAt    time.Time  `json:"evaluated_at"`
}

// HasSignal reports whether the pick classified into any direction.
func (c *ClassifiedPick) HasSignal() bool { return c.Direction != nil }
