package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Score is a blend score that may be missing. The backend is not strict about
// its type, so numbers, numeric strings and null are all accepted.
type Score struct {
	Value float64
	Valid bool
}

// NewScore returns a present score.
func NewScore(v float64) Score { return Score{Value: v, Valid: true} }

// Ptr returns the score as a pointer, nil when missing or not finite.
func (s Score) Ptr() *float64 {
	if !s.Valid || !finite(s.Value) {
		return nil
	}
	v := s.Value
	return &v
}

func (s Score) MarshalJSON() ([]byte, error) {
	if !s.Valid || math.IsNaN(s.Value) || math.IsInf(s.Value, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(s.Value)
}

// UnmarshalJSON never fails on unexpected values; they decode as missing.
func (s *Score) UnmarshalJSON(data []byte) error {
	*s = Score{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		if finite(f) {
			*s = NewScore(f)
		}
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return nil
	}
	if f, err := ParseScore(str); err == nil {
		*s = NewScore(f)
	}
	return nil
}

// ParseScore parses a textual score. Empty input, NaN and ±Inf are rejected.
func ParseScore(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if !finite(f) {
		return 0, strconv.ErrSyntax
	}
	return f, nil
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// ScoreFromString parses s into a Score. Anything unparsable yields a
// missing score rather than an error.
func ScoreFromString(s string) Score {
	f, err := ParseScore(s)
	if err != nil {
		return Score{}
	}
	return NewScore(f)
}
