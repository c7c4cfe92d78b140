package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PickSentinel/internal/config"
	"PickSentinel/internal/model"
)

func execute(t *testing.T, args ...string) []byte {
	t.Helper()
	var out bytes.Buffer
	root := rootCmd()
	root.SetOut(&out)
	root.SetArgs(args)
	require.NoError(t, root.Execute())
	return out.Bytes()
}

func TestClassifyCommand(t *testing.T) {
	var cp model.ClassifiedPick
	require.NoError(t, json.Unmarshal(execute(t, "classify", "--score", "72", "--mode", "Scalping"), &cp))
	assert.Equal(t, "scalping", cp.Mode)
	assert.Equal(t, model.LabelStrongBuy, cp.Recommendation)
	require.NotNil(t, cp.Direction)
	assert.InDelta(t, 0.44, cp.Direction.ScoreNorm, 1e-9)
}

func TestClassifyCommand_MissingScore(t *testing.T) {
	var cp model.ClassifiedPick
	require.NoError(t, json.Unmarshal(execute(t, "classify", "--mode", "intraday"), &cp))
	assert.False(t, cp.Pick.BlendScore.Valid)
	assert.Equal(t, model.LabelStrongSell, cp.Recommendation)

	require.NoError(t, json.Unmarshal(execute(t, "classify", "--mode", "swing"), &cp))
	assert.Nil(t, cp.Direction)
	assert.Equal(t, "", cp.Recommendation)
}

func TestClassifyCommand_InfiniteScore(t *testing.T) {
	for _, raw := range []string{"Inf", "+Infinity", "-inf"} {
		var cp model.ClassifiedPick
		require.NoError(t, json.Unmarshal(execute(t, "classify", "--score="+raw, "--mode", "intraday"), &cp), raw)
		assert.False(t, cp.Pick.BlendScore.Valid, raw)
		assert.Equal(t, model.LabelStrongSell, cp.Recommendation, raw)
	}
}

func TestClassifyCommand_Option(t *testing.T) {
	var cp model.ClassifiedPick
	out := execute(t, "classify", "--score", "25", "--mode", "futures", "--symbol", "BANKNIFTY51000PE")
	require.NoError(t, json.Unmarshal(out, &cp))
	assert.True(t, cp.IsOption)
	assert.Equal(t, "PE", cp.OptionType)
	assert.Equal(t, model.LabelBuyPut, cp.Recommendation)
}

func TestThresholdsCommand(t *testing.T) {
	var body struct {
		Mode       string           `json:"mode"`
		Thresholds model.Thresholds `json:"thresholds"`
	}
	require.NoError(t, json.Unmarshal(execute(t, "thresholds", "--mode", "futures"), &body))
	assert.Equal(t, "futures", body.Mode)
	assert.True(t, body.Thresholds.HasShorts)
	require.NotNil(t, body.Thresholds.SellMax)
	assert.Equal(t, 45.0, *body.Thresholds.SellMax)
}

func TestNewFetcher(t *testing.T) {
	cfg := &config.Config{}
	cfg.Backend.Mock = true
	assert.Equal(t, "mock", newFetcher(cfg).Name())

	cfg.Backend.Mock = false
	cfg.Backend.BaseURL = "http://127.0.0.1:1"
	assert.Equal(t, "rest", newFetcher(cfg).Name())
}

func TestRunCommand_MockFlag(t *testing.T) {
	cmd := runCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--mock"}))
	mock, err := cmd.Flags().GetBool("mock")
	require.NoError(t, err)
	assert.True(t, mock)
}
