package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"PickSentinel/internal/model"
)

func TestObservePicks(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())
	m.ObservePicks("intraday", []model.ClassifiedPick{
		{Recommendation: model.LabelBuy},
		{Recommendation: model.LabelBuy},
		{Recommendation: ""},
	})

	assert.Equal(t, 3.0, testutil.ToFloat64(m.PicksFetched.WithLabelValues("intraday")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Classifications.WithLabelValues("intraday", "Buy")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Classifications.WithLabelValues("intraday", "none")))
}

func TestNewWithRegistry_Isolated(t *testing.T) {
	// Two registries must not collide on registration.
	a := NewWithRegistry(prometheus.NewRegistry())
	b := NewWithRegistry(prometheus.NewRegistry())
	a.AlertsSent.Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(a.AlertsSent))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.AlertsSent))
}
