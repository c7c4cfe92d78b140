// Package metrics exposes Prometheus metrics for pick polling,
// classification and alert delivery.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"PickSentinel/internal/model"
)

// Metrics holds all Prometheus collectors of the service.
type Metrics struct {
	PicksFetched     *prometheus.CounterVec // picks received per mode
	Classifications  *prometheus.CounterVec // classified picks per mode and label
	FetchErrors      *prometheus.CounterVec // failed polls per mode
	PollDuration     *prometheus.HistogramVec
	LastPollSuccess  *prometheus.GaugeVec // unix time of the last good poll per mode
	AlertsSent       prometheus.Counter
	NotifyFailures   prometheus.Counter
	StreamClients    prometheus.Gauge
	APIClassifyCalls prometheus.Counter
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics on a custom registry (useful for testing).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		PicksFetched: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "picksentinel_picks_fetched_total",
			Help: "Total number of picks received from the backend",
		}, []string{"mode"}),
		Classifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "picksentinel_classifications_total",
			Help: "Classified picks by mode and recommendation",
		}, []string{"mode", "label"}),
		FetchErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "picksentinel_fetch_errors_total",
			Help: "Failed pick polls by mode",
		}, []string{"mode"}),
		PollDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "picksentinel_poll_duration_seconds",
			Help:    "Duration of a poll of one mode",
			Buckets: prometheus.DefBuckets,
		}, []string{"mode"}),
		LastPollSuccess: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "picksentinel_last_poll_success_timestamp_seconds",
			Help: "Unix time of the last successful poll by mode",
		}, []string{"mode"}),
		AlertsSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "picksentinel_alerts_sent_total",
			Help: "Recommendation change alerts delivered",
		}),
		NotifyFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "picksentinel_notify_failures_total",
			Help: "Alerts that could not be delivered",
		}),
		StreamClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "picksentinel_stream_clients",
			Help: "Connected websocket clients",
		}),
		APIClassifyCalls: factory.NewCounter(prometheus.CounterOpts{
			Name: "picksentinel_api_classify_requests_total",
			Help: "Requests served by the classify endpoint",
		}),
	}
}

// ObservePicks counts a batch of classified picks for mode.
func (m *Metrics) ObservePicks(mode string, picks []model.ClassifiedPick) {
	m.PicksFetched.WithLabelValues(mode).Add(float64(len(picks)))
	for _, cp := range picks {
		m.Classifications.WithLabelValues(mode, LabelValue(cp.Recommendation)).Inc()
	}
}

// LabelValue maps an empty recommendation to "none" for metric labels.
func LabelValue(rec string) string {
	if rec == "" {
		return "none"
	}
	return rec
}
