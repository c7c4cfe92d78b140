package stream

import (
	"math"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PickSentinel/internal/model"
	"PickSentinel/internal/recorder"
)

type envelope struct {
	Type   string                 `json:"type"`
	Text   string                 `json:"text"`
	Mode   string                 `json:"mode"`
	Alerts []recorder.AlertEvent  `json:"alerts"`
	Alert  recorder.AlertEvent    `json:"alert"`
	Picks  []model.ClassifiedPick `json:"picks"`
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var env envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func waitClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return h.Clients() == n }, 3*time.Second, 10*time.Millisecond)
}

func TestHub_GreetingAndHistory(t *testing.T) {
	h := NewHub(2, nil)
	h.Seed([]recorder.AlertEvent{
		{Symbol: "A", Current: "Buy"},
		{Symbol: "B", Current: "Sell"},
		{Symbol: "C", Current: "Strong Buy"},
	})

	srv := httptest.NewServer(h)
	defer srv.Close()
	conn := dial(t, srv)

	status := read(t, conn)
	assert.Equal(t, TypeStatus, status.Type)
	assert.Equal(t, "Connected", status.Text)

	hist := read(t, conn)
	assert.Equal(t, TypeHistory, hist.Type)
	require.Len(t, hist.Alerts, 2)
	assert.Equal(t, "B", hist.Alerts[0].Symbol)
	assert.Equal(t, "C", hist.Alerts[1].Symbol)
}

func TestHub_LiveEvents(t *testing.T) {
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "clients"})
	h := NewHub(10, gauge)
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dial(t, srv)
	read(t, conn)
	read(t, conn)
	waitClients(t, h, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(gauge))

	h.PublishAlert(recorder.AlertEvent{Mode: "intraday", Symbol: "TCS", Current: "Buy"})
	got := read(t, conn)
	assert.Equal(t, TypeAlert, got.Type)
	assert.Equal(t, "TCS", got.Alert.Symbol)

	picks := []model.ClassifiedPick{{Mode: "swing", Recommendation: "Buy", Pick: model.Pick{Symbol: "INFY"}}}
	h.PublishSnapshot("swing", picks, time.Now())
	got = read(t, conn)
	assert.Equal(t, TypeSnapshot, got.Type)
	assert.Equal(t, "swing", got.Mode)
	require.Len(t, got.Picks, 1)
	assert.Equal(t, "INFY", got.Picks[0].Pick.Symbol)

	assert.Len(t, h.History(), 1)

	conn.Close()
	waitClients(t, h, 0)
	assert.Equal(t, 0.0, testutil.ToFloat64(gauge))
}

func TestHub_UnencodableEventKeepsClient(t *testing.T) {
	h := NewHub(10, nil)
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dial(t, srv)
	read(t, conn)
	read(t, conn)
	waitClients(t, h, 1)

	bad := []model.ClassifiedPick{{Direction: &model.Direction{ScoreNorm: math.Inf(1)}}}
	h.PublishSnapshot("intraday", bad, time.Now())
	h.PublishAlert(recorder.AlertEvent{Mode: "intraday", Symbol: "TCS", Current: "Buy"})

	got := read(t, conn)
	assert.Equal(t, TypeAlert, got.Type)
	assert.Equal(t, "TCS", got.Alert.Symbol)
	assert.Equal(t, 1, h.Clients())
}

func TestHub_BroadcastDoesNotBlock(t *testing.T) {
	h := NewHub(5, nil)
	stuck := &client{out: make(chan any, 1), done: make(chan struct{})}
	h.add(stuck)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			h.PublishAlert(recorder.AlertEvent{Symbol: "X"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked on a slow client")
	}
	assert.Len(t, stuck.out, 1)
	assert.Len(t, h.History(), 5)
}
