package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"PickSentinel/internal/metrics"
	"PickSentinel/internal/model"
	"PickSentinel/internal/recorder"
	"PickSentinel/internal/scheduler"
	"PickSentinel/internal/strategy"
	"PickSentinel/internal/stream"
)

const (
	defaultAlertLimit = 50
	maxAlertLimit     = 500
)

// SnapshotSource provides the latest classified picks per mode.
type SnapshotSource interface {
	Snapshot(mode string) (scheduler.Snapshot, bool)
	Snapshots() []scheduler.Snapshot
}

// Options configures the HTTP server. Everything but Recorder is optional.
type Options struct {
	Port      int
	Recorder  recorder.Recorder
	Snapshots SnapshotSource
	Hub       *stream.Hub
	Metrics   *metrics.Metrics
	Gatherer  prometheus.Gatherer
	Modes     []string
}

// Server provides the HTTP API.
type Server struct {
	opts Options
}

// New creates a new HTTP server.
func New(opts Options) *Server {
	if opts.Port == 0 {
		opts.Port = 8080
	}
	if opts.Recorder == nil {
		opts.Recorder = recorder.NewNoopRecorder()
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if len(opts.Modes) == 0 {
		opts.Modes = []string{
			string(model.ModeScalping), string(model.ModeIntraday),
			string(model.ModeFutures), string(model.ModeSwing),
		}
	}
	return &Server{opts: opts}
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/v1/thresholds", s.handleThresholds)
	mux.HandleFunc("/api/v1/classify", s.handleClassify)
	mux.HandleFunc("/api/v1/picks", s.handlePicks)
	mux.HandleFunc("/api/v1/alerts", s.handleAlerts)
	mux.Handle("/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))
	if s.opts.Hub != nil {
		mux.Handle("/ws", s.opts.Hub)
	}
	return mux
}

// ListenAndServe starts the HTTP server and shuts it down when ctx ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.opts.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		log.Info().Msg("http server stopped")
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleThresholds(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	if mode := r.URL.Query().Get("mode"); mode != "" {
		mode = string(strategy.NormalizeMode(mode))
		writeJSON(w, http.StatusOK, map[string]any{
			"mode": mode,
			"data": strategy.PickThresholds(mode),
		})
		return
	}

	all := make(map[string]model.Thresholds, len(s.opts.Modes))
	for _, m := range s.opts.Modes {
		all[m] = strategy.PickThresholds(m)
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": all})
}

// handleClassify never rejects a score: a missing or unparsable value
// classifies as a missing score.
func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	if s.opts.Metrics != nil {
		s.opts.Metrics.APIClassifyCalls.Inc()
	}

	q := r.URL.Query()
	p := model.Pick{
		Symbol:         q.Get("symbol"),
		BlendScore:     model.ScoreFromString(q.Get("score")),
		InstrumentType: q.Get("instrument_type"),
		OptionType:     q.Get("option_type"),
	}
	cp := strategy.Evaluate(p, q.Get("mode"))
	cp.EvaluatedAt = time.Now()
	writeJSON(w, http.StatusOK, map[string]any{"data": cp})
}

func (s *Server) handlePicks(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	if s.opts.Snapshots == nil {
		writeJSON(w, http.StatusOK, map[string]any{"data": []scheduler.Snapshot{}, "count": 0})
		return
	}

	if mode := strings.TrimSpace(r.URL.Query().Get("mode")); mode != "" {
		snap, ok := s.opts.Snapshots.Snapshot(mode)
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no snapshot for mode " + mode})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": snap, "count": len(snap.Picks)})
		return
	}

	snaps := s.opts.Snapshots.Snapshots()
	writeJSON(w, http.StatusOK, map[string]any{"data": snaps, "count": len(snaps)})
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	limit := defaultAlertLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxAlertLimit)
	}

	alerts, err := s.opts.Recorder.ListAlerts(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if alerts == nil {
		alerts = []recorder.AlertEvent{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":  alerts,
		"count": len(alerts),
	})
}

func allowGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return false
	}
	return true
}

// writeJSON encodes before writing the header so an unencodable value turns
// into a 500 instead of an empty 200.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("encode response")
		status = http.StatusInternalServerError
		data, _ = json.Marshal(map[string]string{"error": "encode response"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(data, '\n')); err != nil {
		log.Debug().Err(err).Msg("write response")
	}
}
