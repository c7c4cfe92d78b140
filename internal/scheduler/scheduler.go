package scheduler

import (
	"context"
	"fmt"
	"html"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"PickSentinel/internal/collector"
	"PickSentinel/internal/metrics"
	"PickSentinel/internal/model"
	"PickSentinel/internal/notifier"
	"PickSentinel/internal/recorder"
	"PickSentinel/internal/stream"
	"PickSentinel/internal/strategy"
	"PickSentinel/internal/watchlist"
)

const (
	sendRetries  = 3
	alertsInChat = 10
)

// Snapshot is the latest classified picks of one mode.
type Snapshot struct {
	Mode  string                 `json:"mode"`
	RunID string                 `json:"run_id"`
	Picks []model.ClassifiedPick `json:"picks"`
	At    time.Time              `json:"at"`
}

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron      *cron.Cron
	Collector *collector.Collector
	Tracker   *watchlist.Tracker
	Notifier  notifier.Sender
	Recorder  recorder.Recorder
	Hub       *stream.Hub      // optional
	Metrics   *metrics.Metrics // optional
	Modes     []string
	Ctx       context.Context

	mu        sync.RWMutex
	snapshots map[string]Snapshot
	adhoc     sync.WaitGroup // polls started outside cron
}

// NewScheduler creates a new Scheduler polling modes.
func NewScheduler(ctx context.Context, col *collector.Collector, tr *watchlist.Tracker, sender notifier.Sender, rec recorder.Recorder, modes []string) *Scheduler {
	normalized := make([]string, 0, len(modes))
	for _, m := range modes {
		normalized = append(normalized, string(strategy.NormalizeMode(m)))
	}
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		Collector: col,
		Tracker:   tr,
		Notifier:  sender,
		Recorder:  rec,
		Modes:     normalized,
		Ctx:       ctx,
		snapshots: make(map[string]Snapshot),
	}
}

// RegisterAll registers the poll and state reset tasks.
func (s *Scheduler) RegisterAll(pollCron, resetCron string) error {
	if _, err := s.Cron.AddFunc(pollCron, s.pollAll); err != nil {
		return fmt.Errorf("register poll task: %w", err)
	}
	if resetCron == "" {
		return nil
	}
	if _, err := s.Cron.AddFunc(resetCron, s.resetState); err != nil {
		return fmt.Errorf("register reset task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Strs("modes", s.Modes).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs, including
// polls started by Trigger.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.adhoc.Wait()
	log.Info().Msg("scheduler stopped")
}

// RunNow polls every mode immediately and blocks until done.
func (s *Scheduler) RunNow() {
	s.pollAll()
}

// Trigger starts a poll of every mode in the background (manual trigger /
// RUN_ON_START). Stop waits for it.
func (s *Scheduler) Trigger() {
	s.adhoc.Add(1)
	go func() {
		defer s.adhoc.Done()
		s.pollAll()
	}()
}

func (s *Scheduler) pollAll() {
	for _, mode := range s.Modes {
		if s.Ctx.Err() != nil {
			return
		}
		if err := s.PollMode(mode); err != nil {
			log.Error().Err(err).Str("mode", mode).Msg("poll failed")
		}
	}
}

// PollMode fetches, classifies and diffs the picks of one mode, announcing
// every recommendation change.
func (s *Scheduler) PollMode(mode string) error {
	mode = string(strategy.NormalizeMode(mode))
	runID := uuid.NewString()
	start := time.Now()

	picks, err := s.Collector.Collect(s.Ctx, mode)
	run := &recorder.PollRun{
		ID:        runID,
		Mode:      mode,
		StartedAt: start,
		Duration:  time.Since(start),
		Picks:     picks,
	}
	if s.Metrics != nil {
		s.Metrics.PollDuration.WithLabelValues(mode).Observe(run.Duration.Seconds())
	}
	if err != nil {
		run.Error = err.Error()
		if s.Metrics != nil {
			s.Metrics.FetchErrors.WithLabelValues(mode).Inc()
		}
		s.recordRun(run)
		return err
	}

	snap := Snapshot{Mode: mode, RunID: runID, Picks: picks, At: start}
	s.mu.Lock()
	s.snapshots[mode] = snap
	s.mu.Unlock()

	s.recordRun(run)
	if s.Metrics != nil {
		s.Metrics.ObservePicks(mode, picks)
		s.Metrics.LastPollSuccess.WithLabelValues(mode).Set(float64(start.Unix()))
	}
	if s.Hub != nil {
		s.Hub.PublishSnapshot(mode, picks, start)
	}

	changes, err := s.Tracker.ObserveAll(picks)
	for _, ch := range changes {
		s.announce(runID, ch)
	}
	if err != nil {
		return fmt.Errorf("track %s: %w", mode, err)
	}

	log.Info().Str("mode", mode).Str("run_id", runID).Int("picks", len(picks)).
		Int("changes", len(changes)).Dur("took", time.Since(start)).Msg("poll complete")
	return nil
}

func (s *Scheduler) announce(runID string, ch watchlist.Change) {
	delivered := true
	if err := notifier.SendWithRetry(s.Ctx, s.Notifier, notifier.FormatAlert(ch), sendRetries); err != nil {
		delivered = false
		log.Error().Err(err).Str("mode", ch.Mode).Str("symbol", ch.Symbol).Str("label", ch.Current).Msg("send alert")
		if s.Metrics != nil {
			s.Metrics.NotifyFailures.Inc()
		}
	} else if s.Metrics != nil {
		s.Metrics.AlertsSent.Inc()
	}

	evt := recorder.AlertEvent{
		RunID:      runID,
		Timestamp:  ch.At.Unix(),
		Time:       ch.At,
		Mode:       ch.Mode,
		Symbol:     ch.Symbol,
		Previous:   ch.Previous,
		Current:    ch.Current,
		BlendScore: ch.Pick.Pick.BlendScore.Ptr(),
		Delivered:  delivered,
	}
	if ch.Pick.Direction != nil {
		norm := ch.Pick.Direction.ScoreNorm
		evt.ScoreNorm = &norm
	}
	if err := s.Recorder.RecordAlert(s.Ctx, &evt); err != nil {
		log.Error().Err(err).Msg("record alert")
	}
	if s.Hub != nil {
		s.Hub.PublishAlert(evt)
	}
}

func (s *Scheduler) recordRun(run *recorder.PollRun) {
	if err := s.Recorder.RecordRun(s.Ctx, run); err != nil {
		log.Error().Err(err).Str("mode", run.Mode).Msg("record run")
	}
}

func (s *Scheduler) resetState() {
	if err := s.Tracker.Reset(); err != nil {
		log.Error().Err(err).Msg("reset alert state")
		return
	}
	log.Info().Msg("alert state reset")
}

// Snapshot returns the latest snapshot of mode.
func (s *Scheduler) Snapshot(mode string) (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[string(strategy.NormalizeMode(mode))]
	return snap, ok
}

// Snapshots returns the latest snapshot of every polled mode in
// configuration order.
func (s *Scheduler) Snapshots() []Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Snapshot, 0, len(s.snapshots))
	for _, mode := range s.Modes {
		if snap, ok := s.snapshots[mode]; ok {
			out = append(out, snap)
		}
	}
	return out
}

const helpText = `Available commands:
• /picks [mode]
• /thresholds [mode]
• /classify &lt;score&gt; [mode]
• /alerts
• /watch [mode]
• /poll`

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	name := strings.ToLower(fields[0])
	if i := strings.IndexByte(name, '@'); i > 0 {
		name = name[:i]
	}
	args := fields[1:]

	switch name {
	case "/picks":
		mode := s.modeArg(args, 0)
		snap, ok := s.Snapshot(mode)
		if !ok {
			return fmt.Sprintf("No %s snapshot yet.", html.EscapeString(mode))
		}
		return notifier.FormatPickList(mode, snap.Picks)
	case "/thresholds":
		mode := s.modeArg(args, 0)
		return notifier.FormatThresholds(mode, strategy.PickThresholds(mode))
	case "/classify":
		if len(args) == 0 {
			return "Usage: /classify &lt;score&gt; [mode]"
		}
		p := model.Pick{BlendScore: model.ScoreFromString(args[0])}
		return notifier.FormatClassification(strategy.Evaluate(p, s.modeArg(args, 1)))
	case "/alerts":
		return notifier.FormatAlertHistory(s.recentAlerts(alertsInChat))
	case "/watch":
		mode := s.modeArg(args, 0)
		labels, err := s.Tracker.Labels(mode)
		if err != nil {
			log.Error().Err(err).Str("mode", mode).Msg("read alert state")
			return "Alert state unavailable."
		}
		return notifier.FormatWatchlist(mode, labels)
	case "/poll":
		s.Trigger()
		return "Polling all modes."
	default:
		return helpText
	}
}

func (s *Scheduler) modeArg(args []string, i int) string {
	if i < len(args) {
		return string(strategy.NormalizeMode(args[i]))
	}
	if len(s.Modes) > 0 {
		return s.Modes[0]
	}
	return string(model.ModeIntraday)
}

// recentAlerts reads alerts from the recorder, newest first, falling back
// to the in-memory stream history.
func (s *Scheduler) recentAlerts(limit int) []recorder.AlertEvent {
	alerts, err := s.Recorder.ListAlerts(s.Ctx, limit)
	if err != nil {
		log.Error().Err(err).Msg("list alerts")
	}
	if len(alerts) > 0 || s.Hub == nil {
		return alerts
	}
	hist := s.Hub.History()
	slices.Reverse(hist)
	if len(hist) > limit {
		hist = hist[:limit]
	}
	return hist
}
