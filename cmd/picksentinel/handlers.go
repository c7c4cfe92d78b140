package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"PickSentinel/internal/collector"
	"PickSentinel/internal/config"
	"PickSentinel/internal/metrics"
	"PickSentinel/internal/model"
	"PickSentinel/internal/notifier"
	"PickSentinel/internal/recorder"
	"PickSentinel/internal/scheduler"
	"PickSentinel/internal/server"
	"PickSentinel/internal/strategy"
	"PickSentinel/internal/stream"
	"PickSentinel/internal/watchlist"
)

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(config.ResolvePath(cfgFile))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	setupLogging(cfg.Log.Level)
	return cfg, nil
}

func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}

func openRecorder(path string) recorder.Recorder {
	if path == "" {
		return recorder.NewNoopRecorder()
	}
	sr, err := recorder.NewSQLiteRecorder(path)
	if err != nil {
		log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		return recorder.NewNoopRecorder()
	}
	return sr
}

// seedHub loads recent alerts so new stream clients get history after a restart.
func seedHub(ctx context.Context, hub *stream.Hub, rec recorder.Recorder, limit int) {
	alerts, err := rec.ListAlerts(ctx, limit)
	if err != nil {
		log.Warn().Err(err).Msg("load alert history")
		return
	}
	// ListAlerts is newest first; the hub keeps oldest first
	for i, j := 0, len(alerts)-1; i < j; i, j = i+1, j-1 {
		alerts[i], alerts[j] = alerts[j], alerts[i]
	}
	hub.Seed(alerts)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func newFetcher(cfg *config.Config) collector.Fetcher {
	if cfg.Backend.Mock {
		return collector.NewDemoFetcher()
	}
	return collector.NewRESTFetcher(collector.RESTOptions{
		BaseURL:        cfg.Backend.BaseURL,
		Token:          cfg.Backend.APIToken,
		Proxy:          cfg.Proxy,
		Timeout:        cfg.RequestTimeout(),
		RequestsPerSec: cfg.Backend.RequestsPerSec,
	})
}

func runDaemon(mock bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if mock {
		cfg.Backend.Mock = true
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	log.Info().Msg("PickSentinel starting")

	ctx, stop := signalContext()
	defer stop()

	m := metrics.New()

	fetcher := newFetcher(cfg)
	log.Info().Str("fetcher", fetcher.Name()).Str("base_url", cfg.Backend.BaseURL).Msg("data source")
	col := collector.NewCollector(fetcher)

	tracker, err := watchlist.Open(cfg.State.Path)
	if err != nil {
		return fmt.Errorf("open alert state: %w", err)
	}
	defer tracker.Close()

	rec := openRecorder(cfg.Database.SQLitePath)
	defer rec.Close()

	hub := stream.NewHub(cfg.Server.HistoryLimit, m.StreamClients)
	seedHub(ctx, hub, rec, cfg.Server.HistoryLimit)

	var (
		sender notifier.Sender = notifier.LogNotifier{}
		tn     *notifier.TelegramNotifier
	)
	if cfg.TelegramEnabled() {
		chatID, err := cfg.TelegramChatID()
		if err != nil {
			return err
		}
		tn, err = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, chatID, cfg.Proxy)
		if err != nil {
			log.Warn().Err(err).Msg("telegram unavailable, alerts go to the log")
		} else {
			sender = tn
		}
	} else {
		log.Info().Msg("telegram not configured, alerts go to the log")
	}

	sched := scheduler.NewScheduler(ctx, col, tracker, sender, rec, cfg.Modes)
	sched.Hub = hub
	sched.Metrics = m
	if err := sched.RegisterAll(cfg.Schedule.PollCron, cfg.Schedule.ResetCron); err != nil {
		return fmt.Errorf("register cron tasks: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("telegram polling started")
	}

	if os.Getenv("RUN_ON_START") == "true" {
		log.Info().Msg("RUN_ON_START enabled, polling now")
		sched.Trigger()
	}

	srv := server.New(server.Options{
		Port:      cfg.Server.Port,
		Recorder:  rec,
		Snapshots: sched,
		Hub:       hub,
		Metrics:   m,
		Modes:     cfg.Modes,
	})
	log.Info().Msg("PickSentinel is running. Press Ctrl+C to stop.")
	if err := srv.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	log.Info().Msg("PickSentinel stopped")
	return nil
}

func runServe(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if port == 0 {
		port = cfg.Server.Port
	}

	ctx, stop := signalContext()
	defer stop()

	m := metrics.New()
	rec := openRecorder(cfg.Database.SQLitePath)
	defer rec.Close()

	hub := stream.NewHub(cfg.Server.HistoryLimit, m.StreamClients)
	seedHub(ctx, hub, rec, cfg.Server.HistoryLimit)

	return server.New(server.Options{
		Port:     port,
		Recorder: rec,
		Hub:      hub,
		Metrics:  m,
		Modes:    cfg.Modes,
	}).ListenAndServe(ctx)
}

func runClassify(w io.Writer, score, mode, symbol, instrumentType, optionType string) error {
	p := model.Pick{
		Symbol:         symbol,
		BlendScore:     model.ScoreFromString(score),
		InstrumentType: instrumentType,
		OptionType:     optionType,
	}
	cp := strategy.Evaluate(p, mode)
	cp.EvaluatedAt = time.Now()
	return writeJSON(w, cp)
}

func runThresholds(w io.Writer, mode string) error {
	mode = string(strategy.NormalizeMode(mode))
	return writeJSON(w, map[string]any{
		"mode":       mode,
		"thresholds": strategy.PickThresholds(mode),
	})
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
