package recorder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists historical data to a SQLite database.
type SQLiteRecorder struct {
	db *sqlx.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	// WAL mode so dashboards can read while the poller writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS poll_runs (
			id          TEXT PRIMARY KEY,
			mode        TEXT NOT NULL,
			timestamp   INTEGER NOT NULL,
			duration_ms INTEGER,
			pick_count  INTEGER,
			signal_count INTEGER,
			error       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_ts ON poll_runs(timestamp)`,

		`CREATE TABLE IF NOT EXISTS pick_snapshots (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id          TEXT NOT NULL,
			timestamp       INTEGER NOT NULL,
			mode            TEXT NOT NULL,
			symbol          TEXT NOT NULL,
			blend_score     REAL,
			score_norm      REAL,
			side            TEXT,
			strength        TEXT,
			label           TEXT,
			recommendation  TEXT,
			is_option       INTEGER,
			option_type     TEXT,
			price           REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_ts ON pick_snapshots(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_symbol ON pick_snapshots(mode, symbol)`,

		`CREATE TABLE IF NOT EXISTS pick_alerts (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      TEXT,
			timestamp   INTEGER NOT NULL,
			mode        TEXT NOT NULL,
			symbol      TEXT NOT NULL,
			previous    TEXT,
			current     TEXT,
			blend_score REAL,
			score_norm  REAL,
			delivered   INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_ts ON pick_alerts(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordRun stores the run summary and one snapshot row per pick.
func (r *SQLiteRecorder) RecordRun(ctx context.Context, run *PollRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts := run.StartedAt.Unix()
	signals := 0
	for _, cp := range run.Picks {
		if cp.HasSignal() {
			signals++
		}
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO poll_runs
		(id, mode, timestamp, duration_ms, pick_count, signal_count, error)
		VALUES (?,?,?,?,?,?,?)`,
		run.ID, run.Mode, ts, run.Duration.Milliseconds(), len(run.Picks), signals, run.Error,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, cp := range run.Picks {
		var norm *float64
		var side, strength, label string
		if d := cp.Direction; d != nil {
			n := d.ScoreNorm
			norm = &n
			side, strength, label = string(d.Side), string(d.Strength), d.Label
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO pick_snapshots
			(run_id, timestamp, mode, symbol, blend_score, score_norm, side, strength,
			 label, recommendation, is_option, option_type, price)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			run.ID, ts, cp.Mode, cp.Pick.Symbol, cp.Pick.BlendScore.Ptr(), norm, side, strength,
			label, cp.Recommendation, cp.IsOption, cp.OptionType, cp.Pick.Price,
		); err != nil {
			return fmt.Errorf("insert snapshot %s: %w", cp.Pick.Symbol, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) RecordAlert(ctx context.Context, evt *AlertEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if evt.Time.IsZero() {
		evt.Time = time.Now()
	}
	evt.Timestamp = evt.Time.Unix()
	res, err := r.db.NamedExecContext(ctx, `INSERT INTO pick_alerts
		(run_id, timestamp, mode, symbol, previous, current, blend_score, score_norm, delivered)
		VALUES (:run_id, :timestamp, :mode, :symbol, :previous, :current, :blend_score, :score_norm, :delivered)`,
		evt,
	)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		evt.ID = id
	}
	return nil
}

// ListAlerts returns the most recent alerts, newest first.
func (r *SQLiteRecorder) ListAlerts(ctx context.Context, limit int) ([]AlertEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	var alerts []AlertEvent
	if err := r.db.SelectContext(ctx, &alerts, `SELECT id, run_id, timestamp, mode, symbol,
		previous, current, blend_score, score_norm, delivered
		FROM pick_alerts ORDER BY timestamp DESC, id DESC LIMIT ?`, limit); err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	for i := range alerts {
		alerts[i].Time = time.Unix(alerts[i].Timestamp, 0)
	}
	return alerts, nil
}

func (r *SQLiteRecorder) Close() error {
	log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
