package recorder

import (
	"context"
	"time"

	"PickSentinel/internal/model"
)

// PollRun holds everything captured by one poll of one mode.
type PollRun struct {
	ID        string
	Mode      string
	StartedAt time.Time
	Duration  time.Duration
	Picks     []model.ClassifiedPick
	Error     string
}

// AlertEvent records a recommendation change that was announced.
type AlertEvent struct {
	ID         int64     `db:"id" json:"id"`
	RunID      string    `db:"run_id" json:"run_id"`
	Timestamp  int64     `db:"timestamp" json:"-"`
	Time       time.Time `db:"-" json:"time"`
	Mode       string    `db:"mode" json:"mode"`
	Symbol     string    `db:"symbol" json:"symbol"`
	Previous   string    `db:"previous" json:"previous"`
	Current    string    `db:"current" json:"current"`
	BlendScore *float64  `db:"blend_score" json:"blend_score"`
	ScoreNorm  *float64  `db:"score_norm" json:"score_norm"`
	Delivered  bool      `db:"delivered" json:"delivered"`
}

// Recorder persists historical data for analysis.
type Recorder interface {
	RecordRun(ctx context.Context, run *PollRun) error
	RecordAlert(ctx context.Context, evt *AlertEvent) error
	ListAlerts(ctx context.Context, limit int) ([]AlertEvent, error)
	Close() error
}
