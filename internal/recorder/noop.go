package recorder

import "context"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordRun(context.Context, *PollRun) error             { return nil }
func (n *NoopRecorder) RecordAlert(context.Context, *AlertEvent) error        { return nil }
func (n *NoopRecorder) ListAlerts(context.Context, int) ([]AlertEvent, error) { return nil, nil }
func (n *NoopRecorder) Close() error                                          { return nil }
