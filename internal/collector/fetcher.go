package collector

import (
	"context"

	"PickSentinel/internal/model"
)

// Fetcher defines the interface for fetching picks from the backend.
type Fetcher interface {
	FetchPicks(ctx context.Context, mode string) ([]model.Pick, error)
	Name() string
}
