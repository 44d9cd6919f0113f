// Package store persists the run ledger and the search result cache.
package store

import (
	"context"
	"time"

	"github.com/sells-group/phonematch-cli/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status       model.RunStatus `json:"status,omitempty"`
	Kind         model.RunKind   `json:"kind,omitempty"`
	OutputPath   string          `json:"output_path,omitempty"`
	CreatedAfter time.Time       `json:"created_after,omitempty"`
	Limit        int             `json:"limit,omitempty"`
	Offset       int             `json:"offset,omitempty"`
}

// Cache stores raw search responses keyed by provider and query.
type Cache interface {
	GetCachedSearch(ctx context.Context, key string) ([]byte, error)
	SetCachedSearch(ctx context.Context, key string, data []byte, ttl time.Duration) error
}

// Store defines the persistence interface for runs and the search cache.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, run model.Run) (*model.Run, error)
	UpdateRunProgress(ctx context.Context, runID string, lastIndex, processed int, counts map[model.StatusCode]int) error
	FinishRun(ctx context.Context, runID string, status model.RunStatus, errMsg string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Search cache
	Cache
	DeleteExpiredSearches(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
