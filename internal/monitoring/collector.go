// Package monitoring exposes crawl metrics and raises alerts when recent runs
// go badly.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/phonematch-cli/internal/model"
	"github.com/sells-group/phonematch-cli/internal/store"
)

// Snapshot holds a point-in-time view of recent runs.
type Snapshot struct {
	RunsTotal       int `json:"runs_total"`
	RunsComplete    int `json:"runs_complete"`
	RunsFailed      int `json:"runs_failed"`
	RunsInterrupted int `json:"runs_interrupted"`
	RunsRunning     int `json:"runs_running"`

	Processed        int                      `json:"processed"`
	Matched          int                      `json:"matched"`
	ProcessingErrors int                      `json:"processing_errors"`
	Statuses         map[model.StatusCode]int `json:"statuses"`
	SuccessRate      float64                  `json:"success_rate"`
	ErrorRate        float64                  `json:"error_rate"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// RunLister is the slice of the run ledger the collector reads.
type RunLister interface {
	ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error)
}

// Collector aggregates the run ledger into snapshots.
type Collector struct {
	runs RunLister
	now  func() time.Time
}

// NewCollector creates a collector over the run ledger.
func NewCollector(runs RunLister) *Collector {
	return &Collector{runs: runs, now: time.Now}
}

// Collect aggregates runs created within the lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*Snapshot, error) {
	now := c.now().UTC()
	snap := &Snapshot{
		Statuses:      make(map[model.StatusCode]int),
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}

	runs, err := c.runs.ListRuns(ctx, store.RunFilter{
		CreatedAfter: now.Add(-time.Duration(lookbackHours) * time.Hour),
		Limit:        10000,
	})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	snap.RunsTotal = len(runs)
	for _, r := range runs {
		switch r.Status {
		case model.RunStatusComplete:
			snap.RunsComplete++
		case model.RunStatusFailed:
			snap.RunsFailed++
		case model.RunStatusInterrupted:
			snap.RunsInterrupted++
		case model.RunStatusRunning:
			snap.RunsRunning++
		}
		snap.Processed += r.Processed
		for code, n := range r.Counts {
			snap.Statuses[code] += n
		}
	}

	snap.Matched = snap.Statuses[model.StatusMatched]
	snap.ProcessingErrors = snap.Statuses[model.StatusProcessingError]
	if snap.Processed > 0 {
		snap.SuccessRate = float64(snap.Matched) / float64(snap.Processed)
		snap.ErrorRate = float64(snap.ProcessingErrors) / float64(snap.Processed)
	}
	return snap, nil
}
