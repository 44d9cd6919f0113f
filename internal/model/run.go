package model

import "time"

// RunStatus represents the current state of a crawl or retry run.
type RunStatus string

const (
	RunStatusRunning     RunStatus = "running"
	RunStatusComplete    RunStatus = "complete"
	RunStatusInterrupted RunStatus = "interrupted"
	RunStatusFailed      RunStatus = "failed"
)

// RunKind distinguishes a full crawl from a targeted retry pass.
type RunKind string

const (
	RunKindCrawl RunKind = "crawl"
	RunKindRetry RunKind = "retry"
)

// Run is one ledger entry: which input was processed into which log, over
// which index range, and how it ended.
type Run struct {
	ID         string             `json:"id"`
	Kind       RunKind            `json:"kind"`
	Provider   string             `json:"provider"`
	InputPath  string             `json:"input_path"`
	OutputPath string             `json:"output_path"`
	StartIndex int                `json:"start_index"`
	EndIndex   int                `json:"end_index,omitempty"`
	LastIndex  int                `json:"last_index"` // highest index durably written
	Processed  int                `json:"processed"`
	Counts     map[StatusCode]int `json:"counts,omitempty"`
	Status     RunStatus          `json:"status"`
	Error      string             `json:"error,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

// Matched returns how many records in the run found a phone.
func (r Run) Matched() int {
	return r.Counts[StatusMatched]
}

// SuccessRate is the matched share of processed records, in [0, 1].
func (r Run) SuccessRate() float64 {
	if r.Processed == 0 {
		return 0
	}
	return float64(r.Matched()) / float64(r.Processed)
}
