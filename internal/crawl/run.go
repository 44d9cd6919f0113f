package crawl

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/phonematch-cli/internal/input"
	"github.com/sells-group/phonematch-cli/internal/model"
	"github.com/sells-group/phonematch-cli/internal/outputlog"
)

// Ledger records runs and their progress.
type Ledger interface {
	CreateRun(ctx context.Context, run model.Run) (*model.Run, error)
	UpdateRunProgress(ctx context.Context, runID string, lastIndex, processed int, counts map[model.StatusCode]int) error
	FinishRun(ctx context.Context, runID string, status model.RunStatus, errMsg string) error
}

// RunOptions selects the input, the log to write, and the index range.
type RunOptions struct {
	InputPath string
	Input     input.Options
	Provider  string

	OutputDir  string
	Prefix     string
	OutputPath string // explicit log; appended to when it exists
	Resume     bool   // append to the latest log in OutputDir

	StartIndex int // explicit start; 0 resumes after the log's last index
	EndIndex   int // inclusive; 0 means the last record
	Limit      int // max records this run; 0 means no limit
}

// Run executes LOAD, RESUME_DETECT and then processes the selected range.
// Only loading the input and opening the log are fatal.
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) (*Summary, error) {
	records, err := input.Load(ctx, opts.InputPath, opts.Input)
	if err != nil {
		return nil, eris.Wrap(err, "crawl: load input")
	}
	zap.L().Info("crawl: input loaded",
		zap.String("path", opts.InputPath),
		zap.Int("records", len(records)),
	)

	logPath, err := resolveLogPath(opts, time.Now())
	if err != nil {
		return nil, err
	}
	start, err := resumeIndex(opts.StartIndex, logPath)
	if err != nil {
		return nil, err
	}
	selected := SelectRange(records, start, opts.EndIndex, opts.Limit)

	w, err := outputlog.Open(logPath)
	if err != nil {
		return nil, eris.Wrap(err, "crawl: open output log")
	}
	defer w.Close() //nolint:errcheck

	zap.L().Info("crawl: starting",
		zap.String("output", logPath),
		zap.Int("start_index", start),
		zap.Int("end_index", opts.EndIndex),
		zap.Int("records", len(selected)),
	)

	runID := o.createRun(ctx, model.RunKindCrawl, opts, logPath, start)
	sum, err := o.process(ctx, runID, selected, w)
	if sum != nil {
		sum.OutputPath = logPath
		if sum.StartIndex == 0 {
			sum.StartIndex = start
		}
	}
	o.finishRun(runID, sum, err)
	return sum, err
}

// SelectRange returns the records with start <= Index <= end (end 0 is
// unbounded), at most limit of them (limit 0 is unbounded).
func SelectRange(records []model.Record, start, end, limit int) []model.Record {
	if start < 1 {
		start = 1
	}
	var out []model.Record
	for _, r := range records {
		if r.Index < start || (end > 0 && r.Index > end) {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func resolveLogPath(opts RunOptions, now time.Time) (string, error) {
	if opts.OutputPath != "" {
		return opts.OutputPath, nil
	}
	if opts.Resume {
		latest, err := outputlog.Latest(opts.OutputDir, opts.Prefix)
		if err == nil {
			return latest, nil
		}
		if !errors.Is(err, outputlog.ErrNoLog) {
			return "", eris.Wrap(err, "crawl: find latest log")
		}
	}
	return outputlog.Name(opts.OutputDir, opts.Prefix, now), nil
}

// resumeIndex picks the first index to process: explicit wins, else one past
// the highest index already logged, else 1.
func resumeIndex(explicit int, logPath string) (int, error) {
	if explicit > 0 {
		return explicit, nil
	}
	maxIdx, err := outputlog.MaxIndex(logPath)
	if err != nil {
		return 0, eris.Wrap(err, "crawl: read checkpoint")
	}
	if maxIdx > 0 {
		zap.L().Info("crawl: resuming", zap.String("log", logPath), zap.Int("last_index", maxIdx))
	}
	return maxIdx + 1, nil
}

func (o *Orchestrator) createRun(ctx context.Context, kind model.RunKind, opts RunOptions, logPath string, start int) string {
	if o.ledger == nil {
		return ""
	}
	run, err := o.ledger.CreateRun(ctx, model.Run{
		Kind:       kind,
		Provider:   opts.Provider,
		InputPath:  opts.InputPath,
		OutputPath: logPath,
		StartIndex: start,
		EndIndex:   opts.EndIndex,
	})
	if err != nil {
		zap.L().Warn("crawl: ledger create run", zap.Error(err))
		return ""
	}
	return run.ID
}

func (o *Orchestrator) finishRun(runID string, sum *Summary, runErr error) {
	if o.ledger == nil || runID == "" {
		return
	}
	status, msg := model.RunStatusComplete, ""
	switch {
	case runErr != nil:
		status, msg = model.RunStatusFailed, runErr.Error()
	case sum != nil && sum.Interrupted:
		status = model.RunStatusInterrupted
	}
	// The run context may already be cancelled; the ledger write must still land.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.ledger.FinishRun(ctx, runID, status, msg); err != nil {
		zap.L().Warn("crawl: ledger finish run", zap.Error(err))
	}
}

// RunRecords processes records into a log at logPath and records the pass in
// the ledger under kind. The retry pass uses it with a fresh log.
func (o *Orchestrator) RunRecords(ctx context.Context, kind model.RunKind, records []model.Record, logPath string, opts RunOptions) (*Summary, error) {
	w, err := outputlog.Open(logPath)
	if err != nil {
		return nil, eris.Wrap(err, "crawl: open output log")
	}
	defer w.Close() //nolint:errcheck

	start := 0
	if len(records) > 0 {
		start = records[0].Index
	}
	runID := o.createRun(ctx, kind, opts, logPath, start)
	sum, err := o.process(ctx, runID, records, w)
	if sum != nil {
		sum.OutputPath = logPath
	}
	o.finishRun(runID, sum, err)
	return sum, err
}
