package failure

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/phonematch-cli/internal/crawl"
	"github.com/sells-group/phonematch-cli/internal/model"
	"github.com/sells-group/phonematch-cli/internal/outputlog"
)

// RecordRunner is the slice of crawl.Orchestrator a retry pass needs.
type RecordRunner interface {
	RunRecords(ctx context.Context, kind model.RunKind, records []model.Record, logPath string, opts crawl.RunOptions) (*crawl.Summary, error)
}

// Retrier re-drives the records of selected buckets into a fresh log.
type Retrier struct {
	runner    RecordRunner
	outputDir string
	prefix    string
	opts      Options
	now       func() time.Time
}

// NewRetrier creates a Retrier writing logs named prefix_<timestamp>.csv in
// outputDir.
func NewRetrier(runner RecordRunner, outputDir, prefix string, opts Options) *Retrier {
	return &Retrier{
		runner:    runner,
		outputDir: outputDir,
		prefix:    prefix,
		opts:      opts,
		now:       time.Now,
	}
}

// RetryReport summarizes a retry pass.
type RetryReport struct {
	SourceLog  string         `json:"source_log"`
	OutputPath string         `json:"output_path"`
	Buckets    []Bucket       `json:"buckets"`
	Selected   int            `json:"selected"`
	Succeeded  int            `json:"succeeded"`
	Failed     int            `json:"failed"`
	Summary    *crawl.Summary `json:"summary,omitempty"`
}

// Retry analyzes the log at logPath and re-processes the selected records.
// Nothing is written when no record is selected.
func (r *Retrier) Retry(ctx context.Context, logPath string, sel Selector) (*RetryReport, error) {
	rows, err := outputlog.ReadAll(logPath)
	if err != nil {
		return nil, eris.Wrap(err, "failure: read log")
	}
	rep := Analyze(rows, r.opts)
	records := Select(rep, sel)

	out := &RetryReport{
		SourceLog: logPath,
		Buckets:   sel.Buckets(),
		Selected:  len(records),
	}
	zap.L().Info("failure: retry selection",
		zap.String("log", logPath),
		zap.Any("buckets", out.Buckets),
		zap.Int("analyzed", rep.Total),
		zap.Int("selected", len(records)),
	)
	if len(records) == 0 {
		return out, nil
	}

	out.OutputPath = outputlog.Name(r.outputDir, r.prefix, r.now())
	sum, err := r.runner.RunRecords(ctx, model.RunKindRetry, records, out.OutputPath, crawl.RunOptions{InputPath: logPath})
	if sum != nil {
		out.Summary = sum
		out.Succeeded = sum.Matched()
		out.Failed = sum.Failed()
	}
	if err != nil {
		return out, eris.Wrap(err, "failure: retry pass")
	}
	return out, nil
}
