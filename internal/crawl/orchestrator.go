// Package crawl drives records through search, disambiguation, extraction, and
// classification, persisting one outcome row per record before moving on.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/phonematch-cli/internal/address"
	"github.com/sells-group/phonematch-cli/internal/match"
	"github.com/sells-group/phonematch-cli/internal/model"
	"github.com/sells-group/phonematch-cli/internal/outcome"
)

// Sink persists outcome rows. Append must make the row durable before it
// returns.
type Sink interface {
	Append(row model.OutcomeRow) error
}

// Observer is notified after each row is persisted.
type Observer interface {
	RecordProcessed(row model.OutcomeRow, elapsed time.Duration)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithDisambiguator replaces the default disambiguator.
func WithDisambiguator(d *match.Disambiguator) Option {
	return func(o *Orchestrator) { o.disamb = d }
}

// WithPacer sets the inter-record pacer.
func WithPacer(p Pacer) Option {
	return func(o *Orchestrator) { o.pacer = p }
}

// WithObserver adds an observer.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) { o.observers = append(o.observers, obs) }
}

// WithFallback enables or disables the name-only fallback search.
func WithFallback(enabled bool) Option {
	return func(o *Orchestrator) { o.fallback = enabled }
}

// WithLedger records run progress in a ledger.
func WithLedger(l Ledger) Option {
	return func(o *Orchestrator) { o.ledger = l }
}

// Orchestrator processes records strictly one at a time through a single
// collaborator.
type Orchestrator struct {
	collab    match.Collaborator
	disamb    *match.Disambiguator
	pacer     Pacer
	observers []Observer
	ledger    Ledger
	fallback  bool
}

// New creates an Orchestrator around collab.
func New(collab match.Collaborator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		collab:   collab,
		disamb:   match.New(),
		pacer:    NewPacer(DefaultPacerConfig()),
		fallback: true,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Summary reports what a pass over a set of records did.
type Summary struct {
	RunID       string                   `json:"run_id,omitempty"`
	OutputPath  string                   `json:"output_path"`
	StartIndex  int                      `json:"start_index"`
	EndIndex    int                      `json:"end_index"`
	Total       int                      `json:"total"`
	Processed   int                      `json:"processed"`
	Counts      map[model.StatusCode]int `json:"counts"`
	Interrupted bool                     `json:"interrupted"`
	Duration    time.Duration            `json:"duration"`
}

// Matched returns the number of processed records that found a phone.
func (s *Summary) Matched() int {
	return s.Counts[model.StatusMatched]
}

// Failed returns the number of processed records that did not find a phone.
func (s *Summary) Failed() int {
	return s.Processed - s.Matched()
}

func (s *Summary) add(row model.OutcomeRow) {
	if s.Counts == nil {
		s.Counts = make(map[model.StatusCode]int)
	}
	s.Processed++
	s.Counts[row.Status]++
	s.EndIndex = row.Index
}

// ProcessRecords runs every record through the pipeline in order and appends
// one row per record to sink. It stops early, without error, when ctx is
// cancelled between records. Only a sink failure is returned as an error.
func (o *Orchestrator) ProcessRecords(ctx context.Context, records []model.Record, sink Sink) (*Summary, error) {
	return o.process(ctx, "", records, sink)
}

func (o *Orchestrator) process(ctx context.Context, runID string, records []model.Record, sink Sink) (*Summary, error) {
	start := time.Now()
	sum := &Summary{RunID: runID, Total: len(records), Counts: make(map[model.StatusCode]int)}
	if len(records) > 0 {
		sum.StartIndex = records[0].Index
	}

	log := zap.L().With(zap.String("run_id", runID))
	for i, rec := range records {
		if ctx.Err() != nil {
			sum.Interrupted = true
			log.Info("crawl: interrupted", zap.Int("next_index", rec.Index))
			break
		}

		recStart := time.Now()
		row := o.ProcessRecord(ctx, rec)

		// A record cut short by cancellation is left for the resumed run.
		if ctx.Err() != nil && row.Status == model.StatusProcessingError {
			sum.Interrupted = true
			log.Info("crawl: interrupted mid-record", zap.Int("index", rec.Index))
			break
		}

		if err := sink.Append(row); err != nil {
			sum.Duration = time.Since(start)
			return sum, eris.Wrapf(err, "crawl: persist row %d", rec.Index)
		}
		sum.add(row)

		elapsed := time.Since(recStart)
		for _, obs := range o.observers {
			obs.RecordProcessed(row, elapsed)
		}
		if o.ledger != nil && runID != "" {
			if err := o.ledger.UpdateRunProgress(ctx, runID, row.Index, sum.Processed, sum.Counts); err != nil {
				log.Warn("crawl: ledger progress", zap.Error(err))
			}
		}

		log.Info("crawl: record processed",
			zap.Int("index", row.Index),
			zap.String("business", row.BusinessName),
			zap.String("status", string(row.Status)),
			zap.Int("score", row.SimilarityScore),
			zap.String("phone", row.NewPhone),
			zap.String("comment", row.Comment),
			zap.Duration("elapsed", elapsed),
		)

		if i < len(records)-1 {
			o.pacer.Wait(ctx)
		}
	}

	sum.Duration = time.Since(start)
	return sum, nil
}

// ProcessRecord runs one record and always returns a row. Errors and panics
// become PROCESSING_ERROR rows.
func (o *Orchestrator) ProcessRecord(ctx context.Context, rec model.Record) (row model.OutcomeRow) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("crawl: panic processing record",
				zap.Int("index", rec.Index),
				zap.Any("panic", r),
			)
			row = outcome.Classify(outcome.Input{Record: rec, Stage: outcome.StageSearched, Err: fmt.Errorf("panic: %v", r)})
		}
	}()

	in, err := o.run(ctx, rec)
	if err != nil {
		zap.L().Warn("crawl: record failed", zap.Int("index", rec.Index), zap.Error(err))
		in.Err = rootCause(err)
	}
	return outcome.Classify(in)
}

func (o *Orchestrator) run(ctx context.Context, rec model.Record) (outcome.Input, error) {
	in := outcome.Input{Record: rec}

	if !rec.HasAddress() {
		in.Stage = outcome.StageAddressMissing
		return in, nil
	}
	nb, ok := address.Neighborhood(rec.OriginalAddress)
	if !ok {
		in.Stage = outcome.StageNeighborhoodFailed
		return in, nil
	}
	in.Stage = outcome.StageSearched

	primary, err := o.pass(ctx, rec.BusinessName+" "+nb, rec.OriginalAddress)
	if err != nil {
		return in, eris.Wrap(err, "crawl: primary pass")
	}
	in.Primary = primary

	if o.fallback && needsFallback(primary) {
		fb, err := o.pass(ctx, rec.BusinessName, rec.OriginalAddress)
		if err != nil {
			return in, eris.Wrap(err, "crawl: fallback pass")
		}
		in.Fallback = fb
	}
	return in, nil
}

func (o *Orchestrator) pass(ctx context.Context, query, original string) (*match.Resolution, error) {
	cands, err := o.collab.Search(ctx, query)
	if err != nil {
		return nil, eris.Wrapf(err, "crawl: search %q", query)
	}
	zap.L().Debug("crawl: search",
		zap.String("query", query),
		zap.Int("candidates", len(cands)),
	)

	res, err := o.disamb.Resolve(ctx, o.collab, original, cands)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// needsFallback reports whether a name-only search should follow the primary
// pass: nothing was found, or the only result had no phone.
func needsFallback(r *match.Resolution) bool {
	switch r.Disambiguation.Kind {
	case model.NoCandidates:
		return true
	case model.SingleSelected:
		return !r.HasPhone()
	}
	return false
}

// rootCause strips wrapping layers so the persisted message stays short.
func rootCause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}
