package match

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/phonematch-cli/internal/address"
	"github.com/sells-group/phonematch-cli/internal/model"
)

// DefaultTopN is how many candidates are scored when a search returns several.
const DefaultTopN = 3

// Resolution is the disambiguation outcome plus whatever extraction produced
// for the selected candidate.
type Resolution struct {
	Disambiguation model.Disambiguation   `json:"disambiguation"`
	Extraction     model.ExtractionResult `json:"extraction"`
}

// HasPhone reports whether the selected candidate yielded a phone.
func (r Resolution) HasPhone() bool {
	return r.Disambiguation.HasSelection() && r.Extraction.HasPhone
}

// Option configures a Disambiguator.
type Option func(*Disambiguator)

// WithScorer overrides the default address scorer.
func WithScorer(s address.Scorer) Option {
	return func(d *Disambiguator) {
		d.scorer = s
	}
}

// WithTopN sets how many candidates are inspected. Values below 1 are ignored.
func WithTopN(n int) Option {
	return func(d *Disambiguator) {
		if n > 0 {
			d.topN = n
		}
	}
}

// Disambiguator applies the no/single/multi result policy to a candidate set.
type Disambiguator struct {
	scorer address.Scorer
	topN   int
}

// New creates a Disambiguator with default scorer weights and top-N.
func New(opts ...Option) *Disambiguator {
	d := &Disambiguator{
		scorer: address.DefaultScorer(),
		topN:   DefaultTopN,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Select picks at most one candidate. It performs no I/O.
//
// With several candidates only the first topN are scored; the first candidate
// holding the maximum wins ties. When every inspected candidate scores 0 the
// first candidate is still selected.
func (d *Disambiguator) Select(original string, cands []model.Candidate) model.Disambiguation {
	switch len(cands) {
	case 0:
		return model.Disambiguation{Kind: model.NoCandidates}
	case 1:
		c := cands[0]
		score := d.scorer.ScoreCandidate(original, c)
		return model.Disambiguation{
			Kind:      model.SingleSelected,
			Selected:  &c,
			Score:     score,
			Scores:    []int{score},
			Inspected: 1,
			Total:     1,
		}
	}

	top := cands
	if len(top) > d.topN {
		top = top[:d.topN]
	}

	scores := make([]int, len(top))
	best, bestScore := -1, -1
	for i, c := range top {
		scores[i] = d.scorer.ScoreCandidate(original, c)
		if scores[i] > bestScore {
			best, bestScore = i, scores[i]
		}
	}

	selected := top[best]
	kind := model.BestOfMany
	if bestScore == 0 {
		kind = model.AllTiedAtZero
	}
	return model.Disambiguation{
		Kind:      kind,
		Selected:  &selected,
		Score:     bestScore,
		Rank:      best,
		Scores:    scores,
		Inspected: len(top),
		Total:     len(cands),
	}
}

// Resolve selects a candidate and extracts its phone through collab.
//
// A single candidate is read directly first and only opened when the listing
// carries no phone. With several candidates only the selected one is opened.
func (d *Disambiguator) Resolve(ctx context.Context, collab Collaborator, original string, cands []model.Candidate) (Resolution, error) {
	res := Resolution{Disambiguation: d.Select(original, cands)}
	if !res.Disambiguation.HasSelection() {
		return res, nil
	}
	selected := *res.Disambiguation.Selected

	if res.Disambiguation.Kind == model.SingleSelected {
		direct, err := inspect(ctx, collab, selected, collab.ExtractDirect)
		if err != nil {
			return res, eris.Wrap(err, "match: direct extraction")
		}
		if direct.HasPhone {
			res.Extraction = direct
			return res, nil
		}

		detail, err := inspect(ctx, collab, selected, collab.ExtractDetail)
		if err != nil {
			return res, eris.Wrap(err, "match: detail extraction")
		}
		if detail.CollectedAddress == "" {
			detail.CollectedAddress = direct.CollectedAddress
		}
		res.Extraction = detail
		return res, nil
	}

	detail, err := inspect(ctx, collab, selected, collab.ExtractDetail)
	if err != nil {
		return res, eris.Wrap(err, "match: detail extraction")
	}
	res.Extraction = detail
	return res, nil
}

// inspect runs one extraction and returns the collaborator to its neutral
// state afterwards, whatever the extraction did.
func inspect(
	ctx context.Context,
	collab Collaborator,
	c model.Candidate,
	extract func(context.Context, model.Candidate) (model.ExtractionResult, error),
) (model.ExtractionResult, error) {
	if r, ok := collab.(Resetter); ok {
		defer func() {
			if err := r.Reset(ctx); err != nil {
				zap.L().Warn("match: reset collaborator", zap.String("handle", c.Handle), zap.Error(err))
			}
		}()
	}
	return extract(ctx, c)
}
