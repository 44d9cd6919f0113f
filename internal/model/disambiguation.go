package model

// SelectionKind tags the branch the disambiguator took for one result set.
type SelectionKind string

const (
	NoCandidates   SelectionKind = "no_candidates"
	SingleSelected SelectionKind = "single_selected"
	BestOfMany     SelectionKind = "best_of_many"
	AllTiedAtZero  SelectionKind = "all_tied_at_zero"
)

// Disambiguation is the outcome of choosing at most one candidate from a
// result set. Selected is nil only for NoCandidates.
type Disambiguation struct {
	Kind      SelectionKind `json:"kind"`
	Selected  *Candidate    `json:"selected,omitempty"`
	Score     int           `json:"score"`
	Rank      int           `json:"rank"`             // 0-based position of Selected in the collaborator's order
	Scores    []int         `json:"scores,omitempty"` // scores of the inspected candidates, rank order
	Inspected int           `json:"inspected"`
	Total     int           `json:"total"`
}

// HasSelection reports whether a candidate was chosen.
func (d Disambiguation) HasSelection() bool {
	return d.Kind != NoCandidates && d.Selected != nil
}

// Multiple reports whether the selection was made among two or more candidates.
func (d Disambiguation) Multiple() bool {
	return d.Kind == BestOfMany || d.Kind == AllTiedAtZero
}
