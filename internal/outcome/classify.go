// Package outcome maps a record's disambiguation and extraction results to a
// persisted status row.
package outcome

import (
	"github.com/sells-group/phonematch-cli/internal/match"
	"github.com/sells-group/phonematch-cli/internal/model"
)

// Stage is how far a record got through the pipeline before classification.
type Stage int

const (
	// StageAddressMissing means the record had no address to search with.
	StageAddressMissing Stage = iota + 1
	// StageNeighborhoodFailed means no neighborhood token could be extracted.
	StageNeighborhoodFailed
	// StageSearched means at least the primary search pass ran.
	StageSearched
)

// Input carries everything Classify needs for one record.
type Input struct {
	Record   model.Record
	Stage    Stage
	Primary  *match.Resolution
	Fallback *match.Resolution
	Err      error
}

// Classify builds the outcome row for one record. It performs no I/O.
func Classify(in Input) model.OutcomeRow {
	row := model.OutcomeRow{
		Index:           in.Record.Index,
		BusinessName:    in.Record.BusinessName,
		OriginalAddress: in.Record.OriginalAddress,
		OriginalPhone:   in.Record.OriginalPhone,
	}

	switch {
	case in.Err != nil:
		row.Status = model.StatusProcessingError
		row.Error = in.Err.Error()
	case in.Stage == StageAddressMissing:
		row.Status = model.StatusAddressMissing
	case in.Stage == StageNeighborhoodFailed:
		row.Status = model.StatusNeighborhoodExtractionFailed
	default:
		classifySearched(&row, in.Primary, in.Fallback)
	}

	row.Comment = Comment(row.OriginalPhone, row.NewPhone, row.Status, row.Error)
	return row
}

func classifySearched(row *model.OutcomeRow, primary, fallback *match.Resolution) {
	for _, r := range []*match.Resolution{primary, fallback} {
		if r != nil && r.HasPhone() {
			row.Status = model.StatusMatched
			row.NewPhone = r.Extraction.Phone
			row.SimilarityScore = r.Disambiguation.Score
			row.CollectedAddress = CollectedAddress(*r)
			return
		}
	}

	// The fallback pass is the later one, so its selection describes the record.
	last := selected(fallback)
	if last == nil {
		last = selected(primary)
	}
	if last == nil {
		row.Status = model.StatusNoResults
		return
	}

	row.SimilarityScore = last.Disambiguation.Score
	row.CollectedAddress = CollectedAddress(*last)
	if last.Disambiguation.Multiple() {
		row.Status = model.StatusMultipleResultsNoPhone
	} else {
		row.Status = model.StatusNoPhoneFound
	}
}

func selected(r *match.Resolution) *match.Resolution {
	if r == nil || !r.Disambiguation.HasSelection() {
		return nil
	}
	return r
}

// CollectedAddress returns the address recorded for a resolution: what the
// extraction collected, else the candidate's lot address, else its snippet.
func CollectedAddress(r match.Resolution) string {
	if r.Extraction.CollectedAddress != "" {
		return r.Extraction.CollectedAddress
	}
	if r.Disambiguation.Selected == nil {
		return ""
	}
	return r.Disambiguation.Selected.BestAddress()
}
