package address

import (
	"strings"

	"github.com/sells-group/phonematch-cli/internal/model"
)

// Weights sets the contribution of each matched address level.
type Weights struct {
	City                   int  `yaml:"city" mapstructure:"city"`
	District               int  `yaml:"district" mapstructure:"district"`
	Neighborhood           int  `yaml:"neighborhood" mapstructure:"neighborhood"`
	NeighborhoodBase       int  `yaml:"neighborhood_base" mapstructure:"neighborhood_base"`
	Detail                 int  `yaml:"detail" mapstructure:"detail"`
	LotNeighborhood        int  `yaml:"lot_neighborhood" mapstructure:"lot_neighborhood"`
	LotNumber              int  `yaml:"lot_number" mapstructure:"lot_number"`
	RequireCityForDistrict bool `yaml:"require_city_for_district" mapstructure:"require_city_for_district"`
}

// DefaultWeights returns the canonical weight set.
func DefaultWeights() Weights {
	return Weights{
		City:                   1,
		District:               1,
		Neighborhood:           5,
		NeighborhoodBase:       3,
		Detail:                 1,
		LotNeighborhood:        10,
		LotNumber:              5,
		RequireCityForDistrict: true,
	}
}

// Scorer compares candidate addresses against an original address. The zero
// value scores nothing; use NewScorer or DefaultScorer.
type Scorer struct {
	w Weights
}

// NewScorer creates a Scorer with the given weights.
func NewScorer(w Weights) Scorer {
	return Scorer{w: w}
}

// DefaultScorer returns a Scorer using DefaultWeights.
func DefaultScorer() Scorer {
	return NewScorer(DefaultWeights())
}

// Weights returns the scorer's weight set.
func (s Scorer) Weights() Weights {
	return s.w
}

// Score compares a plain result snippet against the original address.
func (s Scorer) Score(original, candidate string) int {
	orig := Tokenize(original)
	if orig.Empty() {
		return 0
	}

	score := s.regionScore(orig, candidate)

	if orig.HasNeighborhood {
		if strings.Contains(candidate, orig.Neighborhood) {
			score += s.w.Neighborhood
		} else if base := NeighborhoodBase(orig.Neighborhood); base != "" && strings.Contains(candidate, base) {
			score += s.w.NeighborhoodBase
		}
	}

	for _, d := range orig.Details() {
		if strings.Contains(candidate, d) {
			score += s.w.Detail
		}
	}

	return score
}

// ScoreLot compares an old-style lot (jibun) address against the original.
// Neighborhood and lot number must match exactly, token for token.
func (s Scorer) ScoreLot(original, lot string) int {
	orig := Tokenize(original)
	if orig.Empty() {
		return 0
	}
	cand := Tokenize(lot)
	if cand.Empty() {
		return 0
	}

	score := 0
	if orig.HasNeighborhood && cand.HasNeighborhood && orig.Neighborhood == cand.Neighborhood {
		score += s.w.LotNeighborhood
	}

	// Region levels only count when the lot address has that level at all.
	if len(cand.Parts) > 1 {
		score += s.regionScore(orig, lot)
	} else if city, ok := orig.City(); ok && strings.Contains(lot, city) {
		score += s.w.City
	}

	if orig.HasLot && cand.HasLot && orig.Lot == cand.Lot {
		score += s.w.LotNumber
	}
	return score
}

// ScoreCandidate scores c against original, using the lot variant when the
// candidate carries a lot address.
func (s Scorer) ScoreCandidate(original string, c model.Candidate) int {
	if c.HasLotAddress() {
		return s.ScoreLot(original, c.LotAddress)
	}
	return s.Score(original, c.AddressSnippet)
}

// regionScore scores the city and district levels. District names repeat
// across cities (every metropolitan city has a 동구), so a district match only
// counts once the city matched when RequireCityForDistrict is set.
func (s Scorer) regionScore(orig Tokens, candidate string) int {
	score := 0
	cityMatched := false
	if city, ok := orig.City(); ok && strings.Contains(candidate, city) {
		score += s.w.City
		cityMatched = true
	}
	if district, ok := orig.District(); ok && strings.Contains(candidate, district) {
		if cityMatched || !s.w.RequireCityForDistrict {
			score += s.w.District
		}
	}
	return score
}

// Score compares candidate against original with the default weights.
func Score(original, candidate string) int {
	return DefaultScorer().Score(original, candidate)
}

// ScoreLot compares a lot address against original with the default weights.
func ScoreLot(original, lot string) int {
	return DefaultScorer().ScoreLot(original, lot)
}

// ScoreCandidate scores c against original with the default weights.
func ScoreCandidate(original string, c model.Candidate) int {
	return DefaultScorer().ScoreCandidate(original, c)
}
