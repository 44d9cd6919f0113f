// Package failure buckets the rows of a finished log by failure category and
// re-drives selected records through a fresh crawl pass.
package failure

import (
	"sort"
	"strings"

	"github.com/sells-group/phonematch-cli/internal/address"
	"github.com/sells-group/phonematch-cli/internal/model"
)

// Bucket is a failure category.
type Bucket string

const (
	ZeroSimilarity        Bucket = "ZERO_SIMILARITY"
	PhoneCollectionFailed Bucket = "PHONE_COLLECTION_FAILED"
	WrongRegionMatch      Bucket = "WRONG_REGION_MATCH"
	OtherFailure          Bucket = "OTHER_FAILURE"
	OK                    Bucket = "OK"
)

// FailureBuckets lists the buckets that "all" selects.
var FailureBuckets = []Bucket{ZeroSimilarity, PhoneCollectionFailed, WrongRegionMatch, OtherFailure}

// DefaultLowConfidence is the score below which a found phone is doubted.
const DefaultLowConfidence = 5

// Options tunes bucketing.
type Options struct {
	// Regions overrides the keywords a collected address must contain to
	// count as in-region. Empty derives them from each original address.
	Regions []string
	// LowConfidence is the exclusive upper score bound of OTHER_FAILURE.
	LowConfidence int
	// RegionPrefix keeps only rows whose original address contains it.
	RegionPrefix string
}

func (o Options) lowConfidence() int {
	if o.LowConfidence > 0 {
		return o.LowConfidence
	}
	return DefaultLowConfidence
}

// Entry is one analyzed row.
type Entry struct {
	Row    model.OutcomeRow
	Bucket Bucket
}

// Report is the result of Analyze.
type Report struct {
	Entries       []Entry
	Total         int
	Buckets       map[Bucket]int
	Statuses      map[model.StatusCode]int
	Neighborhoods map[string]int
	Skipped       int // rows excluded by RegionPrefix
}

// Matched returns how many analyzed rows found a phone.
func (r *Report) Matched() int {
	return r.Statuses[model.StatusMatched]
}

// SuccessRate is the matched share of analyzed rows, in [0, 1].
func (r *Report) SuccessRate() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Matched()) / float64(r.Total)
}

// NeighborhoodCount is one line of the neighborhood distribution.
type NeighborhoodCount struct {
	Name  string
	Count int
}

// TopNeighborhoods returns the n most frequent neighborhoods, most frequent
// first and ties by name.
func (r *Report) TopNeighborhoods(n int) []NeighborhoodCount {
	out := make([]NeighborhoodCount, 0, len(r.Neighborhoods))
	for name, c := range r.Neighborhoods {
		out = append(out, NeighborhoodCount{Name: name, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Analyze buckets every row into exactly one bucket.
func Analyze(rows []model.OutcomeRow, opts Options) *Report {
	rep := &Report{
		Buckets:       make(map[Bucket]int),
		Statuses:      make(map[model.StatusCode]int),
		Neighborhoods: make(map[string]int),
	}
	for _, row := range rows {
		if opts.RegionPrefix != "" && !strings.Contains(row.OriginalAddress, opts.RegionPrefix) {
			rep.Skipped++
			continue
		}
		b := Classify(row, opts)
		rep.Entries = append(rep.Entries, Entry{Row: row, Bucket: b})
		rep.Total++
		rep.Buckets[b]++
		rep.Statuses[row.Status]++
		if nb, ok := address.Neighborhood(row.OriginalAddress); ok {
			rep.Neighborhoods[nb]++
		}
	}
	return rep
}

// Classify assigns one row to its bucket.
func Classify(row model.OutcomeRow, opts Options) Bucket {
	switch {
	case !row.HasPhone():
		return PhoneCollectionFailed
	case row.SimilarityScore <= 0:
		collected := strings.TrimSpace(row.CollectedAddress)
		if collected == "" {
			return ZeroSimilarity
		}
		keywords := opts.Regions
		if len(keywords) == 0 {
			keywords = RegionKeywords(row.OriginalAddress)
		}
		if len(keywords) > 0 && !containsAny(collected, keywords) {
			return WrongRegionMatch
		}
		return ZeroSimilarity
	case row.SimilarityScore < opts.lowConfidence():
		return OtherFailure
	}
	return OK
}

// Suffixes stripped from a city token to get its short form, longest first.
var citySuffixes = []string{"특별자치시", "특별자치도", "특별시", "광역시", "도"}

// Provinces whose common short form is not a plain suffix strip.
var provinceShort = map[string]string{
	"경상남도":    "경남",
	"경상북도":    "경북",
	"전라남도":    "전남",
	"전라북도":    "전북",
	"충청남도":    "충남",
	"충청북도":    "충북",
	"전북특별자치도": "전북",
}

// RegionKeywords derives in-region keywords from an original address: its
// district token, its city token, and the city's short form.
func RegionKeywords(original string) []string {
	t := address.Tokenize(original)
	var out []string
	if d, ok := t.District(); ok {
		out = append(out, d)
	}
	city, ok := t.City()
	if !ok {
		return out
	}
	out = append(out, city)
	if short, ok := provinceShort[city]; ok {
		return append(out, short)
	}
	for _, suf := range citySuffixes {
		if short := strings.TrimSuffix(city, suf); short != city && short != "" {
			return append(out, short)
		}
	}
	return out
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if k != "" && strings.Contains(s, k) {
			return true
		}
	}
	return false
}
