package failure

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/phonematch-cli/internal/model"
)

// Selector picks which buckets a retry pass re-drives.
type Selector struct {
	buckets map[Bucket]bool
}

// ParseSelector accepts a bucket name (any case) or "all" for every failing
// bucket. Several selectors may be joined with commas.
func ParseSelector(s string) (Selector, error) {
	sel := Selector{buckets: make(map[Bucket]bool)}
	for _, part := range strings.Split(s, ",") {
		name := strings.ToUpper(strings.TrimSpace(part))
		switch name {
		case "":
			continue
		case "ALL":
			for _, b := range FailureBuckets {
				sel.buckets[b] = true
			}
		case string(ZeroSimilarity), string(PhoneCollectionFailed), string(WrongRegionMatch), string(OtherFailure):
			sel.buckets[Bucket(name)] = true
		default:
			return Selector{}, eris.Errorf("failure: unknown bucket %q", part)
		}
	}
	if len(sel.buckets) == 0 {
		return Selector{}, eris.New("failure: empty bucket selector")
	}
	return sel, nil
}

// Includes reports whether b is selected.
func (s Selector) Includes(b Bucket) bool {
	return s.buckets[b]
}

// Buckets returns the selected buckets in canonical order.
func (s Selector) Buckets() []Bucket {
	var out []Bucket
	for _, b := range FailureBuckets {
		if s.buckets[b] {
			out = append(out, b)
		}
	}
	return out
}

// Select rebuilds the records behind the report's entries in the selected
// buckets, in log order. An index logged more than once is selected once.
func Select(rep *Report, sel Selector) []model.Record {
	seen := make(map[int]bool)
	var out []model.Record
	for _, e := range rep.Entries {
		if !sel.Includes(e.Bucket) || seen[e.Row.Index] {
			continue
		}
		seen[e.Row.Index] = true
		out = append(out, e.Row.Record())
	}
	return out
}
