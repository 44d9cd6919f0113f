package model

import "strings"

// StatusCode classifies the outcome of processing one record.
type StatusCode string

const (
	StatusAddressMissing               StatusCode = "ADDRESS_MISSING"
	StatusNeighborhoodExtractionFailed StatusCode = "NEIGHBORHOOD_EXTRACTION_FAILED"
	StatusNoResults                    StatusCode = "NO_RESULTS"
	StatusMatched                      StatusCode = "MATCHED"
	StatusNoPhoneFound                 StatusCode = "NO_PHONE_FOUND"
	StatusMultipleResultsNoPhone       StatusCode = "MULTIPLE_RESULTS_NO_PHONE"
	StatusProcessingError              StatusCode = "PROCESSING_ERROR"
)

// AllStatuses lists every status code in display order.
var AllStatuses = []StatusCode{
	StatusMatched,
	StatusNoPhoneFound,
	StatusMultipleResultsNoPhone,
	StatusNoResults,
	StatusAddressMissing,
	StatusNeighborhoodExtractionFailed,
	StatusProcessingError,
}

// Valid reports whether s is a known status code.
func (s StatusCode) Valid() bool {
	for _, v := range AllStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// IsFailure reports whether the status means no phone was obtained.
func (s StatusCode) IsFailure() bool {
	return s != StatusMatched
}

// ParseStatus maps a persisted status string back to a StatusCode. Unknown
// values map to StatusProcessingError.
func ParseStatus(s string) StatusCode {
	code, _ := SplitStatus(s)
	return code
}

// FormatStatus renders a status for the log's status column. Processing errors
// carry their message after the code.
func FormatStatus(code StatusCode, msg string) string {
	if code == StatusProcessingError && msg != "" {
		return string(code) + ": " + msg
	}
	return string(code)
}

// SplitStatus parses a status column written by FormatStatus.
func SplitStatus(s string) (StatusCode, string) {
	s = strings.TrimSpace(s)
	head, msg, _ := strings.Cut(s, ":")
	code := StatusCode(strings.ToUpper(strings.TrimSpace(head)))
	if !code.Valid() {
		return StatusProcessingError, s
	}
	return code, strings.TrimSpace(msg)
}

// OutcomeRow is the persisted, append-only result of one record. The csv tags
// define the fixed output column order.
type OutcomeRow struct {
	Index            int        `csv:"index" json:"index"`
	BusinessName     string     `csv:"business_name" json:"business_name"`
	OriginalAddress  string     `csv:"original_address" json:"original_address"`
	OriginalPhone    string     `csv:"original_phone" json:"original_phone"`
	NewPhone         string     `csv:"new_phone" json:"new_phone"`
	Status           StatusCode `csv:"status" json:"status"`
	SimilarityScore  int        `csv:"similarity_score" json:"similarity_score"`
	CollectedAddress string     `csv:"collected_address" json:"collected_address"`

	Comment string `csv:"-" json:"comment,omitempty"`
	Error   string `csv:"-" json:"error,omitempty"`
}

// HasPhone reports whether the row carries a newly collected phone.
func (r OutcomeRow) HasPhone() bool {
	return strings.TrimSpace(r.NewPhone) != ""
}

// Record rebuilds the input record the row was produced from.
func (r OutcomeRow) Record() Record {
	return Record{
		Index:           r.Index,
		BusinessName:    r.BusinessName,
		OriginalAddress: r.OriginalAddress,
		OriginalPhone:   r.OriginalPhone,
	}
}

// OutputColumns is the fixed header of the output log.
var OutputColumns = []string{
	"index",
	"business_name",
	"original_address",
	"original_phone",
	"new_phone",
	"status",
	"similarity_score",
	"collected_address",
}
