package outcome

import (
	"fmt"
	"strings"

	"github.com/sells-group/phonematch-cli/internal/model"
)

// Comment describes a row's result for humans. It depends only on its
// arguments.
func Comment(originalPhone, newPhone string, status model.StatusCode, errMsg string) string {
	if status == model.StatusMatched {
		orig, found := NormalizePhone(originalPhone), NormalizePhone(newPhone)
		switch {
		case orig == "":
			return "new phone found where none existed"
		case orig == found:
			return "phone unchanged"
		default:
			return fmt.Sprintf("phone changed %s→%s", strings.TrimSpace(originalPhone), strings.TrimSpace(newPhone))
		}
	}

	switch status {
	case model.StatusAddressMissing:
		return "no address to search with"
	case model.StatusNeighborhoodExtractionFailed:
		return "address has no neighborhood (dong/ri) token"
	case model.StatusNoResults:
		return "search returned no results"
	case model.StatusNoPhoneFound:
		return "listing found but it shows no phone"
	case model.StatusMultipleResultsNoPhone:
		return "several listings found; the best match shows no phone"
	case model.StatusProcessingError:
		if errMsg != "" {
			return "processing error: " + errMsg
		}
		return "processing error"
	}
	return string(status)
}

// NormalizePhone keeps only the digits of a phone number so that
// "055-123-4567" and "055 123 4567" compare equal.
func NormalizePhone(p string) string {
	var b strings.Builder
	for _, r := range p {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
