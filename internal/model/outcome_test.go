package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseStatus(t *testing.T) {
	t.Parallel()

	for _, s := range AllStatuses {
		assert.Equal(t, s, ParseStatus(string(s)))
	}
	assert.Equal(t, StatusMatched, ParseStatus(" matched "))
	assert.Equal(t, StatusProcessingError, ParseStatus("처리 오류"))
	assert.Equal(t, StatusProcessingError, ParseStatus(""))
}

func TestFormatAndSplitStatus(t *testing.T) {
	t.Parallel()

	s := FormatStatus(StatusProcessingError, "timeout waiting for listing")
	assert.Equal(t, "PROCESSING_ERROR: timeout waiting for listing", s)

	code, msg := SplitStatus(s)
	assert.Equal(t, StatusProcessingError, code)
	assert.Equal(t, "timeout waiting for listing", msg)

	assert.Equal(t, "MATCHED", FormatStatus(StatusMatched, "ignored"))
	code, msg = SplitStatus("NO_RESULTS")
	assert.Equal(t, StatusNoResults, code)
	assert.Empty(t, msg)
}

func TestStatusCode_IsFailure(t *testing.T) {
	t.Parallel()

	assert.False(t, StatusMatched.IsFailure())
	for _, s := range AllStatuses[1:] {
		assert.True(t, s.IsFailure(), s)
	}
}

func TestOutcomeRow_Record(t *testing.T) {
	t.Parallel()

	row := OutcomeRow{
		Index:           12,
		BusinessName:    "아주식당",
		OriginalAddress: "경상남도 거제시 아주동 1701-3",
		OriginalPhone:   "055-111-2222",
		NewPhone:        "055-333-4444",
		Status:          StatusMatched,
	}
	assert.True(t, row.HasPhone())
	assert.Equal(t, Record{
		Index:           12,
		BusinessName:    "아주식당",
		OriginalAddress: "경상남도 거제시 아주동 1701-3",
		OriginalPhone:   "055-111-2222",
	}, row.Record())
}

func TestCandidate_BestAddress(t *testing.T) {
	t.Parallel()

	c := Candidate{AddressSnippet: "경상남도 거제시 아주로 1"}
	assert.False(t, c.HasLotAddress())
	assert.Equal(t, "경상남도 거제시 아주로 1", c.BestAddress())

	c.LotAddress = "경상남도 거제시 아주동 1701-3"
	assert.Equal(t, "경상남도 거제시 아주동 1701-3", c.BestAddress())
}

func TestFound(t *testing.T) {
	t.Parallel()

	r := Found(" 055-123-4567 ", " 거제시 ")
	assert.True(t, r.HasPhone)
	assert.Equal(t, "055-123-4567", r.Phone)
	assert.Equal(t, "거제시", r.CollectedAddress)

	assert.False(t, Found("  ", "").HasPhone)
	assert.False(t, NotFound("x").HasPhone)
}
