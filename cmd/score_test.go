package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/phonematch-cli/internal/address"
	"github.com/sells-group/phonematch-cli/internal/apply"
	"github.com/sells-group/phonematch-cli/internal/crawl"
	"github.com/sells-group/phonematch-cli/internal/failure"
	"github.com/sells-group/phonematch-cli/internal/model"
	"github.com/sells-group/phonematch-cli/internal/store"
)

func storeFilterAll() store.RunFilter {
	return store.RunFilter{}
}

func TestWriteScore(t *testing.T) {
	var buf bytes.Buffer
	writeScore(&buf, address.DefaultScorer(), "경상남도 거제시 아주동 1234", "경상남도 거제시 아주동 1234")

	out := buf.String()
	assert.Contains(t, out, "아주동")
	assert.Contains(t, out, "1234")
	assert.Contains(t, out, "17")
	assert.Contains(t, out, "거제시")
}

func TestRenderSummary(t *testing.T) {
	var buf bytes.Buffer
	renderSummary(&buf, "Crawl", &crawl.Summary{
		OutputPath:  "result/phone_result_260101000000.csv",
		StartIndex:  1,
		EndIndex:    3,
		Total:       3,
		Processed:   2,
		Counts:      map[model.StatusCode]int{model.StatusMatched: 1, model.StatusNoResults: 1},
		Interrupted: true,
	})

	out := buf.String()
	assert.Contains(t, out, "phone_result_260101000000.csv")
	assert.Contains(t, out, "2 / 3")
	assert.Contains(t, out, "MATCHED")
	assert.Contains(t, out, "50.0%")
	assert.Contains(t, out, "--resume")
}

func TestRenderReport(t *testing.T) {
	rep := failure.Analyze([]model.OutcomeRow{
		{Index: 1, OriginalAddress: "울산광역시 동구 서부동 1", Status: model.StatusMatched, SimilarityScore: 7, CollectedAddress: "울산광역시 동구 서부동 1"},
		{Index: 2, OriginalAddress: "울산광역시 동구 화정동 2", Status: model.StatusNoResults},
	}, failure.Options{})

	var buf bytes.Buffer
	renderReport(&buf, "log.csv", rep, 5)
	out := buf.String()
	assert.Contains(t, out, "50.0%")
	assert.Contains(t, out, "NO_RESULTS")
	assert.Contains(t, out, "PHONE_COLLECTION_FAILED")
	assert.Contains(t, out, "서부동")
}

func TestRenderRetryAndApply(t *testing.T) {
	var buf bytes.Buffer
	renderRetry(&buf, &failure.RetryReport{SourceLog: "a.csv", Buckets: failure.FailureBuckets})
	assert.Contains(t, buf.String(), "nothing to retry")

	buf.Reset()
	renderApply(&buf, "out.csv", apply.Stats{Rows: 3, NewPhones: 2, Orphans: 1})
	assert.Contains(t, buf.String(), "out.csv")
	assert.Contains(t, buf.String(), "Unmatched log rows")
}
