package failure

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/phonematch-cli/internal/crawl"
	"github.com/sells-group/phonematch-cli/internal/model"
	"github.com/sells-group/phonematch-cli/internal/outputlog"
)

const ulsan = "울산광역시 동구 일산동 123-4"

func outRow(idx int, phone string, score int, collected string) model.OutcomeRow {
	status := model.StatusMatched
	if phone == "" {
		status = model.StatusNoPhoneFound
	}
	return model.OutcomeRow{
		Index:            idx,
		BusinessName:     "가게",
		OriginalAddress:  ulsan,
		NewPhone:         phone,
		Status:           status,
		SimilarityScore:  score,
		CollectedAddress: collected,
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		row  model.OutcomeRow
		want Bucket
	}{
		{"no phone", outRow(1, "", 7, "울산 동구"), PhoneCollectionFailed},
		{"zero plausible", outRow(2, "052-1", 0, "울산 동구 화정동"), ZeroSimilarity},
		{"zero empty collected", outRow(3, "052-1", 0, ""), ZeroSimilarity},
		{"zero wrong region", outRow(4, "02-1", 0, "서울 강남구 역삼동"), WrongRegionMatch},
		{"low confidence", outRow(5, "052-1", 2, "울산광역시 동구"), OtherFailure},
		{"ok", outRow(6, "052-1", 5, "울산광역시 동구 일산동"), OK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.row, Options{}))
		})
	}
}

func TestClassify_ExplicitRegions(t *testing.T) {
	row := outRow(1, "052-1", 0, "울산 동구 화정동")
	assert.Equal(t, WrongRegionMatch, Classify(row, Options{Regions: []string{"거제"}}))
	assert.Equal(t, ZeroSimilarity, Classify(row, Options{Regions: []string{"거제", "화정"}}))
}

func TestClassify_LowConfidenceThreshold(t *testing.T) {
	row := outRow(1, "052-1", 6, "울산광역시 동구")
	assert.Equal(t, OK, Classify(row, Options{}))
	assert.Equal(t, OtherFailure, Classify(row, Options{LowConfidence: 10}))
}

func TestRegionKeywords(t *testing.T) {
	assert.Equal(t, []string{"동구", "울산광역시", "울산"}, RegionKeywords(ulsan))
	assert.Equal(t, []string{"거제시", "경상남도", "경남"}, RegionKeywords("경상남도 거제시 아주동"))
	assert.Equal(t, []string{"수원시", "경기도", "경기"}, RegionKeywords("경기도 수원시 매탄동"))
	assert.Equal(t, []string{"세종특별자치시", "세종"}, RegionKeywords("세종특별자치시"))
	assert.Empty(t, RegionKeywords(""))
}

func TestAnalyze_EveryRowInOneBucket(t *testing.T) {
	rows := []model.OutcomeRow{
		outRow(1, "", 0, ""),
		outRow(2, "052-1", 0, "울산 동구"),
		outRow(3, "02-1", 0, "서울 중구"),
		outRow(4, "052-1", 3, "울산광역시"),
		outRow(5, "052-1", 8, "울산광역시 동구 일산동"),
	}
	other := outRow(6, "051-1", 8, "부산 해운대구")
	other.OriginalAddress = "부산광역시 해운대구 우동 1-1"
	rows = append(rows, other)

	rep := Analyze(rows, Options{})
	assert.Equal(t, 6, rep.Total)
	sum := 0
	for _, n := range rep.Buckets {
		sum += n
	}
	assert.Equal(t, rep.Total, sum)
	assert.Equal(t, 1, rep.Buckets[PhoneCollectionFailed])
	assert.Equal(t, 1, rep.Buckets[ZeroSimilarity])
	assert.Equal(t, 1, rep.Buckets[WrongRegionMatch])
	assert.Equal(t, 1, rep.Buckets[OtherFailure])
	assert.Equal(t, 2, rep.Buckets[OK])
	assert.Equal(t, 5, rep.Matched())
	assert.Equal(t, []NeighborhoodCount{{"일산동", 5}, {"우동", 1}}, rep.TopNeighborhoods(0))

	filtered := Analyze(rows, Options{RegionPrefix: "울산광역시 동구"})
	assert.Equal(t, 5, filtered.Total)
	assert.Equal(t, 1, filtered.Skipped)
	assert.InDelta(t, 0.8, filtered.SuccessRate(), 1e-9)
}

func TestParseSelector(t *testing.T) {
	sel, err := ParseSelector("all")
	require.NoError(t, err)
	assert.Equal(t, FailureBuckets, sel.Buckets())
	assert.False(t, sel.Includes(OK))

	sel, err = ParseSelector("zero_similarity, WRONG_REGION_MATCH")
	require.NoError(t, err)
	assert.Equal(t, []Bucket{ZeroSimilarity, WrongRegionMatch}, sel.Buckets())

	_, err = ParseSelector("ok")
	assert.Error(t, err)
	_, err = ParseSelector("bogus")
	assert.Error(t, err)
	_, err = ParseSelector(" ")
	assert.Error(t, err)
}

func TestSelect_DedupesIndex(t *testing.T) {
	rows := []model.OutcomeRow{
		outRow(1, "", 0, ""),
		outRow(2, "052-1", 9, "울산광역시 동구 일산동"),
		outRow(1, "", 0, ""),
		outRow(3, "02-1", 0, "서울"),
	}
	sel, err := ParseSelector("all")
	require.NoError(t, err)
	recs := Select(Analyze(rows, Options{}), sel)
	require.Len(t, recs, 2)
	assert.Equal(t, 1, recs[0].Index)
	assert.Equal(t, 3, recs[1].Index)
	assert.Equal(t, ulsan, recs[0].OriginalAddress)
}

// --- RecordRunner Mock ---

type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) RunRecords(ctx context.Context, kind model.RunKind, records []model.Record, logPath string, opts crawl.RunOptions) (*crawl.Summary, error) {
	args := m.Called(ctx, kind, records, logPath, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*crawl.Summary), args.Error(1)
}

func writeLog(t *testing.T, rows ...model.OutcomeRow) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "result_260101000000.csv")
	w, err := outputlog.Create(path)
	require.NoError(t, err)
	for _, r := range rows {
		require.NoError(t, w.Append(r))
	}
	require.NoError(t, w.Close())
	return path
}

func TestRetrier_Retry(t *testing.T) {
	logPath := writeLog(t,
		outRow(1, "", 0, ""),
		outRow(2, "052-1", 9, "울산광역시 동구 일산동"),
		outRow(3, "02-1", 0, "서울"),
	)
	outDir := t.TempDir()
	stamp := time.Date(2026, 5, 1, 8, 30, 0, 0, time.UTC)
	wantLog := filepath.Join(outDir, "retry_260501083000.csv")

	runner := &mockRunner{}
	runner.On("RunRecords", mock.Anything, model.RunKindRetry,
		mock.MatchedBy(func(recs []model.Record) bool { return len(recs) == 1 && recs[0].Index == 3 }),
		wantLog, mock.Anything,
	).Return(&crawl.Summary{Processed: 1, Counts: map[model.StatusCode]int{model.StatusMatched: 1}}, nil)

	r := NewRetrier(runner, outDir, "retry", Options{})
	r.now = func() time.Time { return stamp }

	sel, err := ParseSelector("wrong_region_match")
	require.NoError(t, err)
	rep, err := r.Retry(context.Background(), logPath, sel)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Selected)
	assert.Equal(t, 1, rep.Succeeded)
	assert.Equal(t, 0, rep.Failed)
	assert.Equal(t, wantLog, rep.OutputPath)
	runner.AssertExpectations(t)
}

func TestRetrier_NothingSelected(t *testing.T) {
	logPath := writeLog(t, outRow(1, "052-1", 9, "울산광역시 동구 일산동"))
	runner := &mockRunner{}
	sel, err := ParseSelector("all")
	require.NoError(t, err)

	rep, err := NewRetrier(runner, t.TempDir(), "retry", Options{}).Retry(context.Background(), logPath, sel)
	require.NoError(t, err)
	assert.Zero(t, rep.Selected)
	assert.Empty(t, rep.OutputPath)
	runner.AssertNotCalled(t, "RunRecords", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
