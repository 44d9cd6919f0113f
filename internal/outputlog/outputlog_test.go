package outputlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/phonematch-cli/internal/model"
)

const header = "index,business_name,original_address,original_phone,new_phone,status,similarity_score,collected_address\n"

func row(i int, status model.StatusCode) model.OutcomeRow {
	return model.OutcomeRow{
		Index:            i,
		BusinessName:     "가게",
		OriginalAddress:  "경상남도 거제시 아주동 1701-3",
		OriginalPhone:    "055-111-2222",
		NewPhone:         "055-333-4444",
		Status:           status,
		SimilarityScore:  7,
		CollectedAddress: "경상남도 거제시 아주동, 1층",
	}
}

func TestCreate_WritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "result_260101120000.csv")

	w, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, w.Append(row(1, model.StatusMatched)))
	require.NoError(t, w.Close())

	w, err = Open(path)
	require.NoError(t, err)
	require.NoError(t, w.Append(row(2, model.StatusNoResults)))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "index,business_name"))
	assert.True(t, len(data) > len(header))
	assert.Equal(t, header, string(data[:len(header)]))

	rows, err := ReadAll(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, row(1, model.StatusMatched), rows[0])
	assert.Equal(t, model.StatusNoResults, rows[1].Status)
}

func TestCreate_ExistingFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "r.csv")
	require.NoError(t, os.WriteFile(path, []byte(header), 0o644))

	_, err := Create(path)
	assert.Error(t, err)
}

func TestOpen_EmptyFileGetsHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "r.csv")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	w, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, header, string(data))
}

func TestAppend_IsDurableBeforeClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "r.csv")
	w, err := Create(path)
	require.NoError(t, err)
	defer w.Close() //nolint:errcheck

	require.NoError(t, w.Append(row(1, model.StatusMatched)))

	maxIdx, err := MaxIndex(path)
	require.NoError(t, err)
	assert.Equal(t, 1, maxIdx)
}

func TestProcessingErrorRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "r.csv")
	w, err := Create(path)
	require.NoError(t, err)

	r := model.OutcomeRow{Index: 4, BusinessName: "x", Status: model.StatusProcessingError, Error: "timeout: listing"}
	require.NoError(t, w.Append(r))
	require.NoError(t, w.Close())

	rows, err := ReadAll(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, model.StatusProcessingError, rows[0].Status)
	assert.Equal(t, "timeout: listing", rows[0].Error)
}

func TestReadAll_BOMAndTruncatedTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "r.csv")
	content := "\ufeff" + header +
		"1,가게,주소,,,NO_RESULTS,0,\n" +
		"2,가게,주소,,055-1,MATCHED,5,주소\n" +
		"3,가게,\"주소"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	rows, err := ReadAll(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[0].Index)
	assert.Equal(t, 5, rows[1].SimilarityScore)

	maxIdx, err := MaxIndex(path)
	require.NoError(t, err)
	assert.Equal(t, 2, maxIdx)
}

func TestOpen_DropsIncompleteTailBeforeAppending(t *testing.T) {
	tails := map[string]string{
		"open quote":     "3,가게,\"주소",
		"short row":      "3,가게,주소",
		"full width cut": "3,가게,주소,,,NO_RESULTS,0,경상",
	}
	for name, tail := range tails {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "r.csv")
			content := header +
				"1,가게,주소,,,NO_RESULTS,0,\n" +
				"2,가게,주소,,055-1,MATCHED,5,주소\n" +
				tail
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

			maxIdx, err := MaxIndex(path)
			require.NoError(t, err)
			assert.Equal(t, 2, maxIdx)

			w, err := Open(path)
			require.NoError(t, err)
			require.NoError(t, w.Append(row(3, model.StatusNoResults)))
			require.NoError(t, w.Append(row(4, model.StatusMatched)))
			require.NoError(t, w.Close())

			rows, err := ReadAll(path)
			require.NoError(t, err)
			require.Len(t, rows, 4)
			for i, r := range rows {
				assert.Equal(t, i+1, r.Index)
			}
			assert.Equal(t, row(4, model.StatusMatched), rows[3])

			maxIdx, err = MaxIndex(path)
			require.NoError(t, err)
			assert.Equal(t, 4, maxIdx)

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.NotContains(t, string(data), tail+"3,")
		})
	}
}

func TestOpen_PartialHeaderIsRewritten(t *testing.T) {
	path := filepath.Join(t.TempDir(), "r.csv")
	require.NoError(t, os.WriteFile(path, []byte("index,business_na"), 0o644))

	w, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, w.Append(row(1, model.StatusMatched)))
	require.NoError(t, w.Close())

	rows, err := ReadAll(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, row(1, model.StatusMatched), rows[0])
}

func TestReadAll_MalformedRowMidLogFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "r.csv")
	content := header +
		"1,가게,주소,,,NO_RESULTS,0,\n" +
		"2,가게\n" +
		"3,가게,주소,,,NO_RESULTS,0,\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := ReadAll(path)
	assert.Error(t, err)

	_, err = Open(path)
	assert.Error(t, err)
}

func TestMaxIndex_Missing(t *testing.T) {
	maxIdx, err := MaxIndex(filepath.Join(t.TempDir(), "nope.csv"))
	require.NoError(t, err)
	assert.Zero(t, maxIdx)
}

func TestLatest(t *testing.T) {
	dir := t.TempDir()

	_, err := Latest(dir, "result")
	assert.ErrorIs(t, err, ErrNoLog)

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for _, p := range []string{
		Name(dir, "result", base),
		Name(dir, "result", base.Add(time.Hour)),
		Name(dir, "retry", base.Add(2*time.Hour)),
		filepath.Join(dir, "result_notes.csv"),
	} {
		require.NoError(t, os.WriteFile(p, []byte(header), 0o644))
	}

	got, err := Latest(dir, "result")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "result_260301100000.csv"), got)

	all, err := List(dir, "result", "retry")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "result_260301090000.csv"),
		filepath.Join(dir, "result_260301100000.csv"),
		filepath.Join(dir, "retry_260301110000.csv"),
	}, all)
}
