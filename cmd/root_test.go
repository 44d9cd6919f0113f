package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/phonematch-cli/internal/config"
	"github.com/sells-group/phonematch-cli/internal/input"
	"github.com/sells-group/phonematch-cli/internal/model"
	"github.com/sells-group/phonematch-cli/internal/outputlog"
	"github.com/sells-group/phonematch-cli/internal/provider"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"crawl", "analyze", "retry", "apply", "runs", "score"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "phonematch", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestCrawlCommand_Flags(t *testing.T) {
	for _, name := range []string{"input", "resume", "start", "end", "limit", "provider", "no-fallback", "metrics-addr"} {
		assert.NotNil(t, crawlCmd.Flags().Lookup(name), "crawl should have --%s", name)
	}
	assert.Equal(t, "all", retryCmd.Flags().Lookup("buckets").DefValue)
	assert.Equal(t, "10", analyzeCmd.Flags().Lookup("top-neighborhoods").DefValue)
}

func TestInitCollaborator(t *testing.T) {
	c, err := initCollaborator(&config.Config{Provider: "naver"})
	require.NoError(t, err)
	assert.IsType(t, &provider.Naver{}, c)

	c, err = initCollaborator(&config.Config{Provider: "google"})
	require.NoError(t, err)
	assert.IsType(t, &provider.Google{}, c)

	_, err = initCollaborator(&config.Config{Provider: "offline", Offline: config.OfflineConfig{Fixture: "missing.json"}})
	assert.Error(t, err)

	_, err = initCollaborator(&config.Config{Provider: "bing"})
	assert.Error(t, err)
}

func TestInputOptions(t *testing.T) {
	base := config.InputConfig{NameColumn: "n", AddressColumn: "a", PhoneColumn: "p", Encoding: "auto", Delimiter: ","}

	opts, err := inputOptions(base, "")
	require.NoError(t, err)
	assert.Equal(t, input.Columns{Name: "n", Address: "a", Phone: "p"}, opts.Columns)
	assert.Equal(t, ",", opts.Delimiter)

	profile := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(profile, []byte("columns:\n  address: 도로명주소\nencoding: cp949\ndelimiter: tab\n"), 0o644))
	opts, err = inputOptions(base, profile)
	require.NoError(t, err)
	assert.Equal(t, "도로명주소", opts.Columns.Address)
	assert.Equal(t, "n", opts.Columns.Name)
	assert.Equal(t, "cp949", opts.Encoding)
	assert.Equal(t, "tab", opts.Delimiter)
}

func TestUpdatedPath(t *testing.T) {
	assert.Equal(t, "data/stores_updated.csv", updatedPath("data/stores.xlsx"))
	assert.Equal(t, "stores_updated.csv", updatedPath("stores.csv"))
}

const e2eFixture = `{
  "queries": {
    "아주식당 아주동": [
      {"handle": "a", "name": "아주식당", "address_snippet": "경상남도 거제시 아주로 10", "lot_address": "경상남도 거제시 아주동 1234"}
    ]
  },
  "details": {"a": {"phone": "055-123-4567"}}
}`

const e2eConfig = `
provider: offline
offline:
  fixture: fixture.json
output:
  dir: result
  prefix: phone_result
log:
  level: error
  format: console
`

func execute(t *testing.T, args ...string) {
	t.Helper()
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))
}

func TestCrawlAnalyzeApply_Offline(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck

	require.NoError(t, os.WriteFile("config.yaml", []byte(e2eConfig), 0o644))
	require.NoError(t, os.WriteFile("fixture.json", []byte(e2eFixture), 0o644))
	require.NoError(t, os.WriteFile("stores.csv", []byte(
		"사업장명,기존주소,기존전화번호\n"+
			"아주식당,경상남도 거제시 아주동 1234,\n"+
			"없는가게,경상남도 거제시 옥포동 1,055-000-0000\n"+
			"주소없음,,\n"), 0o644))

	execute(t, "crawl", "--input", "stores.csv")

	logPath, err := outputlog.Latest("result", "phone_result")
	require.NoError(t, err)
	rows, err := outputlog.ReadAll(logPath)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, model.StatusMatched, rows[0].Status)
	assert.Equal(t, "055-123-4567", rows[0].NewPhone)
	assert.Equal(t, 17, rows[0].SimilarityScore)
	assert.Equal(t, model.StatusNoResults, rows[1].Status)
	assert.Equal(t, model.StatusAddressMissing, rows[2].Status)

	execute(t, "analyze", "--json")

	execute(t, "apply", "--input", "stores.csv", "--out", "merged.csv")
	merged, err := input.ReadTable(context.Background(), "merged.csv", input.Options{Encoding: input.EncodingAuto})
	require.NoError(t, err)
	assert.Equal(t, []string{"사업장명", "기존주소", "기존전화번호", "new_phone", "update_comment"}, merged.Header)
	assert.Equal(t, "055-123-4567", merged.Rows[0][3])
	assert.Equal(t, "new phone found where none existed", merged.Rows[0][4])
	assert.Empty(t, merged.Rows[1][3])

	st, err := initStore(context.Background())
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck
	runs, err := st.ListRuns(context.Background(), storeFilterAll())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusComplete, runs[0].Status)
	assert.Equal(t, 3, runs[0].Processed)
	assert.Equal(t, 1, runs[0].Matched())
}
