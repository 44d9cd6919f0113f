// Package apply merges result logs back into the source table.
package apply

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"slices"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/phonematch-cli/internal/input"
	"github.com/sells-group/phonematch-cli/internal/model"
	"github.com/sells-group/phonematch-cli/internal/outcome"
	"github.com/sells-group/phonematch-cli/internal/outputlog"
)

// Added column names.
const (
	NewPhoneColumn = "new_phone"
	CommentColumn  = "update_comment"
)

const notProcessed = "not processed"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Stats counts what Apply did to the table.
type Stats struct {
	Rows         int `json:"rows"`
	Processed    int `json:"processed"`
	NewPhones    int `json:"new_phones"`
	Changed      int `json:"changed"`
	Unchanged    int `json:"unchanged"`
	Failed       int `json:"failed"`
	NotProcessed int `json:"not_processed"`
	Orphans      int `json:"orphans"` // log indexes with no table row
}

// Merge keys rows by index. Later rows win, so logs must be passed oldest
// first.
func Merge(logs ...[]model.OutcomeRow) map[int]model.OutcomeRow {
	out := make(map[int]model.OutcomeRow)
	for _, rows := range logs {
		for _, r := range rows {
			out[r.Index] = r
		}
	}
	return out
}

// ReadLogs reads and merges the given logs in order.
func ReadLogs(paths []string) (map[int]model.OutcomeRow, error) {
	logs := make([][]model.OutcomeRow, 0, len(paths))
	for _, p := range paths {
		rows, err := outputlog.ReadAll(p)
		if err != nil {
			return nil, eris.Wrapf(err, "apply: read log %s", p)
		}
		logs = append(logs, rows)
	}
	return Merge(logs...), nil
}

// Apply returns the table with new_phone inserted right after the phone column
// (or appended when there is none) and update_comment appended. Table row i
// corresponds to record index i+1.
func Apply(t *input.Table, phoneColumn string, results map[int]model.OutcomeRow) ([]string, [][]string, Stats) {
	stats := Stats{Rows: len(t.Rows)}

	phoneIdx := -1
	if phoneColumn != "" {
		phoneIdx = t.Column(phoneColumn)
	}
	insertAt := len(t.Header)
	if phoneIdx >= 0 {
		insertAt = phoneIdx + 1
	}

	// Cells beyond the header are kept under unnamed columns so that
	// update_comment never lands on top of them.
	width, wide := len(t.Header), 0
	for _, r := range t.Rows {
		if len(r) > len(t.Header) {
			wide++
			width = max(width, len(r))
		}
	}
	if wide > 0 {
		zap.L().Warn("apply: rows wider than the header, extra cells kept under unnamed columns",
			zap.Int("rows", wide),
			zap.Int("header_columns", len(t.Header)),
			zap.Int("width", width),
		)
	}

	header := slices.Insert(padded(t.Header, width), insertAt, NewPhoneColumn)
	header = append(header, CommentColumn)

	rows := make([][]string, 0, len(t.Rows))
	for i, src := range t.Rows {
		row := padded(src, width)
		newPhone, comment := "", notProcessed

		if res, ok := results[i+1]; ok {
			stats.Processed++
			origPhone := ""
			if phoneIdx >= 0 {
				origPhone = row[phoneIdx]
			}
			if res.Status == model.StatusMatched {
				newPhone = res.NewPhone
				switch {
				case outcome.NormalizePhone(origPhone) == "":
					stats.NewPhones++
				case outcome.NormalizePhone(origPhone) == outcome.NormalizePhone(newPhone):
					stats.Unchanged++
				default:
					stats.Changed++
				}
			} else {
				stats.Failed++
			}
			comment = outcome.Comment(origPhone, res.NewPhone, res.Status, res.Error)
		} else {
			stats.NotProcessed++
		}

		out := slices.Insert(row, insertAt, newPhone)
		rows = append(rows, append(out, comment))
	}

	for idx := range results {
		if idx < 1 || idx > len(t.Rows) {
			stats.Orphans++
		}
	}
	if stats.Orphans > 0 {
		zap.L().Warn("apply: log rows without a table row", zap.Int("count", stats.Orphans))
	}
	return header, rows, stats
}

// padded returns a copy of row extended with blank cells to at least n.
func padded(row []string, n int) []string {
	out := make([]string, max(n, len(row)))
	copy(out, row)
	return out
}

// WriteCSV writes header and rows as UTF-8 CSV with a byte order mark so
// spreadsheet programs detect the encoding.
func WriteCSV(path string, header []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "apply: create output dir")
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "apply: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	if _, err := f.Write(utf8BOM); err != nil {
		return eris.Wrap(err, "apply: write bom")
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return eris.Wrap(err, "apply: write header")
	}
	if err := w.WriteAll(rows); err != nil {
		return eris.Wrap(err, "apply: write rows")
	}
	return eris.Wrap(f.Sync(), "apply: sync")
}
