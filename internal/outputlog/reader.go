package outputlog

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/sells-group/phonematch-cli/internal/model"
)

// ErrNoLog is returned by Latest when no log matches.
var ErrNoLog = eris.New("outputlog: no log found")

// TimestampLayout is the yymmddHHMMSS suffix of log file names.
const TimestampLayout = "060102150405"

// Name returns the path of a new log created at t.
func Name(dir, prefix string, t time.Time) string {
	return filepath.Join(dir, prefix+"_"+t.Format(TimestampLayout)+".csv")
}

// Latest returns the most recently created log named prefix_<timestamp>.csv
// in dir.
func Latest(dir, prefix string) (string, error) {
	logs, err := List(dir, prefix)
	if err != nil {
		return "", err
	}
	if len(logs) == 0 {
		return "", ErrNoLog
	}
	return logs[len(logs)-1], nil
}

// List returns the logs in dir named <prefix>_<timestamp>.csv for any of the
// given prefixes, oldest first.
func List(dir string, prefixes ...string) ([]string, error) {
	type stamped struct {
		path  string
		stamp string
	}
	var logs []stamped
	for _, prefix := range prefixes {
		matches, err := filepath.Glob(filepath.Join(dir, prefix+"_*.csv"))
		if err != nil {
			return nil, eris.Wrapf(err, "outputlog: glob %s", dir)
		}
		for _, m := range matches {
			stamp := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(m), prefix+"_"), ".csv")
			if _, err := time.Parse(TimestampLayout, stamp); err == nil {
				logs = append(logs, stamped{path: m, stamp: stamp})
			}
		}
	}
	sort.SliceStable(logs, func(i, j int) bool {
		if logs[i].stamp != logs[j].stamp {
			return logs[i].stamp < logs[j].stamp
		}
		return logs[i].path < logs[j].path
	})
	out := make([]string, len(logs))
	for i, l := range logs {
		out[i] = l.path
	}
	return out, nil
}

// ReadAll decodes every row of the log at path. A leading UTF-8 byte order
// mark is accepted. An incomplete final row, as left by a crash mid-write, is
// skipped with a warning.
func ReadAll(path string) ([]model.OutcomeRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "outputlog: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	info, err := f.Stat()
	if err != nil {
		return nil, eris.Wrapf(err, "outputlog: stat %s", path)
	}
	n, err := completeLength(f)
	if err != nil {
		return nil, eris.Wrapf(err, "outputlog: scan %s", path)
	}
	if n < info.Size() {
		zap.L().Warn("outputlog: skipping incomplete trailing row",
			zap.String("path", path),
			zap.Int64("bytes", info.Size()-n),
		)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, eris.Wrapf(err, "outputlog: seek %s", path)
	}

	src := transform.NewReader(io.LimitReader(f, n), unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	cr := csv.NewReader(src)
	cr.FieldsPerRecord = -1

	dec, err := csvutil.NewDecoder(cr)
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "outputlog: read header %s", path)
	}

	var rows []model.OutcomeRow
	for {
		var lr logRow
		err := dec.Decode(&lr)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "outputlog: decode %s", path)
		}
		rows = append(rows, lr.outcome())
	}
	return rows, nil
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// errCorrupt marks a malformed row followed by well-formed ones. Only the
// last row can be damaged by an interrupted append.
var errCorrupt = eris.New("outputlog: malformed row before end of log")

// completeLength returns the length of the longest prefix of f that ends
// with a complete, newline-terminated row as wide as the header. A row cut
// exactly at a field boundary still parses, so the newline is what proves it
// was fully written.
func completeLength(f *os.File) (int64, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}
	br := bufio.NewReader(f)
	var skip int64
	if b, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(b, utf8BOM) {
		if _, err := br.Discard(len(utf8BOM)); err != nil {
			return 0, err
		}
		skip = int64(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	var (
		good    int64
		width   = -1
		damaged bool
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return good, nil
		}
		end := skip + cr.InputOffset()
		if err == nil {
			if width < 0 {
				width = len(rec)
			}
			if len(rec) == width && endsLine(f, end) {
				if damaged {
					return 0, errCorrupt
				}
				good = end
				continue
			}
		}
		var pe *csv.ParseError
		if err != nil && !errors.As(err, &pe) {
			return 0, err
		}
		damaged = true
	}
}

func endsLine(f *os.File, off int64) bool {
	if off <= 0 {
		return false
	}
	b := make([]byte, 1)
	if _, err := f.ReadAt(b, off-1); err != nil {
		return false
	}
	return b[0] == '\n'
}

// MaxIndex returns the highest index written to the log at path, or 0 when
// the log does not exist or has no rows.
func MaxIndex(path string) (int, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return 0, nil
	}
	rows, err := ReadAll(path)
	if err != nil {
		return 0, err
	}
	maxIdx := 0
	for _, r := range rows {
		if r.Index > maxIdx {
			maxIdx = r.Index
		}
	}
	return maxIdx, nil
}
