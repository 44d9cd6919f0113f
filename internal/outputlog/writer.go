// Package outputlog reads and writes the append-only CSV result log. Every
// appended row is flushed and synced before Append returns, so an interrupted
// run always leaves a log that can be resumed from.
package outputlog

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/phonematch-cli/internal/model"
)

// logRow is the on-disk shape of one model.OutcomeRow.
type logRow struct {
	Index            int    `csv:"index"`
	BusinessName     string `csv:"business_name"`
	OriginalAddress  string `csv:"original_address"`
	OriginalPhone    string `csv:"original_phone"`
	NewPhone         string `csv:"new_phone"`
	Status           string `csv:"status"`
	SimilarityScore  string `csv:"similarity_score"`
	CollectedAddress string `csv:"collected_address"`
}

func toLogRow(r model.OutcomeRow) logRow {
	return logRow{
		Index:            r.Index,
		BusinessName:     r.BusinessName,
		OriginalAddress:  r.OriginalAddress,
		OriginalPhone:    r.OriginalPhone,
		NewPhone:         r.NewPhone,
		Status:           model.FormatStatus(r.Status, r.Error),
		SimilarityScore:  strconv.Itoa(r.SimilarityScore),
		CollectedAddress: r.CollectedAddress,
	}
}

func (l logRow) outcome() model.OutcomeRow {
	status, msg := model.SplitStatus(l.Status)
	score, _ := strconv.Atoi(l.SimilarityScore)
	return model.OutcomeRow{
		Index:            l.Index,
		BusinessName:     l.BusinessName,
		OriginalAddress:  l.OriginalAddress,
		OriginalPhone:    l.OriginalPhone,
		NewPhone:         l.NewPhone,
		Status:           status,
		SimilarityScore:  score,
		CollectedAddress: l.CollectedAddress,
		Error:            msg,
	}
}

// Writer appends outcome rows to a log file.
type Writer struct {
	mu   sync.Mutex
	path string
	f    *os.File
	cw   *csv.Writer
	enc  *csvutil.Encoder
}

// Create makes a new log at path and writes the header. It fails if the file
// already exists.
func Create(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, eris.Wrapf(err, "outputlog: create dir for %s", path)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, eris.Wrapf(err, "outputlog: create %s", path)
	}
	w := newWriter(path, f)
	if err := w.writeHeader(); err != nil {
		f.Close() //nolint:errcheck
		return nil, err
	}
	return w, nil
}

// Open appends to the log at path, creating it with a header when it does not
// exist or is empty.
func Open(path string) (*Writer, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) || (err == nil && info.Size() == 0) {
		if err == nil {
			if rmErr := os.Remove(path); rmErr != nil {
				return nil, eris.Wrapf(rmErr, "outputlog: remove empty %s", path)
			}
		}
		return Create(path)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "outputlog: stat %s", path)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_RDWR, 0o644)
	if err != nil {
		return nil, eris.Wrapf(err, "outputlog: open %s", path)
	}
	n, err := completeLength(f)
	if err != nil {
		f.Close() //nolint:errcheck
		return nil, eris.Wrapf(err, "outputlog: scan %s", path)
	}
	if n < info.Size() {
		zap.L().Warn("outputlog: dropping incomplete trailing row",
			zap.String("path", path),
			zap.Int64("bytes", info.Size()-n),
		)
		if err := f.Truncate(n); err != nil {
			f.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "outputlog: truncate %s", path)
		}
		if err := f.Sync(); err != nil {
			f.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "outputlog: sync %s", path)
		}
	}

	w := newWriter(path, f)
	if n == 0 {
		// Not even the header survived.
		if err := w.writeHeader(); err != nil {
			f.Close() //nolint:errcheck
			return nil, err
		}
	}
	return w, nil
}

func newWriter(path string, f *os.File) *Writer {
	cw := csv.NewWriter(f)
	enc := csvutil.NewEncoder(cw)
	enc.AutoHeader = false
	return &Writer{path: path, f: f, cw: cw, enc: enc}
}

func (w *Writer) writeHeader() error {
	if err := w.enc.EncodeHeader(logRow{}); err != nil {
		return eris.Wrap(err, "outputlog: encode header")
	}
	return w.sync()
}

// Append writes one row and makes it durable before returning.
func (w *Writer) Append(row model.OutcomeRow) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.enc.Encode(toLogRow(row)); err != nil {
		return eris.Wrapf(err, "outputlog: encode row %d", row.Index)
	}
	return w.sync()
}

func (w *Writer) sync() error {
	w.cw.Flush()
	if err := w.cw.Error(); err != nil {
		return eris.Wrap(err, "outputlog: flush")
	}
	return eris.Wrap(w.f.Sync(), "outputlog: sync")
}

// Path returns the log file path.
func (w *Writer) Path() string {
	return w.path
}

// Close flushes and closes the underlying file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.cw.Flush()
	return eris.Wrap(w.f.Close(), "outputlog: close")
}
