package input

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Encodings accepted for CSV input.
const (
	EncodingAuto  = "auto"
	EncodingUTF8  = "utf-8"
	EncodingCP949 = "cp949"
	EncodingEUCKR = "euc-kr"
)

// ReadCSV parses every row of r. Quotes are read leniently and rows may
// differ in width; cancellation is checked between rows.
func ReadCSV(ctx context.Context, r io.Reader, delimiter rune) ([][]string, error) {
	reader := csv.NewReader(r)
	if delimiter != 0 {
		reader.Comma = delimiter
	}
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	var rows [][]string
	for {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "csv: context cancelled")
		}
		record, err := reader.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, eris.Wrap(err, "csv: read row")
		}
		rows = append(rows, record)
	}
}

// ParseDelimiter maps a profile's delimiter setting to a rune. Empty means a
// comma; "tab" and "\\t" mean a tab.
func ParseDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return ',', nil
	case "tab", `\t`, "\t":
		return '\t', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, eris.Errorf("input: delimiter must be one character, got %q", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	if r == '"' || r == '\r' || r == '\n' || r == utf8.RuneError {
		return 0, eris.Errorf("input: invalid delimiter %q", s)
	}
	return r, nil
}

// Decode converts raw file bytes to UTF-8. A UTF-8 byte order mark is dropped.
// In auto mode, content that is not valid UTF-8 is read as CP949, the
// superset of EUC-KR that Korean spreadsheet exports use.
func Decode(data []byte, encoding string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", EncodingAuto:
		if bytes.HasPrefix(data, utf8BOM) || utf8.Valid(data) {
			return stripBOM(data)
		}
		return decodeKorean(data)
	case EncodingUTF8, "utf8", "utf-8-sig":
		return stripBOM(data)
	case EncodingCP949, EncodingEUCKR, "euckr":
		return decodeKorean(data)
	default:
		return nil, eris.Errorf("input: unsupported encoding %q", encoding)
	}
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func stripBOM(data []byte) ([]byte, error) {
	out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
	return out, eris.Wrap(err, "input: decode utf-8")
}

// korean.EUCKR in x/text implements the CP949 extension.
func decodeKorean(data []byte) ([]byte, error) {
	out, _, err := transform.Bytes(korean.EUCKR.NewDecoder(), data)
	return out, eris.Wrap(err, "input: decode cp949")
}
