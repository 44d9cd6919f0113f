// Package input loads the business table (CSV or XLSX) and maps its
// configured columns onto records.
package input

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/phonematch-cli/internal/model"
)

// ErrMissingColumn is returned when a required column is not in the header.
var ErrMissingColumn = eris.New("input: missing required column")

// Columns names the input columns that feed a record. Phone is optional.
type Columns struct {
	Name    string `yaml:"business_name" mapstructure:"business_name"`
	Address string `yaml:"address" mapstructure:"address"`
	Phone   string `yaml:"phone" mapstructure:"phone"`
}

// DefaultColumns returns the column names of the standard business export.
func DefaultColumns() Columns {
	return Columns{
		Name:    "사업장명",
		Address: "기존주소",
		Phone:   "기존전화번호",
	}
}

// Options configures Load.
type Options struct {
	Columns   Columns `yaml:"columns" mapstructure:"columns"`
	Encoding  string  `yaml:"encoding" mapstructure:"encoding"`
	Sheet     string  `yaml:"sheet" mapstructure:"sheet"`
	Delimiter string  `yaml:"delimiter" mapstructure:"delimiter"` // CSV only; "tab" for TSV exports
}

// LoadProfile reads column and encoding settings from a YAML file.
// Fields the file leaves blank keep the values in base.
func LoadProfile(path string, base Options) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, eris.Wrapf(err, "input: read profile %s", path)
	}
	var p Options
	if err := yaml.Unmarshal(data, &p); err != nil {
		return base, eris.Wrapf(err, "input: parse profile %s", path)
	}

	out := base
	if p.Columns.Name != "" {
		out.Columns.Name = p.Columns.Name
	}
	if p.Columns.Address != "" {
		out.Columns.Address = p.Columns.Address
	}
	if p.Columns.Phone != "" {
		out.Columns.Phone = p.Columns.Phone
	}
	if p.Encoding != "" {
		out.Encoding = p.Encoding
	}
	if p.Sheet != "" {
		out.Sheet = p.Sheet
	}
	if p.Delimiter != "" {
		out.Delimiter = p.Delimiter
	}
	return out, nil
}

// Table is a loaded input file: its header and data rows, all NFC-normalized.
type Table struct {
	Header []string
	Rows   [][]string
}

// Column returns the position of name in the header, or -1.
func (t *Table) Column(name string) int {
	name = normalize(name)
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// ReadTable reads a CSV or XLSX file, chosen by extension.
func ReadTable(ctx context.Context, path string, opts Options) (*Table, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		rows, err = ReadXLSX(path, opts.Sheet)
	default:
		rows, err = readCSV(ctx, path, opts)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, eris.Errorf("input: %s has no header row", path)
	}

	for _, row := range rows {
		for i := range row {
			row[i] = normalize(row[i])
		}
	}
	return &Table{Header: rows[0], Rows: rows[1:]}, nil
}

func readCSV(ctx context.Context, path string, opts Options) ([][]string, error) {
	delim, err := ParseDelimiter(opts.Delimiter)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "input: read %s", path)
	}
	data, err := Decode(raw, opts.Encoding)
	if err != nil {
		return nil, err
	}

	rows, err := ReadCSV(ctx, bytes.NewReader(data), delim)
	if err != nil {
		return nil, eris.Wrapf(err, "input: parse %s", path)
	}
	return rows, nil
}

// Load reads path and builds one record per data row, indexed from 1 in file
// order. A missing name or address column is an error.
func Load(ctx context.Context, path string, opts Options) ([]model.Record, error) {
	t, err := ReadTable(ctx, path, opts)
	if err != nil {
		return nil, err
	}
	return t.Records(opts.Columns)
}

// Records maps the table's rows onto records using cols.
func (t *Table) Records(cols Columns) ([]model.Record, error) {
	nameIdx := t.Column(cols.Name)
	if nameIdx < 0 {
		return nil, eris.Wrapf(ErrMissingColumn, "business name column %q", cols.Name)
	}
	addrIdx := t.Column(cols.Address)
	if addrIdx < 0 {
		return nil, eris.Wrapf(ErrMissingColumn, "address column %q", cols.Address)
	}
	phoneIdx := -1
	if cols.Phone != "" {
		phoneIdx = t.Column(cols.Phone)
		if phoneIdx < 0 {
			zap.L().Warn("input: phone column not found, original phones left blank",
				zap.String("column", cols.Phone),
			)
		}
	}

	records := make([]model.Record, 0, len(t.Rows))
	for i, row := range t.Rows {
		records = append(records, model.Record{
			Index:           i + 1,
			BusinessName:    cell(row, nameIdx),
			OriginalAddress: cell(row, addrIdx),
			OriginalPhone:   cell(row, phoneIdx),
		})
	}
	return records, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// normalize composes Hangul to NFC and trims surrounding space. Files saved
// on macOS often carry decomposed jamo that would never match a search result.
func normalize(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}
