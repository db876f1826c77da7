// Package spreadsheet reads student rosters from CSV and XLSX files.
package spreadsheet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// PreviewRows is the number of data rows returned for preview.
const PreviewRows = 5

var (
	// ErrTooFewRows is returned when a sheet lacks a header or data row.
	ErrTooFewRows = errors.New("spreadsheet: must contain a header and at least one data row")
	// ErrUnsupportedFormat is returned for files that are neither CSV nor XLSX.
	ErrUnsupportedFormat = errors.New("spreadsheet: unsupported file format")
	// ErrUnknownColumn is returned when a mapping names a missing header.
	ErrUnknownColumn = errors.New("spreadsheet: mapped column not found")
	// ErrNameColumnRequired is returned when no column is mapped to the name.
	ErrNameColumnRequired = errors.New("spreadsheet: a column must be mapped to the student name")
)

// Sheet is the first worksheet of an uploaded file.
type Sheet struct {
	Headers []string
	Rows    [][]string
}

// Preview returns up to PreviewRows data rows.
func (s *Sheet) Preview() [][]string {
	if len(s.Rows) <= PreviewRows {
		return s.Rows
	}
	return s.Rows[:PreviewRows]
}

// Parse reads r according to the extension of filename.
func Parse(filename string, r io.Reader) (*Sheet, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt":
		rows, err = readCSV(r)
	case ".xlsx", ".xlsm":
		rows, err = readXLSX(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(filename))
	}
	if err != nil {
		return nil, err
	}
	return newSheet(rows)
}

func newSheet(rows [][]string) (*Sheet, error) {
	rows = dropBlankRows(rows)
	if len(rows) < 2 {
		return nil, ErrTooFewRows
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}
	data := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		padded := make([]string, len(headers))
		copy(padded, row)
		data = append(data, padded)
	}
	return &Sheet{Headers: headers, Rows: data}, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("spreadsheet: read csv: %w", err)
	}
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(bytes.NewReader(raw))
	reader.Comma = detectDelimiter(raw)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	return rows, nil
}

// detectDelimiter picks ';' when the header line uses it more than ','.
// Spreadsheet programs in pt-BR locales export CSV that way.
func detectDelimiter(raw []byte) rune {
	line := raw
	if i := bytes.IndexByte(raw, '\n'); i >= 0 {
		line = raw[:i]
	}
	if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
		return ';'
	}
	return ','
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrTooFewRows
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("spreadsheet: read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func dropBlankRows(rows [][]string) [][]string {
	kept := rows[:0]
	for _, row := range rows {
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				kept = append(kept, row)
				break
			}
		}
	}
	return kept
}
