package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// CSVExporter renders a roster as CSV.
type CSVExporter struct {
	comma rune
}

// NewCSVExporter builds a CSV exporter. A zero comma means ','.
func NewCSVExporter(comma rune) *CSVExporter {
	if comma == 0 {
		comma = ','
	}
	return &CSVExporter{comma: comma}
}

// Render produces UTF-8 CSV with a byte order mark so spreadsheet programs
// keep the accents intact. The output can be imported back unchanged.
func (e *CSVExporter) Render(roster Roster) ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.WriteString("\xef\xbb\xbf")
	writer := csv.NewWriter(buf)
	writer.Comma = e.comma

	if err := writer.Write(rosterHeaders); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, entry := range roster.Entries {
		if err := writer.Write(entry.cells()); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
