package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Table is an ordered tabular payload for report files. Rows shorter than
// the column set are padded, longer ones truncated, so the output is always
// rectangular.
type Table struct {
	columns []string
	rows    [][]string
}

// NewTable builds a table with the given column headers.
func NewTable(columns ...string) *Table {
	return &Table{columns: columns}
}

// AddRow appends one row of cell values in column order.
func (t *Table) AddRow(values ...string) {
	row := make([]string, len(t.columns))
	copy(row, values)
	t.rows = append(t.rows, row)
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// CSV renders the table as CSV bytes, header row first.
func (t *Table) CSV() ([]byte, error) {
	if len(t.columns) == 0 {
		return nil, fmt.Errorf("csv requires at least one column")
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(t.columns); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range t.rows {
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
