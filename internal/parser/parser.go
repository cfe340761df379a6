package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

var (
	// ErrNoHeader is returned when the input holds no header row at all.
	ErrNoHeader = errors.New("parser: no header row")
	// ErrInvalidEncoding is returned when the input is not UTF-8 text.
	ErrInvalidEncoding = errors.New("parser: input is not valid UTF-8")
	// ErrTooManyFields is returned when a data row is wider than the header.
	ErrTooManyFields = errors.New("parser: row has more fields than header")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Table is a comma-separated table with a header row.
// Rows may be shorter than the header but never longer.
type Table struct {
	Header []string
	Rows   [][]string
}

// Column returns the index of the first header cell equal to name, or -1.
func (t *Table) Column(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Value returns the cell at row i for the given column index, or "" when
// the row is short or the column is absent.
func (t *Table) Value(i, col int) string {
	if col < 0 || col >= len(t.Rows[i]) {
		return ""
	}
	return t.Rows[i][col]
}

// Parse reads CSV content with a header row from an io.Reader.
func Parse(r io.Reader) (*Table, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	content = bytes.TrimPrefix(content, utf8BOM)
	if !utf8.Valid(content) {
		return nil, ErrInvalidEncoding
	}
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, ErrNoHeader
	}

	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, err
	}

	table := &Table{Header: header}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) > len(header) {
			line, _ := reader.FieldPos(0)
			return nil, fmt.Errorf("%w: line %d: expected %d fields, saw %d",
				ErrTooManyFields, line, len(header), len(record))
		}
		table.Rows = append(table.Rows, record)
	}

	return table, nil
}
