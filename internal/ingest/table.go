// Package ingest turns spreadsheet exports into order rows.
package ingest

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Table is a header row plus data rows of cell text. Rows may be shorter
// than the header; missing cells read as empty.
type Table struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
	// FirstRow is the 1-based sheet row of Rows[0]. Zero means 2.
	FirstRow int `json:"first_row,omitempty"`
}

var (
	ErrNoSheets           = errors.New("workbook has no sheets")
	ErrUnreadableWorkbook = errors.New("无法读取Excel文件")
)

// NewTable splits a raw grid into header and data rows.
func NewTable(grid [][]string) Table {
	if len(grid) == 0 {
		return Table{}
	}
	return Table{Header: grid[0], Rows: grid[1:], FirstRow: 2}
}

// ReadXLSX reads the first worksheet of a workbook. Cells are read raw so
// dates keep their serial-number form.
func ReadXLSX(r io.Reader) (Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Table{}, fmt.Errorf("%w: %v", ErrUnreadableWorkbook, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Table{}, ErrNoSheets
	}

	grid, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return Table{}, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return NewTable(grid), nil
}

// Column returns the index of the named header, ignoring whitespace.
func (t Table) Column(name string) int {
	want := normalizeHeader(name)
	for i, h := range t.Header {
		if normalizeHeader(h) == want {
			return i
		}
	}
	return -1
}

func (t Table) rowNumber(i int) int {
	first := t.FirstRow
	if first == 0 {
		first = 2
	}
	return first + i
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func normalizeHeader(s string) string {
	return strings.Join(strings.Fields(s), "")
}
