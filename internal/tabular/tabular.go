// SPDX-License-Identifier: MPL-2.0

// Package tabular parses and serializes the tab-separated table format
// used by the game's excel data files. The first row of a table is the
// header row; every data row is addressable both by header name and by
// 1-based column position. On write, any cell containing a comma is
// wrapped in double quotes because the game's table loader treats bare
// commas as list separators.
package tabular

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

type (
	// Table is a parsed tab-separated table.
	Table struct {
		Headers []string
		Rows    []*Row
	}

	// Row is a single data row. Values holds header-keyed cells; Cells
	// holds the raw positional cells as parsed. A cell set under a header
	// name takes precedence over its positional counterpart on write.
	Row struct {
		Values map[string]string
		Cells  []string
	}
)

// Parse decodes tab-separated content. Rows may carry fewer or more
// cells than the header row; extra cells remain reachable positionally.
func Parse(data []byte) (*Table, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = '\t'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var records [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse tabular data: %w", err)
		}
		records = append(records, rec)
	}

	t := &Table{}
	if len(records) == 0 {
		return t, nil
	}

	t.Headers = records[0]
	for _, rec := range records[1:] {
		row := &Row{
			Values: make(map[string]string, len(t.Headers)),
			Cells:  rec,
		}
		for i, cell := range rec {
			if i < len(t.Headers) {
				row.Values[t.Headers[i]] = cell
			}
		}
		t.Rows = append(t.Rows, row)
	}

	return t, nil
}

// Append adds an empty row pre-keyed with every header name and
// returns it.
func (t *Table) Append() *Row {
	row := &Row{
		Values: make(map[string]string, len(t.Headers)),
		Cells:  make([]string, len(t.Headers)),
	}
	for _, h := range t.Headers {
		row.Values[h] = ""
	}
	t.Rows = append(t.Rows, row)
	return row
}

// Cell returns the 1-based positional cell value, or "" when the
// column is out of range.
func (r *Row) Cell(col int) string {
	if col < 1 || col > len(r.Cells) {
		return ""
	}
	return r.Cells[col-1]
}

// SetCell sets the 1-based positional cell value, growing the row as
// needed.
func (r *Row) SetCell(col int, value string) {
	if col < 1 {
		return
	}
	for len(r.Cells) < col {
		r.Cells = append(r.Cells, "")
	}
	r.Cells[col-1] = value
}

// value resolves the cell for the given header and 0-based column
// index: the header-keyed value wins, then the positional cell, then
// the empty string.
func (r *Row) value(header string, idx int) string {
	if v, ok := r.Values[header]; ok {
		return v
	}
	if idx < len(r.Cells) {
		return r.Cells[idx]
	}
	return ""
}

// Marshal serializes the table. Every row is reconstructed against the
// header list: short rows are padded with empty cells and cells beyond
// the header width are dropped.
func (t *Table) Marshal() []byte {
	var sb strings.Builder

	writeLine := func(cells []string) {
		for i, cell := range cells {
			if i > 0 {
				sb.WriteByte('\t')
			}
			sb.WriteString(quote(cell))
		}
		sb.WriteByte('\n')
	}

	writeLine(t.Headers)
	line := make([]string, len(t.Headers))
	for _, row := range t.Rows {
		for i, h := range t.Headers {
			line[i] = row.value(h, i)
		}
		writeLine(line)
	}

	return []byte(sb.String())
}

// quote wraps cells containing commas in double quotes. Other cells
// pass through untouched; the format has no general escaping.
func quote(cell string) string {
	if strings.Contains(cell, ",") && !strings.HasPrefix(cell, `"`) {
		return `"` + cell + `"`
	}
	return cell
}
