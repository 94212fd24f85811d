// Package table lifts parsed table nodes into structured column/row data
// and renders the same data as a Markdown table, so the structured form and
// the rendered form can never diverge.
package table

import (
	"fmt"
	"strings"

	"github.com/gaurav-prasanna/confpipe/core"
)

// Lift converts a cell grid into a core.Table. headerMarked is true when the
// first row's cells were structurally marked as headers (<th>). Without
// markers the first row is promoted when every following row matches its
// cell count; otherwise synthetic "Column N" headers span the widest row.
//
// Rows longer than the header are truncated (counted in
// stats.TableWarnings); shorter rows are right-padded with empty strings so
// every row carries every column key.
func Lift(rows [][]string, headerMarked bool, stats *core.RunStats) *core.Table {
	if len(rows) == 0 {
		return &core.Table{Columns: []string{}, DisplayColumns: []string{}, Rows: []map[string]string{}}
	}

	var headerCells []string
	var data [][]string

	switch {
	case headerMarked:
		headerCells, data = rows[0], rows[1:]
	case len(rows) > 1 && uniformWidth(rows):
		headerCells, data = rows[0], rows[1:]
	default:
		width := 0
		for _, r := range rows {
			if len(r) > width {
				width = len(r)
			}
		}
		headerCells = make([]string, width)
		for i := range headerCells {
			headerCells[i] = fmt.Sprintf("Column %d", i+1)
		}
		data = rows
	}

	columns := make([]string, 0, len(headerCells))
	display := make([]string, 0, len(headerCells))
	taken := make(map[string]bool, len(headerCells))
	for i, cell := range headerCells {
		display = append(display, cell)
		key := Slugify(cell)
		if key == "" {
			key = fmt.Sprintf("column_%d", i+1)
		}
		if taken[key] {
			// Collision: suffix _2, _3, ... in encounter order.
			for n := 2; ; n++ {
				candidate := fmt.Sprintf("%s_%d", key, n)
				if !taken[candidate] {
					key = candidate
					break
				}
			}
		}
		taken[key] = true
		columns = append(columns, key)
	}

	out := make([]map[string]string, 0, len(data))
	for _, cells := range data {
		if len(cells) > len(columns) {
			cells = cells[:len(columns)]
			if stats != nil {
				stats.TableWarnings++
			}
		}
		row := make(map[string]string, len(columns))
		for i, key := range columns {
			if i < len(cells) {
				row[key] = cells[i]
			} else {
				row[key] = ""
			}
		}
		out = append(out, row)
	}

	return &core.Table{Columns: columns, DisplayColumns: display, Rows: out}
}

// uniformWidth reports whether every row after the first matches the first
// row's cell count.
func uniformWidth(rows [][]string) bool {
	for _, r := range rows[1:] {
		if len(r) != len(rows[0]) {
			return false
		}
	}
	return true
}

// RenderMarkdown renders a lifted table as a Markdown table, columns in
// Columns order, rows in document order.
func RenderMarkdown(t *core.Table) string {
	if len(t.Columns) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("|")
	for _, h := range t.DisplayColumns {
		b.WriteString(" " + escapeCell(h) + " |")
	}
	b.WriteString("\n|")
	for range t.Columns {
		b.WriteString(" --- |")
	}
	for _, row := range t.Rows {
		b.WriteString("\n|")
		for _, key := range t.Columns {
			b.WriteString(" " + escapeCell(row[key]) + " |")
		}
	}
	return b.String()
}

// Slugify derives a machine-safe column key: lowercase, runs of
// non-alphanumeric characters collapsed to a single underscore, trimmed.
func Slugify(s string) string {
	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
		default:
			pending = true
		}
	}
	return b.String()
}

// escapeCell keeps cell text on one table line.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}
