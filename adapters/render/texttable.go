// Package render provides a plain-text implementation of the layout
// grammar capability interface. It stands in for the external table engine
// in tests and the CLI.
package render

import (
	"fmt"
	"io"
	"strings"

	"clintab/ports"
)

// Builder implements ports.TableBuilder over an in-memory cell grid
type Builder struct {
	headers []string
	rows    []ports.RowSpec
	cells   [][]string
	annots  map[string]interface{}
}

// NewBuilder creates an empty text table builder
func NewBuilder() *Builder {
	return &Builder{annots: make(map[string]interface{})}
}

// SplitColumns declares the column headers
func (b *Builder) SplitColumns(headers []string) {
	b.headers = append([]string(nil), headers...)
}

// SplitRows declares the output rows
func (b *Builder) SplitRows(rows []ports.RowSpec) {
	b.rows = append([]ports.RowSpec(nil), rows...)
	b.cells = make([][]string, len(rows))
	for i := range b.cells {
		b.cells[i] = make([]string, len(b.headers))
	}
}

// PopulateCell sets one cell of the declared grid
func (b *Builder) PopulateCell(row, col int, content string) error {
	if row < 0 || row >= len(b.rows) {
		return fmt.Errorf("row %d outside declared row split of %d", row, len(b.rows))
	}
	if col < 0 || col >= len(b.headers) {
		return fmt.Errorf("column %d outside declared column split of %d", col, len(b.headers))
	}
	b.cells[row][col] = content
	return nil
}

// Annotate attaches side metadata to the table being built
func (b *Builder) Annotate(key string, value interface{}) {
	b.annots[key] = value
}

// Build finalizes the table
func (b *Builder) Build() (ports.Table, error) {
	if b.headers == nil {
		return nil, fmt.Errorf("column split not declared")
	}
	if b.cells == nil {
		return nil, fmt.Errorf("row split not declared")
	}
	return &Table{
		headers: b.headers,
		rows:    b.rows,
		cells:   b.cells,
		annots:  b.annots,
	}, nil
}

// Table is an immutable rendered-table value
type Table struct {
	headers []string
	rows    []ports.RowSpec
	cells   [][]string
	annots  map[string]interface{}
}

// ColumnHeaders returns the declared headers
func (t *Table) ColumnHeaders() []string {
	return append([]string(nil), t.headers...)
}

// Rows returns the declared row specs
func (t *Table) Rows() []ports.RowSpec {
	return append([]ports.RowSpec(nil), t.rows...)
}

// Cell returns the formatted content at (row, col)
func (t *Table) Cell(row, col int) string {
	return t.cells[row][col]
}

// Annotation reads side metadata off the table
func (t *Table) Annotation(key string) (interface{}, bool) {
	v, ok := t.annots[key]
	return v, ok
}

// Render writes the table as aligned plain text. Rows with an empty label
// print their group label flush left; labeled rows indent beneath it.
func (t *Table) Render(w io.Writer) error {
	labelWidth := len("")
	for _, r := range t.rows {
		width := len(r.Group)
		if r.Label != "" {
			width = len(r.Label) + 2
		}
		if width > labelWidth {
			labelWidth = width
		}
	}
	colWidths := make([]int, len(t.headers))
	for c, h := range t.headers {
		colWidths[c] = len(h)
		for r := range t.rows {
			if n := len(t.cells[r][c]); n > colWidths[c] {
				colWidths[c] = n
			}
		}
	}

	var sb strings.Builder
	writeRow := func(label string, cells []string) {
		sb.WriteString(fmt.Sprintf("%-*s", labelWidth, label))
		for c, cell := range cells {
			sb.WriteString(fmt.Sprintf("  %*s", colWidths[c], cell))
		}
		sb.WriteString("\n")
	}

	writeRow("", t.headers)
	total := labelWidth
	for _, cw := range colWidths {
		total += cw + 2
	}
	sb.WriteString(strings.Repeat("-", total))
	sb.WriteString("\n")

	for r, spec := range t.rows {
		label := spec.Group
		if spec.Label != "" {
			label = "  " + spec.Label
		}
		writeRow(label, t.cells[r])
	}

	_, err := io.WriteString(w, sb.String())
	return err
}
