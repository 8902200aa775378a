// Package ports defines the interfaces the statistical core depends on:
// the external layout grammar (as a capability interface) and the dataset
// sources.
package ports

import (
	"io"
)

// Annotation keys the tabulation adapters attach for the forest-plot
// renderer. The renderer reads these four plus the ordered row labels and
// estimate values off the built table.
const (
	AnnotForestHeader  = "forest_header"
	AnnotColX          = "col_x"
	AnnotColCI         = "col_ci"
	AnnotColSymbolSize = "col_symbol_size"
	AnnotTimeUnit      = "time_unit"
)

// RowSpec declares one output row. Group is the subgroup block the row
// belongs to; Label is the row's own label, empty for the block's summary
// row.
type RowSpec struct {
	Group string
	Label string
}

// TableBuilder is the layout-grammar capability the adapters drive: declare
// the column split, declare the row split, populate each (row, column)
// cell, then build. Implementations own presentation; the statistical core
// never depends on a concrete rendering engine.
type TableBuilder interface {
	// SplitColumns declares the column headers in display order.
	SplitColumns(headers []string)
	// SplitRows declares the output rows, grouped by subgroup block.
	SplitRows(rows []RowSpec)
	// PopulateCell sets the formatted content of one cell. Row and column
	// indices refer to the declared splits.
	PopulateCell(row, col int, content string) error
	// Annotate attaches side metadata to the built table.
	Annotate(key string, value interface{})
	// Build finalizes the table. Split declarations must precede it.
	Build() (Table, error)
}

// Table is the presentational table object returned by a builder
type Table interface {
	ColumnHeaders() []string
	Rows() []RowSpec
	Cell(row, col int) string
	Annotation(key string) (interface{}, bool)
	Render(w io.Writer) error
}
