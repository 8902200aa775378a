// Package frame holds the in-memory analysis dataset: a column-oriented
// table of subject-level records with typed columns and labeled factors.
// A frame is treated as immutable for the duration of one tabulation call.
package frame

import (
	"fmt"
)

// Kind tags the variant of a column. Summary logic dispatches on the tag
// rather than on runtime reflection.
type Kind string

const (
	KindNumeric Kind = "numeric"
	KindFactor  Kind = "factor"
	KindBool    Kind = "bool"
	KindString  Kind = "string"
)

// Column is a tagged union over the supported column kinds. Exactly one of
// the payload slices is populated, selected by Kind.
type Column struct {
	Name  string
	Label string // display label, Name when unset
	Kind  Kind

	Num  []float64
	Flag []bool
	Fact *Factor
	Str  []string
}

// NumericColumn creates a numeric column
func NumericColumn(name string, values []float64) *Column {
	return &Column{Name: name, Kind: KindNumeric, Num: values}
}

// BoolColumn creates a logical column
func BoolColumn(name string, values []bool) *Column {
	return &Column{Name: name, Kind: KindBool, Flag: values}
}

// FactorColumn creates a categorical column
func FactorColumn(name string, f *Factor) *Column {
	return &Column{Name: name, Kind: KindFactor, Fact: f}
}

// StringColumn creates a free-text column
func StringColumn(name string, values []string) *Column {
	return &Column{Name: name, Kind: KindString, Str: values}
}

// WithLabel sets the display label and returns the column for chaining
func (c *Column) WithLabel(label string) *Column {
	c.Label = label
	return c
}

// Len returns the number of observations in the column
func (c *Column) Len() int {
	switch c.Kind {
	case KindNumeric:
		return len(c.Num)
	case KindBool:
		return len(c.Flag)
	case KindFactor:
		return c.Fact.Len()
	case KindString:
		return len(c.Str)
	}
	return 0
}

// subset returns a copy of the column restricted to the given rows
func (c *Column) subset(rows []int) *Column {
	out := &Column{Name: c.Name, Label: c.Label, Kind: c.Kind}
	switch c.Kind {
	case KindNumeric:
		out.Num = make([]float64, len(rows))
		for i, r := range rows {
			out.Num[i] = c.Num[r]
		}
	case KindBool:
		out.Flag = make([]bool, len(rows))
		for i, r := range rows {
			out.Flag[i] = c.Flag[r]
		}
	case KindFactor:
		out.Fact = c.Fact.Subset(rows)
	case KindString:
		out.Str = make([]string, len(rows))
		for i, r := range rows {
			out.Str[i] = c.Str[r]
		}
	}
	return out
}

// Frame is the analysis dataset: named, typed columns of equal length.
type Frame struct {
	n     int
	order []string
	cols  map[string]*Column
}

// New builds a frame from columns, checking length consistency
func New(cols ...*Column) (*Frame, error) {
	f := &Frame{n: -1, cols: make(map[string]*Column, len(cols))}
	for _, c := range cols {
		if _, dup := f.cols[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column %q", c.Name)
		}
		if f.n < 0 {
			f.n = c.Len()
		} else if c.Len() != f.n {
			return nil, fmt.Errorf("column %q has %d rows, frame has %d", c.Name, c.Len(), f.n)
		}
		f.cols[c.Name] = c
		f.order = append(f.order, c.Name)
	}
	if f.n < 0 {
		f.n = 0
	}
	return f, nil
}

// MustNew builds a frame and panics on invalid input. Test helper.
func MustNew(cols ...*Column) *Frame {
	f, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return f
}

// NumRows returns the number of rows
func (f *Frame) NumRows() int {
	return f.n
}

// Names returns column names in declaration order
func (f *Frame) Names() []string {
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}

// HasColumn reports whether a column exists
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.cols[name]
	return ok
}

// Column returns a column by name
func (f *Frame) Column(name string) (*Column, bool) {
	c, ok := f.cols[name]
	return c, ok
}

// Numeric returns the values of a numeric column
func (f *Frame) Numeric(name string) ([]float64, error) {
	c, ok := f.cols[name]
	if !ok {
		return nil, fmt.Errorf("no column %q", name)
	}
	if c.Kind != KindNumeric {
		return nil, fmt.Errorf("column %q is %s, want numeric", name, c.Kind)
	}
	return c.Num, nil
}

// Bool returns the values of a logical column
func (f *Frame) Bool(name string) ([]bool, error) {
	c, ok := f.cols[name]
	if !ok {
		return nil, fmt.Errorf("no column %q", name)
	}
	if c.Kind != KindBool {
		return nil, fmt.Errorf("column %q is %s, want bool", name, c.Kind)
	}
	return c.Flag, nil
}

// Factor returns the values of a categorical column
func (f *Frame) Factor(name string) (*Factor, error) {
	c, ok := f.cols[name]
	if !ok {
		return nil, fmt.Errorf("no column %q", name)
	}
	if c.Kind != KindFactor {
		return nil, fmt.Errorf("column %q is %s, want factor", name, c.Kind)
	}
	return c.Fact, nil
}

// Label returns the display label of a column, falling back to its name
func (f *Frame) Label(name string) string {
	if c, ok := f.cols[name]; ok && c.Label != "" {
		return c.Label
	}
	return name
}

// Subset returns a new frame restricted to the given rows. Factor level
// sets are preserved, so empty subgroups keep their full level metadata.
func (f *Frame) Subset(rows []int) *Frame {
	out := &Frame{n: len(rows), cols: make(map[string]*Column, len(f.cols))}
	for _, name := range f.order {
		out.cols[name] = f.cols[name].subset(rows)
		out.order = append(out.order, name)
	}
	return out
}
