// Package form implements the declarative form layout engine shared by every record screen:
// a layout of fields and rows, the transient values the user types, validation, and the
// open/submit/close lifecycle.
package form

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrDuplicateField is returned when two layout entries share a field name.
	ErrDuplicateField = errors.New("duplicate field name in layout")
	// ErrEmptyField is returned for a field spec without a name.
	ErrEmptyField = errors.New("field name is empty")
	// ErrEmptyRow is returned for a row with no fields.
	ErrEmptyRow = errors.New("row has no fields")
	// ErrMissingKey is returned by CheckKeys when a field names an unknown value key.
	ErrMissingKey = errors.New("field is not a key of the form values")
)

// InputKind selects the input widget and numeric validation for a field.
type InputKind int

const (
	KindText InputKind = iota
	KindNumeric
)

func (k InputKind) String() string {
	if k == KindNumeric {
		return "numeric"
	}
	return "text"
}

// MarshalText renders the kind as "text" or "numeric".
func (k InputKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// FieldSpec describes one input.
type FieldSpec struct {
	Name        string    `json:"name"`
	Label       string    `json:"label"`
	Placeholder string    `json:"placeholder,omitempty"`
	Kind        InputKind `json:"kind"`
	Required    bool      `json:"required"`
}

// Row groups fields rendered side by side with equal widths.
type Row []FieldSpec

// Node is one layout entry: a FieldSpec occupying a full row, or a Row.
type Node interface {
	fields() []FieldSpec
}

func (f FieldSpec) fields() []FieldSpec { return []FieldSpec{f} }

func (r Row) fields() []FieldSpec { return r }

// Layout is an ordered, validated list of nodes.
type Layout struct {
	nodes []Node
	index map[string]FieldSpec
	order []string
}

// NewLayout validates nodes: names must be non-empty and unique across the whole layout,
// and rows must not be empty.
func NewLayout(nodes ...Node) (Layout, error) {
	l := Layout{index: make(map[string]FieldSpec)}
	for i, node := range nodes {
		if row, ok := node.(Row); ok && len(row) == 0 {
			return Layout{}, fmt.Errorf("%w: entry %d", ErrEmptyRow, i)
		}
		for _, field := range node.fields() {
			if field.Name == "" {
				return Layout{}, fmt.Errorf("%w: entry %d", ErrEmptyField, i)
			}
			if _, exists := l.index[field.Name]; exists {
				return Layout{}, fmt.Errorf("%w: %q", ErrDuplicateField, field.Name)
			}
			l.index[field.Name] = field
			l.order = append(l.order, field.Name)
		}
		l.nodes = append(l.nodes, node)
	}
	return l, nil
}

// MustLayout is NewLayout for static layouts; it panics on an invalid layout.
func MustLayout(nodes ...Node) Layout {
	l, err := NewLayout(nodes...)
	if err != nil {
		panic(err)
	}
	return l
}

// Nodes returns the layout entries in render order.
func (l Layout) Nodes() []Node {
	out := make([]Node, len(l.nodes))
	copy(out, l.nodes)
	return out
}

// Fields returns every field in render order, rows flattened.
func (l Layout) Fields() []FieldSpec {
	out := make([]FieldSpec, 0, len(l.order))
	for _, name := range l.order {
		out = append(out, l.index[name])
	}
	return out
}

// Field looks up a field by name.
func (l Layout) Field(name string) (FieldSpec, bool) {
	f, ok := l.index[name]
	return f, ok
}

// CheckKeys reports every field whose name is not among keys.
func (l Layout) CheckKeys(keys ...string) error {
	known := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		known[k] = struct{}{}
	}
	var missing []string
	for _, name := range l.order {
		if _, ok := known[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("%w: %v", ErrMissingKey, missing)
}

// Cell is one positioned field within a line.
type Cell struct {
	Field    FieldSpec `json:"field"`
	Offset   int       `json:"offset"`
	Width    int       `json:"width"`
	GapAfter int       `json:"gapAfter"`
}

// Line is one rendered row of the form.
type Line struct {
	Cells []Cell `json:"cells"`
}

// Arrange positions every field for a form width columns wide. Fields in a row share
// width minus the gaps between them; leftover columns go to the leftmost cells.
func (l Layout) Arrange(width, gap int) []Line {
	if gap < 0 {
		gap = 0
	}
	lines := make([]Line, 0, len(l.nodes))
	for _, node := range l.nodes {
		fields := node.fields()
		n := len(fields)
		usable := width - gap*(n-1)
		if usable < 0 {
			usable = 0
		}
		base, extra := usable/n, usable%n

		line := Line{Cells: make([]Cell, 0, n)}
		offset := 0
		for i, field := range fields {
			w := base
			if i < extra {
				w++
			}
			after := gap
			if i == n-1 {
				after = 0
			}
			line.Cells = append(line.Cells, Cell{Field: field, Offset: offset, Width: w, GapAfter: after})
			offset += w + after
		}
		lines = append(lines, line)
	}
	return lines
}

// FieldDescriptor is the client-facing form of a FieldSpec positioned by fraction of the row.
type FieldDescriptor struct {
	Name        string    `json:"name"`
	Label       string    `json:"label"`
	Placeholder string    `json:"placeholder,omitempty"`
	Kind        InputKind `json:"kind"`
	Required    bool      `json:"required"`
	Fraction    float64   `json:"fraction"`
	MarginAfter bool      `json:"marginAfter"`
}

// Describe returns the layout as rows of descriptors; each field in a row of N carries a
// width fraction of 1/N and all but the last carry a trailing margin.
func (l Layout) Describe() [][]FieldDescriptor {
	out := make([][]FieldDescriptor, 0, len(l.nodes))
	for _, node := range l.nodes {
		fields := node.fields()
		row := make([]FieldDescriptor, 0, len(fields))
		for i, f := range fields {
			row = append(row, FieldDescriptor{
				Name:        f.Name,
				Label:       f.Label,
				Placeholder: f.Placeholder,
				Kind:        f.Kind,
				Required:    f.Required,
				Fraction:    1 / float64(len(fields)),
				MarginAfter: i < len(fields)-1,
			})
		}
		out = append(out, row)
	}
	return out
}
