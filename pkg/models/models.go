package models

import "fmt"

// Record is one harvested legislative document. Its field set is fixed at
// construction and keeps the declared order.
type Record struct {
	fields []string
	values map[string]string
}

// NewRecord creates a record with every field set to the empty string
func NewRecord(fields []string) *Record {
	r := &Record{
		fields: append([]string(nil), fields...),
		values: make(map[string]string, len(fields)),
	}
	for _, f := range fields {
		r.values[f] = ""
	}
	return r
}

// Set assigns a declared field. Undeclared fields are rejected so a record
// never grows extra keys.
func (r *Record) Set(field, value string) error {
	if _, ok := r.values[field]; !ok {
		return fmt.Errorf("field %q is not declared", field)
	}
	r.values[field] = value
	return nil
}

// Get returns the value of a field and whether it is declared
func (r *Record) Get(field string) (string, bool) {
	v, ok := r.values[field]
	return v, ok
}

// Fields returns the declared field names in order
func (r *Record) Fields() []string {
	return append([]string(nil), r.fields...)
}

// Values returns the field values in declared order
func (r *Record) Values() []string {
	out := make([]string, len(r.fields))
	for i, f := range r.fields {
		out[i] = r.values[f]
	}
	return out
}

// Map returns a copy of the record as a plain map
func (r *Record) Map() map[string]string {
	out := make(map[string]string, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// RawRow is one source-provided row before mapping
type RawRow struct {
	Index int      // position of the row in its batch, header excluded
	Cells []string // visible text of each cell, in document order
	Link  string   // absolute full-text link, empty when the row has none
}

// Span is one unit of the outer enumeration of a harvest
type Span struct {
	Label    string `yaml:"label"`
	Fragment string `yaml:"fragment"`
	AllYears bool   `yaml:"all_years,omitempty"`
}

// Year returns the year carried by the span, empty for consolidated spans
func (s Span) Year() string {
	if s.AllYears {
		return ""
	}
	return s.Label
}

// SourceContext carries per-harvest metadata that rows do not contain
type SourceContext struct {
	Family string
	Label  string
	Span   Span
	Year   string
}

// Cursor tracks progress through a paginated source. Page starts at 1.
type Cursor struct {
	Page int
}

// Start returns the first row offset for the cursor's page
func (c Cursor) Start(pageSize int) int {
	return (c.Page-1)*pageSize + 1
}

// Next advances the cursor by one page
func (c Cursor) Next() Cursor {
	return Cursor{Page: c.Page + 1}
}

// Batch is the result of one PageSource fetch
type Batch struct {
	Rows []RawRow
	Next Cursor
	Done bool
	URL  string
}
