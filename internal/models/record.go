package models

import "strings"

// Record is one row of data owned by the model layer.
// Column names are lowercase; Columns keeps the source order.
type Record struct {
	ID      int64
	Columns []string
	Values  map[string]string
	Dirty   bool
}

// NewRecord creates a record with the given id and ordered columns
func NewRecord(id int64, columns []string) *Record {
	r := &Record{
		ID:      id,
		Columns: make([]string, 0, len(columns)),
		Values:  make(map[string]string, len(columns)),
	}
	for _, c := range columns {
		r.Columns = append(r.Columns, strings.ToLower(c))
	}
	return r
}

// Get returns the value of a column, or "" if the column is unknown
func (r *Record) Get(column string) string {
	if r == nil {
		return ""
	}
	return r.Values[strings.ToLower(column)]
}

// Set stores a value and marks the record dirty when it changed.
// Returns true if the stored value changed.
func (r *Record) Set(column, value string) bool {
	column = strings.ToLower(column)
	if old, ok := r.Values[column]; ok && old == value {
		return false
	}
	if _, ok := r.Values[column]; !ok {
		r.Columns = append(r.Columns, column)
	}
	r.Values[column] = value
	r.Dirty = true
	return true
}

// Load stores a value without touching the dirty flag (used when fetching)
func (r *Record) Load(column, value string) {
	column = strings.ToLower(column)
	if _, ok := r.Values[column]; !ok {
		r.Columns = append(r.Columns, column)
	}
	r.Values[column] = value
}

// Clone returns a deep copy of the record
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := &Record{
		ID:      r.ID,
		Columns: append([]string(nil), r.Columns...),
		Values:  make(map[string]string, len(r.Values)),
		Dirty:   r.Dirty,
	}
	for k, v := range r.Values {
		c.Values[k] = v
	}
	return c
}
