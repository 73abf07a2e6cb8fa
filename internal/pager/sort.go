package pager

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

var ErrUnknownSort = errors.New("unknown sort field")

// SortField describes one listing order. Rows are always ordered by Column
// and then id in the same direction.
type SortField struct {
	Key    string
	Column string
	Desc   bool

	// SupportsCursor is true only when (Column, id) is a strict total order
	// that does not change under the reader. Other fields serve the first
	// page only and never emit a cursor.
	SupportsCursor bool

	// ParseValue converts a cursor value back into the column's Go type.
	ParseValue func(raw string) (interface{}, error)
	// FormatValue renders a column value for a cursor.
	FormatValue func(v interface{}) (string, error)
}

// Direction returns the SQL ordering keyword.
func (f SortField) Direction() string {
	if f.Desc {
		return "DESC"
	}
	return "ASC"
}

// comparator is the operator that selects rows strictly after a position.
func (f SortField) comparator() string {
	if f.Desc {
		return "<"
	}
	return ">"
}

// TimeField is a cursor-capable field over a timestamp column.
func TimeField(key, column string, desc bool) SortField {
	return SortField{
		Key:            key,
		Column:         column,
		Desc:           desc,
		SupportsCursor: true,
		ParseValue: func(raw string) (interface{}, error) {
			t, err := time.Parse(time.RFC3339Nano, raw)
			if err != nil {
				return nil, err
			}
			return t.UTC(), nil
		},
		FormatValue: func(v interface{}) (string, error) {
			t, ok := v.(time.Time)
			if !ok {
				return "", fmt.Errorf("expected time.Time, got %T", v)
			}
			return t.UTC().Format(time.RFC3339Nano), nil
		},
	}
}

// LabelField is a first-page-only field over a non-unique label column.
func LabelField(key, column string, desc bool) SortField {
	return SortField{
		Key:    key,
		Column: column,
		Desc:   desc,
	}
}

// Registry maps sort keys to fields and names the default.
type Registry struct {
	fields     map[string]SortField
	defaultKey string
}

// NewRegistry builds a registry; the first field is the default.
func NewRegistry(fields ...SortField) *Registry {
	r := &Registry{fields: make(map[string]SortField, len(fields))}
	for i, f := range fields {
		if i == 0 {
			r.defaultKey = f.Key
		}
		r.fields[f.Key] = f
	}
	return r
}

// Lookup returns the field for key, or the default when key is empty.
func (r *Registry) Lookup(key string) (SortField, error) {
	if key == "" {
		key = r.defaultKey
	}
	f, ok := r.fields[key]
	if !ok {
		return SortField{}, ErrUnknownSort
	}
	return f, nil
}

// Keys lists the registered sort keys in lexical order.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.fields))
	for k := range r.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
