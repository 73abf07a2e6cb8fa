package pager

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MinLimit     = 1
	MaxLimit     = 50
	DefaultLimit = 20
)

// ClampLimit forces a requested page size into [MinLimit, MaxLimit]. Zero
// means "not given" and maps to DefaultLimit.
func ClampLimit(n int) int {
	switch {
	case n == 0:
		return DefaultLimit
	case n < MinLimit:
		return MinLimit
	case n > MaxLimit:
		return MaxLimit
	}
	return n
}

var ErrInvalidLimit = errors.New("limit is not a number")

// ParseLimit reads a limit query value. An empty value yields DefaultLimit;
// any number, including zero and values beyond the int range, is clamped
// into [MinLimit, MaxLimit].
func ParseLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if errors.Is(err, strconv.ErrRange) {
		if strings.HasPrefix(raw, "-") {
			return MinLimit, nil
		}
		return MaxLimit, nil
	}
	if err != nil {
		return 0, ErrInvalidLimit
	}
	if n < MinLimit {
		return MinLimit, nil
	}
	return ClampLimit(n), nil
}

// Window is one page request against an ordered listing.
type Window struct {
	Field  SortField
	Limit  int
	cursor *Cursor
	after  interface{}
}

// NewWindow validates the sort key and cursor. A cursor that does not decode,
// names another sort, or is given for a first-page-only field is rejected
// with ErrInvalidCursor.
func NewWindow(reg *Registry, sortKey, rawCursor string, limit int) (*Window, error) {
	field, err := reg.Lookup(sortKey)
	if err != nil {
		return nil, err
	}

	w := &Window{Field: field, Limit: ClampLimit(limit)}
	if rawCursor == "" {
		return w, nil
	}
	if !field.SupportsCursor {
		return nil, ErrInvalidCursor
	}

	c, err := Decode(rawCursor)
	if err != nil {
		return nil, err
	}
	if c.Sort != field.Key {
		return nil, ErrInvalidCursor
	}
	after, err := field.ParseValue(c.Value)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	w.cursor = &c
	w.after = after
	return w, nil
}

// Cursor returns the decoded cursor, or nil on the first page.
func (w *Window) Cursor() *Cursor {
	return w.cursor
}

// Apply adds the keyset predicate, ordering and a Limit+1 fetch to query.
// The extra row only signals that another page exists.
func (w *Window) Apply(query *gorm.DB) *gorm.DB {
	col := w.Field.Column
	dir := w.Field.Direction()

	if w.cursor != nil {
		op := w.Field.comparator()
		query = query.Where(
			fmt.Sprintf("((%s %s ?) OR (%s = ? AND id %s ?))", col, op, col, op),
			w.after, w.after, w.cursor.ID,
		)
	}

	return query.
		Order(col + " " + dir).
		Order("id " + dir).
		Limit(w.Limit + 1)
}

// Next returns the cursor for the page after a row with the given ordering
// value and id. It is empty when the field cannot be walked.
func (w *Window) Next(value interface{}, id uuid.UUID) (string, error) {
	if !w.Field.SupportsCursor {
		return "", nil
	}
	raw, err := w.Field.FormatValue(value)
	if err != nil {
		return "", err
	}
	return Encode(Cursor{Sort: w.Field.Key, Value: raw, ID: id}), nil
}

// Trim drops the extra row fetched by Apply and reports whether it existed.
func Trim[T any](rows []T, limit int) ([]T, bool) {
	if len(rows) > limit {
		return rows[:limit], true
	}
	return rows, false
}
