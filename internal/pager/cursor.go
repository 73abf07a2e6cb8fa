package pager

import (
	"encoding/base64"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
)

// ErrInvalidCursor is returned for cursors that cannot be decoded or that
// were issued for a different ordering.
var ErrInvalidCursor = errors.New("invalid cursor")

// Cursor is a position in an ordered listing: the ordering value of the last
// row served and its id as tie-break.
type Cursor struct {
	Sort  string    `json:"s"`
	Value string    `json:"v"`
	ID    uuid.UUID `json:"id"`
}

// Encode returns the opaque, URL-safe form of c.
func Encode(c Cursor) string {
	b, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(b)
}

// Decode parses a cursor produced by Encode. Any malformed input yields
// ErrInvalidCursor.
func Decode(raw string) (Cursor, error) {
	b, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return Cursor{}, ErrInvalidCursor
	}

	var c Cursor
	if err := json.Unmarshal(b, &c); err != nil {
		return Cursor{}, ErrInvalidCursor
	}
	if c.Sort == "" || c.Value == "" || c.ID == uuid.Nil {
		return Cursor{}, ErrInvalidCursor
	}
	return c, nil
}
