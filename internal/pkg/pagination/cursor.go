package pagination

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
)

// ErrInvalidCursor is returned for cursors that were not produced by EncodeCursor.
var ErrInvalidCursor = errors.New("invalid cursor")

// Cursor marks the last row of a keyset page: its sort key and id.
type Cursor struct {
	Key int64
	ID  string
}

// CursorInfo is the cursor pagination metadata returned with public lists.
type CursorInfo struct {
	NextCursor *string `json:"nextCursor"`
}

// EncodeCursor renders an opaque, URL-safe cursor.
func EncodeCursor(c Cursor) string {
	raw := strconv.FormatInt(c.Key, 10) + ":" + c.ID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a cursor produced by EncodeCursor.
func DecodeCursor(s string) (Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return Cursor{}, ErrInvalidCursor
	}
	key, id, ok := strings.Cut(string(raw), ":")
	if !ok || id == "" {
		return Cursor{}, ErrInvalidCursor
	}
	n, err := strconv.ParseInt(key, 10, 64)
	if err != nil {
		return Cursor{}, ErrInvalidCursor
	}
	return Cursor{Key: n, ID: id}, nil
}

// KeysetPage trims a result fetched with limit+1 rows down to limit and
// reports the cursor for the next page, if any.
func KeysetPage[T any](rows []T, limit int, cursorOf func(T) Cursor) ([]T, CursorInfo) {
	if len(rows) <= limit {
		return rows, CursorInfo{}
	}
	rows = rows[:limit]
	next := EncodeCursor(cursorOf(rows[len(rows)-1]))
	return rows, CursorInfo{NextCursor: &next}
}
