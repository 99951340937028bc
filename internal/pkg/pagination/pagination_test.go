package pagination

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestFromContextClamps(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		query string
		want  Query
	}{
		{"", Query{Page: 1, Limit: 10}},
		{"?page=3&limit=25", Query{Page: 3, Limit: 25}},
		{"?page=0&limit=0", Query{Page: 1, Limit: 10}},
		{"?page=abc&limit=1000", Query{Page: 1, Limit: MaxLimit}},
	}
	for _, tt := range tests {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest("GET", "/"+tt.query, nil)
		if got := FromContext(c); got != tt.want {
			t.Errorf("%q: expected %+v, got %+v", tt.query, tt.want, got)
		}
	}
}

func TestCursorRoundTrip(t *testing.T) {
	in := Cursor{Key: 1712345678901, ID: "0b6f6f0e-8f39-4bd1-9c0d-1f4e1a2b3c4d"}
	out, err := DecodeCursor(EncodeCursor(in))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out != in {
		t.Errorf("expected %+v, got %+v", in, out)
	}
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "!!!", "bm9jb2xvbg", "YWJjOmlk", "MTI6"} {
		if _, err := DecodeCursor(s); !errors.Is(err, ErrInvalidCursor) {
			t.Errorf("%q: expected ErrInvalidCursor, got %v", s, err)
		}
	}
}

func TestKeysetPage(t *testing.T) {
	rows := []int{9, 8, 7}
	cursorOf := func(v int) Cursor { return Cursor{Key: int64(v), ID: "x"} }

	page, info := KeysetPage(rows, 2, cursorOf)
	if len(page) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(page))
	}
	if info.NextCursor == nil {
		t.Fatal("expected next cursor")
	}
	c, err := DecodeCursor(*info.NextCursor)
	if err != nil || c.Key != 8 {
		t.Errorf("expected cursor at key 8, got %+v (%v)", c, err)
	}

	page, info = KeysetPage(rows, 3, cursorOf)
	if len(page) != 3 || info.NextCursor != nil {
		t.Errorf("expected last page without cursor, got %d rows, cursor %v", len(page), info.NextCursor)
	}
}
