package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/heliosensium/site/internal/testutil"
)

func TestIdempotenceBlocksRepeatAfterSuccess(t *testing.T) {
	rdb, _ := testutil.NewRedis(t)
	calls := 0
	r := gin.New()
	r.POST("/submit", Idempotence(rdb), func(c *gin.Context) {
		calls++
		c.Status(http.StatusCreated)
	})

	send := func(body string) int {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/submit", strings.NewReader(body)))
		return w.Code
	}

	if code := send(`{"title":"a"}`); code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", code)
	}
	if code := send(`{"title":"a"}`); code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate, got %d", code)
	}
	if code := send(`{"title":"b"}`); code != http.StatusCreated {
		t.Fatalf("expected 201 for different body, got %d", code)
	}
	if calls != 2 {
		t.Errorf("expected handler to run twice, ran %d", calls)
	}
}

func TestIdempotenceReleasesOnFailure(t *testing.T) {
	rdb, _ := testutil.NewRedis(t)
	fail := true
	r := gin.New()
	r.POST("/submit", Idempotence(rdb), func(c *gin.Context) {
		if fail {
			c.Status(http.StatusBadRequest)
			return
		}
		c.Status(http.StatusCreated)
	})

	send := func() int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/submit", nil)
		req.Header.Set(IdempotenceHeader, "abc")
		r.ServeHTTP(w, req)
		return w.Code
	}

	if code := send(); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
	fail = false
	if code := send(); code != http.StatusCreated {
		t.Fatalf("expected retry after failure to pass, got %d", code)
	}
}

func TestIdempotenceBodyStillReadable(t *testing.T) {
	rdb, _ := testutil.NewRedis(t)
	var seen string
	r := gin.New()
	r.POST("/submit", Idempotence(rdb), func(c *gin.Context) {
		raw, _ := c.GetRawData()
		seen = string(raw)
		c.Status(http.StatusOK)
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/submit", strings.NewReader("payload")))
	if seen != "payload" {
		t.Errorf("expected handler to read original body, got %q", seen)
	}
}
