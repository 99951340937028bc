package bark

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/heliosensium/site/internal/config"
)

type recorder struct {
	mu    sync.Mutex
	calls []pushPayload
}

func (r *recorder) server(t *testing.T, status int) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/push" {
			t.Errorf("unexpected path %s", req.URL.Path)
		}
		var p pushPayload
		_ = json.NewDecoder(req.Body).Decode(&p)
		r.mu.Lock()
		r.calls = append(r.calls, p)
		r.mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestPush(t *testing.T) {
	rec := &recorder{}
	srv := rec.server(t, http.StatusOK)
	c := New(config.BarkConfig{Key: "device", Server: srv.URL}, "Helio")

	if err := c.Push(context.Background(), "New blog", "Title by Ana", "https://x/suraj/blog/1"); err != nil {
		t.Fatalf("push: %v", err)
	}
	if len(rec.calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(rec.calls))
	}
	got := rec.calls[0]
	if got.DeviceKey != "device" || got.Title != "[Helio] New blog" || got.URL != "https://x/suraj/blog/1" {
		t.Errorf("unexpected payload %+v", got)
	}
}

func TestPushErrorStatus(t *testing.T) {
	srv := (&recorder{}).server(t, http.StatusBadRequest)
	c := New(config.BarkConfig{Key: "device", Server: srv.URL}, "Helio")
	if err := c.Push(context.Background(), "t", "b", ""); err == nil {
		t.Error("expected error for 400 response")
	}
}

func TestDisabledIsNoop(t *testing.T) {
	c := New(config.BarkConfig{Server: "http://127.0.0.1:1"}, "Helio")
	if c.Enabled() {
		t.Fatal("expected disabled without key")
	}
	if err := c.Push(context.Background(), "t", "b", ""); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
	if c.ThrottlePush(context.Background(), "k", "t", "b") {
		t.Error("expected no push when disabled")
	}
}

func TestThrottlePush(t *testing.T) {
	rec := &recorder{}
	srv := rec.server(t, http.StatusOK)
	c := New(config.BarkConfig{Key: "device", Server: srv.URL}, "Helio", WithThrottle(time.Minute))
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }
	ctx := context.Background()

	if !c.ThrottlePush(ctx, "1.2.3.4", "limited", "b") {
		t.Fatal("first push should go out")
	}
	if c.ThrottlePush(ctx, "1.2.3.4", "limited", "b") {
		t.Error("second push within the window should be dropped")
	}
	if !c.ThrottlePush(ctx, "5.6.7.8", "limited", "b") {
		t.Error("other keys have their own window")
	}
	c.now = func() time.Time { return base.Add(2 * time.Minute) }
	if !c.ThrottlePush(ctx, "1.2.3.4", "limited", "b") {
		t.Error("push should resume after the window")
	}
	if len(rec.calls) != 3 {
		t.Errorf("expected 3 pushes, got %d", len(rec.calls))
	}
}
