package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/heliosensium/site/internal/config"
	"github.com/heliosensium/site/internal/pkg/cron"
	pkgmail "github.com/heliosensium/site/internal/pkg/mail"
	"github.com/heliosensium/site/internal/testutil"
	"go.uber.org/zap"
)

func init() { gin.SetMode(gin.TestMode) }

func passthrough(c *gin.Context) { c.Next() }

type fixture struct {
	router     *gin.Engine
	sched      *cron.Scheduler
	logDir     string
	closeRedis func()
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	rdb, mr := testutil.NewRedis(t)
	sched := cron.New(zap.NewNop())
	logDir := t.TempDir()

	r := gin.New()
	NewHandler(db, rdb, sched, pkgmail.New(config.MailConfig{}), logDir).
		RegisterRoutes(r.Group("/api"), passthrough)
	return &fixture{router: r, sched: sched, logDir: logDir, closeRedis: mr.Close}
}

func (f *fixture) do(method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestHealthOK(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/api/health")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var body struct {
		Status   string `json:"status"`
		Database bool   `json:"database"`
		Redis    bool   `json:"redis"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" || !body.Database || !body.Redis {
		t.Errorf("unexpected body %+v", body)
	}
}

func TestHealthDegradedWithoutRedis(t *testing.T) {
	f := newFixture(t)
	f.closeRedis()

	w := f.do(http.MethodGet, "/api/health")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"redis":false`) {
		t.Errorf("expected redis=false, got %s", w.Body.String())
	}
}

func TestPing(t *testing.T) {
	w := newFixture(t).do(http.MethodGet, "/api/ping")
	if w.Code != http.StatusOK || w.Body.String() != "pong" {
		t.Errorf("got %d %q", w.Code, w.Body.String())
	}
}

func TestCronRun(t *testing.T) {
	f := newFixture(t)
	ran := 0
	f.sched.Register(cron.Job{Name: "tick", Interval: time.Hour, Fn: func(context.Context) error { ran++; return nil }})
	f.sched.Register(cron.Job{Name: "boom", Interval: time.Hour, Fn: func(context.Context) error { return errors.New("boom") }})

	if w := f.do(http.MethodPost, "/api/health/cron/run/tick"); w.Code != http.StatusOK || ran != 1 {
		t.Errorf("tick: %d ran=%d", w.Code, ran)
	}
	if w := f.do(http.MethodPost, "/api/health/cron/run/boom"); w.Code != http.StatusInternalServerError {
		t.Errorf("boom: expected 500, got %d", w.Code)
	}
	if w := f.do(http.MethodPost, "/api/health/cron/run/missing"); w.Code != http.StatusNotFound {
		t.Errorf("missing: expected 404, got %d", w.Code)
	}

	w := f.do(http.MethodGet, "/api/health/cron")
	if !strings.Contains(w.Body.String(), `"status":"failed"`) || !strings.Contains(w.Body.String(), `"name":"tick"`) {
		t.Errorf("unexpected cron list %s", w.Body.String())
	}
}

func TestEmailTestDisabled(t *testing.T) {
	w := newFixture(t).do(http.MethodGet, "/api/health/email/test")
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 when mail disabled, got %d", w.Code)
	}
}

func TestLogs(t *testing.T) {
	f := newFixture(t)
	if err := os.WriteFile(filepath.Join(f.logDir, "site_2026-01-02.log"), []byte("hello log"), 0o644); err != nil {
		t.Fatal(err)
	}

	w := f.do(http.MethodGet, "/api/health/log/list")
	if !strings.Contains(w.Body.String(), "site_2026-01-02.log") {
		t.Errorf("expected log listed, got %s", w.Body.String())
	}

	w = f.do(http.MethodGet, "/api/health/log?filename=../site_2026-01-02.log")
	if w.Code != http.StatusOK || w.Body.String() != "hello log" {
		t.Errorf("read: %d %q", w.Code, w.Body.String())
	}

	if w := f.do(http.MethodGet, "/api/health/log?filename=passwd"); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for non-log file, got %d", w.Code)
	}
}
