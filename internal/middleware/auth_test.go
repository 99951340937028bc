package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	jwtpkg "github.com/heliosensium/site/internal/pkg/jwt"
	sessionpkg "github.com/heliosensium/site/internal/pkg/session"
	"github.com/heliosensium/site/internal/testutil"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func issueToken(t *testing.T, db *gorm.DB) *sessionpkg.Issued {
	t.Helper()
	jwtpkg.SetSecret("middleware-test")
	issued, err := sessionpkg.Issue(db, "admin-1", "127.0.0.1", "test", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return issued
}

func protectedRouter(db *gorm.DB) *gin.Engine {
	r := gin.New()
	r.GET("/api/admin/ping", Auth(db), func(c *gin.Context) {
		c.String(http.StatusOK, CurrentUserID(c))
	})
	r.GET("/suraj/dashboard", PageAuth(db, "/suraj/login", false), func(c *gin.Context) {
		c.String(http.StatusOK, "dashboard")
	})
	return r
}

func TestAuthAcceptsHeaderCookieAndQuery(t *testing.T) {
	db := testutil.NewDB(t)
	issued := issueToken(t, db)
	r := protectedRouter(db)

	cases := map[string]func(*http.Request){
		"bearer": func(req *http.Request) { req.Header.Set("Authorization", "Bearer "+issued.Token) },
		"cookie": func(req *http.Request) { req.AddCookie(&http.Cookie{Name: AuthCookieName, Value: issued.Token}) },
		"query":  func(req *http.Request) { req.URL.RawQuery = "token=" + url.QueryEscape(issued.Token) },
	}
	for name, apply := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/admin/ping", nil)
			apply(req)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
			}
			if w.Body.String() != "admin-1" {
				t.Errorf("expected user id in context, got %q", w.Body.String())
			}
		})
	}
}

func TestAuthRejectsMissingAndRevoked(t *testing.T) {
	db := testutil.NewDB(t)
	issued := issueToken(t, db)
	r := protectedRouter(db)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/admin/ping", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", w.Code)
	}

	if err := sessionpkg.Revoke(db, "admin-1", issued.Session.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/admin/ping", nil)
	req.Header.Set("Authorization", "Bearer "+issued.Token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for revoked session, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"code":"unauthorized"`) {
		t.Errorf("expected unauthorized envelope, got %s", w.Body.String())
	}
}

func TestPageAuthForcesLogout(t *testing.T) {
	db := testutil.NewDB(t)
	r := protectedRouter(db)

	req := httptest.NewRequest(http.MethodGet, "/suraj/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: AuthCookieName, Value: "stale.token.value"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", w.Code)
	}
	loc := w.Header().Get("Location")
	if !strings.HasPrefix(loc, "/suraj/login?error=") {
		t.Errorf("unexpected redirect %q", loc)
	}
	if !strings.Contains(w.Header().Get("Set-Cookie"), AuthCookieName+"=;") {
		t.Errorf("expected auth cookie to be cleared, got %q", w.Header().Get("Set-Cookie"))
	}
}

func TestPageAuthWithoutTokenRedirectsPlain(t *testing.T) {
	db := testutil.NewDB(t)
	r := protectedRouter(db)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/suraj/dashboard", nil))
	if loc := w.Header().Get("Location"); loc != "/suraj/login" {
		t.Errorf("expected plain login redirect, got %q", loc)
	}
}

func TestNormalizeToken(t *testing.T) {
	for in, want := range map[string]string{
		"":             "",
		"  abc ":       "abc",
		"Bearer abc":   "abc",
		"bearer   abc": "abc",
	} {
		if got := NormalizeToken(in); got != want {
			t.Errorf("NormalizeToken(%q) = %q, want %q", in, got, want)
		}
	}
}
