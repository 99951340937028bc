package site

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/heliosensium/site/internal/config"
	"github.com/heliosensium/site/internal/middleware"
	"github.com/heliosensium/site/internal/models"
	"github.com/heliosensium/site/internal/modules/auth"
	"github.com/heliosensium/site/internal/modules/content/blog"
	jwtpkg "github.com/heliosensium/site/internal/pkg/jwt"
	"github.com/heliosensium/site/internal/testutil"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
	jwtpkg.SetSecret("site-test")
}

const adminPath = "/suraj"

type fixture struct {
	db     *gorm.DB
	router *gin.Engine
	blogs  *blog.Service
}

func newFixture(t *testing.T, submitLimit int) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	rdb, _ := testutil.NewRedis(t)

	blogs := blog.NewService(db, nil)
	authSvc := auth.NewService(db, config.AuthConfig{SessionTTL: time.Hour}, nil,
		auth.WithFailureDelay(0), auth.WithBcryptCost(bcrypt.MinCost))
	if _, err := authSvc.Register(context.Background(), auth.RegisterDTO{Username: "suraj", Password: "moderator1"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	h, err := NewHandler(Deps{
		Blogs:     blogs,
		Auth:      auth.NewHandler(authSvc, auth.NewLoginLimiter(5, time.Minute), false),
		Limiter:   middleware.NewLimiter(rdb, "submit", submitLimit, time.Hour),
		Site:      config.SiteConfig{Name: "Heliosensium"},
		AdminPath: adminPath,
	})
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	r := gin.New()
	h.RegisterRoutes(r)
	h.RegisterAdminRoutes(r, middleware.PageAuth(db, adminPath+"/login", false))
	r.NoRoute(h.NotFound)
	return &fixture{db: db, router: r, blogs: blogs}
}

func (f *fixture) get(path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) postForm(path string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.RemoteAddr = "203.0.113.7:1234"
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) seed(t *testing.T, title string, status models.BlogStatus, submittedMs int64) *models.BlogModel {
	t.Helper()
	b := &models.BlogModel{
		Title:       title,
		Content:     "Some **bold** words about " + title,
		AuthorName:  "Ada",
		AuthorEmail: "ada@example.com",
		Status:      status,
		SubmittedMs: submittedMs,
	}
	if err := f.db.Create(b).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	return b
}

func (f *fixture) login(t *testing.T) *http.Cookie {
	t.Helper()
	w := f.postForm(adminPath+"/login", url.Values{"username": {"suraj"}, "password": {"moderator1"}}, nil)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("login: expected 303, got %d: %s", w.Code, w.Body.String())
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.AuthCookieName && c.Value != "" {
			return c
		}
	}
	t.Fatal("login did not set the auth cookie")
	return nil
}

func TestStaticPages(t *testing.T) {
	f := newFixture(t, 3)
	f.seed(t, "Bedtime routines", models.BlogApproved, 1)

	cases := map[string]string{
		"/":        "Bedtime routines",
		"/about":   "What is Heliosensium?",
		"/pricing": "How credits work",
	}
	for path, want := range cases {
		w := f.get(path, nil)
		if w.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, w.Code)
			continue
		}
		if !strings.Contains(w.Body.String(), want) {
			t.Errorf("%s: expected body to contain %q", path, want)
		}
	}
}

func TestNotFoundPage(t *testing.T) {
	w := newFixture(t, 3).get("/nope", nil)
	if w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), "couldn't find that page") {
		t.Errorf("got %d", w.Code)
	}
}

func TestBlogListLoadMore(t *testing.T) {
	f := newFixture(t, 3)
	for i := 1; i <= blog.DefaultPublicLimit+2; i++ {
		f.seed(t, "Post "+strings.Repeat("x", i), models.BlogApproved, int64(i))
	}
	f.seed(t, "Hidden pending", models.BlogPending, 999)

	w := f.get("/blog", nil)
	body := w.Body.String()
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if strings.Contains(body, "Hidden pending") {
		t.Error("pending blog must not be listed")
	}
	i := strings.Index(body, "cursor=")
	if i < 0 {
		t.Fatal("expected a load more link")
	}
	cursor := body[i+len("cursor="):]
	cursor = cursor[:strings.IndexByte(cursor, '"')]

	w = f.get("/blog?sort=submissionDate&cursor="+cursor, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("page 2: expected 200, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "cursor=") {
		t.Error("last page should not offer load more")
	}
	if n := strings.Count(w.Body.String(), "<article>"); n != 2 {
		t.Errorf("expected 2 posts on the last page, got %d", n)
	}

	if w := f.get("/blog?cursor=!!!", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad cursor: expected 400, got %d", w.Code)
	}
}

func TestBlogDetail(t *testing.T) {
	f := newFixture(t, 3)
	approved := f.seed(t, "Screen time", models.BlogApproved, 1)
	pending := f.seed(t, "Draft", models.BlogPending, 2)

	w := f.get("/blog/"+approved.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "<strong>bold</strong>") || !strings.Contains(body, "1 min read") {
		t.Errorf("expected rendered markdown and reading time, got %s", body)
	}

	var got models.BlogModel
	f.db.First(&got, "id = ?", approved.ID)
	if got.Views != 1 {
		t.Errorf("expected views incremented, got %d", got.Views)
	}

	if w := f.get("/blog/"+pending.ID, nil); w.Code != http.StatusNotFound {
		t.Errorf("pending blog: expected 404, got %d", w.Code)
	}
}

func TestSubmitPage(t *testing.T) {
	f := newFixture(t, 1)

	w := f.postForm("/blog/submit", url.Values{"title": {"x"}}, nil)
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "field-error") {
		t.Fatalf("expected field errors, got %d", w.Code)
	}

	form := url.Values{
		"title":       {"Calm mornings"},
		"content":     {"How we stopped <script>alert(1)</script> yelling before school."},
		"authorName":  {"Grace"},
		"authorEmail": {"grace@example.com"},
	}
	w = f.postForm("/blog/submit", form, nil)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected the second submission to be rate limited, got %d", w.Code)
	}

	f2 := newFixture(t, 5)
	w = f2.postForm("/blog/submit", form, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Thanks!") {
		t.Fatalf("expected success flash, got %d", w.Code)
	}
	var b models.BlogModel
	if err := f2.db.First(&b, "title = ?", "Calm mornings").Error; err != nil {
		t.Fatalf("submission not stored: %v", err)
	}
	if b.Status != models.BlogPending || b.IPAddress != "203.0.113.7" {
		t.Errorf("unexpected stored blog %+v", b)
	}
	if strings.Contains(b.Content, "<script>") {
		t.Error("expected HTML content to be sanitized")
	}
}

func TestAdminRequiresSession(t *testing.T) {
	f := newFixture(t, 3)

	w := f.get(adminPath+"/dashboard", nil)
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != adminPath+"/login" {
		t.Errorf("no cookie: got %d %q", w.Code, w.Header().Get("Location"))
	}

	w = f.get(adminPath+"/dashboard", &http.Cookie{Name: middleware.AuthCookieName, Value: "stale"})
	loc := w.Header().Get("Location")
	if w.Code != http.StatusSeeOther || !strings.HasPrefix(loc, adminPath+"/login?error=") {
		t.Fatalf("stale cookie: got %d %q", w.Code, loc)
	}
	page := f.get(loc, nil)
	if !strings.Contains(page.Body.String(), "Your session has expired") {
		t.Error("expected forced logout message on the login page")
	}
}

func TestAdminLoginFailure(t *testing.T) {
	f := newFixture(t, 3)
	w := f.postForm(adminPath+"/login", url.Values{"username": {"suraj"}, "password": {"wrong"}}, nil)
	if w.Code != http.StatusUnauthorized || !strings.Contains(w.Body.String(), "Invalid username or password") {
		t.Errorf("got %d", w.Code)
	}
}

func TestAdminModeration(t *testing.T) {
	f := newFixture(t, 3)
	cookie := f.login(t)
	b := f.seed(t, "Needs review", models.BlogPending, 1)

	w := f.get(adminPath+"/dashboard", cookie)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Needs review") || !strings.Contains(w.Body.String(), "Pending (1)") {
		t.Fatalf("dashboard: %d", w.Code)
	}

	w = f.get(adminPath+"/blog/"+b.ID, cookie)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Approve") {
		t.Fatalf("review: %d", w.Code)
	}

	w = f.postForm(adminPath+"/blog/"+b.ID+"/status", url.Values{"status": {"approved"}, "adminNotes": {" lovely "}}, cookie)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("approve: expected 303, got %d", w.Code)
	}
	var got models.BlogModel
	f.db.First(&got, "id = ?", b.ID)
	if got.Status != models.BlogApproved || got.ApprovalDate == nil || got.AdminNotes == nil || *got.AdminNotes != "lovely" {
		t.Errorf("unexpected blog after approval %+v", got)
	}

	w = f.postForm(adminPath+"/blog/"+b.ID+"/status", url.Values{"status": {"approved"}}, cookie)
	if w.Code != http.StatusBadRequest {
		t.Errorf("repeat approval: expected 400, got %d", w.Code)
	}

	w = f.postForm(adminPath+"/blog/"+b.ID+"/content", url.Values{"content": {"Edited body"}}, cookie)
	if w.Code != http.StatusSeeOther {
		t.Errorf("edit: expected 303, got %d", w.Code)
	}

	w = f.postForm(adminPath+"/blog/"+b.ID+"/delete", nil, cookie)
	if w.Code != http.StatusSeeOther || !strings.HasPrefix(w.Header().Get("Location"), adminPath+"/dashboard") {
		t.Errorf("delete: got %d %q", w.Code, w.Header().Get("Location"))
	}
	if w := f.get(adminPath+"/blog/"+b.ID, cookie); w.Code != http.StatusNotFound {
		t.Errorf("deleted blog: expected 404, got %d", w.Code)
	}
}

func TestAdminLogout(t *testing.T) {
	f := newFixture(t, 3)
	cookie := f.login(t)

	w := f.postForm(adminPath+"/logout", nil, cookie)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("logout: expected 303, got %d", w.Code)
	}
	w = f.get(adminPath+"/dashboard", cookie)
	if w.Code != http.StatusSeeOther {
		t.Errorf("expected revoked session to be redirected, got %d", w.Code)
	}
}
