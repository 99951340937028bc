package site

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/heliosensium/site/internal/modules/processing/markdown"
)

//go:embed templates content
var assets embed.FS

// page is the data every template receives.
type page struct {
	Title     string
	Site      siteInfo
	AdminPath string
	Admin     bool
	Year      int
	Data      any
}

type siteInfo struct {
	Name        string
	Description string
}

var funcs = template.FuncMap{
	"date": func(t time.Time) string { return t.Format("Jan 2, 2006") },
	"datep": func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return t.Format("Jan 2, 2006")
	},
	"deref": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
	"title": func(s string) string {
		if s == "" {
			return s
		}
		return strings.ToUpper(s[:1]) + s[1:]
	},
	"readingTime": markdown.ReadingTime,
	"excerpt":     markdown.Excerpt,
}

// views holds one template set per page, each combined with the layout.
type views map[string]*template.Template

var pageFiles = []string{
	"page.html",
	"blog_list.html",
	"blog_detail.html",
	"blog_submit.html",
	"not_found.html",
	"admin/login.html",
	"admin/dashboard.html",
	"admin/blog.html",
}

func loadViews() (views, error) {
	v := make(views, len(pageFiles))
	for _, name := range pageFiles {
		t, err := template.New(name).Funcs(funcs).ParseFS(assets, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		v[name] = t
	}
	return v, nil
}

// loadPages renders the embedded markdown copy once at startup.
func loadPages() (map[string]template.HTML, error) {
	entries, err := fs.ReadDir(assets, "content")
	if err != nil {
		return nil, err
	}
	pages := make(map[string]template.HTML, len(entries))
	for _, e := range entries {
		raw, err := fs.ReadFile(assets, "content/"+e.Name())
		if err != nil {
			return nil, err
		}
		out, err := markdown.ToHTML(string(raw))
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", e.Name(), err)
		}
		// Authored in-repo, so trusted.
		pages[strings.TrimSuffix(e.Name(), ".md")] = template.HTML(out)
	}
	return pages, nil
}

func (h *Handler) render(c *gin.Context, status int, name string, p page) {
	t, ok := h.views[name]
	if !ok {
		c.String(http.StatusInternalServerError, "unknown view %s", name)
		return
	}
	p.Site = siteInfo{Name: h.site.Name, Description: h.site.Description}
	p.AdminPath = h.adminPath
	p.Year = time.Now().Year()

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", p); err != nil {
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, "internal error")
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}
