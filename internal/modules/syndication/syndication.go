// Package syndication serves the RSS/Atom feeds and the sitemap.
package syndication

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/heliosensium/site/internal/config"
	"github.com/heliosensium/site/internal/models"
	"github.com/heliosensium/site/internal/modules/processing/markdown"
	"go.uber.org/zap"
)

const feedSize = 20

// Source supplies approved blogs.
type Source interface {
	RecentApproved(ctx context.Context, limit int) ([]models.BlogModel, error)
	ApprovedIndex(ctx context.Context) ([]models.BlogModel, error)
}

// StaticPages are the marketing pages listed in the sitemap.
var StaticPages = []string{"/", "/about", "/pricing", "/blog", "/blog/submit"}

type Handler struct {
	src    Source
	site   config.SiteConfig
	logger *zap.Logger
}

func NewHandler(src Source, site config.SiteConfig, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{src: src, site: site, logger: logger.Named("Syndication")}
}

// RegisterRoutes mounts RSS, Atom and sitemap endpoints.
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/feed.xml", func(c *gin.Context) { h.feed(c, "rss") })
	r.GET("/atom.xml", func(c *gin.Context) { h.feed(c, "atom") })
	r.GET("/sitemap.xml", h.sitemap)
}

type feedItem struct {
	Title   string
	Link    string
	GUID    string
	Author  string
	PubDate time.Time
	Content string
}

func (h *Handler) baseURL(c *gin.Context) string {
	if u := strings.TrimRight(h.site.URL, "/"); u != "" {
		return u
	}
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}

func (h *Handler) feed(c *gin.Context, feedType string) {
	rows, err := h.src.RecentApproved(c.Request.Context(), feedSize)
	if err != nil {
		h.logger.Error("load feed", zap.Error(err))
		c.String(http.StatusInternalServerError, "error generating feed")
		return
	}

	base := h.baseURL(c)
	items := make([]feedItem, len(rows))
	for i := range rows {
		b := &rows[i]
		pub := b.CreatedAt
		if b.ApprovalDate != nil {
			pub = *b.ApprovalDate
		}
		desc := ""
		if b.Summary != nil && strings.TrimSpace(*b.Summary) != "" {
			desc = *b.Summary
		} else {
			desc = markdown.Excerpt(b.Content, 280)
		}
		items[i] = feedItem{
			Title:   b.Title,
			Link:    fmt.Sprintf("%s/blog/%s", base, b.ID),
			GUID:    b.ID,
			Author:  b.AuthorName,
			PubDate: pub,
			Content: desc,
		}
	}

	switch feedType {
	case "atom":
		c.Data(http.StatusOK, "application/atom+xml; charset=utf-8", []byte(buildAtom(h.site.Name, h.site.Description, base, items)))
	default:
		c.Data(http.StatusOK, "application/rss+xml; charset=utf-8", []byte(buildRSS(h.site.Name, h.site.Description, base, items)))
	}
}

func buildRSS(title, desc, link string, items []feedItem) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>%s</title>
    <link>%s</link>
    <description>%s</description>
    <lastBuildDate>%s</lastBuildDate>
`, escapeXML(title), escapeXML(link), escapeXML(desc), time.Now().Format(time.RFC1123Z))

	for _, item := range items {
		fmt.Fprintf(&sb, `    <item>
      <title>%s</title>
      <link>%s</link>
      <guid isPermaLink="false">%s</guid>
      <author>%s</author>
      <pubDate>%s</pubDate>
      <description>%s</description>
    </item>
`, escapeXML(item.Title), escapeXML(item.Link), item.GUID, escapeXML(item.Author),
			item.PubDate.Format(time.RFC1123Z), escapeXML(item.Content))
	}

	sb.WriteString("  </channel>\n</rss>")
	return sb.String()
}

func buildAtom(title, desc, link string, items []feedItem) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>%s</title>
  <subtitle>%s</subtitle>
  <link href="%s"/>
  <updated>%s</updated>
  <id>%s</id>
`, escapeXML(title), escapeXML(desc), escapeXML(link), time.Now().Format(time.RFC3339), escapeXML(link))

	for _, item := range items {
		fmt.Fprintf(&sb, `  <entry>
    <title>%s</title>
    <link href="%s"/>
    <id>urn:uuid:%s</id>
    <author><name>%s</name></author>
    <updated>%s</updated>
    <summary>%s</summary>
  </entry>
`, escapeXML(item.Title), escapeXML(item.Link), item.GUID, escapeXML(item.Author),
			item.PubDate.Format(time.RFC3339), escapeXML(item.Content))
	}

	sb.WriteString("</feed>")
	return sb.String()
}

type sitemapURL struct {
	Loc        string
	LastMod    time.Time
	ChangeFreq string
	Priority   float64
}

func (h *Handler) sitemap(c *gin.Context) {
	rows, err := h.src.ApprovedIndex(c.Request.Context())
	if err != nil {
		h.logger.Error("load sitemap", zap.Error(err))
		c.String(http.StatusInternalServerError, "error generating sitemap")
		return
	}

	base := h.baseURL(c)
	now := time.Now()
	urls := make([]sitemapURL, 0, len(StaticPages)+len(rows))
	for _, p := range StaticPages {
		prio := 0.6
		if p == "/" {
			prio = 1.0
		}
		urls = append(urls, sitemapURL{Loc: base + p, LastMod: now, ChangeFreq: "weekly", Priority: prio})
	}
	for _, b := range rows {
		urls = append(urls, sitemapURL{
			Loc:        fmt.Sprintf("%s/blog/%s", base, b.ID),
			LastMod:    b.UpdatedAt,
			ChangeFreq: "monthly",
			Priority:   0.8,
		})
	}

	c.Data(http.StatusOK, "application/xml; charset=utf-8", []byte(buildSitemap(urls)))
}

func buildSitemap(urls []sitemapURL) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
`)
	for _, u := range urls {
		fmt.Fprintf(&sb, `  <url>
    <loc>%s</loc>
    <lastmod>%s</lastmod>
    <changefreq>%s</changefreq>
    <priority>%.1f</priority>
  </url>
`, escapeXML(u.Loc), u.LastMod.Format("2006-01-02"), u.ChangeFreq, u.Priority)
	}
	sb.WriteString("</urlset>")
	return sb.String()
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

func escapeXML(s string) string { return xmlEscaper.Replace(s) }
