// Package site serves the server-rendered public pages and the admin panel.
package site

import (
	"context"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/heliosensium/site/internal/config"
	"github.com/heliosensium/site/internal/middleware"
	"github.com/heliosensium/site/internal/modules/auth"
	"github.com/heliosensium/site/internal/modules/content/blog"
	"go.uber.org/zap"
)

const homeRecentCount = 3

// Deps are the collaborators the pages are built on.
type Deps struct {
	Blogs     *blog.Service
	Auth      *auth.Handler
	Limiter   *middleware.Limiter
	Site      config.SiteConfig
	AdminPath string
	Logger    *zap.Logger
}

type Handler struct {
	blogs     *blog.Service
	auth      *auth.Handler
	limiter   *middleware.Limiter
	site      config.SiteConfig
	adminPath string
	logger    *zap.Logger

	views views
	pages map[string]template.HTML
}

func NewHandler(d Deps) (*Handler, error) {
	v, err := loadViews()
	if err != nil {
		return nil, err
	}
	pages, err := loadPages()
	if err != nil {
		return nil, err
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &Handler{
		blogs:     d.Blogs,
		auth:      d.Auth,
		limiter:   d.Limiter,
		site:      d.Site,
		adminPath: d.AdminPath,
		logger:    d.Logger.Named("Site"),
		views:     v,
		pages:     pages,
	}, nil
}

// RegisterRoutes mounts the public pages.
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/", h.home)
	r.GET("/about", h.static("about", "About"))
	r.GET("/pricing", h.static("pricing", "Pricing"))
	r.GET("/blog", h.blogList)
	r.GET("/blog/submit", h.submitForm)
	r.POST("/blog/submit", h.submit)
	r.GET("/blog/:id", h.blogDetail)
}

// RegisterAdminRoutes mounts the admin panel. pageAuth guards every page
// except login.
func (h *Handler) RegisterAdminRoutes(r *gin.Engine, pageAuth gin.HandlerFunc) {
	g := r.Group(h.adminPath)
	g.GET("", func(c *gin.Context) { c.Redirect(http.StatusSeeOther, h.adminPath+"/dashboard") })
	g.GET("/login", h.loginForm)
	g.POST("/login", h.login)
	g.POST("/logout", h.logout)

	authed := g.Group("", pageAuth)
	authed.GET("/dashboard", h.dashboard)
	authed.GET("/blog/:id", h.review)
	authed.POST("/blog/:id/status", h.updateStatus)
	authed.POST("/blog/:id/delete", h.deleteBlog)
	authed.POST("/blog/:id/content", h.updateContent)
}

// NotFound renders the 404 page. It is installed as the engine's NoRoute
// handler for anything outside /api.
func (h *Handler) NotFound(c *gin.Context) {
	h.render(c, http.StatusNotFound, "not_found.html", page{Title: "Not found"})
}

func (h *Handler) allowSubmit(ctx context.Context, ip string) (bool, error) {
	if h.limiter == nil {
		return true, nil
	}
	d, err := h.limiter.Allow(ctx, ip)
	if err != nil {
		h.logger.Warn("rate limiter unavailable", zap.Error(err))
		return true, nil
	}
	return d.Allowed, nil
}
