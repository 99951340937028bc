package app

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/heliosensium/site/internal/middleware"
	"github.com/heliosensium/site/internal/modules/auth"
	"github.com/heliosensium/site/internal/modules/content/blog"
	"github.com/heliosensium/site/internal/modules/site"
	"github.com/heliosensium/site/internal/modules/syndication"
	"github.com/heliosensium/site/internal/modules/system/health"
	"github.com/heliosensium/site/internal/pkg/bark"
	pkgmail "github.com/heliosensium/site/internal/pkg/mail"
	"github.com/heliosensium/site/internal/pkg/response"
)

const (
	loginMaxFailures = 5
	loginWindow      = time.Minute
	listCacheTTL     = 30 * time.Second
)

type services struct {
	blogs  *blog.Service
	auth   *auth.Service
	mailer *pkgmail.Sender
	pusher *bark.Client
}

func (a *App) registerRoutes(s services) error {
	r := a.router
	cfg := a.cfg

	authMW := middleware.Auth(a.db)
	var limiterOpts []middleware.LimiterOption
	if s.pusher.Enabled() {
		limiterOpts = append(limiterOpts, middleware.OnLimited(func(ctx context.Context, key string) {
			go s.pusher.ThrottlePush(context.WithoutCancel(ctx), key, "Submission limit hit", "IP: "+key)
		}))
	}
	submitLimiter := middleware.NewLimiter(a.rdb, "submit", cfg.Moderation.SubmitLimit, cfg.Moderation.SubmitWindow, limiterOpts...)
	authHandler := auth.NewHandler(s.auth, auth.NewLoginLimiter(loginMaxFailures, loginWindow), cfg.Auth.CookieSecure)

	api := r.Group("/api")
	{
		health.NewHandler(a.db, a.rdb, a.sched, s.mailer, cfg.LogDir()).RegisterRoutes(api, authMW)
		authHandler.RegisterRoutes(api, authMW)

		blogHandler := blog.NewHandler(s.blogs)
		blogHandler.RegisterRoutes(api,
			middleware.HTTPCache(a.rdb, middleware.HTTPCacheOptions{TTL: listCacheTTL}),
			middleware.OptionalAuth(a.db),
			middleware.RateLimit(submitLimiter, "Too many submissions. Please try again later."),
			middleware.Idempotence(a.rdb),
		)
		blogHandler.RegisterAdminRoutes(api, authMW)
	}

	syndication.NewHandler(s.blogs, cfg.Site, a.logger).RegisterRoutes(r)

	pages, err := site.NewHandler(site.Deps{
		Blogs:     s.blogs,
		Auth:      authHandler,
		Limiter:   submitLimiter,
		Site:      cfg.Site,
		AdminPath: cfg.AdminPrefix(),
		Logger:    a.logger,
	})
	if err != nil {
		return err
	}
	pages.RegisterRoutes(r)
	pages.RegisterAdminRoutes(r, middleware.PageAuth(a.db, cfg.AdminPrefix()+"/login", cfg.Auth.CookieSecure))

	r.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			response.NotFound(c)
			return
		}
		pages.NotFound(c)
	})
	return nil
}
