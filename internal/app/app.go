package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/heliosensium/site/internal/config"
	"github.com/heliosensium/site/internal/database"
	"github.com/heliosensium/site/internal/middleware"
	"github.com/heliosensium/site/internal/modules/auth"
	"github.com/heliosensium/site/internal/modules/content/blog"
	"github.com/heliosensium/site/internal/modules/notify"
	"github.com/heliosensium/site/internal/pkg/bark"
	pkgcron "github.com/heliosensium/site/internal/pkg/cron"
	pkgmail "github.com/heliosensium/site/internal/pkg/mail"
	pkgredis "github.com/heliosensium/site/internal/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App holds all application dependencies.
type App struct {
	cfg    *config.AppConfig
	router *gin.Engine
	db     *gorm.DB
	rdb    *goredis.Client
	logger *zap.Logger
	cancel context.CancelFunc
	sched  *pkgcron.Scheduler
}

// New initializes the application: config → DB → Redis → routes.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if err := applyRuntimeSettings(cfg, logger); err != nil {
		return nil, err
	}

	db, err := database.Connect(cfg, true)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	rdb, err := pkgredis.Connect(context.Background(), cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	a, err := assemble(cfg, db, rdb, logger)
	if err != nil {
		return nil, err
	}
	a.start()
	return a, nil
}

// assemble wires services and routes on top of open connections.
func assemble(cfg *config.AppConfig, db *gorm.DB, rdb *goredis.Client, logger *zap.Logger) (*App, error) {
	mailer := pkgmail.New(cfg.Mail)
	blogOpts := []blog.Option{
		blog.WithChangeHook(func(ctx context.Context) {
			if _, err := middleware.PurgeHTTPCache(ctx, rdb); err != nil {
				logger.Warn("purge api cache failed", zap.Error(err))
			}
		}),
	}
	pusher := bark.New(cfg.Bark, cfg.Site.Name)
	if mailer.Enabled() || pusher.Enabled() {
		var m notify.Mailer
		if mailer.Enabled() {
			m = mailer
		}
		var notifyOpts []notify.Option
		if pusher.Enabled() {
			notifyOpts = append(notifyOpts, notify.WithPusher(pusher))
		}
		blogOpts = append(blogOpts, blog.WithNotifier(notify.New(db, m, cfg.Site, cfg.Moderation, logger, notifyOpts...)))
	}
	blogs := blog.NewService(db, logger, blogOpts...)
	authSvc := auth.NewService(db, cfg.Auth, logger)

	created, err := authSvc.Bootstrap(context.Background(), cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("bootstrap admin: %w", err)
	}
	if created {
		logger.Info("bootstrap admin created", zap.String("user", cfg.Auth.BootstrapUser))
	}

	sched := pkgcron.New(logger)
	registerCronJobs(sched, db, blogs, cfg, logger)

	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))
	router.Use(cors.New(newCORSConfig(cfg)))

	a := &App{cfg: cfg, router: router, db: db, rdb: rdb, logger: logger, sched: sched, cancel: func() {}}
	if err := a.registerRoutes(services{blogs: blogs, auth: authSvc, mailer: mailer, pusher: pusher}); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) start() {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.sched.Start(ctx)
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown stops background jobs and closes connections.
func (a *App) Shutdown() {
	a.cancel()
	a.sched.Wait()
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Warn("close redis", zap.Error(err))
		}
	}
	if sqlDB, err := a.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			a.logger.Warn("close database", zap.Error(err))
		}
	}
}
