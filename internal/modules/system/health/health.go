package health

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/heliosensium/site/internal/models"
	"github.com/heliosensium/site/internal/pkg/cron"
	pkgmail "github.com/heliosensium/site/internal/pkg/mail"
	pkgredis "github.com/heliosensium/site/internal/pkg/redis"
	"github.com/heliosensium/site/internal/pkg/response"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const probeTimeout = 2 * time.Second

type logItem struct {
	Size     string `json:"size"`
	Filename string `json:"filename"`
	Created  int64  `json:"created"`
}

// Handler serves liveness probes and the admin maintenance endpoints.
type Handler struct {
	db     *gorm.DB
	rdb    *goredis.Client
	sched  *cron.Scheduler
	mailer *pkgmail.Sender
	logDir string
}

func NewHandler(db *gorm.DB, rdb *goredis.Client, sched *cron.Scheduler, mailer *pkgmail.Sender, logDir string) *Handler {
	return &Handler{db: db, rdb: rdb, sched: sched, mailer: mailer, logDir: logDir}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	rg.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	rg.GET("/health", h.health)

	admin := rg.Group("/health", authMW)
	cronGroup := admin.Group("/cron")
	{
		cronGroup.GET("", func(c *gin.Context) { response.OK(c, h.sched.List()) })
		cronGroup.POST("/run/:name", h.runJob)
	}
	admin.GET("/email/test", h.testEmail)
	admin.GET("/log/list", h.listLogs)
	admin.GET("/log", h.readLog)
}

// health GET /health
func (h *Handler) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), probeTimeout)
	defer cancel()

	dbOK := false
	if sqlDB, err := h.db.DB(); err == nil {
		dbOK = sqlDB.PingContext(ctx) == nil
	}
	redisOK := pkgredis.Ping(ctx, h.rdb) == nil

	status := "ok"
	code := http.StatusOK
	if !dbOK || !redisOK {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":   status,
		"database": dbOK,
		"redis":    redisOK,
	})
}

// runJob POST /health/cron/run/:name  [auth]
func (h *Handler) runJob(c *gin.Context) {
	err := h.sched.Run(c.Request.Context(), c.Param("name"))
	switch {
	case errors.Is(err, cron.ErrJobNotFound):
		response.NotFoundMsg(c, err.Error())
	case err != nil:
		response.InternalError(c, err)
	default:
		response.OK(c, gin.H{"message": "job finished"})
	}
}

// testEmail GET /health/email/test  [auth]
func (h *Handler) testEmail(c *gin.Context) {
	if h.mailer == nil || !h.mailer.Enabled() {
		response.BadRequest(c, "mail is not enabled")
		return
	}

	var owner models.UserModel
	if err := h.db.WithContext(c.Request.Context()).
		Where("email <> ''").Order("created_at ASC").First(&owner).Error; err != nil {
		response.BadRequest(c, "admin email not set")
		return
	}

	if err := h.mailer.Send(c.Request.Context(), pkgmail.Message{
		To:      []string{owner.Email},
		Subject: "Mail configuration test",
		HTML:    "<h1>Mail is configured.</h1><p>If you can read this, outgoing mail works.</p>",
	}); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.OK(c, gin.H{"ok": true})
}

// listLogs GET /health/log/list  [auth]
func (h *Handler) listLogs(c *gin.Context) {
	entries, err := os.ReadDir(h.logDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			response.OK(c, []logItem{})
			return
		}
		response.InternalError(c, err)
		return
	}

	items := make([]logItem, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".log") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		items = append(items, logItem{
			Size:     formatByteSize(info.Size()),
			Filename: entry.Name(),
			Created:  info.ModTime().UnixMilli(),
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Created > items[j].Created })
	response.OK(c, items)
}

// readLog GET /health/log?filename=  [auth]
func (h *Handler) readLog(c *gin.Context) {
	filename := filepath.Base(strings.TrimSpace(c.Query("filename")))
	if filename == "." || filename == string(filepath.Separator) || !strings.HasSuffix(filename, ".log") {
		response.BadRequest(c, "filename must name a log file")
		return
	}
	data, err := os.ReadFile(filepath.Join(h.logDir, filename))
	if err != nil {
		response.NotFoundMsg(c, "log file not found")
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", data)
}

func formatByteSize(size int64) string {
	switch {
	case size >= 1<<20:
		return fmt.Sprintf("%.2f MB", float64(size)/(1<<20))
	case size >= 1<<10:
		return fmt.Sprintf("%.2f KB", float64(size)/(1<<10))
	default:
		return fmt.Sprintf("%d B", size)
	}
}
