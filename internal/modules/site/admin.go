package site

import (
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/heliosensium/site/internal/models"
	"github.com/heliosensium/site/internal/modules/auth"
	"github.com/heliosensium/site/internal/modules/content/blog"
	"github.com/heliosensium/site/internal/modules/processing/markdown"
	"github.com/heliosensium/site/internal/pkg/pagination"
)

const dashboardPageSize = 20

type loginData struct {
	Username string
	Error    string
}

type dashboardData struct {
	Stats    []blog.StatusCount
	Tab      string
	Blogs    []models.BlogModel
	Page     pagination.PageInfo
	PrevPage int
	NextPage int
	Flash    string
}

type reviewData struct {
	Blog  *models.BlogModel
	Body  template.HTML
	Flash string
	Error string
}

// loginForm GET /{admin}/login?error=
func (h *Handler) loginForm(c *gin.Context) {
	h.render(c, http.StatusOK, "admin/login.html", page{
		Title: "Admin login",
		Data:  loginData{Error: c.Query("error")},
	})
}

// login POST /{admin}/login
func (h *Handler) login(c *gin.Context) {
	var dto auth.LoginDTO
	if err := c.ShouldBind(&dto); err != nil {
		h.render(c, http.StatusBadRequest, "admin/login.html", page{
			Title: "Admin login",
			Data:  loginData{Username: dto.Username, Error: "Username and password are required."},
		})
		return
	}

	if _, err := h.auth.Attempt(c, dto); err != nil {
		status, msg := http.StatusUnauthorized, "Invalid username or password."
		switch {
		case errors.Is(err, auth.ErrTooManyAttempts):
			status, msg = http.StatusTooManyRequests, "Too many failed attempts. Please wait a minute and try again."
		case !errors.Is(err, auth.ErrInvalidCredentials):
			h.fail(c, err)
			return
		}
		h.render(c, status, "admin/login.html", page{
			Title: "Admin login",
			Data:  loginData{Username: dto.Username, Error: msg},
		})
		return
	}
	c.Redirect(http.StatusSeeOther, h.adminPath+"/dashboard")
}

// logout POST /{admin}/logout
func (h *Handler) logout(c *gin.Context) {
	h.auth.Logout(c)
	c.Redirect(http.StatusSeeOther, h.adminPath+"/login")
}

// dashboard GET /{admin}/dashboard?tab=&page=
func (h *Handler) dashboard(c *gin.Context) {
	tab := c.DefaultQuery("tab", string(models.BlogPending))
	if _, ok := models.ParseBlogStatus(tab); !ok {
		tab = string(models.BlogPending)
	}
	pageNum, _ := strconv.Atoi(c.Query("page"))

	ctx := c.Request.Context()
	stats, err := h.blogs.Stats(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	rows, info, err := h.blogs.ListAdmin(ctx, tab, pagination.Clamp(pageNum, dashboardPageSize))
	if err != nil {
		h.fail(c, err)
		return
	}

	data := dashboardData{
		Stats: stats,
		Tab:   tab,
		Blogs: rows,
		Page:  info,
		Flash: c.Query("flash"),
	}
	if info.Page > 1 {
		data.PrevPage = info.Page - 1
	}
	if info.Page < info.TotalPages {
		data.NextPage = info.Page + 1
	}
	h.render(c, http.StatusOK, "admin/dashboard.html", page{Title: "Dashboard", Admin: true, Data: data})
}

// review GET /{admin}/blog/:id
func (h *Handler) review(c *gin.Context) {
	h.renderReview(c, http.StatusOK, c.Query("flash"), "")
}

func (h *Handler) renderReview(c *gin.Context, status int, flash, errMsg string) {
	b, err := h.blogs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, blog.ErrBlogNotFound) {
			h.render(c, http.StatusNotFound, "not_found.html", page{Title: "Not found", Admin: true})
			return
		}
		h.fail(c, err)
		return
	}
	h.render(c, status, "admin/blog.html", page{
		Title: b.Title,
		Admin: true,
		Data: reviewData{
			Blog:  b,
			Body:  markdown.Render(b.Content),
			Flash: flash,
			Error: errMsg,
		},
	})
}

// updateStatus POST /{admin}/blog/:id/status
func (h *Handler) updateStatus(c *gin.Context) {
	var dto blog.UpdateStatusDTO
	if err := c.ShouldBind(&dto); err != nil {
		h.renderReview(c, http.StatusBadRequest, "", "Choose approve or reject.")
		return
	}
	b, err := h.blogs.UpdateStatus(c.Request.Context(), c.Param("id"), dto)
	if err != nil {
		h.actionFailed(c, err)
		return
	}
	h.redirectReview(c, b.ID, "Blog "+string(b.Status)+".")
}

// updateContent POST /{admin}/blog/:id/content
func (h *Handler) updateContent(c *gin.Context) {
	var dto blog.UpdateContentDTO
	if err := c.ShouldBind(&dto); err != nil {
		h.renderReview(c, http.StatusBadRequest, "", "Content cannot be empty.")
		return
	}
	b, err := h.blogs.UpdateContent(c.Request.Context(), c.Param("id"), dto.Content)
	if err != nil {
		h.actionFailed(c, err)
		return
	}
	h.redirectReview(c, b.ID, "Content saved.")
}

// deleteBlog POST /{admin}/blog/:id/delete
func (h *Handler) deleteBlog(c *gin.Context) {
	if err := h.blogs.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.actionFailed(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, h.adminPath+"/dashboard?flash="+url.QueryEscape("Blog deleted."))
}

func (h *Handler) redirectReview(c *gin.Context, id, flash string) {
	c.Redirect(http.StatusSeeOther, h.adminPath+"/blog/"+id+"?flash="+url.QueryEscape(flash))
}

func (h *Handler) actionFailed(c *gin.Context, err error) {
	var verr *blog.ValidationError
	switch {
	case errors.Is(err, blog.ErrBlogNotFound):
		h.render(c, http.StatusNotFound, "not_found.html", page{Title: "Not found", Admin: true})
	case errors.As(err, &verr):
		h.renderReview(c, http.StatusBadRequest, "", verr.Error())
	case errors.Is(err, blog.ErrInvalidStatus), errors.Is(err, blog.ErrStatusUnchanged):
		h.renderReview(c, http.StatusBadRequest, "", err.Error())
	default:
		h.fail(c, err)
	}
}
