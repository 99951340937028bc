package site

import (
	"errors"
	"html/template"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/heliosensium/site/internal/models"
	"github.com/heliosensium/site/internal/modules/content/blog"
	"github.com/heliosensium/site/internal/modules/processing/markdown"
	"github.com/heliosensium/site/internal/pkg/pagination"
	"go.uber.org/zap"
)

type staticData struct {
	Body       template.HTML
	Recent     []models.BlogModel
	ShowRecent bool
}

type listData struct {
	Blogs      []models.BlogModel
	Sort       string
	NextCursor string
	Error      string
}

type detailData struct {
	Blog        *models.BlogModel
	Body        template.HTML
	ReadingTime string
}

type submitData struct {
	Form    blog.SubmitDTO
	Errors  map[string]string
	Success bool
	Error   string
}

// home GET /
func (h *Handler) home(c *gin.Context) {
	recent, err := h.blogs.RecentApproved(c.Request.Context(), homeRecentCount)
	if err != nil {
		h.logger.Warn("load recent blogs", zap.Error(err))
	}
	h.render(c, http.StatusOK, "page.html", page{
		Data: staticData{Body: h.pages["home"], Recent: recent, ShowRecent: true},
	})
}

func (h *Handler) static(name, title string) gin.HandlerFunc {
	return func(c *gin.Context) {
		h.render(c, http.StatusOK, "page.html", page{
			Title: title,
			Data:  staticData{Body: h.pages[name]},
		})
	}
}

// blogList GET /blog?sort=&cursor=
func (h *Handler) blogList(c *gin.Context) {
	sort := c.DefaultQuery("sort", blog.SortSubmissionDate)
	if sort != blog.SortViews {
		sort = blog.SortSubmissionDate
	}
	data := listData{Sort: sort}

	rows, info, err := h.blogs.ListPublic(c.Request.Context(), blog.PublicListQuery{
		Sort:   sort,
		Cursor: c.Query("cursor"),
	})
	switch {
	case errors.Is(err, pagination.ErrInvalidCursor):
		data.Error = "That page link is no longer valid."
		h.render(c, http.StatusBadRequest, "blog_list.html", page{Title: "Blog", Data: data})
		return
	case err != nil:
		h.fail(c, err)
		return
	}

	data.Blogs = rows
	if info.NextCursor != nil {
		data.NextCursor = *info.NextCursor
	}
	h.render(c, http.StatusOK, "blog_list.html", page{Title: "Blog", Data: data})
}

// blogDetail GET /blog/:id
func (h *Handler) blogDetail(c *gin.Context) {
	b, err := h.blogs.GetPublic(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		if errors.Is(err, blog.ErrBlogNotFound) {
			h.NotFound(c)
			return
		}
		h.fail(c, err)
		return
	}
	h.render(c, http.StatusOK, "blog_detail.html", page{
		Title: b.Title,
		Data: detailData{
			Blog:        b,
			Body:        markdown.Render(b.Content),
			ReadingTime: markdown.ReadingTime(b.Content),
		},
	})
}

// submitForm GET /blog/submit
func (h *Handler) submitForm(c *gin.Context) {
	h.render(c, http.StatusOK, "blog_submit.html", page{Title: "Write for us", Data: submitData{}})
}

// submit POST /blog/submit
func (h *Handler) submit(c *gin.Context) {
	var dto blog.SubmitDTO
	if err := c.ShouldBind(&dto); err != nil {
		h.render(c, http.StatusBadRequest, "blog_submit.html", page{
			Title: "Write for us",
			Data:  submitData{Form: dto, Error: "The form could not be read. Please try again."},
		})
		return
	}

	ok, _ := h.allowSubmit(c.Request.Context(), c.ClientIP())
	if !ok {
		h.render(c, http.StatusTooManyRequests, "blog_submit.html", page{
			Title: "Write for us",
			Data:  submitData{Form: dto, Error: "Too many submissions from your network. Please try again later."},
		})
		return
	}

	_, err := h.blogs.Submit(c.Request.Context(), dto, c.ClientIP())
	var verr *blog.ValidationError
	switch {
	case errors.As(err, &verr):
		h.render(c, http.StatusBadRequest, "blog_submit.html", page{
			Title: "Write for us",
			Data:  submitData{Form: dto, Errors: verr.Fields, Error: "Please correct the highlighted fields."},
		})
	case err != nil:
		h.fail(c, err)
	default:
		h.render(c, http.StatusOK, "blog_submit.html", page{Title: "Write for us", Data: submitData{Success: true}})
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	h.logger.Error("page failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	c.String(http.StatusInternalServerError, "Something went wrong. Please try again later.")
}
