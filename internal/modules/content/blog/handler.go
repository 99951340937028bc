package blog

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/heliosensium/site/internal/pkg/pagination"
	"github.com/heliosensium/site/internal/pkg/response"
)

// Handler handles blog HTTP requests.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the public blog routes. cacheMW wraps the listing
// and submitGuards run before a submission is accepted.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, cacheMW gin.HandlerFunc, submitGuards ...gin.HandlerFunc) {
	blogs := rg.Group("/blogs")

	if cacheMW != nil {
		blogs.GET("", cacheMW, h.list)
	} else {
		blogs.GET("", h.list)
	}
	blogs.GET("/:id", h.get)
	blogs.POST("/submit", append(submitGuards, h.submit)...)
}

// RegisterAdminRoutes mounts moderation routes; every route requires authMW.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	admin := rg.Group("/admin", authMW)

	admin.GET("/stats", h.stats)
	admin.GET("/blogs", h.adminList)
	admin.GET("/blogs/:id", h.adminGet)
	admin.PUT("/blogs/:id/status", h.updateStatus)
	admin.PUT("/blogs/:id/content", h.updateContent)
	admin.DELETE("/blogs/:id", h.delete)
}

// list GET /blogs
func (h *Handler) list(c *gin.Context) {
	var q PublicListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "invalid query parameters")
		return
	}

	rows, info, err := h.svc.ListPublic(c.Request.Context(), q)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Paged(c, mapResponses(rows, toPublicResponse), info)
}

// get GET /blogs/:id
func (h *Handler) get(c *gin.Context) {
	b, err := h.svc.GetPublic(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, toPublicResponse(b))
}

// submit POST /blogs/submit
func (h *Handler) submit(c *gin.Context) {
	var dto SubmitDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "request body must be a JSON object")
		return
	}

	b, err := h.svc.Submit(c.Request.Context(), dto, c.ClientIP())
	if err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, toPublicResponse(b))
}

// stats GET /admin/stats  [auth]
func (h *Handler) stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, stats)
}

// adminList GET /admin/blogs  [auth]
func (h *Handler) adminList(c *gin.Context) {
	rows, info, err := h.svc.ListAdmin(c.Request.Context(), c.Query("status"), pagination.FromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Paged(c, mapResponses(rows, toAdminResponse), info)
}

// adminGet GET /admin/blogs/:id  [auth]
func (h *Handler) adminGet(c *gin.Context) {
	b, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, toAdminResponse(b))
}

// updateStatus PUT /admin/blogs/:id/status  [auth]
func (h *Handler) updateStatus(c *gin.Context) {
	var dto UpdateStatusDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.Validation(c, "status is required", map[string]string{"status": "is required"})
		return
	}

	b, err := h.svc.UpdateStatus(c.Request.Context(), c.Param("id"), dto)
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, toAdminResponse(b))
}

// updateContent PUT /admin/blogs/:id/content  [auth]
func (h *Handler) updateContent(c *gin.Context) {
	var dto UpdateContentDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.Validation(c, "content is required", map[string]string{"content": "is required"})
		return
	}

	b, err := h.svc.UpdateContent(c.Request.Context(), c.Param("id"), dto.Content)
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, toAdminResponse(b))
}

// delete DELETE /admin/blogs/:id  [auth]
func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, gin.H{"id": c.Param("id"), "deleted": true})
}

func writeError(c *gin.Context, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		response.Validation(c, "Please correct the highlighted fields", verr.Fields)
	case errors.Is(err, ErrBlogNotFound):
		response.NotFoundMsg(c, "Blog not found")
	case errors.Is(err, ErrStatusUnchanged):
		response.Conflict(c, err.Error())
	case errors.Is(err, ErrInvalidStatus),
		errors.Is(err, ErrUnknownStatus),
		errors.Is(err, ErrInvalidSort),
		errors.Is(err, ErrNotPublic),
		errors.Is(err, pagination.ErrInvalidCursor):
		response.BadRequest(c, err.Error())
	default:
		response.InternalError(c, err)
	}
}

