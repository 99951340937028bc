package blog

import (
	"errors"
	"strings"
	"time"

	"github.com/heliosensium/site/internal/models"
)

const (
	SortSubmissionDate = "submissionDate"
	SortViews          = "views"

	DefaultPublicLimit = 10
	MaxPublicLimit     = 50
)

var (
	ErrBlogNotFound    = errors.New("blog not found")
	ErrInvalidStatus   = errors.New("status must be approved or rejected")
	ErrStatusUnchanged = errors.New("blog already has this status")
	ErrInvalidSort     = errors.New("sort must be submissionDate or views")
	ErrNotPublic       = errors.New("only approved blogs are public")
	ErrUnknownStatus   = errors.New("unknown status")
)

// ValidationError carries per-field messages for a rejected submission.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for k, v := range e.Fields {
		parts = append(parts, k+": "+v)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// SubmitDTO is the body of a public blog submission.
type SubmitDTO struct {
	Title       string  `json:"title"       form:"title"       validate:"required,min=3,max=200"`
	Content     string  `json:"content"     form:"content"     validate:"required,max=100000"`
	Summary     *string `json:"summary"     form:"summary"     validate:"omitempty,max=500"`
	AuthorName  string  `json:"authorName"  form:"authorName"  validate:"required,max=100"`
	AuthorEmail string  `json:"authorEmail" form:"authorEmail" validate:"required,email,max=191"`
}

// PublicListQuery holds query params for the public listing.
type PublicListQuery struct {
	Limit  int    `form:"limit"`
	Cursor string `form:"cursor"`
	Sort   string `form:"sort"`
	Status string `form:"status"`
}

// UpdateStatusDTO is the body of a moderation decision.
type UpdateStatusDTO struct {
	Status     string  `json:"status"     form:"status"     binding:"required"`
	AdminNotes *string `json:"adminNotes" form:"adminNotes"`
}

// UpdateContentDTO is the body of a moderator content edit.
type UpdateContentDTO struct {
	Content string `json:"content" form:"content" binding:"required"`
}

// StatusCount is one row of the moderation stats.
type StatusCount struct {
	Status models.BlogStatus `json:"status"`
	Count  int64             `json:"count"`
}

// blogResponse is the API response shape for a blog.
type blogResponse struct {
	ID             string            `json:"id"`
	Title          string            `json:"title"`
	Content        string            `json:"content"`
	Summary        *string           `json:"summary"`
	AuthorName     string            `json:"authorName"`
	AuthorEmail    string            `json:"authorEmail,omitempty"`
	Status         models.BlogStatus `json:"status"`
	Views          int               `json:"views"`
	SubmissionDate time.Time         `json:"submissionDate"`
	ApprovalDate   *time.Time        `json:"approvalDate"`
	LastModified   time.Time         `json:"lastModified"`
	IPAddress      string            `json:"ipAddress,omitempty"`
	AdminNotes     *string           `json:"adminNotes,omitempty"`
}

// toPublicResponse hides submitter contact details and moderation data.
func toPublicResponse(b *models.BlogModel) blogResponse {
	return blogResponse{
		ID:             b.ID,
		Title:          b.Title,
		Content:        b.Content,
		Summary:        b.Summary,
		AuthorName:     b.AuthorName,
		Status:         b.Status,
		Views:          b.Views,
		SubmissionDate: b.CreatedAt,
		ApprovalDate:   b.ApprovalDate,
		LastModified:   b.UpdatedAt,
	}
}

func toAdminResponse(b *models.BlogModel) blogResponse {
	resp := toPublicResponse(b)
	resp.AuthorEmail = b.AuthorEmail
	resp.IPAddress = b.IPAddress
	resp.AdminNotes = b.AdminNotes
	return resp
}

func mapResponses(rows []models.BlogModel, fn func(*models.BlogModel) blogResponse) []blogResponse {
	items := make([]blogResponse, len(rows))
	for i := range rows {
		items[i] = fn(&rows[i])
	}
	return items
}
