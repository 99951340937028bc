package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Query holds parsed offset pagination parameters.
type Query struct {
	Page  int
	Limit int
}

// PageInfo is the offset pagination metadata returned with admin lists.
type PageInfo struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalCount int64 `json:"totalCount"`
	TotalPages int   `json:"totalPages"`
}

// FromContext extracts and clamps page/limit from the request.
func FromContext(c *gin.Context) Query {
	return Clamp(
		parseIntOr(c.Query("page"), DefaultPage),
		parseIntOr(c.Query("limit"), DefaultLimit),
	)
}

// Clamp normalizes raw page/limit values.
func Clamp(page, limit int) Query {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return Query{Page: page, Limit: limit}
}

// Paginate applies limit/offset to a GORM query and returns the page metadata.
func Paginate[T any](db *gorm.DB, q Query, dest *[]T) (PageInfo, error) {
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return PageInfo{}, err
	}

	offset := (q.Page - 1) * q.Limit
	if err := db.Offset(offset).Limit(q.Limit).Find(dest).Error; err != nil {
		return PageInfo{}, err
	}

	return PageInfo{
		Page:       q.Page,
		Limit:      q.Limit,
		TotalCount: total,
		TotalPages: int((total + int64(q.Limit) - 1) / int64(q.Limit)),
	}, nil
}

func parseIntOr(s string, def int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
