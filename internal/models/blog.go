package models

import (
	"strings"
	"time"
)

// BlogStatus is the moderation state of a submitted blog.
type BlogStatus string

const (
	BlogPending  BlogStatus = "pending"
	BlogApproved BlogStatus = "approved"
	BlogRejected BlogStatus = "rejected"
)

// BlogStatuses lists every status in display order.
var BlogStatuses = []BlogStatus{BlogPending, BlogApproved, BlogRejected}

// ParseBlogStatus maps raw input onto a known status.
func ParseBlogStatus(raw string) (BlogStatus, bool) {
	s := BlogStatus(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case BlogPending, BlogApproved, BlogRejected:
		return s, true
	}
	return "", false
}

// CanTransition reports whether a moderator may move a blog from s to next.
// Blogs never return to pending, and re-applying the current status is refused.
func (s BlogStatus) CanTransition(next BlogStatus) bool {
	if next != BlogApproved && next != BlogRejected {
		return false
	}
	return s != next
}

// BlogModel is a community submitted blog post.
type BlogModel struct {
	Base
	Title        string     `json:"title"        gorm:"type:varchar(200);not null"`
	Content      string     `json:"content"      gorm:"type:longtext;not null"`
	Summary      *string    `json:"summary"      gorm:"type:varchar(500)"`
	AuthorName   string     `json:"authorName"   gorm:"type:varchar(100);not null"`
	AuthorEmail  string     `json:"authorEmail"  gorm:"type:varchar(191);not null;index"`
	Status       BlogStatus `json:"status"       gorm:"type:varchar(16);not null;index:idx_blogs_status_submitted,priority:1;index:idx_blogs_status_views,priority:1"`
	Views        int        `json:"views"        gorm:"not null;default:0;index:idx_blogs_status_views,priority:2"`
	SubmittedMs  int64      `json:"-"            gorm:"column:submitted_ms;autoCreateTime:milli;index:idx_blogs_status_submitted,priority:2"`
	ApprovalDate *time.Time `json:"approvalDate"`
	IPAddress    string     `json:"ipAddress"    gorm:"type:varchar(64)"`
	AdminNotes   *string    `json:"adminNotes"   gorm:"type:text"`
}

func (BlogModel) TableName() string { return "blogs" }
