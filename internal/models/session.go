package models

import "time"

// UserSession backs an issued admin token. A token is only honoured while
// its session row is neither expired nor revoked.
type UserSession struct {
	Base
	UserID     string     `json:"user_id"      gorm:"type:char(36);index;not null"`
	IP         string     `json:"ip"           gorm:"type:varchar(64)"`
	UA         string     `json:"ua"           gorm:"type:text"`
	LastSeenAt *time.Time `json:"last_seen_at"`
	ExpiresAt  time.Time  `json:"expires_at"   gorm:"index;not null"`
	RevokedAt  *time.Time `json:"revoked_at"   gorm:"index"`
}

func (UserSession) TableName() string { return "user_sessions" }
