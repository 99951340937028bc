package models

import "time"

// UserModel is an admin account allowed into the moderation panel.
type UserModel struct {
	Base
	Username      string     `json:"username"        gorm:"type:varchar(64);uniqueIndex;not null"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Password      string     `json:"-"               gorm:"not null"`
	LastLoginTime *time.Time `json:"last_login_time"`
	LastLoginIP   string     `json:"last_login_ip"`
}

func (UserModel) TableName() string { return "users" }
