package session

import (
	"errors"
	"strings"
	"time"

	"github.com/heliosensium/site/internal/models"
	jwtpkg "github.com/heliosensium/site/internal/pkg/jwt"
	"gorm.io/gorm"
)

const DefaultTTL = 7 * 24 * time.Hour

// ErrInactive is returned when a token's session was revoked or has expired.
var ErrInactive = errors.New("session inactive")

// Issued is a freshly signed token and the session it is bound to.
type Issued struct {
	Token     string
	ExpiresAt time.Time
	Session   *models.UserSession
}

// Issue creates a DB session and signs a JWT bound to that session.
func Issue(db *gorm.DB, userID, ip, ua string, ttl time.Duration) (*Issued, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	now := time.Now()
	s := &models.UserSession{
		UserID:     userID,
		IP:         strings.TrimSpace(ip),
		UA:         strings.TrimSpace(ua),
		LastSeenAt: &now,
		ExpiresAt:  now.Add(ttl),
	}
	if err := db.Create(s).Error; err != nil {
		return nil, err
	}

	token, exp, err := jwtpkg.Sign(userID, s.ID, ttl)
	if err != nil {
		_ = db.Delete(s).Error
		return nil, err
	}
	return &Issued{Token: token, ExpiresAt: exp, Session: s}, nil
}

// Resolve parses a token and confirms its session is still live.
func Resolve(db *gorm.DB, token string) (*jwtpkg.Claims, error) {
	claims, err := jwtpkg.Parse(token)
	if err != nil {
		return nil, err
	}
	ok, err := IsActive(db, claims.UserID, claims.SessionID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInactive
	}
	return claims, nil
}

func IsActive(db *gorm.DB, userID, sessionID string) (bool, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return false, nil
	}

	var count int64
	err := db.Model(&models.UserSession{}).
		Where("id = ? AND user_id = ? AND revoked_at IS NULL AND expires_at > ?", sessionID, userID, time.Now()).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Touch records activity on a session without extending its expiry.
func Touch(db *gorm.DB, userID, sessionID string) {
	now := time.Now()
	_ = db.Model(&models.UserSession{}).
		Where("id = ? AND user_id = ? AND revoked_at IS NULL", sessionID, userID).
		UpdateColumn("last_seen_at", &now).Error
}

func Revoke(db *gorm.DB, userID, sessionID string) error {
	now := time.Now()
	res := db.Model(&models.UserSession{}).
		Where("id = ? AND user_id = ? AND revoked_at IS NULL", sessionID, userID).
		Update("revoked_at", &now)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// PurgeExpired deletes sessions that expired or were revoked before cutoff.
func PurgeExpired(db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.Where("expires_at < ? OR (revoked_at IS NOT NULL AND revoked_at < ?)", cutoff, cutoff).
		Delete(&models.UserSession{})
	return res.RowsAffected, res.Error
}
