package middleware

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/heliosensium/site/internal/pkg/jwt"
	"github.com/heliosensium/site/internal/pkg/response"
	sessionpkg "github.com/heliosensium/site/internal/pkg/session"
	"gorm.io/gorm"
)

const (
	ContextKeyUserID = "user_id"
	ContextKeySID    = "session_id"

	// AuthCookieName carries the admin token for browser sessions.
	AuthCookieName = "admin_auth_token"

	// SessionExpiredMessage is shown on the login page after a forced logout.
	SessionExpiredMessage = "Your session has expired. Please log in again."
)

var errTokenRequired = errors.New("token is required")

// Auth rejects API requests without a live admin session.
func Auth(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := ValidateTokenClaims(db, ExtractToken(c))
		if err != nil {
			response.Unauthorized(c)
			return
		}
		setIdentity(c, db, claims)
		c.Next()
	}
}

// OptionalAuth sets the user ID if a valid token is present, but does not block the request.
func OptionalAuth(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, err := ValidateTokenClaims(db, ExtractToken(c)); err == nil {
			setIdentity(c, db, claims)
		}
		c.Next()
	}
}

// PageAuth guards server-rendered admin pages. A missing or dead session
// clears the auth cookie and redirects to loginPath with an explanation.
func PageAuth(db *gorm.DB, loginPath string, secureCookie bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := ValidateTokenClaims(db, ExtractToken(c))
		if err != nil {
			hadToken := ExtractToken(c) != ""
			ClearAuthCookie(c, secureCookie)
			target := loginPath
			if hadToken {
				target += "?error=" + url.QueryEscape(SessionExpiredMessage)
			}
			c.Redirect(http.StatusSeeOther, target)
			c.Abort()
			return
		}
		setIdentity(c, db, claims)
		c.Next()
	}
}

func setIdentity(c *gin.Context, db *gorm.DB, claims *jwt.Claims) {
	c.Set(ContextKeyUserID, claims.UserID)
	c.Set(ContextKeySID, claims.SessionID)
	sessionpkg.Touch(db, claims.UserID, claims.SessionID)
}

// ValidateTokenClaims validates a raw token against its backing session.
func ValidateTokenClaims(db *gorm.DB, rawToken string) (*jwt.Claims, error) {
	token := NormalizeToken(rawToken)
	if token == "" {
		return nil, errTokenRequired
	}
	return sessionpkg.Resolve(db, token)
}

// CurrentUserID extracts the authenticated user ID from context.
func CurrentUserID(c *gin.Context) string {
	return c.GetString(ContextKeyUserID)
}

// CurrentSessionID extracts the authenticated session ID from context.
func CurrentSessionID(c *gin.Context) string {
	return c.GetString(ContextKeySID)
}

// IsAuthenticated returns true if the request has a valid auth token.
func IsAuthenticated(c *gin.Context) bool {
	return CurrentUserID(c) != ""
}

// ExtractToken reads the token from the Authorization header, the auth
// cookie, or the token query parameter, in that order.
func ExtractToken(c *gin.Context) string {
	if token := NormalizeToken(c.GetHeader("Authorization")); token != "" {
		return token
	}
	if raw, err := c.Cookie(AuthCookieName); err == nil {
		if token := NormalizeToken(raw); token != "" {
			return token
		}
	}
	return NormalizeToken(c.Query("token"))
}

// NormalizeToken trims spaces and strips optional Bearer prefix.
func NormalizeToken(raw string) string {
	token := strings.TrimSpace(raw)
	if token == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}

// SetAuthCookie stores the admin token in an HttpOnly cookie.
func SetAuthCookie(c *gin.Context, token string, maxAge int, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(AuthCookieName, token, maxAge, "/", "", secure, true)
}

// ClearAuthCookie expires the admin token cookie.
func ClearAuthCookie(c *gin.Context, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(AuthCookieName, "", -1, "/", "", secure, true)
}
