package auth

import (
	"errors"
	"time"

	"github.com/heliosensium/site/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAlreadyRegistered  = errors.New("an admin account already exists")
	ErrTooManyAttempts    = errors.New("too many failed login attempts")
)

// Error codes specific to authentication.
const (
	codeInvalidCredentials = "invalid_credentials"
)

type LoginDTO struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

type RegisterDTO struct {
	Username string `json:"username" binding:"required,min=3,max=64"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Name     string `json:"name"`
	Email    string `json:"email"    binding:"omitempty,email"`
}

// LoginResult is a successful login: the signed token and who it belongs to.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *models.UserModel
}

type userResponse struct {
	ID            string     `json:"id"`
	Username      string     `json:"username"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	LastLoginTime *time.Time `json:"lastLoginTime"`
	LastLoginIP   string     `json:"lastLoginIp"`
}

type loginData struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expiresAt"`
	User      *userResponse `json:"user"`
}

// loginEnvelope repeats the token at the top level for older clients.
type loginEnvelope struct {
	Success bool      `json:"success"`
	Token   string    `json:"token"`
	Data    loginData `json:"data"`
}

func toUserResponse(u *models.UserModel) *userResponse {
	return &userResponse{
		ID:            u.ID,
		Username:      u.Username,
		Name:          u.Name,
		Email:         u.Email,
		LastLoginTime: u.LastLoginTime,
		LastLoginIP:   u.LastLoginIP,
	}
}
