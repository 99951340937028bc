package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/heliosensium/site/internal/middleware"
	"github.com/heliosensium/site/internal/pkg/response"
)

// Handler handles admin authentication requests.
type Handler struct {
	svc          *Service
	limiter      *LoginLimiter
	secureCookie bool
}

func NewHandler(svc *Service, limiter *LoginLimiter, secureCookie bool) *Handler {
	return &Handler{svc: svc, limiter: limiter, secureCookie: secureCookie}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/auth")

	g.POST("/login", h.login)
	g.GET("/validate", h.validate)
	g.POST("/logout", h.logout)
	g.POST("/register", h.register)
	g.GET("/me", authMW, h.me)
}

// login POST /auth/login
func (h *Handler) login(c *gin.Context) {
	var dto LoginDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.Validation(c, "username and password are required", nil)
		return
	}

	res, err := h.Attempt(c, dto)
	if err != nil {
		switch {
		case errors.Is(err, ErrTooManyAttempts):
			c.Header("Retry-After", "60")
			response.TooManyRequests(c, "Too many failed login attempts. Please wait a minute and try again.")
		case errors.Is(err, ErrInvalidCredentials):
			response.UnauthorizedMsg(c, codeInvalidCredentials, "Invalid username or password")
		default:
			response.InternalError(c, err)
		}
		return
	}

	c.JSON(http.StatusOK, loginEnvelope{
		Success: true,
		Token:   res.Token,
		Data: loginData{
			Token:     res.Token,
			ExpiresAt: res.ExpiresAt,
			User:      toUserResponse(res.User),
		},
	})
}

// Attempt runs a rate limited login and sets the auth cookie on success.
// The admin login page shares it with the JSON endpoint.
func (h *Handler) Attempt(c *gin.Context, dto LoginDTO) (*LoginResult, error) {
	ip := c.ClientIP()
	if h.limiter != nil && !h.limiter.Take(ip) {
		return nil, ErrTooManyAttempts
	}

	res, err := h.svc.Login(c.Request.Context(), dto.Username, dto.Password, ip, c.Request.UserAgent())
	if err != nil {
		if h.limiter != nil && !errors.Is(err, ErrInvalidCredentials) {
			h.limiter.Release(ip)
		}
		return nil, err
	}
	if h.limiter != nil {
		h.limiter.Reset(ip)
	}

	middleware.SetAuthCookie(c, res.Token, int(h.svc.SessionTTL().Seconds()), h.secureCookie)
	return res, nil
}

// validate GET /auth/validate
func (h *Handler) validate(c *gin.Context) {
	u, err := h.svc.Validate(c.Request.Context(), middleware.ExtractToken(c))
	if err != nil {
		response.UnauthorizedMsg(c, response.CodeUnauthorized, "Invalid or expired token")
		return
	}
	response.OK(c, gin.H{"valid": true, "user": toUserResponse(u)})
}

// logout POST /auth/logout
func (h *Handler) logout(c *gin.Context) {
	h.Logout(c)
	response.OK(c, gin.H{"loggedOut": true})
}

// Logout revokes the caller's session, if any, and clears the auth cookie.
func (h *Handler) Logout(c *gin.Context) {
	if token := middleware.ExtractToken(c); token != "" {
		h.svc.Logout(c.Request.Context(), token)
	}
	middleware.ClearAuthCookie(c, h.secureCookie)
}

// register POST /auth/register
func (h *Handler) register(c *gin.Context) {
	var dto RegisterDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.Validation(c, "username (3+ chars) and password (8+ chars) are required", nil)
		return
	}
	u, err := h.svc.Register(c.Request.Context(), dto)
	if err != nil {
		if errors.Is(err, ErrAlreadyRegistered) {
			response.BadRequest(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.Created(c, toUserResponse(u))
}

// me GET /auth/me  [auth]
func (h *Handler) me(c *gin.Context) {
	u, err := h.svc.GetByID(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.Unauthorized(c)
		return
	}
	response.OK(c, toUserResponse(u))
}
