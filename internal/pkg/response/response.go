package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error codes carried in the error envelope.
const (
	CodeBadRequest   = "bad_request"
	CodeValidation   = "validation_error"
	CodeUnauthorized = "unauthorized"
	CodeNotFound     = "not_found"
	CodeConflict     = "conflict"
	CodeRateLimited  = "rate_limited"
	CodeInternal     = "internal_error"
)

// ErrorBody is the error half of the envelope.
type ErrorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Fields  any    `json:"fields,omitempty"`
}

type successEnvelope struct {
	Success    bool `json:"success"`
	Data       any  `json:"data"`
	Pagination any  `json:"pagination,omitempty"`
}

type errorEnvelope struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
}

// OK sends a 200 response wrapped in {success, data}.
func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, successEnvelope{Success: true, Data: data})
}

// Created sends a 201 response.
func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, successEnvelope{Success: true, Data: data})
}

// Paged sends a list response with pagination metadata. The metadata shape
// is chosen by the caller (offset page info or a cursor).
func Paged(c *gin.Context, data any, pagination any) {
	c.JSON(http.StatusOK, successEnvelope{Success: true, Data: data, Pagination: pagination})
}

// Fail aborts with the given status and error body.
func Fail(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, errorEnvelope{Error: ErrorBody{Message: message, Code: code}})
}

// BadRequest sends a 400 error response.
func BadRequest(c *gin.Context, message string) {
	Fail(c, http.StatusBadRequest, CodeBadRequest, message)
}

// Validation sends a 400 with per-field messages.
func Validation(c *gin.Context, message string, fields map[string]string) {
	body := ErrorBody{Message: message, Code: CodeValidation}
	if len(fields) > 0 {
		body.Fields = fields
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, errorEnvelope{Error: body})
}

// Unauthorized sends a 401 error response.
func Unauthorized(c *gin.Context) {
	Fail(c, http.StatusUnauthorized, CodeUnauthorized, "Authentication required")
}

// UnauthorizedMsg sends a 401 with a custom message and code.
func UnauthorizedMsg(c *gin.Context, code, message string) {
	Fail(c, http.StatusUnauthorized, code, message)
}

// NotFound sends a 404 error response.
func NotFound(c *gin.Context) {
	Fail(c, http.StatusNotFound, CodeNotFound, "Not found")
}

// NotFoundMsg sends a 404 error with a custom message.
func NotFoundMsg(c *gin.Context, message string) {
	Fail(c, http.StatusNotFound, CodeNotFound, message)
}

// Conflict sends a 409 error response.
func Conflict(c *gin.Context, message string) {
	Fail(c, http.StatusConflict, CodeConflict, message)
}

// TooManyRequests sends a 429 error response.
func TooManyRequests(c *gin.Context, message string) {
	Fail(c, http.StatusTooManyRequests, CodeRateLimited, message)
}

// InternalError sends a 500 error response. The cause is attached to the
// gin context for the request logger and never leaked to the client.
func InternalError(c *gin.Context, err error) {
	if err != nil {
		_ = c.Error(err)
	}
	Fail(c, http.StatusInternalServerError, CodeInternal, "Internal server error")
}
