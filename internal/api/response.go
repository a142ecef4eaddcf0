package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/roach88/kioskfleet/internal/fleet"
)

// Error codes that do not come from the registry.
const (
	CodeBadRequest = "BAD_REQUEST"
	CodeInternal   = "INTERNAL"
)

// Response is the envelope of every JSON response.
type Response struct {
	Status string     `json:"status"` // "ok" or "error"
	Data   any        `json:"data,omitempty"`
	Error  *ErrorBody `json:"error,omitempty"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// success writes data with the given HTTP status.
func success(c *gin.Context, status int, data any) {
	c.JSON(status, Response{Status: "ok", Data: data})
}

// fail writes err, mapping registry error codes to HTTP statuses.
// Errors that are not registry errors are logged and hidden behind a
// generic 500.
func (s *Server) fail(c *gin.Context, err error) {
	var fe *fleet.Error
	if !errors.As(err, &fe) {
		s.logger.Error("request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err)
		c.JSON(http.StatusInternalServerError, Response{
			Status: "error",
			Error:  &ErrorBody{Code: CodeInternal, Message: "internal error"},
		})
		return
	}
	c.JSON(StatusFor(fe.Code), Response{
		Status: "error",
		Error:  &ErrorBody{Code: string(fe.Code), Message: fe.Message},
	})
}

// badRequest reports a body or query that could not be decoded.
func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Response{
		Status: "error",
		Error:  &ErrorBody{Code: CodeBadRequest, Message: message},
	})
}

// StatusFor maps a registry error code to its HTTP status.
func StatusFor(code fleet.ErrorCode) int {
	switch code {
	case fleet.ErrCodeNotFound:
		return http.StatusNotFound
	case fleet.ErrCodeAlreadyUsed, fleet.ErrCodeInvalidTransition:
		return http.StatusConflict
	case fleet.ErrCodeValidation:
		return http.StatusUnprocessableEntity
	case fleet.ErrCodeExpired:
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}
