package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quocanhngo/otpwatch/internal/model"
)

// errorStatus maps service errors to HTTP status codes
func errorStatus(err error) int {
	switch {
	case errors.Is(err, model.ErrValidation),
		errors.Is(err, model.ErrNotFound),
		errors.Is(err, model.ErrExpired),
		errors.Is(err, model.ErrInvalidOTP):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, model.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, model.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the error response and attaches err to the context for the request tracker
func respondError(c *gin.Context, err error, sessionID string) {
	_ = c.Error(err)

	status := errorStatus(err)
	message := err.Error()
	if errors.Is(err, model.ErrInternal) {
		message = "Internal server error"
	}

	c.JSON(status, model.ErrorResponse{Error: message, SessionID: sessionID})
}

func respondBindError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
}
