package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quocanhngo/otpwatch/internal/middleware"
	"github.com/quocanhngo/otpwatch/internal/model"
	"github.com/quocanhngo/otpwatch/internal/service"
)

// SessionHandler handles token refresh, logout and profile endpoints
type SessionHandler struct {
	authService *service.AuthService
}

func NewSessionHandler(authService *service.AuthService) *SessionHandler {
	return &SessionHandler{authService: authService}
}

// RefreshToken godoc
// @Summary Exchange a refresh token for a new access token
// @Tags Session
// @Accept json
// @Produce json
// @Param body body model.RefreshTokenRequest true "Refresh token"
// @Success 200 {object} model.RefreshTokenResponse
// @Failure 401 {object} model.ErrorResponse
// @Router /token/refresh [post]
func (h *SessionHandler) RefreshToken(c *gin.Context) {
	var req model.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	accessToken, err := h.authService.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, err, "")
		return
	}

	c.JSON(http.StatusOK, model.RefreshTokenResponse{AccessToken: accessToken})
}

// Logout godoc
// @Summary Log out a phone number
// @Description Deletes the stored refresh token. A bearer access token, when sent, is revoked until it expires.
// @Tags Session
// @Accept json
// @Produce json
// @Param body body model.LogoutRequest true "Logout request"
// @Success 200 {object} model.SuccessResponse
// @Failure 400 {object} model.ErrorResponse
// @Router /session/logout [post]
func (h *SessionHandler) Logout(c *gin.Context) {
	var req model.LogoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	accessToken, _ := middleware.BearerToken(c)
	if err := h.authService.Logout(c.Request.Context(), req.PhoneNumber, accessToken); err != nil {
		respondError(c, err, "")
		return
	}

	c.JSON(http.StatusOK, model.SuccessResponse{Message: "Logged out successfully"})
}

// GetProfile godoc
// @Summary Get the caller's profile
// @Tags Session
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.ProfileResponse
// @Failure 401 {object} model.ErrorResponse
// @Router /session/profile [get]
func (h *SessionHandler) GetProfile(c *gin.Context) {
	phoneNumber := c.GetString(middleware.ContextPhoneNumber)

	profile, err := h.authService.Profile(c.Request.Context(), phoneNumber)
	if err != nil {
		respondError(c, err, "")
		return
	}

	c.JSON(http.StatusOK, profile)
}
