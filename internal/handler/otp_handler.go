package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quocanhngo/otpwatch/internal/model"
	"github.com/quocanhngo/otpwatch/internal/service"
)

// OTPHandler handles OTP issuance and verification endpoints
type OTPHandler struct {
	authService *service.AuthService
}

func NewOTPHandler(authService *service.AuthService) *OTPHandler {
	return &OTPHandler{authService: authService}
}

// RequestOTP godoc
// @Summary Request an OTP for a phone number
// @Description Creates an OTP session and sends the code by SMS. On SMS failure the session id is still returned so the caller can retry.
// @Tags OTP
// @Accept json
// @Produce json
// @Param body body model.RequestOTPRequest true "Phone number in E.164 format"
// @Success 200 {object} model.RequestOTPResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 429 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Failure 504 {object} model.ErrorResponse
// @Router /otp/request [post]
func (h *OTPHandler) RequestOTP(c *gin.Context) {
	var req model.RequestOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	sessionID, err := h.authService.RequestOtp(c.Request.Context(), req.PhoneNumber)
	if err != nil {
		respondError(c, err, sessionID)
		return
	}

	c.JSON(http.StatusOK, model.RequestOTPResponse{SessionID: sessionID})
}

// RetryOTP godoc
// @Summary Resend the code of an existing OTP session
// @Description The stored code and expiry are unchanged.
// @Tags OTP
// @Accept json
// @Produce json
// @Param body body model.RetryOTPRequest true "Session to retry"
// @Success 200 {object} model.SuccessResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Failure 504 {object} model.ErrorResponse
// @Router /otp/retry [post]
func (h *OTPHandler) RetryOTP(c *gin.Context) {
	var req model.RetryOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.authService.RetryOtp(c.Request.Context(), req.SessionID); err != nil {
		respondError(c, err, req.SessionID)
		return
	}

	c.JSON(http.StatusOK, model.SuccessResponse{Message: "OTP resent successfully"})
}

// VerifyOTP godoc
// @Summary Verify an OTP and log in
// @Tags OTP
// @Accept json
// @Produce json
// @Param body body model.VerifyOTPRequest true "Verify OTP request"
// @Success 200 {object} model.VerifyResult
// @Failure 400 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /otp/verify [post]
func (h *OTPHandler) VerifyOTP(c *gin.Context) {
	var req model.VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.authService.VerifyOtp(c.Request.Context(), req.PhoneNumber, req.OTP, req.SessionID)
	if err != nil {
		respondError(c, err, "")
		return
	}

	c.JSON(http.StatusOK, result)
}
