package model

// ========== OTP DTOs ==========

type RequestOTPRequest struct {
	PhoneNumber string `json:"phoneNumber" binding:"required"`
}

type RequestOTPResponse struct {
	SessionID string `json:"sessionId"`
}

type RetryOTPRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
}

type VerifyOTPRequest struct {
	PhoneNumber string `json:"phoneNumber" binding:"required"`
	OTP         string `json:"otp" binding:"required"`
	SessionID   string `json:"sessionId" binding:"required"`
}

// VerifyResult is returned after a successful OTP verification
type VerifyResult struct {
	AccessToken     string `json:"accessToken"`
	RefreshToken    string `json:"refreshToken"`
	ProfileComplete bool   `json:"profileComplete"`
}

// ========== Token DTOs ==========

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type RefreshTokenResponse struct {
	AccessToken string `json:"accessToken"`
}

type LogoutRequest struct {
	PhoneNumber string `json:"phoneNumber" binding:"required"`
}

// ========== Common ==========

type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}
