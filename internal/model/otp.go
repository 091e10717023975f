package model

import (
	"time"
)

// DispatchState records whether the SMS gateway accepted the code for delivery
type DispatchState string

const (
	DispatchNotSent    DispatchState = "not_sent"
	DispatchSent       DispatchState = "sent"
	DispatchSendFailed DispatchState = "send_failed"
)

// OTPSession represents a single one-time-passcode issuance, keyed by session ID
type OTPSession struct {
	ID              string        `json:"-" firestore:"-"`
	PhoneNumber     string        `json:"phoneNumber" firestore:"phoneNumber"` // as submitted
	Code            string        `json:"otp" firestore:"otp"`                 // 6-digit numeric code
	CreatedAt       time.Time     `json:"createdAt" firestore:"createdAt"`
	ExpiresAt       time.Time     `json:"expiresAt" firestore:"expiresAt"`
	DispatchState   DispatchState `json:"dispatchState" firestore:"dispatchState"`
	GatewayResponse string        `json:"gatewayResponse,omitempty" firestore:"gatewayResponse,omitempty"`
}

// IsExpiredAt checks if the session has expired at the given instant
func (o *OTPSession) IsExpiredAt(now time.Time) bool {
	return now.After(o.ExpiresAt)
}

// RefreshTokenRecord is the single live refresh token for a phone number
type RefreshTokenRecord struct {
	PhoneNumber  string    `json:"-" firestore:"-"`
	RefreshToken string    `json:"refreshToken" firestore:"refreshToken"`
	CreatedAt    time.Time `json:"createdAt" firestore:"createdAt"`
}
