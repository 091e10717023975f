package model

import "errors"

var (
	// caller input
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrExpired    = errors.New("expired")
	// mismatch and expiry on verification share one outcome
	ErrInvalidOTP   = errors.New("invalid or expired OTP")
	ErrUnauthorized = errors.New("unauthorized")
	ErrRateLimited  = errors.New("too many OTP requests, please try again later")

	// downstream dependencies
	ErrTransport = errors.New("downstream service unavailable")
	ErrTimeout   = errors.New("downstream service timed out")

	ErrInternal = errors.New("internal error")
)
