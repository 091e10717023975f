package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/quocanhngo/otpwatch/internal/model"
	"github.com/quocanhngo/otpwatch/internal/repository"
	"github.com/quocanhngo/otpwatch/pkg/auth"
	"github.com/quocanhngo/otpwatch/pkg/sms"
	"go.uber.org/zap"
)

const (
	otpMin                 = 100000
	otpSpan                = 900000 // codes are drawn from [100000, 999999]
	defaultOTPExpiry       = 5 * time.Minute
	defaultMessageTemplate = "Your OTP is %s"
)

// SMSSender delivers OTP messages
type SMSSender interface {
	Send(ctx context.Context, number, message string) (*sms.Result, error)
}

// Observer receives error and SMS outcomes for health telemetry
type Observer interface {
	ObserveError(ctx context.Context, kind model.ErrorKind, err error, ec model.ErrorContext)
	ObserveSms(ctx context.Context, success bool, err error, ec model.ErrorContext)
}

// Throttler limits OTP issuance per phone number
type Throttler interface {
	Allow(ctx context.Context, phoneNumber string) (bool, error)
}

// Revoker blacklists access tokens before they expire
type Revoker interface {
	Revoke(ctx context.Context, token string, ttl time.Duration) error
}

// AuthConfig tunes OTP issuance
type AuthConfig struct {
	OTPExpiry       time.Duration
	MessageTemplate string // one %s verb for the code
}

// AuthDeps are the collaborators of AuthService. Throttle and Revoker are optional.
type AuthDeps struct {
	OTPRepo     *repository.OTPRepository
	TokenRepo   *repository.RefreshTokenRepository
	ProfileRepo *repository.ProfileRepository
	JWT         *auth.JWTManager
	SMS         SMSSender
	Observer    Observer
	Throttle    Throttler
	Revoker     Revoker
	Logger      *zap.Logger
	Now         func() time.Time
}

// AuthService handles the OTP session and token lifecycle
type AuthService struct {
	otpRepo     *repository.OTPRepository
	tokenRepo   *repository.RefreshTokenRepository
	profileRepo *repository.ProfileRepository
	jwtManager  *auth.JWTManager
	sms         SMSSender
	observer    Observer
	throttle    Throttler
	revoker     Revoker
	validate    *validator.Validate
	logger      *zap.Logger
	now         func() time.Time

	otpExpiry       time.Duration
	messageTemplate string
}

func NewAuthService(deps AuthDeps, cfg AuthConfig) *AuthService {
	if cfg.OTPExpiry <= 0 {
		cfg.OTPExpiry = defaultOTPExpiry
	}
	if cfg.MessageTemplate == "" {
		cfg.MessageTemplate = defaultMessageTemplate
	}
	if deps.Observer == nil {
		deps.Observer = nopObserver{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	return &AuthService{
		otpRepo:         deps.OTPRepo,
		tokenRepo:       deps.TokenRepo,
		profileRepo:     deps.ProfileRepo,
		jwtManager:      deps.JWT,
		sms:             deps.SMS,
		observer:        deps.Observer,
		throttle:        deps.Throttle,
		revoker:         deps.Revoker,
		validate:        newValidator(),
		logger:          deps.Logger,
		now:             deps.Now,
		otpExpiry:       cfg.OTPExpiry,
		messageTemplate: cfg.MessageTemplate,
	}
}

// msisdnPattern is E.164 without the leading plus, as the SMS gateway takes it
var msisdnPattern = regexp.MustCompile(`^[1-9][0-9]{7,14}$`)

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("msisdn", func(fl validator.FieldLevel) bool {
		return msisdnPattern.MatchString(fl.Field().String())
	})
	return v
}

// ==================== OTP ====================

// RequestOtp creates a session and dispatches its code. When dispatch fails
// the session id is still returned alongside the error so the caller can retry.
func (s *AuthService) RequestOtp(ctx context.Context, phoneNumber string) (string, error) {
	if err := s.validate.Var(phoneNumber, "required,e164|msisdn"); err != nil {
		return "", fmt.Errorf("%w: phone number must be in international format", model.ErrValidation)
	}
	if err := s.checkThrottle(ctx, phoneNumber); err != nil {
		return "", err
	}

	code, err := generateOTPCode()
	if err != nil {
		return "", fmt.Errorf("%w: failed to generate OTP code: %w", model.ErrInternal, err)
	}

	now := s.now()
	session := &model.OTPSession{
		ID:            uuid.NewString(),
		PhoneNumber:   phoneNumber,
		Code:          code,
		CreatedAt:     now,
		ExpiresAt:     now.Add(s.otpExpiry),
		DispatchState: model.DispatchNotSent,
	}
	if err := s.otpRepo.Save(ctx, session); err != nil {
		return "", s.storeFailure(ctx, "save OTP session", err, model.ErrorContext{PhoneNumber: phoneNumber})
	}

	return session.ID, s.dispatch(ctx, session)
}

// RetryOtp resends the stored code of a live session without changing it
func (s *AuthService) RetryOtp(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("%w: session id is required", model.ErrValidation)
	}

	session, err := s.otpRepo.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: OTP session does not exist", model.ErrNotFound)
		}
		return s.storeFailure(ctx, "load OTP session", err, model.ErrorContext{SessionID: sessionID})
	}

	if session.IsExpiredAt(s.now()) {
		return fmt.Errorf("%w: OTP session has expired, request a new code", model.ErrExpired)
	}
	if err := s.checkThrottle(ctx, session.PhoneNumber); err != nil {
		return err
	}

	return s.dispatch(ctx, session)
}

// VerifyOtp consumes a session and issues tokens. Mismatch and expiry share
// one error so callers cannot tell which check failed.
func (s *AuthService) VerifyOtp(ctx context.Context, phoneNumber, code, sessionID string) (*model.VerifyResult, error) {
	if phoneNumber == "" || code == "" || sessionID == "" {
		return nil, fmt.Errorf("%w: phone number, OTP and session id are required", model.ErrValidation)
	}

	session, err := s.otpRepo.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: OTP session does not exist", model.ErrNotFound)
		}
		return nil, s.storeFailure(ctx, "load OTP session", err, model.ErrorContext{SessionID: sessionID})
	}

	codeMatches := subtle.ConstantTimeCompare([]byte(session.Code), []byte(code)) == 1
	if session.IsExpiredAt(s.now()) || session.PhoneNumber != phoneNumber || !codeMatches {
		return nil, model.ErrInvalidOTP
	}

	ec := model.ErrorContext{PhoneNumber: phoneNumber, SessionID: sessionID}
	if err := s.otpRepo.Delete(ctx, sessionID); err != nil {
		return nil, s.storeFailure(ctx, "consume OTP session", err, ec)
	}

	accessToken, err := s.jwtManager.GenerateAccessToken(phoneNumber)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to generate access token: %w", model.ErrInternal, err)
	}
	refreshToken, err := s.jwtManager.GenerateRefreshToken(phoneNumber)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to generate refresh token: %w", model.ErrInternal, err)
	}

	now := s.now()
	if err := s.tokenRepo.Save(ctx, &model.RefreshTokenRecord{
		PhoneNumber:  phoneNumber,
		RefreshToken: refreshToken,
		CreatedAt:    now,
	}); err != nil {
		return nil, s.storeFailure(ctx, "save refresh token", err, ec)
	}

	profile, err := s.profileRepo.GetOrCreate(ctx, phoneNumber, now)
	if err != nil {
		return nil, s.storeFailure(ctx, "load profile", err, ec)
	}

	return &model.VerifyResult{
		AccessToken:     accessToken,
		RefreshToken:    refreshToken,
		ProfileComplete: profile.ProfileComplete,
	}, nil
}

// ==================== Tokens ====================

// RefreshToken issues a new access token for the stored refresh token. The
// refresh token itself is not rotated.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return "", fmt.Errorf("%w: invalid or expired refresh token", model.ErrUnauthorized)
	}

	record, err := s.tokenRepo.Find(ctx, claims.PhoneNumber)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", fmt.Errorf("%w: invalid refresh token", model.ErrUnauthorized)
		}
		return "", s.storeFailure(ctx, "load refresh token", err, model.ErrorContext{PhoneNumber: claims.PhoneNumber})
	}
	if subtle.ConstantTimeCompare([]byte(record.RefreshToken), []byte(refreshToken)) != 1 {
		return "", fmt.Errorf("%w: invalid refresh token", model.ErrUnauthorized)
	}

	accessToken, err := s.jwtManager.GenerateAccessToken(claims.PhoneNumber)
	if err != nil {
		return "", fmt.Errorf("%w: failed to generate access token: %w", model.ErrInternal, err)
	}
	return accessToken, nil
}

// Logout deletes the stored refresh token and, when given, blacklists the
// caller's access token. Logging out twice is not an error.
func (s *AuthService) Logout(ctx context.Context, phoneNumber, accessToken string) error {
	if phoneNumber == "" {
		return fmt.Errorf("%w: phone number is required", model.ErrValidation)
	}

	if err := s.tokenRepo.Delete(ctx, phoneNumber); err != nil {
		return s.storeFailure(ctx, "delete refresh token", err, model.ErrorContext{PhoneNumber: phoneNumber})
	}

	if accessToken != "" {
		if err := s.RevokeAccessToken(ctx, accessToken); err != nil {
			s.logger.Warn("⚠️  Failed to revoke access token on logout", zap.Error(err))
		}
	}
	return nil
}

// RevokeAccessToken blacklists a valid access token until it expires
func (s *AuthService) RevokeAccessToken(ctx context.Context, accessToken string) error {
	if s.revoker == nil {
		return nil
	}

	claims, err := s.jwtManager.ValidateAccessToken(accessToken)
	if err != nil {
		// already unusable
		return nil
	}

	ttl := claims.ExpiresAt.Time.Sub(s.now())
	return s.revoker.Revoke(ctx, accessToken, ttl)
}

// ==================== Profile ====================

// Profile returns the subject profile for a phone number
func (s *AuthService) Profile(ctx context.Context, phoneNumber string) (*model.ProfileResponse, error) {
	profile, err := s.profileRepo.FindByPhone(ctx, phoneNumber)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: profile does not exist", model.ErrNotFound)
		}
		return nil, s.storeFailure(ctx, "load profile", err, model.ErrorContext{PhoneNumber: phoneNumber})
	}
	resp := profile.ToResponse()
	return &resp, nil
}

// ==================== Internal Helpers ====================

// dispatch sends the session's code and records the dispatch state
func (s *AuthService) dispatch(ctx context.Context, session *model.OTPSession) error {
	ec := model.ErrorContext{PhoneNumber: session.PhoneNumber, SessionID: session.ID}
	message := fmt.Sprintf(s.messageTemplate, session.Code)

	var dispatchErr error
	res, err := s.sms.Send(ctx, session.PhoneNumber, message)
	switch {
	case err != nil:
		session.DispatchState = model.DispatchSendFailed
		session.GatewayResponse = err.Error()
		ec.Reason = err.Error()
		s.observer.ObserveSms(ctx, false, err, ec)
		if errors.Is(err, sms.ErrTimeout) {
			dispatchErr = fmt.Errorf("%w: SMS gateway timed out, retry with the session id: %w", model.ErrTimeout, err)
		} else {
			dispatchErr = fmt.Errorf("%w: failed to send OTP: %w", model.ErrTransport, err)
		}
	case !res.Success:
		session.DispatchState = model.DispatchSendFailed
		session.GatewayResponse = res.ProviderResponse
		ec.Reason = res.ProviderResponse
		s.observer.ObserveSms(ctx, false, fmt.Errorf("gateway rejected message: %s", res.ProviderResponse), ec)
		dispatchErr = fmt.Errorf("%w: failed to send OTP: %s", model.ErrTransport, res.ProviderResponse)
	default:
		session.DispatchState = model.DispatchSent
		session.GatewayResponse = res.ProviderResponse
		s.observer.ObserveSms(ctx, true, nil, ec)
	}

	// a failed state update leaves the stored code verifiable
	if err := s.otpRepo.Save(ctx, session); err != nil {
		_ = s.storeFailure(ctx, "update dispatch state", err, ec)
		s.logger.Warn("⚠️  Failed to record OTP dispatch state",
			zap.String("sessionId", session.ID), zap.Error(err))
	}

	if dispatchErr != nil {
		s.logger.Warn("📵 OTP dispatch failed",
			zap.String("sessionId", session.ID),
			zap.String("state", string(session.DispatchState)),
			zap.Error(dispatchErr),
		)
	}
	return dispatchErr
}

func (s *AuthService) checkThrottle(ctx context.Context, phoneNumber string) error {
	if s.throttle == nil {
		return nil
	}
	ok, err := s.throttle.Allow(ctx, phoneNumber)
	if err != nil {
		s.logger.Warn("⚠️  OTP throttle unavailable, allowing request", zap.Error(err))
		return nil
	}
	if !ok {
		return model.ErrRateLimited
	}
	return nil
}

// storeFailure observes a document store failure and wraps it as internal
func (s *AuthService) storeFailure(ctx context.Context, op string, err error, ec model.ErrorContext) error {
	ec.Reason = op
	s.observer.ObserveError(ctx, model.ErrorKindStoreConnection, err, ec)
	return fmt.Errorf("%w: failed to %s: %w", model.ErrInternal, op, err)
}

// generateOTPCode draws a 6-digit code uniformly from [100000, 999999]
func generateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpSpan))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+otpMin), nil
}

type nopObserver struct{}

func (nopObserver) ObserveError(context.Context, model.ErrorKind, error, model.ErrorContext) {}
func (nopObserver) ObserveSms(context.Context, bool, error, model.ErrorContext)             {}
