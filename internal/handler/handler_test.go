package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quocanhngo/otpwatch/internal/middleware"
	"github.com/quocanhngo/otpwatch/internal/model"
	"github.com/quocanhngo/otpwatch/internal/repository"
	"github.com/quocanhngo/otpwatch/internal/service"
	"github.com/quocanhngo/otpwatch/internal/telemetry"
	"github.com/quocanhngo/otpwatch/pkg/auth"
	"github.com/quocanhngo/otpwatch/pkg/docstore"
	"github.com/quocanhngo/otpwatch/pkg/notification"
	"github.com/quocanhngo/otpwatch/pkg/sms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const phone = "+15551234567"

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeSMS struct {
	last string
	err  error
}

func (f *fakeSMS) Send(ctx context.Context, number, message string) (*sms.Result, error) {
	f.last = message
	if f.err != nil {
		return nil, f.err
	}
	return &sms.Result{Success: true, ProviderResponse: "ok"}, nil
}

type recordingNotifier struct {
	sent int
	err  error
}

func (r *recordingNotifier) Send(ctx context.Context, msg notification.Message) error {
	r.sent++
	return r.err
}

type testServer struct {
	router   *gin.Engine
	sms      *fakeSMS
	monitor  *telemetry.Monitor
	notifier *recordingNotifier
	otpRepo  *repository.OTPRepository
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := docstore.NewMemoryStore()
	smsClient := &fakeSMS{}
	notifier := &recordingNotifier{}
	logs := repository.NewHealthLogRepository(store)
	monitor := telemetry.NewMonitor(telemetry.Config{Logs: logs, Notifier: notifier})
	jwtManager := auth.NewJWTManager("access", "refresh", time.Hour, 24*time.Hour)
	otpRepo := repository.NewOTPRepository(store)

	authService := service.NewAuthService(service.AuthDeps{
		OTPRepo:     otpRepo,
		TokenRepo:   repository.NewRefreshTokenRepository(store),
		ProfileRepo: repository.NewProfileRepository(store),
		JWT:         jwtManager,
		SMS:         smsClient,
		Observer:    monitor,
	}, service.AuthConfig{})

	router := gin.New()
	router.Use(middleware.RequestTracker(monitor))
	Routes{
		OTP:     NewOTPHandler(authService),
		Session: NewSessionHandler(authService),
		Health:  NewHealthHandler(monitor),
		Auth:    middleware.AuthMiddleware(jwtManager, nil),
		APIKey:  middleware.APIKeyMiddleware("key", zap.NewNop()),
	}.Register(router)

	return &testServer{router: router, sms: smsClient, monitor: monitor, notifier: notifier, otpRepo: otpRepo}
}

func (s *testServer) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (s *testServer) login(t *testing.T) model.VerifyResult {
	t.Helper()
	w := s.do(http.MethodPost, "/otp/request", model.RequestOTPRequest{PhoneNumber: phone})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	sessionID := decode[model.RequestOTPResponse](t, w).SessionID

	session, err := s.otpRepo.FindByID(context.Background(), sessionID)
	require.NoError(t, err)

	w = s.do(http.MethodPost, "/otp/verify", model.VerifyOTPRequest{PhoneNumber: phone, OTP: session.Code, SessionID: sessionID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode[model.VerifyResult](t, w)
}

func TestOTPFlow(t *testing.T) {
	s := newTestServer(t)

	result := s.login(t)
	assert.NotEmpty(t, result.AccessToken)
	assert.NotEmpty(t, result.RefreshToken)
	assert.False(t, result.ProfileComplete)

	w := s.do(http.MethodPost, "/token/refresh", model.RefreshTokenRequest{RefreshToken: result.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode[model.RefreshTokenResponse](t, w).AccessToken)

	w = s.do(http.MethodGet, "/session/profile", nil, "Authorization", "Bearer "+result.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, phone, decode[model.ProfileResponse](t, w).PhoneNumber)

	w = s.do(http.MethodPost, "/session/logout", model.LogoutRequest{PhoneNumber: phone})
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(http.MethodPost, "/session/logout", model.LogoutRequest{PhoneNumber: phone})
	assert.Equal(t, http.StatusOK, w.Code, "logout is idempotent")

	w = s.do(http.MethodPost, "/token/refresh", model.RefreshTokenRequest{RefreshToken: result.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequestOTP_Errors(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/otp/request", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/otp/request", model.RequestOTPRequest{PhoneNumber: "12345"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	s.sms.err = fmt.Errorf("%w after 15s", sms.ErrTimeout)
	w = s.do(http.MethodPost, "/otp/request", model.RequestOTPRequest{PhoneNumber: phone})
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	resp := decode[model.ErrorResponse](t, w)
	assert.NotEmpty(t, resp.SessionID, "timeout responses carry the session id for retry")

	s.sms.err = nil
	w = s.do(http.MethodPost, "/otp/retry", model.RetryOTPRequest{SessionID: resp.SessionID})
	assert.Equal(t, http.StatusOK, w.Code)

	s.sms.err = sms.ErrTransport
	w = s.do(http.MethodPost, "/otp/retry", model.RetryOTPRequest{SessionID: resp.SessionID})
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = s.do(http.MethodPost, "/otp/retry", model.RetryOTPRequest{SessionID: "missing"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVerifyOTP_InvalidCode(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/otp/request", model.RequestOTPRequest{PhoneNumber: phone})
	require.Equal(t, http.StatusOK, w.Code)
	sessionID := decode[model.RequestOTPResponse](t, w).SessionID

	session, err := s.otpRepo.FindByID(context.Background(), sessionID)
	require.NoError(t, err)
	wrong := "100000"
	if session.Code == wrong {
		wrong = "100001"
	}

	w = s.do(http.MethodPost, "/otp/verify", model.VerifyOTPRequest{PhoneNumber: phone, OTP: wrong, SessionID: sessionID})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, model.ErrInvalidOTP.Error(), decode[model.ErrorResponse](t, w).Error)
}

func TestProfile_RequiresBearer(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/session/profile", nil).Code)
	assert.Equal(t, http.StatusUnauthorized,
		s.do(http.MethodGet, "/session/profile", nil, "Authorization", "Bearer nope").Code)
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)

	s.do(http.MethodPost, "/otp/request", model.RequestOTPRequest{PhoneNumber: "bad"})

	w := s.do(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	report := decode[telemetry.Report](t, w)
	assert.Equal(t, "connected", report.ServiceStatuses.Store)
	assert.Equal(t, 1, report.Metrics.Errors.LastHour)
	assert.Equal(t, telemetry.SeverityAmber, report.Severity)

	w = s.do(http.MethodPost, "/health/report-now", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Zero(t, s.notifier.sent)

	w = s.do(http.MethodPost, "/health/report-now", nil, "X-API-Key", "key")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[ReportNowResponse](t, w)
	assert.True(t, resp.Delivered)
	require.NotNil(t, resp.Report)
	assert.Equal(t, 1, s.notifier.sent)

	s.notifier.err = errors.New("webhook down")
	w = s.do(http.MethodPost, "/health/report-now?apiKey=key", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[ReportNowResponse](t, w).Delivered)
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{model.ErrValidation, http.StatusBadRequest},
		{fmt.Errorf("%w: x", model.ErrNotFound), http.StatusBadRequest},
		{model.ErrExpired, http.StatusBadRequest},
		{model.ErrInvalidOTP, http.StatusBadRequest},
		{model.ErrUnauthorized, http.StatusUnauthorized},
		{model.ErrRateLimited, http.StatusTooManyRequests},
		{fmt.Errorf("%w: %w", model.ErrTimeout, sms.ErrTimeout), http.StatusGatewayTimeout},
		{model.ErrTransport, http.StatusInternalServerError},
		{model.ErrInternal, http.StatusInternalServerError},
		{errors.New("unexpected"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, errorStatus(tt.err), tt.err.Error())
	}
}
