package handler

import "github.com/gin-gonic/gin"

// Routes groups the handlers and guards mounted on the router
type Routes struct {
	OTP     *OTPHandler
	Session *SessionHandler
	Health  *HealthHandler
	Auth    gin.HandlerFunc // bearer token guard
	APIKey  gin.HandlerFunc // operator key guard
}

// Register mounts every endpoint on r
func (rt Routes) Register(r gin.IRouter) {
	otp := r.Group("/otp")
	{
		otp.POST("/request", rt.OTP.RequestOTP)
		otp.POST("/retry", rt.OTP.RetryOTP)
		otp.POST("/verify", rt.OTP.VerifyOTP)
	}

	r.POST("/token/refresh", rt.Session.RefreshToken)

	session := r.Group("/session")
	{
		session.POST("/logout", rt.Session.Logout)
		session.GET("/profile", rt.Auth, rt.Session.GetProfile)
	}

	health := r.Group("/health")
	{
		health.GET("", rt.Health.Health)
		health.POST("/report-now", rt.APIKey, rt.Health.ReportNow)
	}
}
