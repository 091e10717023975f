package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/quocanhngo/otpwatch/internal/model"
	"github.com/quocanhngo/otpwatch/pkg/auth"
)

const (
	ContextPhoneNumber = "phone_number"
	ContextAccessToken = "access_token"
)

// RevocationChecker reports whether an access token was blacklisted
type RevocationChecker interface {
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// AuthMiddleware validates JWT access tokens and injects the phone number into context.
// revocations may be nil when no blacklist backend is configured.
func AuthMiddleware(jwtManager *auth.JWTManager, revocations RevocationChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := BearerToken(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "Authorization header required. Use: Bearer <token>")
			return
		}

		// Check blacklist
		if revocations != nil {
			revoked, err := revocations.IsRevoked(c.Request.Context(), tokenString)
			if err != nil {
				// fail closed
				abort(c, http.StatusInternalServerError, "Auth server error")
				return
			}
			if revoked {
				abort(c, http.StatusUnauthorized, "Token has been revoked")
				return
			}
		}

		claims, err := jwtManager.ValidateAccessToken(tokenString)
		if err != nil {
			abort(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		// Store caller info in context for downstream handlers
		c.Set(ContextPhoneNumber, claims.PhoneNumber)
		c.Set(ContextAccessToken, tokenString)

		c.Next()
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header
func BearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func abort(c *gin.Context, status int, message string) {
	_ = c.Error(errors.New(message))
	c.AbortWithStatusJSON(status, model.ErrorResponse{Error: message})
}
