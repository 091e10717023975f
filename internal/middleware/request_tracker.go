package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quocanhngo/otpwatch/internal/model"
)

// RequestObserver receives request and error observations
type RequestObserver interface {
	ObserveRequest(endpoint, source string, meta model.RequestMetadata)
	ObserveError(ctx context.Context, kind model.ErrorKind, err error, ec model.ErrorContext)
}

// RequestTracker counts every request and forwards error responses to the observer
func RequestTracker(observer RequestObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		endpoint := c.Request.Method + " " + c.Request.URL.Path

		observer.ObserveRequest(endpoint, c.ClientIP(), model.RequestMetadata{
			UserAgent: c.Request.UserAgent(),
			Referer:   c.Request.Referer(),
		})

		c.Next()

		status := c.Writer.Status()
		if status < http.StatusBadRequest {
			return
		}

		err := errors.New(http.StatusText(status))
		if last := c.Errors.Last(); last != nil {
			err = last.Err
		}

		observer.ObserveError(c.Request.Context(), ErrorKindForStatus(status), err, model.ErrorContext{
			Endpoint:       endpoint,
			StatusCode:     status,
			ResponseTimeMs: time.Since(start).Milliseconds(),
		})
	}
}

// ErrorKindForStatus classifies an error response status
func ErrorKindForStatus(status int) model.ErrorKind {
	switch {
	case status == http.StatusBadGateway:
		return model.ErrorKindAPIOutage
	case status == http.StatusServiceUnavailable:
		return model.ErrorKindServiceUnavailable
	case status >= http.StatusInternalServerError:
		return model.ErrorKindServer
	default:
		return model.ErrorKindClient
	}
}
