package httpadapter

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kirillkom/paperless-bot/internal/observability/logging"
)

const (
	requestIDHeader = "X-Request-Id"
	requestIDKey    = "request_id"
)

type requestIDContextKey struct{}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	requestID, _ := ctx.Value(requestIDContextKey{}).(string)
	return requestID
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Header(requestIDHeader, requestID)
		c.Set(requestIDKey, requestID)
		ctx := context.WithValue(c.Request.Context(), requestIDContextKey{}, requestID)
		ctx = logging.WithAttrs(ctx, "request_id", requestID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func accessLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		logAttrs := []any{
			"request_id", requestIDFromContext(c.Request.Context()),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration_ms", float64(time.Since(start).Microseconds()) / 1000.0,
			"bytes", c.Writer.Size(),
			"remote_addr", c.ClientIP(),
			"user_agent", c.Request.UserAgent(),
		}

		switch {
		case status >= 500:
			slog.Error("http_request", logAttrs...)
		case status >= 400:
			slog.Warn("http_request", logAttrs...)
		default:
			slog.Debug("http_request", logAttrs...)
		}
	}
}

func recoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}
			requestID := requestIDFromContext(c.Request.Context())
			slog.Error("http_panic",
				"request_id", requestID,
				"panic", recovered,
				"path", c.Request.URL.Path,
				"stack", string(debug.Stack()),
			)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":      "internal server error",
				"request_id": requestID,
			})
		}()
		c.Next()
	}
}
