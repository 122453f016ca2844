package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// GinMiddleware records request count and latency per route template.
func (m *BotMetrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if m == nil {
			return
		}

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		m.httpRequestTotal.WithLabelValues(m.service, method, path, status).Inc()
		m.httpRequestDuration.WithLabelValues(m.service, method, path).Observe(time.Since(start).Seconds())
	}
}
