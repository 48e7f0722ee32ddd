package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vitrinelive/storefront/observability"
)

// GinRequestMetrics records the duration of each request against its route
// template. A nil metrics handle disables recording.
func GinRequestMetrics(m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RecordRequest(c.Request.Context(), c.Request.Method, route, time.Since(start))
	}
}
