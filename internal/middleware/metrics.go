package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/brightclass/brightclass-api/internal/service"
)

// Metrics observes every request's method, route, status, and latency.
// The route template (c.FullPath) keeps cardinality bounded; raw URLs are
// used only for unmatched paths.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
