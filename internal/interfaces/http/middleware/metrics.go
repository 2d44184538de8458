package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/placescope/placescope/internal/infrastructure/monitoring/metrics"
)

// Metrics records the request counter and latency histogram. The route
// template is used as the path label so that path parameters do not blow up
// label cardinality.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		metrics.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		metrics.HTTPRequestSeconds.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}
