package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"example.com/shopfloor/services/report/internal/metrics"
)

// Metrics returns a gin middleware that records request counts, latencies
// and error rates in the in-memory collector
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		m.IncrementCounter("http.requests")
		m.TimeSince("http.request_ms", start)
		if c.Writer.Status() >= 500 {
			m.RecordError("http")
		} else {
			m.RecordSuccess("http")
		}
	}
}
