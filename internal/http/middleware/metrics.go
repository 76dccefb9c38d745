package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/audience-backend/internal/observability"
)

// Metrics records request counts and latency labelled by route template. Requests for the
// routes in skip (typically the scrape endpoint itself) are not observed.
func Metrics(m *observability.Metrics, skip ...string) gin.HandlerFunc {
	ignored := make(map[string]struct{}, len(skip))
	for _, route := range skip {
		ignored[route] = struct{}{}
	}
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		route := c.FullPath()
		if _, ok := ignored[route]; ok {
			c.Next()
			return
		}

		m.APIInflight(1)
		began := time.Now()
		c.Next()
		m.APIInflight(-1)
		m.ObserveAPI(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(began))
	}
}
