package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/audience-backend/internal/platform/ctxutil"
	"github.com/yungbote/audience-backend/internal/platform/logger"
)

// pathParamFields maps route params to the log keys they are reported under.
var pathParamFields = map[string]string{
	"id":      "resource_id",
	"queryId": "round_id",
}

// RequestLogger writes one line per request. Successful probes of the routes in quiet are
// dropped; their failures are still logged.
func RequestLogger(log *logger.Logger, quiet ...string) gin.HandlerFunc {
	quietRoutes := make(map[string]bool, len(quiet))
	for _, r := range quiet {
		quietRoutes[r] = true
	}
	log = log.With("component", "http")

	return func(c *gin.Context) {
		began := time.Now()
		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if quietRoutes[route] && status < 400 {
			return
		}
		if route == "" {
			route = "unmatched"
		}

		fields := []interface{}{
			"method", c.Request.Method,
			"route", route,
			"path", c.Request.URL.Path,
			"status", status,
			"bytes", c.Writer.Size(),
			"duration_ms", time.Since(began).Milliseconds(),
		}
		for _, p := range c.Params {
			if key, ok := pathParamFields[p.Key]; ok {
				fields = append(fields, key, p.Value)
			}
		}
		ctx := c.Request.Context()
		fields = append(fields, ctxutil.LogFields(ctx)...)
		if uid := ctxutil.UserID(ctx); uid != "" {
			fields = append(fields, "user_id", uid)
		}
		if last := c.Errors.Last(); last != nil {
			fields = append(fields, "error", last.Error())
		}

		switch {
		case status >= 500:
			log.Error("Request failed", fields...)
		case status >= 400:
			log.Warn("Request rejected", fields...)
		default:
			log.Info("Request served", fields...)
		}
	}
}
