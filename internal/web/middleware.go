package web

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/camuig/whale-dashboard/internal/logger"
	"github.com/camuig/whale-dashboard/internal/view"
)

const dashboardKey = "dashboard"

// requestLogger logs every request at debug and failed ones at warn.
func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		status := c.Writer.Status()
		args := []any{
			"status", status,
			"method", c.Request.Method,
			"path", path,
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		}
		if errs := c.Errors.ByType(gin.ErrorTypePrivate).String(); errs != "" {
			args = append(args, "error", errs)
		}

		if status >= http.StatusBadRequest {
			log.Warn("http request", args...)
			return
		}
		log.Debug("http request", args...)
	}
}

// withSession attaches the caller's dashboard and refreshes the cookie.
func withSession(sessions *Sessions, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := c.Cookie(sessionCookie)
		id, dash, _ := sessions.Get(id)

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(sessionCookie, id, int(ttl.Seconds()), "/", "", false, true)
		c.Set(dashboardKey, dash)
		c.Next()
	}
}

func dashboardFrom(c *gin.Context) *view.Dashboard {
	return c.MustGet(dashboardKey).(*view.Dashboard)
}
