package httpservice

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yourorg/ctk-wopi/pkg/logging"
	"github.com/yourorg/ctk-wopi/pkg/middleware"
)

// HandlerFunc is a handler function that returns an error.
type HandlerFunc func(c *gin.Context) error

// Wrap adapts a HandlerFunc to gin. It logs entry and exit with latency,
// and hands any returned error to the error handler middleware for rendering.
func Wrap(handlerName string, fn HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := GetLogger(c)
		start := time.Now()

		logger.Debug("Handler started",
			logging.NewField("handler", handlerName),
			logging.NewField("method", c.Request.Method),
			logging.NewField("path", c.Request.URL.Path),
		)

		err := fn(c)
		latency := time.Since(start)

		if err != nil {
			logger.Debug("Handler failed",
				logging.NewField("handler", handlerName),
				logging.NewField("latency_ms", latency.Milliseconds()),
				logging.NewField("error", err),
			)
			middleware.SetError(c, err)
			return
		}

		logger.Debug("Handler completed",
			logging.NewField("handler", handlerName),
			logging.NewField("latency_ms", latency.Milliseconds()),
		)
	}
}
