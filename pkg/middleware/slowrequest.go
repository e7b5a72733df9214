package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yourorg/ctk-wopi/pkg/logging"
)

// TelemetryRecorder receives slow-request and server-error events.
type TelemetryRecorder interface {
	RecordSlowRequest(ctx context.Context, route string, duration time.Duration, traceID, requestID string)
	RecordError(ctx context.Context, route, errorMsg string, statusCode int, traceID, requestID string)
}

// SlowRequestMiddleware reports requests slower than threshold and every
// 5xx response to the recorder. A nil recorder only logs.
func SlowRequestMiddleware(threshold time.Duration, recorder TelemetryRecorder, logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		traceID := GetTraceIDFromGin(c)
		requestID := GetRequestIDFromGin(c)

		if threshold > 0 && latency > threshold {
			logger.Warn("Slow request detected",
				logging.NewField("route", route),
				logging.NewField("duration_ms", latency.Milliseconds()),
				logging.NewField("threshold_ms", threshold.Milliseconds()),
			)
			if recorder != nil {
				recorder.RecordSlowRequest(c.Request.Context(), route, latency, traceID, requestID)
			}
		}

		if status := c.Writer.Status(); status >= 500 && recorder != nil {
			errorMsg := "Internal server error"
			if len(c.Errors) > 0 {
				errorMsg = c.Errors.String()
			}
			recorder.RecordError(c.Request.Context(), route, errorMsg, status, traceID, requestID)
		}
	}
}
