package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/yourorg/ctk-wopi/pkg/logging"
)

// ContextLoggerMiddleware attaches a request-scoped logger to the request
// context, pre-populated with trace_id and request_id. It must run after
// TracingMiddleware and RequestIDMiddleware.
func ContextLoggerMiddleware(baseLogger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var fields []logging.Field

		if traceID := GetTraceIDFromGin(c); traceID != "" {
			fields = append(fields, logging.NewField("trace_id", traceID))
		}
		if requestID := GetRequestIDFromGin(c); requestID != "" {
			fields = append(fields, logging.NewField("request_id", requestID))
		}

		ctx := logging.WithLogger(c.Request.Context(), baseLogger.With(fields...))
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
