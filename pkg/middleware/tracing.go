package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/yourorg/ctk-wopi/pkg/logging"
	"github.com/yourorg/ctk-wopi/pkg/utils"
)

const (
	TraceIDKey    = "trace_id"
	TraceIDHeader = "X-Trace-ID"

	// WOPI hosts send their own correlation id on every call.
	WOPICorrelationHeader = "X-WOPI-CorrelationId"
)

type traceIDKey struct{}

// TracingMiddleware extracts or generates a trace ID and attaches it to context.
// X-Trace-ID wins, then X-WOPI-CorrelationId, otherwise a new UUID is generated.
func TracingMiddleware(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceIDHeader)
		if traceID == "" {
			traceID = c.GetHeader(WOPICorrelationHeader)
		}
		if traceID == "" {
			traceID = utils.GenerateUUID()
			logger.Debug("Trace ID missing, generated new one", logging.NewField("trace_id", traceID))
		}

		ctx := context.WithValue(c.Request.Context(), traceIDKey{}, traceID)
		c.Request = c.Request.WithContext(ctx)
		c.Set(TraceIDKey, traceID)
		c.Header(TraceIDHeader, traceID)

		c.Next()
	}
}

// GetTraceID retrieves the trace ID from context.
func GetTraceID(ctx context.Context) string {
	if traceID, ok := ctx.Value(traceIDKey{}).(string); ok {
		return traceID
	}
	return ""
}

// GetTraceIDFromGin retrieves the trace ID from Gin context.
func GetTraceIDFromGin(c *gin.Context) string {
	return c.GetString(TraceIDKey)
}
