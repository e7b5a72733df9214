package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/yourorg/ctk-wopi/pkg/errors"
	"github.com/yourorg/ctk-wopi/pkg/logging"
)

// ErrorHandlerMiddleware renders the last error recorded on the gin context
// as an AppError JSON body, unless the handler already wrote a response.
func ErrorHandlerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		appErr := errors.FromError(c.Errors.Last().Err)

		ctxLogger := logging.FromContext(c.Request.Context())
		fields := []logging.Field{
			logging.NewField("error", appErr.Error()),
			logging.NewField("status_code", appErr.HTTPStatus),
		}
		if appErr.HTTPStatus >= 500 {
			ctxLogger.Error("Request failed", fields...)
		} else {
			ctxLogger.Warn("Request failed", fields...)
		}

		if !c.Writer.Written() {
			c.JSON(appErr.HTTPStatus, appErr.ToErrorResponse())
		}
	}
}

// SetError records err on the context and stops the handler chain.
func SetError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
