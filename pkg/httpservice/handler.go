package httpservice

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourorg/ctk-wopi/pkg/logging"
)

// GetLogger retrieves the contextual logger from the request.
func GetLogger(c *gin.Context) logging.Logger {
	return logging.FromContext(c.Request.Context())
}

// Health reports that the process is serving requests.
func Health(c *gin.Context) error {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
	return nil
}
