package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourorg/ctk-wopi/pkg/errors"
	"github.com/yourorg/ctk-wopi/pkg/logging"
)

// AuthLevel is the access level a route demands from its caller.
type AuthLevel string

const (
	// AuthLevelAnonymous lets any caller through.
	AuthLevelAnonymous AuthLevel = "ANONYMOUS"
	// AuthLevelFunction requires a function key or an admin key.
	AuthLevelFunction AuthLevel = "FUNCTION"
	// AuthLevelAdmin requires an admin key.
	AuthLevelAdmin AuthLevel = "ADMIN"
)

const (
	// FunctionKeyHeader carries the access key.
	FunctionKeyHeader = "x-functions-key"
	// FunctionKeyQuery carries the access key when headers can't be set.
	FunctionKeyQuery = "code"
)

// AccessKeys holds the keys accepted by the access-level gate.
type AccessKeys struct {
	function [][]byte
	admin    [][]byte
}

// NewAccessKeys builds a key ring. Empty keys are ignored.
func NewAccessKeys(functionKeys, adminKeys []string) *AccessKeys {
	return &AccessKeys{
		function: toBytes(functionKeys),
		admin:    toBytes(adminKeys),
	}
}

func toBytes(keys []string) [][]byte {
	out := make([][]byte, 0, len(keys))
	for _, k := range keys {
		if k != "" {
			out = append(out, []byte(k))
		}
	}
	return out
}

// Allows reports whether key satisfies the given level.
func (k *AccessKeys) Allows(level AuthLevel, key string) bool {
	switch level {
	case AuthLevelAnonymous:
		return true
	case AuthLevelAdmin:
		return matchAny(k.admin, key)
	case AuthLevelFunction:
		return matchAny(k.function, key) || matchAny(k.admin, key)
	default:
		return false
	}
}

func matchAny(keys [][]byte, candidate string) bool {
	if candidate == "" {
		return false
	}
	c := []byte(candidate)
	matched := 0
	for _, k := range keys {
		matched |= subtle.ConstantTimeCompare(k, c)
	}
	return matched == 1
}

// RequireAccess rejects requests whose access key does not satisfy level.
// The key is read from the x-functions-key header, then the code query parameter.
func RequireAccess(level AuthLevel, keys *AccessKeys, logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(FunctionKeyHeader)
		if key == "" {
			key = c.Query(FunctionKeyQuery)
		}

		if !keys.Allows(level, key) {
			logger.Warn("Access key rejected",
				logging.NewField("auth_level", string(level)),
				logging.NewField("path", c.Request.URL.Path),
				logging.NewField("ip", c.ClientIP()),
				logging.NewField("key_present", key != ""),
			)
			appErr := errors.NewUnauthorizedError("A valid access key is required")
			c.AbortWithStatusJSON(http.StatusUnauthorized, appErr.ToErrorResponse())
			return
		}

		c.Next()
	}
}
