package utils

import (
	"github.com/google/uuid"
)

// GenerateUUID generates a new UUID v4.
func GenerateUUID() string {
	return uuid.New().String()
}

// GenerateRequestID generates a request ID for callers that did not send one.
func GenerateRequestID() string {
	return GenerateUUID()
}
