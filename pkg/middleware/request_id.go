package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/prohmpiriya/event-registration/pkg/logger"
)

// HeaderRequestID carries the request id in both directions
const HeaderRequestID = "X-Request-ID"

const contextKeyRequestID = "request_id"

// RequestID reuses the caller's X-Request-ID or generates one, echoes it in
// the response and stores it for loggers reading the request context
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > 128 {
			id = uuid.New().String()
		}

		c.Set(contextKeyRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), logger.RequestIDKey, id))

		c.Next()
	}
}

// GetRequestID returns the request id set by RequestID
func GetRequestID(c *gin.Context) string {
	if v, exists := c.Get(contextKeyRequestID); exists {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return c.GetHeader(HeaderRequestID)
}
