package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ehevelone/vitalink-app/internal/infra/logger"
)

const requestIDHeader = "X-Request-ID"

// RequestID tags each request with a correlation id, honoring one supplied by
// the caller so the admin SPA can stitch its own traces to server logs. The
// id is echoed in the response header and stored on the request context for
// logger.WithContext.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}

		c.Writer.Header().Set(requestIDHeader, id)
		c.Request = c.Request.WithContext(
			context.WithValue(c.Request.Context(), logger.RequestIDKey{}, id),
		)

		c.Next()
	}
}
