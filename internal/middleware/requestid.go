package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"signage/internal/models"
	"signage/internal/services"
)

const HeaderRequestID = "X-Request-Id"

// RequestID propagates or assigns a request id and records client details
// on the request context for audit entries.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(HeaderRequestID, id)

		ctx := services.WithRequestMeta(c.Request.Context(), models.RequestMeta{
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func RequestIDFrom(c *gin.Context) string {
	return c.GetString("request_id")
}
