package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hostbay/sitehost-api/internal/handler"
)

// Timeout bounds request handling so no storage call can stall a
// request indefinitely.
func Timeout(duration time.Duration) gin.HandlerFunc {
	if duration <= 0 {
		duration = 30 * time.Second
	}

	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), duration)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		if ctx.Err() == context.DeadlineExceeded && !c.Writer.Written() {
			c.AbortWithStatusJSON(http.StatusGatewayTimeout,
				handler.NewErrorResponse("request timeout"))
		}
	}
}
