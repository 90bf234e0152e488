package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hostbay/sitehost-api/internal/handler"
)

// MaxBodySize caps API request bodies. Every payload this service
// accepts is a small JSON document; anything near the cap is abuse.
const MaxBodySize = 64 << 10

// BodyLimit rejects oversized requests up front and hard-caps the
// reader for chunked bodies that carry no Content-Length.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge,
				handler.NewErrorResponse("request body too large"))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
