package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// CacheControl sets the Cache-Control header for static assets. Uploaded
// media files get UUID filenames and never change, so responses are marked
// immutable.
func CacheControl(maxAgeSeconds int) gin.HandlerFunc {
	value := "public, max-age=" + strconv.Itoa(maxAgeSeconds) + ", immutable"
	return func(c *gin.Context) {
		c.Header("Cache-Control", value)
		c.Next()
	}
}
