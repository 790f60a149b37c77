package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"repurposer/internal/services"
)

// RequireAdminKey rejects requests whose X-Admin-Key does not match the
// configured key. With no key configured every request is rejected.
func RequireAdminKey(gateway *services.AccessGateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		if err := gateway.CheckAdminKey(c.GetHeader(services.HeaderAdminKey)); err != nil {
			Logger(c).Warn("[admin][guard] admin key rejected")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin key required"})
			return
		}
		c.Next()
	}
}
