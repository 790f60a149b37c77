package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"repurposer/internal/services"
)

const (
	ContextEmail = "email"
	ContextPlan  = "plan"
	ContextToken = "token"
)

// protectedPrefixes need a token that names an existing account.
var protectedPrefixes = []string{"/generate", "/plan", "/upgrade", "/account", "/logout"}

func isProtectedPath(path string) bool {
	for _, p := range protectedPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// AuthMiddleware guards the protected prefixes. When the request carries an
// email query parameter the token must name it.
func AuthMiddleware(gateway *services.AccessGateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions || !isProtectedPath(c.Request.URL.Path) {
			c.Next()
			return
		}

		token := services.ExtractToken(c.Request.Header)
		ref, err := gateway.Guard(token, c.Query("email"))
		if err != nil {
			Logger(c).WithError(err).Info("[auth][guard] rejected")
			status, msg := StatusFor(err)
			c.AbortWithStatusJSON(status, gin.H{"error": guardMessage(err, msg)})
			return
		}

		c.Set(ContextToken, token)
		c.Set(ContextEmail, ref.Email)
		c.Set(ContextPlan, ref.Plan)
		c.Next()
	}
}

func guardMessage(err error, fallback string) string {
	switch StatusOf(err) {
	case http.StatusUnauthorized:
		return "Missing or invalid auth token"
	case http.StatusForbidden:
		return "Token does not match requested email"
	default:
		return fallback
	}
}
