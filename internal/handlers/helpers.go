package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"repurposer/internal/middleware"
	"repurposer/internal/services"
)

// respondError writes the status and message for a service error.
func respondError(c *gin.Context, err error) {
	status, msg := middleware.StatusFor(err)
	entry := middleware.Logger(c).WithError(err).WithField("status", status)
	if status >= 500 {
		entry.Error("[http] request failed")
	} else {
		entry.Debug("[http] request rejected")
	}
	c.JSON(status, gin.H{"error": msg})
}

func message(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"message": msg})
}

// tokenFromCtx prefers the token the auth middleware already extracted.
func tokenFromCtx(c *gin.Context) string {
	if v, ok := c.Get(middleware.ContextToken); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return services.ExtractToken(c.Request.Header)
}

// bindJSON decodes and validates the body. Binding tag failures are reported
// like service validation errors.
func bindJSON(c *gin.Context, dst any) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}
	if verr := services.ValidationFromBinding(err); errors.Is(verr, services.ErrValidation) {
		respondError(c, verr)
		return false
	}
	middleware.Logger(c).WithError(err).Info("[http] bad request: bind json failed")
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
	return false
}
