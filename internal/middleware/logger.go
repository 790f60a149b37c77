package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	HeaderRequestID = "X-Request-ID"
	contextLogger   = "logger"
)

// RequestLogger tags each request with an id and logs one line when it ends.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(HeaderRequestID, id)

		entry := logrus.WithField("request_id", id)
		c.Set(contextLogger, entry)

		c.Next()

		entry.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"took_ms": time.Since(start).Milliseconds(),
		}).Info("[http] request")
	}
}

// Logger returns the request-scoped entry, or the standard logger outside a
// request.
func Logger(c *gin.Context) *logrus.Entry {
	if v, ok := c.Get(contextLogger); ok {
		if e, ok := v.(*logrus.Entry); ok {
			return e
		}
	}
	return logrus.NewEntry(logrus.StandardLogger())
}
