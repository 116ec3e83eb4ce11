package handlers

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const bearerPrefix = "Bearer "

// BearerAuth rejects requests whose Authorization header does not carry the
// configured secret.
func BearerAuth(secret string, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	expected := []byte(secret)

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, bearerPrefix)
		if !ok || secret == "" || subtle.ConstantTimeCompare([]byte(token), expected) != 1 {
			logger.Warn("unauthorized job trigger",
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", c.ClientIP()))
			respondError(c, http.StatusUnauthorized, CodeAuthFailed, "invalid or missing bearer token", "")
			return
		}
		c.Next()
	}
}
