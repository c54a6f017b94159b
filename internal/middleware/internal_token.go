package middleware

import (
	"crypto/subtle"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"servicehub/internal/pkg/response"
)

// InternalTokenAuth protects internal endpoints using a static bearer token.
// An empty allowedIPs list accepts any client address.
func InternalTokenAuth(token string, allowedIPs []string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(allowedIPs) > 0 && !slices.Contains(allowedIPs, c.ClientIP()) {
			logAuthFailure(c, logger, http.StatusForbidden, "ip_not_allowed")
			response.Abort(c, http.StatusForbidden, "AUTH_INVALID", "IP not allowed")
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logAuthFailure(c, logger, http.StatusUnauthorized, "missing_auth")
			response.Abort(c, http.StatusUnauthorized, "AUTH_MISSING", "Authorization header is required")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			logAuthFailure(c, logger, http.StatusUnauthorized, "invalid_auth_format")
			response.Abort(c, http.StatusUnauthorized, "AUTH_INVALID", "Authorization header must be 'Bearer <token>'")
			return
		}

		if token == "" {
			logAuthFailure(c, logger, http.StatusInternalServerError, "token_not_configured")
			response.Abort(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal token is not configured")
			return
		}

		if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(token)) != 1 {
			logAuthFailure(c, logger, http.StatusForbidden, "invalid_token")
			response.Abort(c, http.StatusForbidden, "AUTH_INVALID", "Invalid internal token")
			return
		}

		c.Next()
	}
}

func logAuthFailure(c *gin.Context, logger *zap.Logger, status int, reason string) {
	logger.Warn("Internal auth failed",
		zap.Int("status", status),
		zap.String("request_id", requestID(c)),
		zap.String("client_ip", c.ClientIP()),
		zap.String("reason", reason),
	)
}
