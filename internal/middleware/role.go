package middleware

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"servicehub/internal/pkg/jwt"
	"servicehub/internal/pkg/response"
)

// RequireRole lets the request through only if the token role is one of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString("role")
		if role == "" {
			response.Abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Role not found in token")
			return
		}

		if !slices.Contains(roles, role) {
			response.Abort(c, http.StatusForbidden, "FORBIDDEN", "Access denied: insufficient permissions")
			return
		}

		c.Next()
	}
}

func AdminOnly() gin.HandlerFunc {
	return RequireRole(jwt.RoleAdmin)
}

func WorkerOnly() gin.HandlerFunc {
	return RequireRole(jwt.RoleWorker)
}

func CustomerOnly() gin.HandlerFunc {
	return RequireRole(jwt.RoleCustomer)
}
