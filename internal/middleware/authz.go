package middleware

import (
	"github.com/gin-gonic/gin"

	"signage/internal/apperr"
	"signage/internal/authz"
)

// RequireRole lets through callers whose role is min or higher.
func RequireRole(min authz.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := CallerFrom(c)
		if !ok {
			Abort(c, apperr.ErrUnauthorized)
			return
		}
		if !caller.Role.AtLeast(min) {
			Abort(c, apperr.New(apperr.ErrForbidden, "Insufficient permissions"))
			return
		}
		c.Next()
	}
}
