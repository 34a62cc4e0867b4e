package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/site-requisition-api/internal/models"
	appErrors "github.com/noah-isme/site-requisition-api/pkg/errors"
	"github.com/noah-isme/site-requisition-api/pkg/response"
)

// RequireRoles enforces role-based access control for routes. ADMIN passes
// every check.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles)+1)
	allowed[models.RoleAdmin] = struct{}{}
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims, ok := claimsValue.(*models.JWTClaims)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
