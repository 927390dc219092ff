package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/siteflow/siteflow/internal/models"
	"github.com/siteflow/siteflow/pkg/response"
)

// RequireRoles limits a route to the given roles. ADMIN is always allowed.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	allowed := append([]models.Role{models.RoleAdmin}, roles...)
	return func(c *gin.Context) {
		p, ok := principalFrom(c)
		if !ok {
			response.Error(c, response.NewUnauthorized("authentication required"))
			return
		}
		if !p.Allowed(allowed...) {
			response.Error(c, response.NewForbidden(fmt.Sprintf("Role %s is not allowed here", p.Role)))
			return
		}
		c.Next()
	}
}

// AdminRequired is RequireRoles with no extra roles.
func AdminRequired() gin.HandlerFunc {
	return RequireRoles()
}
