package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/speechrelay/internal/models"
	"github.com/yoockh/speechrelay/internal/utils"
)

// RequireRole lets the request through only when JWTAuth put one of roles on it.
func RequireRole(roles ...models.UserRole) gin.HandlerFunc {
	allow := make(map[models.UserRole]bool, len(roles))
	for _, r := range roles {
		allow[r] = true
	}

	return func(c *gin.Context) {
		role := models.UserRole(c.GetString("role"))
		if !allow[role] {
			c.AbortWithStatusJSON(http.StatusForbidden, apiError{
				Code:    utils.CodeForbidden,
				Message: "forbidden",
			})
			return
		}
		c.Next()
	}
}

func RequireAdmin() gin.HandlerFunc { return RequireRole(models.RoleAdmin) }
