package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/coursehub-backend/internal/access"
	"github.com/stemsi/coursehub-backend/internal/response"
)

// RequireAction rejects principals the guard does not allow to perform
// action. Only suitable for actions that carry no resource; ownership checks
// happen in the services once the resource is loaded.
func RequireAction(guard *access.Guard, action access.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := GetPrincipal(c)
		if !ok {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		if err := guard.Authorize(p, action, access.Resource{}); err != nil {
			response.AbortError(c, err)
			return
		}
		c.Next()
	}
}
