package middleware

import (
	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/examhub-api/pkg/errors"
	"github.com/noah-isme/examhub-api/pkg/response"
)

// RequireModerator lets through callers whose token grants moderation rights.
// Services check the same capability again.
func RequireModerator() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := Identity(c)
		if identity == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if !identity.CanModerate {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "moderator role required"))
			c.Abort()
			return
		}
		c.Next()
	}
}
