package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/examhub-api/internal/middleware"
	"github.com/noah-isme/examhub-api/internal/models"
)

func identityFromContext(c *gin.Context) *models.Identity {
	return middleware.Identity(c)
}

// listMeta merges the request meta with the view signature of a listing.
func listMeta(c *gin.Context, signature string, cacheHit bool) map[string]interface{} {
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["signature"] = signature
	return meta
}
