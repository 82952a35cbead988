package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/examhub-api/internal/dto"
	"github.com/noah-isme/examhub-api/internal/models"
	appErrors "github.com/noah-isme/examhub-api/pkg/errors"
	"github.com/noah-isme/examhub-api/pkg/response"
)

type catalogService interface {
	List(ctx context.Context, query dto.CatalogQuery) (*dto.CatalogPage, error)
	Search(ctx context.Context, query dto.SearchQuery) (*dto.SearchPage, error)
	AdminList(ctx context.Context, identity *models.Identity, query dto.CatalogQuery) (*dto.CatalogPage, error)
}

// CatalogHandler serves catalog listings and search.
type CatalogHandler struct {
	service catalogService
}

// NewCatalogHandler builds a new handler.
func NewCatalogHandler(service catalogService) *CatalogHandler {
	return &CatalogHandler{service: service}
}

// List godoc
// @Summary List approved documents
// @Tags Catalog
// @Produce json
// @Param classe query string false "Class"
// @Param matiere query string false "Subject"
// @Param sort query string false "recent, popular or favorites"
// @Param search query string false "Substring search"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Param sig query string false "Signature of the view being paged"
// @Success 200 {object} response.Envelope
// @Router /documents [get]
func (h *CatalogHandler) List(c *gin.Context) {
	var query dto.CatalogQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	page, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, page.Items, page.Pagination, listMeta(c, page.Signature, page.CacheHit))
}

// Search godoc
// @Summary Ranked free-text search
// @Tags Catalog
// @Produce json
// @Param q query string false "Search term"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Param sig query string false "Signature of the view being paged"
// @Success 200 {object} response.Envelope
// @Router /documents/search [get]
func (h *CatalogHandler) Search(c *gin.Context) {
	var query dto.SearchQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	page, err := h.service.Search(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, page.Items, page.Pagination, listMeta(c, page.Signature, page.CacheHit))
}

// AdminList godoc
// @Summary List documents of every status
// @Tags Moderation
// @Produce json
// @Param status query string false "pending, approved or rejected"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/documents [get]
func (h *CatalogHandler) AdminList(c *gin.Context) {
	var query dto.CatalogQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	page, err := h.service.AdminList(c.Request.Context(), identityFromContext(c), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, page.Items, page.Pagination, listMeta(c, page.Signature, false))
}
