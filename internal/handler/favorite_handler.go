package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/examhub-api/internal/models"
	"github.com/noah-isme/examhub-api/pkg/response"
)

type favoriteService interface {
	IsFavorited(ctx context.Context, identity *models.Identity, documentID string) (bool, error)
	Toggle(ctx context.Context, identity *models.Identity, documentID string) (*models.FavoriteState, error)
	ListForUser(ctx context.Context, identity *models.Identity) ([]models.Document, error)
}

// FavoriteHandler manages the caller's bookmarks.
type FavoriteHandler struct {
	service favoriteService
}

// NewFavoriteHandler builds a new handler.
func NewFavoriteHandler(service favoriteService) *FavoriteHandler {
	return &FavoriteHandler{service: service}
}

// List godoc
// @Summary List favorite documents
// @Tags Favorites
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /favorites [get]
func (h *FavoriteHandler) List(c *gin.Context) {
	docs, err := h.service.ListForUser(c.Request.Context(), identityFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, docs)
}

// Status godoc
// @Summary Check whether a document is a favorite
// @Tags Favorites
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Router /favorites/{id} [get]
func (h *FavoriteHandler) Status(c *gin.Context) {
	id := c.Param("id")
	favorited, err := h.service.IsFavorited(c.Request.Context(), identityFromContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"documentId": id, "favorited": favorited}, nil)
}

// Toggle godoc
// @Summary Add or remove a favorite
// @Tags Favorites
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /favorites/{id}/toggle [post]
func (h *FavoriteHandler) Toggle(c *gin.Context) {
	state, err := h.service.Toggle(c.Request.Context(), identityFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, state)
}
