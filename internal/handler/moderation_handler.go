package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/examhub-api/internal/dto"
	"github.com/noah-isme/examhub-api/internal/models"
	appErrors "github.com/noah-isme/examhub-api/pkg/errors"
	"github.com/noah-isme/examhub-api/pkg/response"
)

const defaultHistoryLimit = 50

type moderationService interface {
	Queue(ctx context.Context, identity *models.Identity) ([]models.Document, error)
	Approve(ctx context.Context, identity *models.Identity, id string) (*models.Document, error)
	Reject(ctx context.Context, identity *models.Identity, id string, reason *string) (*models.Document, error)
	Delete(ctx context.Context, identity *models.Identity, id string) error
	History(ctx context.Context, identity *models.Identity, id string, limit int) ([]models.AuditLog, error)
}

type favoriteReconciler interface {
	Reconcile(ctx context.Context, identity *models.Identity, documentID string) (*models.FavoriteReconciliation, error)
}

// ModerationHandler exposes the review workflow for moderators.
type ModerationHandler struct {
	service    moderationService
	reconciler favoriteReconciler
}

// NewModerationHandler builds a new handler.
func NewModerationHandler(service moderationService, reconciler favoriteReconciler) *ModerationHandler {
	return &ModerationHandler{service: service, reconciler: reconciler}
}

// Queue godoc
// @Summary List documents awaiting review
// @Tags Moderation
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/moderation/queue [get]
func (h *ModerationHandler) Queue(c *gin.Context) {
	docs, err := h.service.Queue(c.Request.Context(), identityFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, docs, nil, map[string]interface{}{"count": len(docs)})
}

// Approve godoc
// @Summary Approve a pending document
// @Tags Moderation
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/documents/{id}/approve [post]
func (h *ModerationHandler) Approve(c *gin.Context) {
	doc, err := h.service.Approve(c.Request.Context(), identityFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, doc)
}

// Reject godoc
// @Summary Reject a pending document
// @Tags Moderation
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param payload body dto.RejectDocumentRequest false "Rejection reason"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/documents/{id}/reject [post]
func (h *ModerationHandler) Reject(c *gin.Context) {
	var req dto.RejectDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid rejection payload"))
		return
	}
	doc, err := h.service.Reject(c.Request.Context(), identityFromContext(c), c.Param("id"), req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, doc)
}

// Delete godoc
// @Summary Delete a document
// @Tags Moderation
// @Param id path string true "Document ID"
// @Success 204
// @Router /admin/documents/{id} [delete]
func (h *ModerationHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), identityFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Reconcile godoc
// @Summary Reset a favorite counter to the ledger count
// @Tags Moderation
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Router /admin/documents/{id}/favorites/reconcile [post]
func (h *ModerationHandler) Reconcile(c *gin.Context) {
	result, err := h.reconciler.Reconcile(c.Request.Context(), identityFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// History godoc
// @Summary Audit trail of a document
// @Tags Moderation
// @Produce json
// @Param id path string true "Document ID"
// @Param limit query int false "Maximum entries"
// @Success 200 {object} response.Envelope
// @Router /admin/documents/{id}/audit [get]
func (h *ModerationHandler) History(c *gin.Context) {
	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "limit must be a positive integer"))
			return
		}
		limit = parsed
	}
	logs, err := h.service.History(c.Request.Context(), identityFromContext(c), c.Param("id"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, logs)
}
