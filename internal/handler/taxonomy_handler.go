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

type taxonomyService interface {
	Levels() []models.EducationLevel
	Level(id string) (models.EducationLevel, bool)
	AddClass(ctx context.Context, levelID, value string) error
	AddSubject(ctx context.Context, levelID, value string) error
	RenameClass(ctx context.Context, levelID, oldValue, newValue string) error
	RenameSubject(ctx context.Context, levelID, oldValue, newValue string) error
	RemoveClass(ctx context.Context, levelID, value string) error
	RemoveSubject(ctx context.Context, levelID, value string) error
}

// TaxonomyHandler serves the education level hierarchy and its admin edits.
type TaxonomyHandler struct {
	service taxonomyService
}

// NewTaxonomyHandler builds a new handler.
func NewTaxonomyHandler(service taxonomyService) *TaxonomyHandler {
	return &TaxonomyHandler{service: service}
}

// Levels godoc
// @Summary List education levels
// @Tags Taxonomy
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /taxonomy [get]
func (h *TaxonomyHandler) Levels(c *gin.Context) {
	response.OK(c, h.service.Levels())
}

// Level godoc
// @Summary Get one education level
// @Tags Taxonomy
// @Produce json
// @Param id path string true "Level ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /taxonomy/levels/{id} [get]
func (h *TaxonomyHandler) Level(c *gin.Context) {
	level, ok := h.service.Level(c.Param("id"))
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "education level not found"))
		return
	}
	response.OK(c, level)
}

// AddClass godoc
// @Summary Add a class to a level
// @Tags Taxonomy
// @Accept json
// @Produce json
// @Param id path string true "Level ID"
// @Param payload body dto.TaxonomyValueRequest true "Class"
// @Success 200 {object} response.Envelope
// @Router /admin/taxonomy/levels/{id}/classes [post]
func (h *TaxonomyHandler) AddClass(c *gin.Context) {
	h.add(c, h.service.AddClass)
}

// AddSubject godoc
// @Summary Add a subject to a level
// @Tags Taxonomy
// @Accept json
// @Produce json
// @Param id path string true "Level ID"
// @Param payload body dto.TaxonomyValueRequest true "Subject"
// @Success 200 {object} response.Envelope
// @Router /admin/taxonomy/levels/{id}/subjects [post]
func (h *TaxonomyHandler) AddSubject(c *gin.Context) {
	h.add(c, h.service.AddSubject)
}

// RenameClass godoc
// @Summary Rename a class in a level
// @Tags Taxonomy
// @Accept json
// @Produce json
// @Param id path string true "Level ID"
// @Param value path string true "Current class"
// @Param payload body dto.RenameTaxonomyValueRequest true "New name"
// @Success 200 {object} response.Envelope
// @Router /admin/taxonomy/levels/{id}/classes/{value} [put]
func (h *TaxonomyHandler) RenameClass(c *gin.Context) {
	h.rename(c, h.service.RenameClass)
}

// RenameSubject godoc
// @Summary Rename a subject in a level
// @Tags Taxonomy
// @Accept json
// @Produce json
// @Param id path string true "Level ID"
// @Param value path string true "Current subject"
// @Param payload body dto.RenameTaxonomyValueRequest true "New name"
// @Success 200 {object} response.Envelope
// @Router /admin/taxonomy/levels/{id}/subjects/{value} [put]
func (h *TaxonomyHandler) RenameSubject(c *gin.Context) {
	h.rename(c, h.service.RenameSubject)
}

// RemoveClass godoc
// @Summary Remove a class from a level
// @Tags Taxonomy
// @Produce json
// @Param id path string true "Level ID"
// @Param value path string true "Class"
// @Success 200 {object} response.Envelope
// @Router /admin/taxonomy/levels/{id}/classes/{value} [delete]
func (h *TaxonomyHandler) RemoveClass(c *gin.Context) {
	h.remove(c, h.service.RemoveClass)
}

// RemoveSubject godoc
// @Summary Remove a subject from a level
// @Tags Taxonomy
// @Produce json
// @Param id path string true "Level ID"
// @Param value path string true "Subject"
// @Success 200 {object} response.Envelope
// @Router /admin/taxonomy/levels/{id}/subjects/{value} [delete]
func (h *TaxonomyHandler) RemoveSubject(c *gin.Context) {
	h.remove(c, h.service.RemoveSubject)
}

func (h *TaxonomyHandler) add(c *gin.Context, apply func(ctx context.Context, levelID, value string) error) {
	var req dto.TaxonomyValueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid taxonomy payload"))
		return
	}
	levelID := c.Param("id")
	if err := apply(c.Request.Context(), levelID, req.Value); err != nil {
		response.Error(c, err)
		return
	}
	h.respondLevel(c, levelID)
}

func (h *TaxonomyHandler) rename(c *gin.Context, apply func(ctx context.Context, levelID, oldValue, newValue string) error) {
	var req dto.RenameTaxonomyValueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid taxonomy payload"))
		return
	}
	levelID := c.Param("id")
	if err := apply(c.Request.Context(), levelID, c.Param("value"), req.NewValue); err != nil {
		response.Error(c, err)
		return
	}
	h.respondLevel(c, levelID)
}

func (h *TaxonomyHandler) remove(c *gin.Context, apply func(ctx context.Context, levelID, value string) error) {
	levelID := c.Param("id")
	if err := apply(c.Request.Context(), levelID, c.Param("value")); err != nil {
		response.Error(c, err)
		return
	}
	h.respondLevel(c, levelID)
}

func (h *TaxonomyHandler) respondLevel(c *gin.Context, levelID string) {
	level, ok := h.service.Level(levelID)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "education level not found"))
		return
	}
	response.OK(c, level)
}
