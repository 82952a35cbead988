package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/examhub-api/internal/dto"
	"github.com/noah-isme/examhub-api/internal/models"
	appErrors "github.com/noah-isme/examhub-api/pkg/errors"
	"github.com/noah-isme/examhub-api/pkg/response"
)

const multipartOverhead = 1 << 20

type documentService interface {
	Create(ctx context.Context, identity *models.Identity, req dto.CreateDocumentRequest) (*models.Document, error)
	Upload(ctx context.Context, identity *models.Identity, req dto.CreateDocumentRequest, file io.Reader, contentType string) (*models.Document, error)
	UploadURL(ctx context.Context, identity *models.Identity, req dto.UploadURLRequest) (*dto.UploadURLResponse, error)
	Get(ctx context.Context, identity *models.Identity, id string) (*models.Document, error)
	RecordDownload(ctx context.Context, identity *models.Identity, id string) (*dto.DownloadResponse, error)
	OpenFile(ctx context.Context, token string) (string, *models.Document, error)
}

// DocumentHandler exposes submission, detail and download endpoints.
type DocumentHandler struct {
	service        documentService
	maxUploadBytes int64
}

// NewDocumentHandler builds a new handler. maxUploadBytes <= 0 leaves request bodies unbounded.
func NewDocumentHandler(service documentService, maxUploadBytes int64) *DocumentHandler {
	return &DocumentHandler{service: service, maxUploadBytes: maxUploadBytes}
}

// Get godoc
// @Summary Get document
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Router /documents/{id} [get]
func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.service.Get(c.Request.Context(), identityFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, doc)
}

// Create godoc
// @Summary Submit document metadata
// @Tags Documents
// @Accept json
// @Produce json
// @Param payload body dto.CreateDocumentRequest true "Document payload"
// @Success 201 {object} response.Envelope
// @Router /documents [post]
func (h *DocumentHandler) Create(c *gin.Context) {
	var req dto.CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid document payload"))
		return
	}
	doc, err := h.service.Create(c.Request.Context(), identityFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, doc)
}

// Upload godoc
// @Summary Upload a document file
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Document file"
// @Param title formData string true "Title"
// @Param classe formData string true "Class"
// @Param matiere formData string true "Subject"
// @Param levelId formData string true "Education level"
// @Success 201 {object} response.Envelope
// @Router /documents/upload [post]
func (h *DocumentHandler) Upload(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+multipartOverhead)
	}
	var req dto.CreateDocumentRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid upload form"))
		return
	}
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	defer file.Close()
	if req.FileName == "" {
		req.FileName = header.Filename
	}

	doc, err := h.service.Upload(c.Request.Context(), identityFromContext(c), req, file, header.Header.Get("Content-Type"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, doc)
}

// UploadURL godoc
// @Summary Presign a direct upload
// @Tags Documents
// @Accept json
// @Produce json
// @Param payload body dto.UploadURLRequest true "Upload request"
// @Success 200 {object} response.Envelope
// @Router /documents/upload-url [post]
func (h *DocumentHandler) UploadURL(c *gin.Context) {
	var req dto.UploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid upload request"))
		return
	}
	res, err := h.service.UploadURL(c.Request.Context(), identityFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}

// Download godoc
// @Summary Record a download and resolve the file link
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Router /documents/{id}/download [post]
func (h *DocumentHandler) Download(c *gin.Context) {
	res, err := h.service.RecordDownload(c.Request.Context(), identityFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}

// ServeFile streams a locally stored file behind a signed token.
func (h *DocumentHandler) ServeFile(c *gin.Context) {
	path, doc, err := h.service.OpenFile(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Cache-Control", "private, max-age=300")
	c.FileAttachment(path, doc.FileName)
}
