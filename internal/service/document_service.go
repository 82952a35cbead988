package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"html"
	"io"
	"mime"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/noah-isme/examhub-api/internal/dto"
	"github.com/noah-isme/examhub-api/internal/models"
	appErrors "github.com/noah-isme/examhub-api/pkg/errors"
	"github.com/noah-isme/examhub-api/pkg/storage"
	"github.com/noah-isme/examhub-api/pkg/tracing"
)

const bytesPerMB = 1024 * 1024

// documentStore is the persistence contract for catalog documents.
type documentStore interface {
	Create(ctx context.Context, doc *models.Document) error
	Get(ctx context.Context, id string) (*models.Document, error)
	List(ctx context.Context, statuses ...models.DocumentStatus) ([]models.Document, error)
	SetStatus(ctx context.Context, id string, change models.StatusChange) error
	IncrementDownloads(ctx context.Context, id string) (int64, error)
	AdjustFavorites(ctx context.Context, id string, delta int64) (int64, error)
	SetFavoriteCount(ctx context.Context, id string, count int64) error
	Delete(ctx context.Context, id string) error
}

type levelLookup interface {
	Level(id string) (models.EducationLevel, bool)
}

type uploadStore interface {
	SaveStream(key string, r io.Reader) (int64, error)
	Delete(key string) error
	Path(key string) (string, error)
}

type uploadPresigner interface {
	Bucket() string
	PresignPut(ctx context.Context, key, contentType string) (string, time.Time, error)
}

type linkResolver interface {
	Resolve(ctx context.Context, documentID, raw string) (*storage.Link, error)
}

type fileTokenVerifier interface {
	Verify(token string) (documentID, key string, err error)
}

var textPolicy = bluemonday.StrictPolicy()

// plainText strips markup from user supplied text.
func plainText(s string) string {
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
}

// DocumentServiceOption wires optional file collaborators.
type DocumentServiceOption func(*DocumentService)

// WithUploads enables multipart uploads into local storage.
func WithUploads(store uploadStore, allowedMIMEs []string) DocumentServiceOption {
	return func(s *DocumentService) {
		s.uploads = store
		s.allowedMIMEs = make(map[string]struct{}, len(allowedMIMEs))
		for _, m := range allowedMIMEs {
			if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
				s.allowedMIMEs[m] = struct{}{}
			}
		}
	}
}

// WithPresignedUploads enables direct-to-bucket uploads.
func WithPresignedUploads(presigner uploadPresigner) DocumentServiceOption {
	return func(s *DocumentService) { s.presigner = presigner }
}

// WithFileLinks resolves download links and verifies signed file tokens.
func WithFileLinks(resolver linkResolver, verifier fileTokenVerifier) DocumentServiceOption {
	return func(s *DocumentService) {
		s.links = resolver
		s.verifier = verifier
	}
}

// DocumentService handles submissions, single-document reads and downloads.
type DocumentService struct {
	repo      documentStore
	levels    levelLookup
	effects   *SideEffects
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger

	uploads      uploadStore
	allowedMIMEs map[string]struct{}
	presigner    uploadPresigner
	links        linkResolver
	verifier     fileTokenVerifier
}

// NewDocumentService constructs the service.
func NewDocumentService(repo documentStore, levels levelLookup, effects *SideEffects, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, opts ...DocumentServiceOption) *DocumentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &DocumentService{
		repo:      repo,
		levels:    levels,
		effects:   effects,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create submits a document that already has a stored file. It starts pending.
func (s *DocumentService) Create(ctx context.Context, identity *models.Identity, req dto.CreateDocumentRequest) (*models.Document, error) {
	doc, err := s.prepare(identity, req)
	if err != nil {
		return nil, err
	}
	if _, err := storage.ParseRef(doc.FileRef); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "fileRef is not a supported file reference")
	}
	if err := s.insert(ctx, identity, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Upload stores the file in local storage and submits the document.
func (s *DocumentService) Upload(ctx context.Context, identity *models.Identity, req dto.CreateDocumentRequest, file io.Reader, contentType string) (*models.Document, error) {
	if s.uploads == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file uploads are disabled")
	}
	if !s.mimeAllowed(contentType) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file type is not allowed")
	}
	key := storage.NewKey(req.FileName)
	req.FileRef = storage.LocalRef(key)
	doc, err := s.prepare(identity, req)
	if err != nil {
		return nil, err
	}

	written, err := s.uploads.SaveStream(key, file)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "file exceeds the upload limit")
		}
		return nil, appErrors.Persistence(err, "failed to store upload")
	}
	doc.FileSize = float64(written) / bytesPerMB

	if err := s.insert(ctx, identity, doc); err != nil {
		if rmErr := s.uploads.Delete(key); rmErr != nil {
			s.logger.Warn("failed to clean up orphaned upload", zap.String("key", key), zap.Error(rmErr))
		}
		return nil, err
	}
	return doc, nil
}

// UploadURL returns a presigned PUT target in the configured bucket.
func (s *DocumentService) UploadURL(ctx context.Context, identity *models.Identity, req dto.UploadURLRequest) (*dto.UploadURLResponse, error) {
	if identity == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if s.presigner == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "direct uploads are disabled")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if req.ContentType != "" && !s.mimeAllowed(req.ContentType) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file type is not allowed")
	}
	key := storage.NewKey(req.FileName)
	url, expiresAt, err := s.presigner.PresignPut(ctx, key, req.ContentType)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to presign upload")
	}
	return &dto.UploadURLResponse{
		UploadURL: url,
		FileRef:   storage.S3Ref(s.presigner.Bucket(), key),
		ExpiresAt: expiresAt,
	}, nil
}

// Get returns a document. Documents that are not approved only exist for moderators.
func (s *DocumentService) Get(ctx context.Context, identity *models.Identity, id string) (*models.Document, error) {
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, documentLookupError(err)
	}
	if !doc.Visible() && !canModerate(identity) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
	}
	return doc, nil
}

// AllWhere returns every stored document accepted by the predicate, in storage order.
func (s *DocumentService) AllWhere(ctx context.Context, predicate models.DocumentPredicate) ([]models.Document, error) {
	docs, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to list documents")
	}
	out := make([]models.Document, 0, len(docs))
	for _, doc := range docs {
		if predicate == nil || predicate(doc) {
			out = append(out, doc)
		}
	}
	return out, nil
}

// RecordDownload counts a download and returns where the file can be fetched.
func (s *DocumentService) RecordDownload(ctx context.Context, identity *models.Identity, id string) (result *dto.DownloadResponse, err error) {
	ctx, span := tracing.Start(ctx, "document.download")
	defer func() { tracing.End(span, err) }()

	doc, err := s.Get(ctx, identity, id)
	if err != nil {
		return nil, err
	}

	var link *storage.Link
	if s.links != nil && doc.FileRef != "" {
		link, err = s.links.Resolve(ctx, doc.ID, doc.FileRef)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve document file")
		}
	}

	downloads, err := s.repo.IncrementDownloads(ctx, doc.ID)
	if err != nil {
		return nil, documentLookupError(err)
	}
	doc.Downloads = downloads
	s.metrics.RecordDownload()
	s.cache.InvalidateCatalog(ctx)

	result = &dto.DownloadResponse{Document: *doc}
	if link != nil {
		result.URL = link.URL
		result.ExpiresAt = link.ExpiresAt
	}
	return result, nil
}

// OpenFile checks a signed file token and returns the local path it grants access to.
func (s *DocumentService) OpenFile(ctx context.Context, token string) (string, *models.Document, error) {
	if s.verifier == nil || s.uploads == nil {
		return "", nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
	}
	documentID, key, err := s.verifier.Verify(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return "", nil, appErrors.Clone(appErrors.ErrForbidden, "download link expired")
		}
		return "", nil, appErrors.Clone(appErrors.ErrForbidden, "invalid download link")
	}
	doc, err := s.repo.Get(ctx, documentID)
	if err != nil {
		return "", nil, documentLookupError(err)
	}
	ref, err := storage.ParseRef(doc.FileRef)
	if err != nil || ref.Scheme != storage.SchemeLocal || ref.Key != key {
		return "", nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
	}
	path, err := s.uploads.Path(key)
	if err != nil {
		return "", nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
	}
	return path, doc, nil
}

func (s *DocumentService) prepare(identity *models.Identity, req dto.CreateDocumentRequest) (*models.Document, error) {
	if identity == nil {
		return nil, appErrors.ErrUnauthorized
	}
	req.Title = plainText(req.Title)
	req.Description = plainText(req.Description)
	req.Classe = strings.TrimSpace(req.Classe)
	req.Matiere = strings.TrimSpace(req.Matiere)
	req.LevelID = strings.TrimSpace(req.LevelID)
	req.FileName = strings.TrimSpace(req.FileName)
	req.FileRef = strings.TrimSpace(req.FileRef)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if s.levels != nil {
		if _, ok := s.levels.Level(req.LevelID); !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown education level %q", req.LevelID))
		}
	}
	return &models.Document{
		Title:       req.Title,
		Description: req.Description,
		Classe:      req.Classe,
		Matiere:     req.Matiere,
		LevelID:     req.LevelID,
		FileName:    req.FileName,
		FileSize:    req.FileSize,
		FileRef:     req.FileRef,
		Uploader:    models.Uploader{ID: identity.ID, Name: identity.Name},
	}, nil
}

func (s *DocumentService) insert(ctx context.Context, identity *models.Identity, doc *models.Document) error {
	if err := s.repo.Create(ctx, doc); err != nil {
		return appErrors.Persistence(err, "failed to create document")
	}
	s.metrics.RecordDocumentCreated()
	s.effects.Audit(ctx, &models.AuditLog{
		UserID:     &identity.ID,
		Action:     models.AuditActionDocumentCreate,
		Resource:   "document",
		ResourceID: &doc.ID,
		NewValues:  auditPayload(doc),
	})
	s.logger.Info("document submitted", zap.String("document_id", doc.ID), zap.String("uploader_id", identity.ID))
	return nil
}

func (s *DocumentService) mimeAllowed(contentType string) bool {
	if len(s.allowedMIMEs) == 0 {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	_, ok := s.allowedMIMEs[strings.ToLower(mediaType)]
	return ok
}

func canModerate(identity *models.Identity) bool {
	return identity != nil && identity.CanModerate
}

func documentLookupError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "document not found")
	}
	return appErrors.Persistence(err, "failed to load document")
}
