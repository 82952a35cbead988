package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/noah-isme/examhub-api/internal/models"
	appErrors "github.com/noah-isme/examhub-api/pkg/errors"
	"github.com/noah-isme/examhub-api/pkg/tracing"
)

// Moderation actions as reported to metrics and logs.
const (
	ModerationApprove = "approve"
	ModerationReject  = "reject"
	ModerationDelete  = "delete"
)

type moderationDocuments interface {
	Get(ctx context.Context, id string) (*models.Document, error)
	List(ctx context.Context, statuses ...models.DocumentStatus) ([]models.Document, error)
	SetStatus(ctx context.Context, id string, change models.StatusChange) error
	Delete(ctx context.Context, id string) error
}

type favoritePurger interface {
	PurgeDocument(ctx context.Context, documentID string) (int64, error)
}

type auditReader interface {
	ListByResource(ctx context.Context, resource, resourceID string, limit int) ([]models.AuditLog, error)
}

// ModerationService drives the document lifecycle: pending documents are
// approved or rejected exactly once, any document can be deleted.
type ModerationService struct {
	docs      moderationDocuments
	favorites favoritePurger
	effects   *SideEffects
	history   auditReader
	cache     *CacheService
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
}

// NewModerationService constructs the service.
func NewModerationService(docs moderationDocuments, favorites favoritePurger, effects *SideEffects, history auditReader, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *ModerationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModerationService{
		docs:      docs,
		favorites: favorites,
		effects:   effects,
		history:   history,
		cache:     cache,
		metrics:   metrics,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Queue lists documents awaiting review, oldest submission first.
func (s *ModerationService) Queue(ctx context.Context, identity *models.Identity) ([]models.Document, error) {
	if err := requireModerator(identity); err != nil {
		return nil, err
	}
	docs, err := s.docs.List(ctx, models.DocumentStatusPending)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to load moderation queue")
	}
	return docs, nil
}

// Approve publishes a pending document.
func (s *ModerationService) Approve(ctx context.Context, identity *models.Identity, id string) (*models.Document, error) {
	return s.transition(ctx, identity, id, ModerationApprove, func(now time.Time) models.StatusChange {
		return models.StatusChange{Status: models.DocumentStatusApproved, ApprovedAt: &now}
	})
}

// Reject refuses a pending document with an optional reason. A missing reason
// is stored as an empty string.
func (s *ModerationService) Reject(ctx context.Context, identity *models.Identity, id string, reason *string) (*models.Document, error) {
	cleaned := new(string)
	if reason != nil {
		*cleaned = plainText(*reason)
	}
	return s.transition(ctx, identity, id, ModerationReject, func(now time.Time) models.StatusChange {
		return models.StatusChange{Status: models.DocumentStatusRejected, RejectedAt: &now, RejectionReason: cleaned}
	})
}

// Delete removes a document in any state together with its favorites and stored file.
func (s *ModerationService) Delete(ctx context.Context, identity *models.Identity, id string) (err error) {
	ctx, span := tracing.Start(ctx, "moderation.delete", attribute.String("document.id", id))
	defer func() {
		tracing.End(span, err)
		s.metrics.RecordModeration(ModerationDelete, outcomeOf(err))
	}()

	if err := requireModerator(identity); err != nil {
		return err
	}
	doc, err := s.docs.Get(ctx, id)
	if err != nil {
		return documentLookupError(err)
	}
	if err := s.docs.Delete(ctx, doc.ID); err != nil {
		return documentLookupError(err)
	}
	s.cache.InvalidateCatalog(ctx)

	purged, err := s.favorites.PurgeDocument(ctx, doc.ID)
	if err != nil {
		s.logger.Error("document deleted but favorites remain", zap.String("document_id", doc.ID), zap.Error(err))
		return err
	}
	s.effects.RemoveFile(ctx, doc.FileRef)
	s.effects.Audit(ctx, &models.AuditLog{
		UserID:     &identity.ID,
		Action:     models.AuditActionDocumentDelete,
		Resource:   "document",
		ResourceID: &doc.ID,
		OldValues:  auditPayload(doc),
	})
	s.logger.Info("document deleted", zap.String("document_id", doc.ID), zap.String("moderator_id", identity.ID), zap.Int64("favorites_purged", purged))
	return nil
}

// History returns the audit trail of one document, newest first.
func (s *ModerationService) History(ctx context.Context, identity *models.Identity, id string, limit int) ([]models.AuditLog, error) {
	if err := requireModerator(identity); err != nil {
		return nil, err
	}
	if s.history == nil {
		return []models.AuditLog{}, nil
	}
	logs, err := s.history.ListByResource(ctx, "document", id, limit)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to load document history")
	}
	return logs, nil
}

func (s *ModerationService) transition(ctx context.Context, identity *models.Identity, id, action string, build func(time.Time) models.StatusChange) (doc *models.Document, err error) {
	ctx, span := tracing.Start(ctx, "moderation."+action, attribute.String("document.id", id))
	defer func() {
		tracing.End(span, err)
		s.metrics.RecordModeration(action, outcomeOf(err))
	}()

	if err := requireModerator(identity); err != nil {
		return nil, err
	}
	doc, err = s.docs.Get(ctx, id)
	if err != nil {
		return nil, documentLookupError(err)
	}
	if doc.Status != models.DocumentStatusPending {
		return nil, notPending(doc.Status)
	}

	previous := *doc
	change := build(s.now())
	if err := s.docs.SetStatus(ctx, doc.ID, change); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Persistence(err, "failed to update document status")
		}
		// lost a race: report whatever the document became
		current, getErr := s.docs.Get(ctx, doc.ID)
		if getErr != nil {
			return nil, documentLookupError(getErr)
		}
		return nil, notPending(current.Status)
	}

	doc.Status = change.Status
	doc.ApprovedAt = change.ApprovedAt
	doc.RejectedAt = change.RejectedAt
	doc.RejectionReason = change.RejectionReason
	s.cache.InvalidateCatalog(ctx)

	auditAction := models.AuditActionDocumentApprove
	if change.Status == models.DocumentStatusRejected {
		auditAction = models.AuditActionDocumentReject
	}
	s.effects.Audit(ctx, &models.AuditLog{
		UserID:     &identity.ID,
		Action:     auditAction,
		Resource:   "document",
		ResourceID: &doc.ID,
		OldValues:  auditPayload(map[string]models.DocumentStatus{"status": previous.Status}),
		NewValues:  auditPayload(change),
	})
	s.logger.Info("document moderated",
		zap.String("document_id", doc.ID),
		zap.String("action", action),
		zap.String("moderator_id", identity.ID),
	)
	return doc, nil
}

func notPending(current models.DocumentStatus) error {
	return appErrors.InvalidTransition(string(current), "document is not pending review")
}

func requireModerator(identity *models.Identity) error {
	if identity == nil {
		return appErrors.ErrUnauthorized
	}
	if !identity.CanModerate {
		return appErrors.Clone(appErrors.ErrForbidden, "moderator role required")
	}
	return nil
}

func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	return appErrors.FromError(err).Code
}
