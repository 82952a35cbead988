package service

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/examhub-api/internal/models"
	appErrors "github.com/noah-isme/examhub-api/pkg/errors"
)

type favoriteLedger interface {
	Exists(ctx context.Context, userID, documentID string) (bool, error)
	Add(ctx context.Context, userID, documentID string) (bool, error)
	Remove(ctx context.Context, userID, documentID string) (bool, error)
	Count(ctx context.Context, documentID string) (int64, error)
	ListForUser(ctx context.Context, userID string) ([]models.FavoriteEntry, error)
	PurgeDocument(ctx context.Context, documentID string) (int64, error)
}

type favoriteDocuments interface {
	Get(ctx context.Context, id string) (*models.Document, error)
	List(ctx context.Context, statuses ...models.DocumentStatus) ([]models.Document, error)
	AdjustFavorites(ctx context.Context, id string, delta int64) (int64, error)
	SetFavoriteCount(ctx context.Context, id string, count int64) error
}

// FavoriteService keeps the favorite ledger and the per-document counter in step.
// It is the only writer of the favorites counter.
type FavoriteService struct {
	ledger  favoriteLedger
	docs    favoriteDocuments
	effects *SideEffects
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
}

// NewFavoriteService constructs the service.
func NewFavoriteService(ledger favoriteLedger, docs favoriteDocuments, effects *SideEffects, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *FavoriteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FavoriteService{ledger: ledger, docs: docs, effects: effects, cache: cache, metrics: metrics, logger: logger}
}

// IsFavorited reports whether the caller bookmarked the document.
func (s *FavoriteService) IsFavorited(ctx context.Context, identity *models.Identity, documentID string) (bool, error) {
	if identity == nil {
		return false, appErrors.ErrUnauthorized
	}
	ok, err := s.ledger.Exists(ctx, identity.ID, documentID)
	if err != nil {
		return false, appErrors.Persistence(err, "failed to read favorites")
	}
	return ok, nil
}

// Toggle adds the favorite when absent and removes it otherwise. The document
// counter moves by one only when the ledger actually changed.
func (s *FavoriteService) Toggle(ctx context.Context, identity *models.Identity, documentID string) (*models.FavoriteState, error) {
	if identity == nil {
		return nil, appErrors.ErrUnauthorized
	}
	doc, err := s.docs.Get(ctx, documentID)
	if err != nil {
		return nil, documentLookupError(err)
	}
	if !doc.Visible() && !identity.CanModerate {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
	}

	exists, err := s.ledger.Exists(ctx, identity.ID, doc.ID)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to read favorites")
	}

	var (
		changed   bool
		delta     int64
		favorited = !exists
	)
	if exists {
		changed, err = s.ledger.Remove(ctx, identity.ID, doc.ID)
		delta = -1
	} else {
		changed, err = s.ledger.Add(ctx, identity.ID, doc.ID)
		delta = 1
	}
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to update favorites")
	}

	count := doc.Favorites
	if changed {
		count, err = s.docs.AdjustFavorites(ctx, doc.ID, delta)
		if err != nil {
			return nil, appErrors.Persistence(err, "failed to update favorite count")
		}
		s.cache.InvalidateCatalog(ctx)
	}
	s.metrics.RecordFavoriteToggle(favorited)

	return &models.FavoriteState{DocumentID: doc.ID, Favorited: favorited, Favorites: count}, nil
}

// ListForUser returns the caller's approved favorites, most recently added first.
func (s *FavoriteService) ListForUser(ctx context.Context, identity *models.Identity) ([]models.Document, error) {
	if identity == nil {
		return nil, appErrors.ErrUnauthorized
	}

	var (
		entries []models.FavoriteEntry
		docs    []models.Document
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		entries, err = s.ledger.ListForUser(gctx, identity.ID)
		return err
	})
	g.Go(func() error {
		var err error
		docs, err = s.docs.List(gctx, models.DocumentStatusApproved)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, appErrors.Persistence(err, "failed to load favorites")
	}

	byID := make(map[string]models.Document, len(docs))
	for _, doc := range docs {
		byID[doc.ID] = doc
	}
	out := make([]models.Document, 0, len(entries))
	for _, entry := range entries {
		if doc, ok := byID[entry.DocumentID]; ok {
			out = append(out, doc)
		}
	}
	return out, nil
}

// PurgeDocument drops every favorite of a deleted document.
func (s *FavoriteService) PurgeDocument(ctx context.Context, documentID string) (int64, error) {
	removed, err := s.ledger.PurgeDocument(ctx, documentID)
	if err != nil {
		return 0, appErrors.Persistence(err, "failed to purge favorites")
	}
	return removed, nil
}

// Reconcile resets the document counter to the number of ledger entries.
func (s *FavoriteService) Reconcile(ctx context.Context, identity *models.Identity, documentID string) (*models.FavoriteReconciliation, error) {
	if err := requireModerator(identity); err != nil {
		return nil, err
	}
	doc, err := s.docs.Get(ctx, documentID)
	if err != nil {
		return nil, documentLookupError(err)
	}
	count, err := s.ledger.Count(ctx, doc.ID)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to count favorites")
	}
	result := &models.FavoriteReconciliation{DocumentID: doc.ID, Previous: doc.Favorites, Current: count}
	if count == doc.Favorites {
		return result, nil
	}

	if err := s.docs.SetFavoriteCount(ctx, doc.ID, count); err != nil {
		return nil, documentLookupError(err)
	}
	s.cache.InvalidateCatalog(ctx)
	s.effects.Audit(ctx, &models.AuditLog{
		UserID:     &identity.ID,
		Action:     models.AuditActionFavoriteReconcile,
		Resource:   "document",
		ResourceID: &doc.ID,
		OldValues:  auditPayload(map[string]int64{"favorites": doc.Favorites}),
		NewValues:  auditPayload(map[string]int64{"favorites": count}),
	})
	s.logger.Info("favorite counter reconciled", zap.String("document_id", doc.ID), zap.Int64("previous", doc.Favorites), zap.Int64("current", count))
	return result, nil
}
