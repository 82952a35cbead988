package repository

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/noah-isme/examhub-api/internal/models"
)

// MemoryDocumentRepository keeps documents in process memory. It backs the
// memory storage mode and the service tests.
type MemoryDocumentRepository struct {
	mu    sync.RWMutex
	order []string
	docs  map[string]*models.Document
	now   func() time.Time
}

// NewMemoryDocumentRepository seeds the store with the given documents, kept as-is
// apart from status normalisation.
func NewMemoryDocumentRepository(seed ...models.Document) *MemoryDocumentRepository {
	r := &MemoryDocumentRepository{
		docs: make(map[string]*models.Document, len(seed)),
		now:  func() time.Time { return time.Now().UTC() },
	}
	for i := range seed {
		doc := copyDocument(seed[i])
		doc.Status = models.NormalizeStatus(string(doc.Status))
		if _, exists := r.docs[doc.ID]; !exists {
			r.order = append(r.order, doc.ID)
		}
		r.docs[doc.ID] = &doc
	}
	return r
}

// Create inserts a new pending document.
func (r *MemoryDocumentRepository) Create(_ context.Context, doc *models.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	prepareNewDocument(doc, r.now())
	stored := copyDocument(*doc)
	if _, exists := r.docs[stored.ID]; !exists {
		r.order = append(r.order, stored.ID)
	}
	r.docs[stored.ID] = &stored
	return nil
}

// Get returns a copy of the stored document.
func (r *MemoryDocumentRepository) Get(_ context.Context, id string) (*models.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.docs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	out := copyDocument(*doc)
	return &out, nil
}

// List returns copies in insertion order, optionally restricted to statuses.
func (r *MemoryDocumentRepository) List(_ context.Context, statuses ...models.DocumentStatus) ([]models.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	match := models.WithStatus(statuses...)
	docs := make([]models.Document, 0, len(r.order))
	for _, id := range r.order {
		doc := r.docs[id]
		if len(statuses) > 0 && !match(*doc) {
			continue
		}
		docs = append(docs, copyDocument(*doc))
	}
	return docs, nil
}

// SetStatus applies a moderation outcome while the document is pending.
func (r *MemoryDocumentRepository) SetStatus(_ context.Context, id string, change models.StatusChange) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.docs[id]
	if !ok || doc.Status != models.DocumentStatusPending {
		return sql.ErrNoRows
	}
	doc.Status = change.Status
	doc.ApprovedAt = copyTime(change.ApprovedAt)
	doc.RejectedAt = copyTime(change.RejectedAt)
	doc.RejectionReason = copyString(change.RejectionReason)
	return nil
}

// IncrementDownloads bumps the download counter.
func (r *MemoryDocumentRepository) IncrementDownloads(_ context.Context, id string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.docs[id]
	if !ok {
		return 0, sql.ErrNoRows
	}
	doc.Downloads++
	return doc.Downloads, nil
}

// AdjustFavorites applies delta to the favorite counter, flooring at zero.
func (r *MemoryDocumentRepository) AdjustFavorites(_ context.Context, id string, delta int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.docs[id]
	if !ok {
		return 0, sql.ErrNoRows
	}
	doc.Favorites += delta
	if doc.Favorites < 0 {
		doc.Favorites = 0
	}
	return doc.Favorites, nil
}

// SetFavoriteCount overwrites the favorite counter.
func (r *MemoryDocumentRepository) SetFavoriteCount(_ context.Context, id string, count int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.docs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if count < 0 {
		count = 0
	}
	doc.Favorites = count
	return nil
}

// Delete removes the document.
func (r *MemoryDocumentRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.docs[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.docs, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func copyDocument(doc models.Document) models.Document {
	doc.ApprovedAt = copyTime(doc.ApprovedAt)
	doc.RejectedAt = copyTime(doc.RejectedAt)
	doc.RejectionReason = copyString(doc.RejectionReason)
	return doc
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
