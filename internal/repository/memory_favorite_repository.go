package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/examhub-api/internal/models"
)

type favoriteKey struct {
	userID     string
	documentID string
}

// MemoryFavoriteRepository is the in-process favorite ledger.
type MemoryFavoriteRepository struct {
	mu      sync.RWMutex
	entries map[favoriteKey]time.Time
	now     func() time.Time
}

// NewMemoryFavoriteRepository constructs an empty ledger.
func NewMemoryFavoriteRepository() *MemoryFavoriteRepository {
	return &MemoryFavoriteRepository{
		entries: make(map[favoriteKey]time.Time),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Exists reports whether the user favorited the document.
func (r *MemoryFavoriteRepository) Exists(_ context.Context, userID, documentID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[favoriteKey{userID, documentID}]
	return ok, nil
}

// Add records the favorite if absent.
func (r *MemoryFavoriteRepository) Add(_ context.Context, userID, documentID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := favoriteKey{userID, documentID}
	if _, ok := r.entries[key]; ok {
		return false, nil
	}
	r.entries[key] = r.now()
	return true, nil
}

// Remove deletes the favorite if present.
func (r *MemoryFavoriteRepository) Remove(_ context.Context, userID, documentID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := favoriteKey{userID, documentID}
	if _, ok := r.entries[key]; !ok {
		return false, nil
	}
	delete(r.entries, key)
	return true, nil
}

// Count returns how many users favorited the document.
func (r *MemoryFavoriteRepository) Count(_ context.Context, documentID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var count int64
	for key := range r.entries {
		if key.documentID == documentID {
			count++
		}
	}
	return count, nil
}

// ListForUser returns the user's entries, newest first.
func (r *MemoryFavoriteRepository) ListForUser(_ context.Context, userID string) ([]models.FavoriteEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries := make([]models.FavoriteEntry, 0)
	for key, created := range r.entries {
		if key.userID == userID {
			entries = append(entries, models.FavoriteEntry{UserID: key.userID, DocumentID: key.documentID, CreatedAt: created})
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].DocumentID < entries[j].DocumentID
		}
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	return entries, nil
}

// PurgeDocument removes every entry for the document.
func (r *MemoryFavoriteRepository) PurgeDocument(_ context.Context, documentID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed int64
	for key := range r.entries {
		if key.documentID == documentID {
			delete(r.entries, key)
			removed++
		}
	}
	return removed, nil
}
