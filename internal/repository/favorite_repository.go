package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/examhub-api/internal/models"
)

// FavoriteRepository stores the (user, document) favorite ledger in PostgreSQL.
type FavoriteRepository struct {
	db *sqlx.DB
}

// NewFavoriteRepository constructs the repository.
func NewFavoriteRepository(db *sqlx.DB) *FavoriteRepository {
	return &FavoriteRepository{db: db}
}

// Exists reports whether the user favorited the document.
func (r *FavoriteRepository) Exists(ctx context.Context, userID, documentID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM favorites WHERE user_id = $1 AND document_id = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, userID, documentID); err != nil {
		return false, fmt.Errorf("check favorite: %w", err)
	}
	return exists, nil
}

// Add records the favorite. It reports false when the entry already existed.
func (r *FavoriteRepository) Add(ctx context.Context, userID, documentID string) (bool, error) {
	const query = `INSERT INTO favorites (user_id, document_id, created_at) VALUES ($1, $2, $3)
	ON CONFLICT (user_id, document_id) DO NOTHING`
	result, err := r.db.ExecContext(ctx, query, userID, documentID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("add favorite: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check favorite insert rows: %w", err)
	}
	return rows > 0, nil
}

// Remove deletes the favorite. It reports false when nothing was removed.
func (r *FavoriteRepository) Remove(ctx context.Context, userID, documentID string) (bool, error) {
	const query = `DELETE FROM favorites WHERE user_id = $1 AND document_id = $2`
	result, err := r.db.ExecContext(ctx, query, userID, documentID)
	if err != nil {
		return false, fmt.Errorf("remove favorite: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check favorite delete rows: %w", err)
	}
	return rows > 0, nil
}

// Count returns how many users favorited the document.
func (r *FavoriteRepository) Count(ctx context.Context, documentID string) (int64, error) {
	const query = `SELECT COUNT(*) FROM favorites WHERE document_id = $1`
	var count int64
	if err := r.db.GetContext(ctx, &count, query, documentID); err != nil {
		return 0, fmt.Errorf("count favorites: %w", err)
	}
	return count, nil
}

// ListForUser returns the user's entries, newest first.
func (r *FavoriteRepository) ListForUser(ctx context.Context, userID string) ([]models.FavoriteEntry, error) {
	const query = `SELECT user_id, document_id, created_at FROM favorites WHERE user_id = $1 ORDER BY created_at DESC`
	var entries []models.FavoriteEntry
	if err := r.db.SelectContext(ctx, &entries, query, userID); err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	return entries, nil
}

// PurgeDocument removes every entry for the document and returns how many were dropped.
func (r *FavoriteRepository) PurgeDocument(ctx context.Context, documentID string) (int64, error) {
	const query = `DELETE FROM favorites WHERE document_id = $1`
	result, err := r.db.ExecContext(ctx, query, documentID)
	if err != nil {
		return 0, fmt.Errorf("purge favorites: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check favorite purge rows: %w", err)
	}
	return rows, nil
}
