package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/examhub-api/internal/models"
	appErrors "github.com/noah-isme/examhub-api/pkg/errors"
)

func TestMemoryDocumentRepositoryLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryDocumentRepository(models.Document{ID: "legacy", Title: "Old paper"})

	legacy, err := repo.Get(ctx, "legacy")
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusApproved, legacy.Status)

	doc := &models.Document{Title: "New paper", Status: models.DocumentStatusApproved, Downloads: 9}
	require.NoError(t, repo.Create(ctx, doc))
	assert.Equal(t, models.DocumentStatusPending, doc.Status)

	pending, err := repo.List(ctx, models.DocumentStatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, doc.ID, pending[0].ID)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "legacy", all[0].ID)

	now := time.Now().UTC()
	require.NoError(t, repo.SetStatus(ctx, doc.ID, models.StatusChange{Status: models.DocumentStatusApproved, ApprovedAt: &now}))
	assert.ErrorIs(t, repo.SetStatus(ctx, doc.ID, models.StatusChange{Status: models.DocumentStatusRejected}), sql.ErrNoRows)

	count, err := repo.AdjustFavorites(ctx, doc.ID, -1)
	require.NoError(t, err)
	assert.Zero(t, count)

	downloads, err := repo.IncrementDownloads(ctx, doc.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, downloads)

	require.NoError(t, repo.Delete(ctx, doc.ID))
	assert.ErrorIs(t, repo.Delete(ctx, doc.ID), sql.ErrNoRows)
	_, err = repo.Get(ctx, doc.ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestMemoryDocumentRepositoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryDocumentRepository(models.Document{ID: "doc-1", Title: "Original"})

	doc, err := repo.Get(ctx, "doc-1")
	require.NoError(t, err)
	doc.Title = "Mutated"

	again, err := repo.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "Original", again.Title)
}

func TestMemoryFavoriteRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryFavoriteRepository()

	added, err := repo.Add(ctx, "user-1", "doc-1")
	require.NoError(t, err)
	assert.True(t, added)
	added, err = repo.Add(ctx, "user-1", "doc-1")
	require.NoError(t, err)
	assert.False(t, added)
	_, _ = repo.Add(ctx, "user-2", "doc-1")
	_, _ = repo.Add(ctx, "user-1", "doc-2")

	count, err := repo.Count(ctx, "doc-1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	entries, err := repo.ListForUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	purged, err := repo.PurgeDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, purged)

	removed, err := repo.Remove(ctx, "user-1", "doc-1")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestMemoryCacheRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryCacheRepository()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return base }

	require.NoError(t, repo.Set(ctx, "catalog:list:a", []string{"x"}, time.Minute))
	require.NoError(t, repo.Set(ctx, "catalog:search:b", []string{"y"}, 0))
	require.NoError(t, repo.Set(ctx, "taxonomy:snapshot", map[string]int{"v": 1}, 0))

	var got []string
	require.NoError(t, repo.Get(ctx, "catalog:list:a", &got))
	assert.Equal(t, []string{"x"}, got)

	repo.now = func() time.Time { return base.Add(2 * time.Minute) }
	assert.ErrorIs(t, repo.Get(ctx, "catalog:list:a", &got), appErrors.ErrCacheMiss)

	require.NoError(t, repo.DeleteByPattern(ctx, "catalog:*"))
	assert.Equal(t, 1, repo.Len())
}

func TestMatchGlob(t *testing.T) {
	assert.True(t, matchGlob("catalog:*", "catalog:list:abc"))
	assert.True(t, matchGlob("catalog:*:abc", "catalog:list:abc"))
	assert.False(t, matchGlob("catalog:*", "taxonomy:snapshot"))
	assert.True(t, matchGlob("exact", "exact"))
	assert.False(t, matchGlob("exact", "exactly"))
}

func TestMemoryAuditRepositoryListByResource(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAuditRepository()
	docID := "doc-1"
	other := "doc-2"
	require.NoError(t, repo.CreateAuditLog(ctx, &models.AuditLog{Action: models.AuditActionDocumentCreate, Resource: "document", ResourceID: &docID}))
	require.NoError(t, repo.CreateAuditLog(ctx, &models.AuditLog{Action: models.AuditActionDocumentCreate, Resource: "document", ResourceID: &other}))
	require.NoError(t, repo.CreateAuditLog(ctx, &models.AuditLog{Action: models.AuditActionDocumentApprove, Resource: "document", ResourceID: &docID}))

	logs, err := repo.ListByResource(ctx, "document", docID, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, models.AuditActionDocumentApprove, logs[0].Action)
	assert.NotEmpty(t, logs[0].ID)
}
