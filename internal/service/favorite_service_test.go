package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/examhub-api/internal/models"
	"github.com/noah-isme/examhub-api/internal/repository"
	appErrors "github.com/noah-isme/examhub-api/pkg/errors"
)

type favoriteFixture struct {
	svc    *FavoriteService
	docs   *repository.MemoryDocumentRepository
	ledger *repository.MemoryFavoriteRepository
	audits *repository.MemoryAuditRepository
}

func newFavoriteFixture() favoriteFixture {
	seed := seedDocuments()
	seed[0].Favorites = 0
	docs := repository.NewMemoryDocumentRepository(seed...)
	ledger := repository.NewMemoryFavoriteRepository()
	audits := repository.NewMemoryAuditRepository()
	svc := NewFavoriteService(ledger, docs, NewSideEffects(audits, nil, nil), nil, NewMetricsService(), nil)
	return favoriteFixture{svc: svc, docs: docs, ledger: ledger, audits: audits}
}

func (f favoriteFixture) counter(t *testing.T, id string) int64 {
	t.Helper()
	doc, err := f.docs.Get(context.Background(), id)
	require.NoError(t, err)
	return doc.Favorites
}

func TestFavoriteToggleTwiceRestoresCounter(t *testing.T) {
	f := newFavoriteFixture()
	ctx := context.Background()

	state, err := f.svc.Toggle(ctx, memberIdentity, "doc-approved")
	require.NoError(t, err)
	assert.True(t, state.Favorited)
	assert.EqualValues(t, 1, state.Favorites)

	favorited, err := f.svc.IsFavorited(ctx, memberIdentity, "doc-approved")
	require.NoError(t, err)
	assert.True(t, favorited)

	state, err = f.svc.Toggle(ctx, memberIdentity, "doc-approved")
	require.NoError(t, err)
	assert.False(t, state.Favorited)
	assert.EqualValues(t, 0, state.Favorites)
	assert.EqualValues(t, 0, f.counter(t, "doc-approved"))
}

func TestFavoriteCounterMatchesLedger(t *testing.T) {
	f := newFavoriteFixture()
	ctx := context.Background()
	users := []*models.Identity{
		memberIdentity,
		{ID: "user-2", Name: "Jean"},
		{ID: "user-3", Name: "Fatou"},
	}
	for _, u := range users {
		_, err := f.svc.Toggle(ctx, u, "doc-legacy")
		require.NoError(t, err)
	}
	_, err := f.svc.Toggle(ctx, users[1], "doc-legacy")
	require.NoError(t, err)

	count, err := f.ledger.Count(ctx, "doc-legacy")
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
	assert.Equal(t, count, f.counter(t, "doc-legacy"))
}

func TestFavoriteToggleRequiresIdentity(t *testing.T) {
	f := newFavoriteFixture()
	ctx := context.Background()

	_, err := f.svc.Toggle(ctx, nil, "doc-approved")
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
	_, err = f.svc.IsFavorited(ctx, nil, "doc-approved")
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
	assert.Zero(t, f.counter(t, "doc-approved"))

	_, err = f.svc.Toggle(ctx, memberIdentity, "doc-pending")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
	_, err = f.svc.Toggle(ctx, memberIdentity, "missing")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestFavoriteListForUserSkipsHiddenDocuments(t *testing.T) {
	f := newFavoriteFixture()
	ctx := context.Background()

	_, err := f.svc.Toggle(ctx, memberIdentity, "doc-approved")
	require.NoError(t, err)
	_, err = f.svc.Toggle(ctx, moderatorIdentity, "doc-pending")
	require.NoError(t, err)
	_, err = f.ledger.Add(ctx, memberIdentity.ID, "doc-pending")
	require.NoError(t, err)

	docs, err := f.svc.ListForUser(ctx, memberIdentity)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "doc-approved", docs[0].ID)

	_, err = f.svc.ListForUser(ctx, nil)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}

func TestFavoriteReconcile(t *testing.T) {
	seed := seedDocuments()
	seed[0].Favorites = 7
	docs := repository.NewMemoryDocumentRepository(seed...)
	ledger := repository.NewMemoryFavoriteRepository()
	audits := repository.NewMemoryAuditRepository()
	svc := NewFavoriteService(ledger, docs, NewSideEffects(audits, nil, nil), nil, nil, nil)
	ctx := context.Background()
	_, err := ledger.Add(ctx, "user-9", "doc-approved")
	require.NoError(t, err)

	_, err = svc.Reconcile(ctx, memberIdentity, "doc-approved")
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	result, err := svc.Reconcile(ctx, moderatorIdentity, "doc-approved")
	require.NoError(t, err)
	assert.Equal(t, &models.FavoriteReconciliation{DocumentID: "doc-approved", Previous: 7, Current: 1}, result)

	doc, err := docs.Get(ctx, "doc-approved")
	require.NoError(t, err)
	assert.EqualValues(t, 1, doc.Favorites)

	logs, err := audits.ListByResource(ctx, "document", "doc-approved", 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.AuditActionFavoriteReconcile, logs[0].Action)

	_, err = svc.Reconcile(ctx, moderatorIdentity, "missing")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

type failingLedger struct {
	*repository.MemoryFavoriteRepository
}

func (failingLedger) Add(context.Context, string, string) (bool, error) {
	return false, errors.New("connection reset")
}

func TestFavoriteToggleLedgerFailure(t *testing.T) {
	docs := repository.NewMemoryDocumentRepository(seedDocuments()...)
	svc := NewFavoriteService(failingLedger{repository.NewMemoryFavoriteRepository()}, docs, nil, nil, nil, nil)

	_, err := svc.Toggle(context.Background(), memberIdentity, "doc-approved")
	assert.True(t, errors.Is(err, appErrors.ErrPersistence))

	doc, err := docs.Get(context.Background(), "doc-approved")
	require.NoError(t, err)
	assert.EqualValues(t, 1, doc.Favorites)
}
