package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/examhub-api/internal/repository"
)

func TestCatalogKeyIsStableAndScoped(t *testing.T) {
	a := CatalogKey("list", "c=Terminale", "1")
	assert.Equal(t, a, CatalogKey("list", "c=Terminale", "1"))
	assert.NotEqual(t, a, CatalogKey("list", "c=Terminale1", ""))
	assert.NotEqual(t, a, CatalogKey("search", "c=Terminale", "1"))
	assert.True(t, strings.HasPrefix(a, "catalog:list:"))
}

func TestCacheServiceRoundTrip(t *testing.T) {
	ctx := context.Background()
	metrics := NewMetricsService()
	svc := NewCacheService(repository.NewMemoryCacheRepository(), metrics, time.Minute, nil, true)

	var got []string
	hit, err := svc.Get(ctx, "catalog:list:x", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(ctx, "catalog:list:x", []string{"a"}, 0))
	hit, err = svc.Get(ctx, "catalog:list:x", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []string{"a"}, got)

	svc.InvalidateCatalog(ctx)
	hit, _ = svc.Get(ctx, "catalog:list:x", &got)
	assert.False(t, hit)

	snapshot := metrics.Snapshot()
	assert.EqualValues(t, 1, snapshot.CacheHits)
	assert.EqualValues(t, 2, snapshot.CacheMisses)
}

func TestCacheServiceDisabledAndNil(t *testing.T) {
	var nilSvc *CacheService
	hit, err := nilSvc.Get(context.Background(), "k", &struct{}{})
	assert.NoError(t, err)
	assert.False(t, hit)
	nilSvc.InvalidateCatalog(context.Background())

	off := NewCacheService(repository.NewMemoryCacheRepository(), nil, 0, nil, false)
	assert.False(t, off.Enabled())
	assert.NoError(t, off.Set(context.Background(), "k", 1, 0))
}
