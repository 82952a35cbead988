package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
	assert.Equal(t, 12, cfg.Catalog.DefaultPageSize)
	assert.Equal(t, 5, cfg.Catalog.WindowSize)
	assert.Equal(t, "taxonomy:snapshot", cfg.Catalog.TaxonomyKey)
	assert.Equal(t, 30*time.Minute, cfg.Storage.SignedURLTTL)
	assert.Equal(t, int64(20*1024*1024), cfg.Storage.MaxUploadBytes)
	assert.Contains(t, cfg.Storage.AllowedMIMEs, "application/pdf")
	assert.False(t, cfg.S3.Enabled)
	assert.Equal(t, 15*time.Minute, cfg.S3.PresignTTL)
}

func TestFromViperOverrides(t *testing.T) {
	t.Setenv("DOCUMENT_STORE", "POSTGRES")
	t.Setenv("CATALOG_PAGE_SIZE", "-3")
	t.Setenv("CATALOG_CACHE_TTL", "not-a-duration")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("PUBLIC_BASE_URL", "https://files.example/")

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := fromViper(v)
	require.Equal(t, BackendPostgres, cfg.Storage.Backend)
	assert.Equal(t, 12, cfg.Catalog.DefaultPageSize)
	assert.Equal(t, 2*time.Minute, cfg.Catalog.CacheTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "https://files.example", cfg.Storage.PublicBaseURL)
}
