package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/noah-isme/examhub-api/internal/catalog"
	"github.com/noah-isme/examhub-api/internal/dto"
	"github.com/noah-isme/examhub-api/internal/models"
	appErrors "github.com/noah-isme/examhub-api/pkg/errors"
	"github.com/noah-isme/examhub-api/pkg/tracing"
)

type catalogDocuments interface {
	List(ctx context.Context, statuses ...models.DocumentStatus) ([]models.Document, error)
}

type facetSource interface {
	Facets() *catalog.Facets
}

// CatalogServiceConfig bounds page sizes and the page-number window.
type CatalogServiceConfig struct {
	DefaultPageSize int
	MaxPageSize     int
	WindowSize      int
	CacheTTL        time.Duration
}

// CatalogService serves filtered, sorted and paginated catalog views.
type CatalogService struct {
	repo    catalogDocuments
	facets  facetSource
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	cfg     CatalogServiceConfig
}

// NewCatalogService constructs the service.
func NewCatalogService(repo catalogDocuments, facets facetSource, cache *CacheService, metrics *MetricsService, logger *zap.Logger, cfg CatalogServiceConfig) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 12
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = 100
	}
	if cfg.MaxPageSize < cfg.DefaultPageSize {
		cfg.MaxPageSize = cfg.DefaultPageSize
	}
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = catalog.DefaultMaxVisible
	}
	return &CatalogService{repo: repo, facets: facets, cache: cache, metrics: metrics, logger: logger, cfg: cfg}
}

// List returns a page of approved documents matching the filter.
func (s *CatalogService) List(ctx context.Context, query dto.CatalogQuery) (page *dto.CatalogPage, err error) {
	state := filterFromQuery(query)
	size := s.pageSize(query.Limit)
	ctx, span := tracing.Start(ctx, "catalog.list",
		attribute.String("catalog.filter", state.Signature()),
		attribute.Int("catalog.page_size", size),
	)
	defer func() { tracing.End(span, err) }()

	key := CatalogKey("list", state.Signature(), query.Signature, strconv.Itoa(query.Page), strconv.Itoa(size))
	var cached dto.CatalogPage
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		span.SetAttributes(attribute.Bool("catalog.cache_hit", true))
		cached.CacheHit = true
		return &cached, nil
	}

	start := time.Now()
	docs, err := s.repo.List(ctx, models.DocumentStatusApproved)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to list documents")
	}
	matched := catalog.Filter(docs, state, s.filterOptions()...)
	page = s.paginate(matched, state, query.Signature, query.Page, size)
	s.metrics.ObserveCatalogQuery("list", time.Since(start))

	_ = s.cache.Set(ctx, key, page, s.cfg.CacheTTL)
	return page, nil
}

// Search ranks approved documents against a free-text term and pages the hits.
func (s *CatalogService) Search(ctx context.Context, query dto.SearchQuery) (page *dto.SearchPage, err error) {
	term := strings.TrimSpace(query.Term)
	size := s.pageSize(query.Limit)
	ctx, span := tracing.Start(ctx, "catalog.search", attribute.Int("catalog.page_size", size))
	defer func() { tracing.End(span, err) }()

	key := CatalogKey("search", strings.ToLower(term), query.Signature, strconv.Itoa(query.Page), strconv.Itoa(size))
	var cached dto.SearchPage
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		span.SetAttributes(attribute.Bool("catalog.cache_hit", true))
		cached.CacheHit = true
		return &cached, nil
	}

	start := time.Now()
	docs, err := s.repo.List(ctx, models.DocumentStatusApproved)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to list documents")
	}
	results := catalog.Search(docs, term)
	signature := catalog.ViewSignature(models.FilterState{Search: term}, len(results))
	current := catalog.ResolvePage(query.Signature, signature, query.Page)
	p := catalog.Paginate(results, size, current)

	hits := make([]dto.SearchHit, len(p.Items))
	for i, r := range p.Items {
		hits[i] = dto.SearchHit{Document: r.Document, Score: r.Score}
	}
	page = &dto.SearchPage{
		Items:      hits,
		Pagination: catalog.PaginationMeta(p, size, s.cfg.WindowSize),
		Signature:  signature,
	}
	s.metrics.ObserveCatalogQuery("search", time.Since(start))

	_ = s.cache.Set(ctx, key, page, s.cfg.CacheTTL)
	return page, nil
}

// AdminList lists documents of every status for moderators, optionally narrowed to one status.
func (s *CatalogService) AdminList(ctx context.Context, identity *models.Identity, query dto.CatalogQuery) (page *dto.CatalogPage, err error) {
	if err := requireModerator(identity); err != nil {
		return nil, err
	}
	ctx, span := tracing.Start(ctx, "catalog.admin_list")
	defer func() { tracing.End(span, err) }()

	var statuses []models.DocumentStatus
	if raw := strings.TrimSpace(query.Status); raw != "" {
		status := models.DocumentStatus(strings.ToLower(raw))
		if !status.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "status must be pending, approved or rejected")
		}
		statuses = append(statuses, status)
	}

	start := time.Now()
	docs, err := s.repo.List(ctx, statuses...)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to list documents")
	}
	state := filterFromQuery(query)
	matched := catalog.Filter(docs, state, catalog.IncludeAllStatuses())
	page = s.paginate(matched, state, query.Signature, query.Page, s.pageSize(query.Limit))
	s.metrics.ObserveCatalogQuery("admin", time.Since(start))
	return page, nil
}

func (s *CatalogService) paginate(matched []models.Document, state models.FilterState, previous string, requested, size int) *dto.CatalogPage {
	signature := catalog.ViewSignature(state, len(matched))
	p := catalog.Paginate(matched, size, catalog.ResolvePage(previous, signature, requested))
	return &dto.CatalogPage{
		Items:      p.Items,
		Pagination: catalog.PaginationMeta(p, size, s.cfg.WindowSize),
		Signature:  signature,
	}
}

func (s *CatalogService) filterOptions() []catalog.Option {
	if s.facets == nil {
		return nil
	}
	return []catalog.Option{catalog.WithFacets(s.facets.Facets())}
}

func (s *CatalogService) pageSize(limit int) int {
	switch {
	case limit <= 0:
		return s.cfg.DefaultPageSize
	case limit > s.cfg.MaxPageSize:
		return s.cfg.MaxPageSize
	default:
		return limit
	}
}

func filterFromQuery(query dto.CatalogQuery) models.FilterState {
	return models.FilterState{
		Classe:  query.Classe,
		Matiere: query.Matiere,
		Sort:    models.SortKey(query.Sort),
		Search:  query.Search,
	}.Normalize()
}
