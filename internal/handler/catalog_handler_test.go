package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/examhub-api/internal/dto"
	"github.com/noah-isme/examhub-api/internal/middleware"
	"github.com/noah-isme/examhub-api/internal/models"
	appErrors "github.com/noah-isme/examhub-api/pkg/errors"
)

type catalogServiceMock struct {
	lastQuery    dto.CatalogQuery
	lastSearch   dto.SearchQuery
	lastIdentity *models.Identity
	page         *dto.CatalogPage
	err          error
}

func (m *catalogServiceMock) List(ctx context.Context, query dto.CatalogQuery) (*dto.CatalogPage, error) {
	m.lastQuery = query
	return m.page, m.err
}

func (m *catalogServiceMock) Search(ctx context.Context, query dto.SearchQuery) (*dto.SearchPage, error) {
	m.lastSearch = query
	if m.err != nil {
		return nil, m.err
	}
	return &dto.SearchPage{
		Items:      []dto.SearchHit{{Document: models.Document{ID: "doc-1"}, Score: 3}},
		Pagination: &models.Pagination{Page: 1, PageSize: 12, TotalCount: 1, TotalPages: 1},
		Signature:  "search-sig",
	}, nil
}

func (m *catalogServiceMock) AdminList(ctx context.Context, identity *models.Identity, query dto.CatalogQuery) (*dto.CatalogPage, error) {
	m.lastIdentity = identity
	m.lastQuery = query
	return m.page, m.err
}

type envelopeBody struct {
	Data       json.RawMessage        `json:"data"`
	Pagination *models.Pagination     `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
	Error      *appErrors.Error       `json:"error"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelopeBody {
	t.Helper()
	var body envelopeBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestCatalogHandlerListBindsQueryAndReportsSignature(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &catalogServiceMock{page: &dto.CatalogPage{
		Items:      []models.Document{{ID: "doc-1"}},
		Pagination: &models.Pagination{Page: 2, PageSize: 1, TotalCount: 3, TotalPages: 3},
		Signature:  "abc",
		CacheHit:   true,
	}}
	handler := NewCatalogHandler(mock)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/documents?classe=Terminale&sort=popular&page=2&limit=1&sig=abc", nil)

	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Terminale", mock.lastQuery.Classe)
	assert.Equal(t, "popular", mock.lastQuery.Sort)
	assert.Equal(t, 2, mock.lastQuery.Page)
	assert.Equal(t, "abc", mock.lastQuery.Signature)

	body := decodeEnvelope(t, w)
	require.NotNil(t, body.Pagination)
	assert.Equal(t, 3, body.Pagination.TotalPages)
	assert.Equal(t, "abc", body.Meta["signature"])
	assert.Equal(t, true, body.Meta["cache_hit"])
}

func TestCatalogHandlerListRejectsMalformedPage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewCatalogHandler(&catalogServiceMock{})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/documents?page=two", nil)

	handler.List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCatalogHandlerSearch(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &catalogServiceMock{}
	handler := NewCatalogHandler(mock)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/documents/search?q=bac", nil)

	handler.Search(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "bac", mock.lastSearch.Term)
	var hits []dto.SearchHit
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &hits))
	require.Len(t, hits, 1)
	assert.Equal(t, 3, hits[0].Score)
}

func TestCatalogHandlerAdminListPassesIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &catalogServiceMock{page: &dto.CatalogPage{Items: []models.Document{}, Pagination: &models.Pagination{Page: 1}}}
	handler := NewCatalogHandler(mock)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/admin/documents?status=pending", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "mod-1", Role: models.RoleAdmin})

	handler.AdminList(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, mock.lastIdentity)
	assert.True(t, mock.lastIdentity.CanModerate)
	assert.Equal(t, "pending", mock.lastQuery.Status)
}

func TestCatalogHandlerPropagatesServiceErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewCatalogHandler(&catalogServiceMock{err: appErrors.Clone(appErrors.ErrForbidden, "moderator role required")})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/admin/documents", nil)

	handler.AdminList(c)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", decodeEnvelope(t, w).Error.Code)
}
