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

	"github.com/noah-isme/examhub-api/internal/middleware"
	"github.com/noah-isme/examhub-api/internal/models"
	appErrors "github.com/noah-isme/examhub-api/pkg/errors"
)

type favoriteServiceMock struct {
	favorited map[string]bool
}

func (m *favoriteServiceMock) IsFavorited(ctx context.Context, identity *models.Identity, documentID string) (bool, error) {
	if identity == nil {
		return false, appErrors.ErrUnauthorized
	}
	return m.favorited[documentID], nil
}

func (m *favoriteServiceMock) Toggle(ctx context.Context, identity *models.Identity, documentID string) (*models.FavoriteState, error) {
	if identity == nil {
		return nil, appErrors.ErrUnauthorized
	}
	m.favorited[documentID] = !m.favorited[documentID]
	return &models.FavoriteState{DocumentID: documentID, Favorited: m.favorited[documentID], Favorites: 1}, nil
}

func (m *favoriteServiceMock) ListForUser(ctx context.Context, identity *models.Identity) ([]models.Document, error) {
	docs := make([]models.Document, 0)
	for id, on := range m.favorited {
		if on {
			docs = append(docs, models.Document{ID: id})
		}
	}
	return docs, nil
}

func newFavoriteContext(method, target, id string, signedIn bool) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, target, nil)
	if id != "" {
		c.Params = gin.Params{{Key: "id", Value: id}}
	}
	if signedIn {
		c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleMember})
	}
	return c, w
}

func TestFavoriteHandlerToggleAndStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewFavoriteHandler(&favoriteServiceMock{favorited: map[string]bool{}})

	c, w := newFavoriteContext(http.MethodPost, "/favorites/doc-1/toggle", "doc-1", true)
	handler.Toggle(c)
	require.Equal(t, http.StatusOK, w.Code)
	var state models.FavoriteState
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &state))
	assert.True(t, state.Favorited)

	c, w = newFavoriteContext(http.MethodGet, "/favorites/doc-1", "doc-1", true)
	handler.Status(c)
	require.Equal(t, http.StatusOK, w.Code)
	var status map[string]interface{}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &status))
	assert.Equal(t, true, status["favorited"])

	c, w = newFavoriteContext(http.MethodGet, "/favorites", "", true)
	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	var docs []models.Document
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &docs))
	assert.Len(t, docs, 1)
}

func TestFavoriteHandlerRequiresIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewFavoriteHandler(&favoriteServiceMock{favorited: map[string]bool{}})

	c, w := newFavoriteContext(http.MethodPost, "/favorites/doc-1/toggle", "doc-1", false)
	handler.Toggle(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
