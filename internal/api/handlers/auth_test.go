package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/corpora/internal/domain"
)

func jsonBody(s string) io.Reader {
	return bytes.NewReader([]byte(s))
}

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) CreateActor(ctx context.Context, name string) (*domain.Actor, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Actor), args.Error(1)
}

func (m *MockAuthService) CreateAPIKey(ctx context.Context, actorID, name string) (string, error) {
	args := m.Called(ctx, actorID, name)
	return args.String(0), args.Error(1)
}

func (m *MockAuthService) RevokeAPIKey(ctx context.Context, keyID string) error {
	args := m.Called(ctx, keyID)
	return args.Error(0)
}

func (m *MockAuthService) ListAPIKeys(ctx context.Context, actorID string) ([]*domain.APIKey, error) {
	args := m.Called(ctx, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.APIKey), args.Error(1)
}

func TestAuthHandler_CreateActor_Success(t *testing.T) {
	mockSvc := new(MockAuthService)
	handler := NewAuthHandler(mockSvc)

	actor := &domain.Actor{ID: "actor-new", Name: "ci-bot", CreatedAt: time.Now().UTC()}
	mockSvc.On("CreateActor", mock.Anything, "ci-bot").Return(actor, nil)

	req := httptest.NewRequest(http.MethodPost, "/actors", jsonBody(`{"name":"ci-bot"}`))
	w := httptest.NewRecorder()

	handler.CreateActor(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "actor-new", data["id"])
	mockSvc.AssertExpectations(t)
}

func TestAuthHandler_CreateActor_MissingName(t *testing.T) {
	mockSvc := new(MockAuthService)
	handler := NewAuthHandler(mockSvc)

	req := httptest.NewRequest(http.MethodPost, "/actors", jsonBody(`{}`))
	w := httptest.NewRecorder()

	handler.CreateActor(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "name is required")
}

func TestAuthHandler_CreateAPIKey_Success(t *testing.T) {
	mockSvc := new(MockAuthService)
	handler := NewAuthHandler(mockSvc)

	mockSvc.On("CreateAPIKey", mock.Anything, "actor-456", "deploy key").
		Return("cor_0123456789abcdef", nil)

	req := requestWithActorID(http.MethodPost, "/apikeys", []byte(`{"name":"deploy key"}`))
	w := httptest.NewRecorder()

	handler.CreateAPIKey(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "cor_0123456789abcdef", data["token"])
	mockSvc.AssertExpectations(t)
}

func TestAuthHandler_CreateAPIKey_Unauthorized(t *testing.T) {
	mockSvc := new(MockAuthService)
	handler := NewAuthHandler(mockSvc)

	req := httptest.NewRequest(http.MethodPost, "/apikeys", jsonBody(`{"name":"deploy key"}`))
	w := httptest.NewRecorder()

	handler.CreateAPIKey(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_ListAPIKeys_Success(t *testing.T) {
	mockSvc := new(MockAuthService)
	handler := NewAuthHandler(mockSvc)

	revokedAt := time.Now().UTC()
	keys := []*domain.APIKey{
		{ID: "key-1", ActorID: "actor-456", Name: "active", KeyHash: "h1", CreatedAt: time.Now().UTC()},
		{ID: "key-2", ActorID: "actor-456", Name: "old", KeyHash: "h2", CreatedAt: time.Now().UTC(), RevokedAt: &revokedAt},
	}
	mockSvc.On("ListAPIKeys", mock.Anything, "actor-456").Return(keys, nil)

	req := requestWithActorID(http.MethodGet, "/apikeys", nil)
	w := httptest.NewRecorder()

	handler.ListAPIKeys(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].([]interface{})
	require.Len(t, data, 2)
	second := data[1].(map[string]interface{})
	assert.NotEmpty(t, second["revoked_at"])
	assert.NotContains(t, w.Body.String(), "key_hash")
	mockSvc.AssertExpectations(t)
}

func TestAuthHandler_RevokeAPIKey_Success(t *testing.T) {
	mockSvc := new(MockAuthService)
	handler := NewAuthHandler(mockSvc)

	mockSvc.On("RevokeAPIKey", mock.Anything, "key-1").Return(nil)

	req := requestWithActorID(http.MethodDelete, "/apikeys/key-1", nil)
	req = withRouteParams(req, map[string]string{"keyID": "key-1"})
	w := httptest.NewRecorder()

	handler.RevokeAPIKey(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestAuthHandler_RevokeAPIKey_NotFound(t *testing.T) {
	mockSvc := new(MockAuthService)
	handler := NewAuthHandler(mockSvc)

	mockSvc.On("RevokeAPIKey", mock.Anything, "key-999").Return(domain.ErrAPIKeyNotFound)

	req := requestWithActorID(http.MethodDelete, "/apikeys/key-999", nil)
	req = withRouteParams(req, map[string]string{"keyID": "key-999"})
	w := httptest.NewRecorder()

	handler.RevokeAPIKey(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	mockSvc.AssertExpectations(t)
}
