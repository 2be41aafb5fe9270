package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/corpora/internal/api"
	"github.com/cloo-solutions/corpora/internal/api/middleware"
	"github.com/cloo-solutions/corpora/internal/domain"
)

type AuthService interface {
	CreateActor(ctx context.Context, name string) (*domain.Actor, error)
	CreateAPIKey(ctx context.Context, actorID, name string) (string, error)
	RevokeAPIKey(ctx context.Context, keyID string) error
	ListAPIKeys(ctx context.Context, actorID string) ([]*domain.APIKey, error)
}

type AuthHandler struct {
	svc AuthService
}

func NewAuthHandler(svc AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

type CreateActorRequest struct {
	Name string `json:"name"`
}

type ActorResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

type CreateAPIKeyRequest struct {
	Name string `json:"name"`
}

type CreateAPIKeyResponse struct {
	Token string `json:"token"`
}

type APIKeyResponse struct {
	ID        string `json:"id"`
	ActorID   string `json:"actor_id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
	RevokedAt string `json:"revoked_at,omitempty"`
}

func apiKeyToResponse(key *domain.APIKey) APIKeyResponse {
	resp := APIKeyResponse{
		ID:        key.ID,
		ActorID:   key.ActorID,
		Name:      key.Name,
		CreatedAt: key.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if key.RevokedAt != nil {
		resp.RevokedAt = key.RevokedAt.Format("2006-01-02T15:04:05Z")
	}
	return resp
}

func (h *AuthHandler) CreateActor(w http.ResponseWriter, r *http.Request) {
	var req CreateActorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" {
		api.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	actor, err := h.svc.CreateActor(r.Context(), req.Name)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, ActorResponse{
		ID:        actor.ID,
		Name:      actor.Name,
		CreatedAt: actor.CreatedAt.Format("2006-01-02T15:04:05Z"),
	})
}

// CreateAPIKey mints a token for the calling actor. The plaintext token is
// returned exactly once; only its hash is stored.
func (h *AuthHandler) CreateAPIKey(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetActorID(r.Context())
	if actorID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateAPIKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" {
		api.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	token, err := h.svc.CreateAPIKey(r.Context(), actorID, req.Name)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, CreateAPIKeyResponse{Token: token})
}

func (h *AuthHandler) ListAPIKeys(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetActorID(r.Context())
	if actorID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	keys, err := h.svc.ListAPIKeys(r.Context(), actorID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := make([]APIKeyResponse, 0, len(keys))
	for _, key := range keys {
		resp = append(resp, apiKeyToResponse(key))
	}

	api.Success(w, http.StatusOK, resp)
}

func (h *AuthHandler) RevokeAPIKey(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetActorID(r.Context())
	if actorID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	keyID := chi.URLParam(r, "keyID")

	if err := h.svc.RevokeAPIKey(r.Context(), keyID); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"status": "revoked"})
}
