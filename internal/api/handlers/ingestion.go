package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/corpora/internal/api"
	"github.com/cloo-solutions/corpora/internal/api/middleware"
	"github.com/cloo-solutions/corpora/internal/domain"
	"github.com/cloo-solutions/corpora/internal/service"
)

type IngestionService interface {
	IngestDocument(ctx context.Context, file service.FileInput, projectID, actorID string, opts service.IngestOptions) (*service.IngestionResult, error)
	IngestConversation(ctx context.Context, conversationID, projectID, actorID string, opts service.IngestOptions) (*service.IngestionResult, error)
	IngestText(ctx context.Context, content string, meta service.TextMetadata, opts service.IngestOptions) (*service.IngestionResult, error)
}

type IngestionHandler struct {
	svc IngestionService
}

func NewIngestionHandler(svc IngestionService) *IngestionHandler {
	return &IngestionHandler{svc: svc}
}

// IngestOptionsRequest carries the shared per-call tuning knobs
type IngestOptionsRequest struct {
	SensitivityLevel string `json:"sensitivity_level"`
	EncryptContent   bool   `json:"encrypt_content"`
	ClassifyContent  bool   `json:"classify_content"`
	RetentionPolicy  string `json:"retention_policy"`
}

func (r IngestOptionsRequest) toOptions() service.IngestOptions {
	return service.IngestOptions{
		SensitivityLevel: domain.SensitivityTier(r.SensitivityLevel),
		EncryptContent:   r.EncryptContent,
		ClassifyContent:  r.ClassifyContent,
		RetentionPolicy:  domain.RetentionPolicy(r.RetentionPolicy),
	}
}

type IngestDocumentRequest struct {
	Name        string               `json:"name"`
	ContentType string               `json:"content_type"`
	Content     string               `json:"content"`
	ObjectKey   string               `json:"object_key"`
	Size        int64                `json:"size"`
	Options     IngestOptionsRequest `json:"options"`
}

type IngestConversationRequest struct {
	ConversationID string               `json:"conversation_id"`
	Options        IngestOptionsRequest `json:"options"`
}

type IngestTextRequest struct {
	Content   string               `json:"content"`
	Title     string               `json:"title"`
	Category  string               `json:"category"`
	SourceRef string               `json:"source_ref"`
	Options   IngestOptionsRequest `json:"options"`
}

type IngestionResultResponse struct {
	ID          string                 `json:"id"`
	ProjectID   string                 `json:"project_id"`
	ActorID     string                 `json:"actor_id"`
	ContentHash string                 `json:"content_hash"`
	EmbeddingID string                 `json:"embedding_id"`
	Status      string                 `json:"status"`
	Metadata    map[string]interface{} `json:"metadata"`
	CreatedAt   string                 `json:"created_at"`
}

func ingestionResultToResponse(res *service.IngestionResult) *IngestionResultResponse {
	return &IngestionResultResponse{
		ID:          res.ID,
		ProjectID:   res.ProjectID,
		ActorID:     res.ActorID,
		ContentHash: res.ContentHash,
		EmbeddingID: res.EmbeddingID,
		Status:      string(res.Status),
		Metadata:    res.Metadata,
		CreatedAt:   res.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func (h *IngestionHandler) IngestDocument(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetActorID(r.Context())
	if actorID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	projectID := chi.URLParam(r, "projectID")

	var req IngestDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Content == "" && req.ObjectKey == "" {
		api.Error(w, http.StatusBadRequest, "content or object_key is required")
		return
	}

	file := service.FileInput{
		Name:        req.Name,
		ContentType: req.ContentType,
		Text:        req.Content,
		ObjectKey:   req.ObjectKey,
		Size:        req.Size,
	}

	result, err := h.svc.IngestDocument(r.Context(), file, projectID, actorID, req.Options.toOptions())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, ingestionResultToResponse(result))
}

func (h *IngestionHandler) IngestConversation(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetActorID(r.Context())
	if actorID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	projectID := chi.URLParam(r, "projectID")

	var req IngestConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ConversationID == "" {
		api.Error(w, http.StatusBadRequest, "conversation_id is required")
		return
	}

	result, err := h.svc.IngestConversation(r.Context(), req.ConversationID, projectID, actorID, req.Options.toOptions())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, ingestionResultToResponse(result))
}

func (h *IngestionHandler) IngestText(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetActorID(r.Context())
	if actorID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	projectID := chi.URLParam(r, "projectID")

	var req IngestTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Content == "" {
		api.Error(w, http.StatusBadRequest, "content is required")
		return
	}

	meta := service.TextMetadata{
		ProjectID: projectID,
		ActorID:   actorID,
		Title:     req.Title,
		Category:  req.Category,
		SourceRef: req.SourceRef,
	}

	result, err := h.svc.IngestText(r.Context(), req.Content, meta, req.Options.toOptions())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, ingestionResultToResponse(result))
}
