package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/corpora/internal/api"
	"github.com/cloo-solutions/corpora/internal/api/middleware"
	"github.com/cloo-solutions/corpora/internal/domain"
	"github.com/cloo-solutions/corpora/internal/service"
)

type KnowledgeService interface {
	GetByID(ctx context.Context, actorID, projectID, itemID string) (*domain.KnowledgeItem, error)
	ListItems(ctx context.Context, input service.ListItemsInput) (*service.ListItemsOutput, error)
	ListAudit(ctx context.Context, input service.ListAuditInput) (*service.ListAuditOutput, error)
}

type KnowledgeHandler struct {
	svc KnowledgeService
}

func NewKnowledgeHandler(svc KnowledgeService) *KnowledgeHandler {
	return &KnowledgeHandler{svc: svc}
}

type KnowledgeItemResponse struct {
	ID                       string          `json:"id"`
	ProjectID                string          `json:"project_id"`
	OwnerID                  string          `json:"owner_id"`
	Title                    string          `json:"title"`
	Category                 string          `json:"category"`
	SourceType               string          `json:"source_type"`
	SourceRef                string          `json:"source_ref,omitempty"`
	SensitivityTier          string          `json:"sensitivity_tier"`
	EncryptionState          string          `json:"encryption_state"`
	ClassificationConfidence float64         `json:"classification_confidence"`
	RetentionPolicy          string          `json:"retention_policy"`
	ComplianceFlags          map[string]bool `json:"compliance_flags"`
	CreatedAt                string          `json:"created_at"`
}

type KnowledgeListResponse struct {
	Items      []KnowledgeItemResponse `json:"items"`
	NextCursor string                  `json:"next_cursor,omitempty"`
	HasMore    bool                    `json:"has_more"`
}

type AuditRecordResponse struct {
	ID           string                 `json:"id"`
	ProjectID    string                 `json:"project_id"`
	ActorID      string                 `json:"actor_id,omitempty"`
	Action       string                 `json:"action"`
	ResourceType string                 `json:"resource_type"`
	ResourceID   string                 `json:"resource_id,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	Timestamp    string                 `json:"timestamp"`
}

type AuditListResponse struct {
	Records    []AuditRecordResponse `json:"records"`
	NextCursor string                `json:"next_cursor,omitempty"`
	HasMore    bool                  `json:"has_more"`
}

// Stored content stays out of the read API; only admission metadata
// is returned.
func knowledgeItemToResponse(item *domain.KnowledgeItem) KnowledgeItemResponse {
	return KnowledgeItemResponse{
		ID:                       item.ID,
		ProjectID:                item.ProjectID,
		OwnerID:                  item.OwnerID,
		Title:                    item.Title,
		Category:                 item.Category,
		SourceType:               string(item.SourceType),
		SourceRef:                item.SourceRef,
		SensitivityTier:          string(item.SensitivityTier),
		EncryptionState:          string(item.EncryptionState),
		ClassificationConfidence: item.ClassificationConfidence,
		RetentionPolicy:          string(item.RetentionPolicy),
		ComplianceFlags:          item.ComplianceFlags,
		CreatedAt:                item.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func auditRecordToResponse(record *domain.AuditRecord) AuditRecordResponse {
	return AuditRecordResponse{
		ID:           record.ID,
		ProjectID:    record.ProjectID,
		ActorID:      record.ActorID,
		Action:       record.Action,
		ResourceType: record.ResourceType,
		ResourceID:   record.ResourceID,
		Metadata:     record.Metadata,
		Timestamp:    record.Timestamp.Format("2006-01-02T15:04:05Z"),
	}
}

func (h *KnowledgeHandler) Get(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetActorID(r.Context())
	if actorID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	projectID := chi.URLParam(r, "projectID")
	itemID := chi.URLParam(r, "itemID")

	item, err := h.svc.GetByID(r.Context(), actorID, projectID, itemID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, knowledgeItemToResponse(item))
}

func (h *KnowledgeHandler) List(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetActorID(r.Context())
	if actorID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	projectID := chi.URLParam(r, "projectID")

	out, err := h.svc.ListItems(r.Context(), service.ListItemsInput{
		ProjectID: projectID,
		ActorID:   actorID,
		Cursor:    r.URL.Query().Get("cursor"),
		Limit:     parseLimit(r),
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := KnowledgeListResponse{
		Items:      make([]KnowledgeItemResponse, 0, len(out.Items)),
		NextCursor: out.Cursor,
		HasMore:    out.HasMore,
	}
	for _, item := range out.Items {
		resp.Items = append(resp.Items, knowledgeItemToResponse(item))
	}

	api.Success(w, http.StatusOK, resp)
}

func (h *KnowledgeHandler) ListAudit(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetActorID(r.Context())
	if actorID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	projectID := chi.URLParam(r, "projectID")

	out, err := h.svc.ListAudit(r.Context(), service.ListAuditInput{
		ProjectID: projectID,
		ActorID:   actorID,
		Cursor:    r.URL.Query().Get("cursor"),
		Limit:     parseLimit(r),
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := AuditListResponse{
		Records:    make([]AuditRecordResponse, 0, len(out.Records)),
		NextCursor: out.Cursor,
		HasMore:    out.HasMore,
	}
	for _, record := range out.Records {
		resp.Records = append(resp.Records, auditRecordToResponse(record))
	}

	api.Success(w, http.StatusOK, resp)
}

func parseLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}
