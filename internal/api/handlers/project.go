package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cloo-solutions/corpora/internal/api"
	"github.com/cloo-solutions/corpora/internal/api/middleware"
	"github.com/cloo-solutions/corpora/internal/domain"
)

type ProjectRepository interface {
	Create(ctx context.Context, project *domain.Project) error
	GetByID(ctx context.Context, id string) (*domain.Project, error)
	List(ctx context.Context) ([]*domain.Project, error)
}

type MemberRepository interface {
	Authorize(ctx context.Context, actorID, projectID string, permission domain.Permission) (bool, error)
	Grant(ctx context.Context, projectID, actorID string, permission domain.Permission) error
	Revoke(ctx context.Context, projectID, actorID string) error
}

type ProjectHandler struct {
	repo    ProjectRepository
	members MemberRepository
}

func NewProjectHandler(repo ProjectRepository, members MemberRepository) *ProjectHandler {
	return &ProjectHandler{repo: repo, members: members}
}

type CreateProjectRequest struct {
	Name         string `json:"name"`
	MaxDocuments int    `json:"max_documents"`
}

type ProjectResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	MaxDocuments   int    `json:"max_documents"`
	LastAccessedAt string `json:"last_accessed_at,omitempty"`
	CreatedAt      string `json:"created_at"`
}

type GrantMemberRequest struct {
	ActorID    string `json:"actor_id"`
	Permission string `json:"permission"`
}

func projectToResponse(project *domain.Project) ProjectResponse {
	resp := ProjectResponse{
		ID:           project.ID,
		Name:         project.Name,
		MaxDocuments: project.MaxDocuments,
		CreatedAt:    project.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if project.LastAccessedAt != nil {
		resp.LastAccessedAt = project.LastAccessedAt.Format("2006-01-02T15:04:05Z")
	}
	return resp
}

// Create registers a project and grants the creator admin on it.
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetActorID(r.Context())
	if actorID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" {
		api.Error(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.MaxDocuments < 0 {
		api.Error(w, http.StatusBadRequest, "max_documents cannot be negative")
		return
	}

	project := &domain.Project{
		ID:           uuid.NewString(),
		Name:         req.Name,
		MaxDocuments: req.MaxDocuments,
		CreatedAt:    time.Now().UTC(),
	}

	if err := h.repo.Create(r.Context(), project); err != nil {
		api.HandleError(w, err)
		return
	}

	if err := h.members.Grant(r.Context(), project.ID, actorID, domain.PermissionAdmin); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, projectToResponse(project))
}

func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetActorID(r.Context())
	if actorID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	projectID := chi.URLParam(r, "projectID")

	allowed, err := h.members.Authorize(r.Context(), actorID, projectID, domain.PermissionRead)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	if !allowed {
		api.Error(w, http.StatusForbidden, "access denied")
		return
	}

	project, err := h.repo.GetByID(r.Context(), projectID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, projectToResponse(project))
}

func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetActorID(r.Context())
	if actorID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	projects, err := h.repo.List(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := make([]ProjectResponse, 0, len(projects))
	for _, project := range projects {
		resp = append(resp, projectToResponse(project))
	}

	api.Success(w, http.StatusOK, resp)
}

func (h *ProjectHandler) GrantMember(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetActorID(r.Context())
	if actorID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	projectID := chi.URLParam(r, "projectID")

	allowed, err := h.members.Authorize(r.Context(), actorID, projectID, domain.PermissionAdmin)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	if !allowed {
		api.Error(w, http.StatusForbidden, "access denied")
		return
	}

	var req GrantMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ActorID == "" {
		api.Error(w, http.StatusBadRequest, "actor_id is required")
		return
	}
	if !domain.IsValidPermission(domain.Permission(req.Permission)) {
		api.Error(w, http.StatusBadRequest, "permission must be read, write or admin")
		return
	}

	if err := h.members.Grant(r.Context(), projectID, req.ActorID, domain.Permission(req.Permission)); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"status": "granted"})
}

func (h *ProjectHandler) RevokeMember(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetActorID(r.Context())
	if actorID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	projectID := chi.URLParam(r, "projectID")
	memberID := chi.URLParam(r, "actorID")

	allowed, err := h.members.Authorize(r.Context(), actorID, projectID, domain.PermissionAdmin)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	if !allowed {
		api.Error(w, http.StatusForbidden, "access denied")
		return
	}

	if err := h.members.Revoke(r.Context(), projectID, memberID); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"status": "revoked"})
}
