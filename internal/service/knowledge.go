package service

import (
	"context"

	"github.com/cloo-solutions/corpora/internal/domain"
	"github.com/cloo-solutions/corpora/internal/pagination"
	"github.com/cloo-solutions/corpora/internal/telemetry"
)

type KnowledgePageResult struct {
	Items      []*domain.KnowledgeItem
	NextCursor string
	HasMore    bool
}

type AuditPageResult struct {
	Records    []*domain.AuditRecord
	NextCursor string
	HasMore    bool
}

// KnowledgeService exposes the read surface of the corpus: item lookup,
// project listings and the audit trail. Writes go through the ingestion
// pipeline only.
type KnowledgeService struct {
	guard *Guard
	items KnowledgeItemRepositoryInterface
	audit AuditRepositoryInterface
}

// NewKnowledgeService creates a new KnowledgeService instance
func NewKnowledgeService(guard *Guard, items KnowledgeItemRepositoryInterface, audit AuditRepositoryInterface) *KnowledgeService {
	return &KnowledgeService{
		guard: guard,
		items: items,
		audit: audit,
	}
}

type ListItemsInput struct {
	ProjectID string
	ActorID   string
	Cursor    string
	Limit     int
}

type ListItemsOutput struct {
	Items   []*domain.KnowledgeItem
	Cursor  string
	HasMore bool
}

type ListAuditInput struct {
	ProjectID string
	ActorID   string
	Cursor    string
	Limit     int
}

type ListAuditOutput struct {
	Records []*domain.AuditRecord
	Cursor  string
	HasMore bool
}

// GetByID retrieves a knowledge item after an authorization check
func (s *KnowledgeService) GetByID(ctx context.Context, actorID, projectID, itemID string) (*domain.KnowledgeItem, error) {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.GetByID", telemetry.SpanAttributes{
		ProjectID: projectID,
		ActorID:   actorID,
		ItemID:    itemID,
		Operation: "get",
	})
	defer span.End()

	if err := s.guard.Authorize(ctx, actorID, projectID, domain.PermissionRead); err != nil {
		return nil, err
	}

	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.ProjectID != projectID {
		return nil, domain.ErrKnowledgeNotFound
	}
	return item, nil
}

// ListItems returns a cursor-paginated page of a project's knowledge items
func (s *KnowledgeService) ListItems(ctx context.Context, input ListItemsInput) (*ListItemsOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.ListItems", telemetry.SpanAttributes{
		ProjectID: input.ProjectID,
		ActorID:   input.ActorID,
		Operation: "list",
	})
	defer span.End()

	if err := s.guard.Authorize(ctx, input.ActorID, input.ProjectID, domain.PermissionRead); err != nil {
		return nil, err
	}

	cursor, _ := pagination.DecodeCursor(input.Cursor)
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}

	result, err := s.items.ListByProjectWithCursor(ctx, input.ProjectID, cursor, limit)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	return &ListItemsOutput{
		Items:   result.Items,
		Cursor:  result.NextCursor,
		HasMore: result.HasMore,
	}, nil
}

// ListAudit returns a cursor-paginated page of a project's audit trail
func (s *KnowledgeService) ListAudit(ctx context.Context, input ListAuditInput) (*ListAuditOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.ListAudit", telemetry.SpanAttributes{
		ProjectID: input.ProjectID,
		ActorID:   input.ActorID,
		Operation: "list_audit",
	})
	defer span.End()

	if err := s.guard.Authorize(ctx, input.ActorID, input.ProjectID, domain.PermissionRead); err != nil {
		return nil, err
	}

	cursor, _ := pagination.DecodeCursor(input.Cursor)
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}

	result, err := s.audit.ListByProjectWithCursor(ctx, input.ProjectID, cursor, limit)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	return &ListAuditOutput{
		Records: result.Records,
		Cursor:  result.NextCursor,
		HasMore: result.HasMore,
	}, nil
}
