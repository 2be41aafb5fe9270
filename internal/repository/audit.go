package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/corpora/internal/domain"
	"github.com/cloo-solutions/corpora/internal/pagination"
	"github.com/cloo-solutions/corpora/internal/service"
)

// AuditRepository stores the append-only ingestion audit log. Records are
// never updated or deleted through this repository.
type AuditRepository struct {
	db dbtx
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{db: pool}
}

func NewAuditRepositoryWithTx(tx pgx.Tx) *AuditRepository {
	return &AuditRepository{db: tx}
}

func (r *AuditRepository) Create(ctx context.Context, a *domain.AuditRecord) error {
	metadata, err := json.Marshal(a.Metadata)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO ingestion_audit_log (id, project_id, actor_id, action, resource_type, resource_id, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.ProjectID, nullableString(a.ActorID), a.Action, a.ResourceType, nullableString(a.ResourceID), metadata, a.Timestamp,
	)
	return err
}

func (r *AuditRepository) ListByProjectWithCursor(ctx context.Context, projectID string, cursor *pagination.Cursor, limit int) (*service.AuditPageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT id, project_id, actor_id, action, resource_type, resource_id, metadata, created_at
			 FROM ingestion_audit_log
			 WHERE project_id = $1 AND (created_at, id) < ($2, $3)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $4`,
			projectID, cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT id, project_id, actor_id, action, resource_type, resource_id, metadata, created_at
			 FROM ingestion_audit_log
			 WHERE project_id = $1
			 ORDER BY created_at DESC, id DESC
			 LIMIT $2`,
			projectID, limit+1,
		)
	}

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.AuditRecord
	for rows.Next() {
		var a domain.AuditRecord
		var actorID, resourceID *string
		var metadata []byte
		if err := rows.Scan(&a.ID, &a.ProjectID, &actorID, &a.Action, &a.ResourceType, &resourceID, &metadata, &a.Timestamp); err != nil {
			return nil, err
		}
		if actorID != nil {
			a.ActorID = *actorID
		}
		if resourceID != nil {
			a.ResourceID = *resourceID
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &a.Metadata); err != nil {
				return nil, err
			}
		}
		records = append(records, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	hasMore := len(records) > limit
	if hasMore {
		records = records[:limit]
	}

	var nextCursor string
	if hasMore && len(records) > 0 {
		last := records[len(records)-1]
		nextCursor = pagination.EncodeCursor(last.ID, last.Timestamp)
	}

	return &service.AuditPageResult{
		Records:    records,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}
