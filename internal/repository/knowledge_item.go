package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/cloo-solutions/corpora/internal/domain"
	"github.com/cloo-solutions/corpora/internal/pagination"
	"github.com/cloo-solutions/corpora/internal/service"
)

const knowledgeItemColumns = `id, project_id, owner_id, title, content, original_content, category,
	 source_type, source_ref, sensitivity_tier, encryption_state,
	 classification_confidence, retention_policy, compliance_flags, created_at`

type KnowledgeItemRepository struct {
	db dbtx
}

func NewKnowledgeItemRepository(pool *pgxpool.Pool) *KnowledgeItemRepository {
	return &KnowledgeItemRepository{db: pool}
}

func NewKnowledgeItemRepositoryWithTx(tx pgx.Tx) *KnowledgeItemRepository {
	return &KnowledgeItemRepository{db: tx}
}

func (r *KnowledgeItemRepository) Create(ctx context.Context, k *domain.KnowledgeItem) error {
	flags, err := json.Marshal(k.ComplianceFlags)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO knowledge_items (id, project_id, owner_id, title, content, original_content, category,
		  source_type, source_ref, sensitivity_tier, encryption_state,
		  classification_confidence, embedding, retention_policy, compliance_flags, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		k.ID, k.ProjectID, k.OwnerID, k.Title, k.Content, nullableString(k.OriginalContent), k.Category,
		k.SourceType, nullableString(k.SourceRef), k.SensitivityTier, k.EncryptionState,
		k.ClassificationConfidence, pgvector.NewVector(k.Embedding), k.RetentionPolicy, flags, k.CreatedAt,
	)
	return mapConstraintErr(err)
}

func (r *KnowledgeItemRepository) GetByID(ctx context.Context, id string) (*domain.KnowledgeItem, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+knowledgeItemColumns+` FROM knowledge_items WHERE id = $1`,
		id,
	)
	item, err := scanKnowledgeItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrKnowledgeNotFound
		}
		return nil, err
	}
	return item, nil
}

func (r *KnowledgeItemRepository) ListByProjectWithCursor(ctx context.Context, projectID string, cursor *pagination.Cursor, limit int) (*service.KnowledgePageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT `+knowledgeItemColumns+`
			 FROM knowledge_items
			 WHERE project_id = $1 AND (created_at, id) < ($2, $3)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $4`,
			projectID, cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT `+knowledgeItemColumns+`
			 FROM knowledge_items
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

	items, err := scanKnowledgeItemRows(rows)
	if err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string
	if hasMore && len(items) > 0 {
		lastItem := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(lastItem.ID, lastItem.CreatedAt)
	}

	return &service.KnowledgePageResult{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

func (r *KnowledgeItemRepository) CountByProject(ctx context.Context, projectID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM knowledge_items WHERE project_id = $1`,
		projectID,
	).Scan(&count)
	return count, err
}

func (r *KnowledgeItemRepository) ListExpiredBefore(ctx context.Context, cutoff time.Time, policies []domain.RetentionPolicy, limit int) ([]*domain.KnowledgeItem, error) {
	if limit <= 0 {
		limit = 100
	}

	names := make([]string, len(policies))
	for i, p := range policies {
		names[i] = string(p)
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+knowledgeItemColumns+`
		 FROM knowledge_items
		 WHERE created_at < $1 AND retention_policy = ANY($2)
		 ORDER BY created_at ASC
		 LIMIT $3`,
		cutoff, names, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanKnowledgeItemRows(rows)
}

func (r *KnowledgeItemRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM knowledge_items WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrKnowledgeNotFound
	}
	return nil
}

func scanKnowledgeItem(row pgx.Row) (*domain.KnowledgeItem, error) {
	var k domain.KnowledgeItem
	var originalContent, sourceRef *string
	var flags []byte
	if err := row.Scan(&k.ID, &k.ProjectID, &k.OwnerID, &k.Title, &k.Content, &originalContent, &k.Category,
		&k.SourceType, &sourceRef, &k.SensitivityTier, &k.EncryptionState,
		&k.ClassificationConfidence, &k.RetentionPolicy, &flags, &k.CreatedAt); err != nil {
		return nil, err
	}
	if originalContent != nil {
		k.OriginalContent = *originalContent
	}
	if sourceRef != nil {
		k.SourceRef = *sourceRef
	}
	if len(flags) > 0 {
		if err := json.Unmarshal(flags, &k.ComplianceFlags); err != nil {
			return nil, err
		}
	}
	return &k, nil
}

func scanKnowledgeItemRows(rows pgx.Rows) ([]*domain.KnowledgeItem, error) {
	var results []*domain.KnowledgeItem
	for rows.Next() {
		item, err := scanKnowledgeItem(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, item)
	}
	return results, rows.Err()
}
