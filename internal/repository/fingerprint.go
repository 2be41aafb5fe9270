package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/cloo-solutions/corpora/internal/domain"
)

type FingerprintRepository struct {
	db dbtx
}

func NewFingerprintRepository(pool *pgxpool.Pool) *FingerprintRepository {
	return &FingerprintRepository{db: pool}
}

func NewFingerprintRepositoryWithTx(tx pgx.Tx) *FingerprintRepository {
	return &FingerprintRepository{db: tx}
}

func (r *FingerprintRepository) Create(ctx context.Context, f *domain.ContentFingerprint) error {
	metadata, err := json.Marshal(f.Metadata)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO content_fingerprints (id, project_id, content_hash, knowledge_item_id, embedding, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		f.ID, f.ProjectID, f.ContentHash, f.KnowledgeItemID, pgvector.NewVector(f.Embedding), metadata, f.CreatedAt,
	)
	return mapConstraintErr(err)
}

// GetByProjectAndHash returns (nil, nil) when the project holds no
// fingerprint for the hash.
func (r *FingerprintRepository) GetByProjectAndHash(ctx context.Context, projectID, contentHash string) (*domain.ContentFingerprint, error) {
	var f domain.ContentFingerprint
	var metadata []byte
	err := r.db.QueryRow(ctx,
		`SELECT id, project_id, content_hash, knowledge_item_id, metadata, created_at
		 FROM content_fingerprints WHERE project_id = $1 AND content_hash = $2`,
		projectID, contentHash,
	).Scan(&f.ID, &f.ProjectID, &f.ContentHash, &f.KnowledgeItemID, &metadata, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &f.Metadata); err != nil {
			return nil, err
		}
	}
	return &f, nil
}

func (r *FingerprintRepository) DeleteByKnowledgeItem(ctx context.Context, knowledgeItemID string) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM content_fingerprints WHERE knowledge_item_id = $1`,
		knowledgeItemID,
	)
	return err
}

// mapConstraintErr turns a unique violation on (project_id, content_hash)
// into the dedup sentinel so a commit-time race reads as a duplicate.
func mapConstraintErr(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return domain.ErrDuplicateContent
	}
	return err
}
