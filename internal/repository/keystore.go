package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/corpora/internal/domain"
	"github.com/cloo-solutions/corpora/internal/service"
)

// KeyStoreRepository persists per-project encryption key material.
// GetOrCreate is safe under concurrent first use: the insert-if-absent is
// atomic, so both racers end up reading the same stored key.
type KeyStoreRepository struct {
	pool *pgxpool.Pool
}

func NewKeyStoreRepository(pool *pgxpool.Pool) *KeyStoreRepository {
	return &KeyStoreRepository{pool: pool}
}

func (r *KeyStoreRepository) GetOrCreate(ctx context.Context, projectID string) (*domain.ProjectEncryptionKey, error) {
	key, err := r.get(ctx, projectID)
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	material, err := service.GenerateKeyMaterial()
	if err != nil {
		return nil, err
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO project_encryption_keys (project_id, key_material, created_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (project_id) DO NOTHING`,
		projectID, material, time.Now().UTC(),
	)
	if err != nil {
		return nil, err
	}

	// Re-select rather than trust our candidate: a concurrent creator may
	// have won the insert.
	return r.get(ctx, projectID)
}

func (r *KeyStoreRepository) get(ctx context.Context, projectID string) (*domain.ProjectEncryptionKey, error) {
	var key domain.ProjectEncryptionKey
	err := r.pool.QueryRow(ctx,
		`SELECT project_id, key_material, created_at FROM project_encryption_keys WHERE project_id = $1`,
		projectID,
	).Scan(&key.ProjectID, &key.KeyMaterial, &key.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &key, nil
}
