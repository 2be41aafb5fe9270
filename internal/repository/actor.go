package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/corpora/internal/domain"
)

type ActorRepository struct {
	pool *pgxpool.Pool
}

func NewActorRepository(pool *pgxpool.Pool) *ActorRepository {
	return &ActorRepository{pool: pool}
}

func (r *ActorRepository) Create(ctx context.Context, actor *domain.Actor) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO actors (id, name, created_at) VALUES ($1, $2, $3)`,
		actor.ID, actor.Name, actor.CreatedAt,
	)
	return err
}

func (r *ActorRepository) GetByID(ctx context.Context, id string) (*domain.Actor, error) {
	var a domain.Actor
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, created_at FROM actors WHERE id = $1`,
		id,
	).Scan(&a.ID, &a.Name, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrActorNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *ActorRepository) GetByName(ctx context.Context, name string) (*domain.Actor, error) {
	var a domain.Actor
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, created_at FROM actors WHERE name = $1`,
		name,
	).Scan(&a.ID, &a.Name, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrActorNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *ActorRepository) List(ctx context.Context) ([]*domain.Actor, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, created_at FROM actors ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actors []*domain.Actor
	for rows.Next() {
		var a domain.Actor
		if err := rows.Scan(&a.ID, &a.Name, &a.CreatedAt); err != nil {
			return nil, err
		}
		actors = append(actors, &a)
	}
	return actors, rows.Err()
}
