package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/corpora/internal/domain"
)

// permissionRank orders the closed permission set so higher grants imply
// lower ones.
var permissionRank = map[domain.Permission]int{
	domain.PermissionRead:  1,
	domain.PermissionWrite: 2,
	domain.PermissionAdmin: 3,
}

// ProjectMemberRepository resolves actor-to-project grants and answers the
// guard's authorize calls.
type ProjectMemberRepository struct {
	pool *pgxpool.Pool
}

func NewProjectMemberRepository(pool *pgxpool.Pool) *ProjectMemberRepository {
	return &ProjectMemberRepository{pool: pool}
}

// Authorize reports whether the actor's membership grants at least the
// requested permission. An unknown membership is a plain denial, not an
// error.
func (r *ProjectMemberRepository) Authorize(ctx context.Context, actorID, projectID string, permission domain.Permission) (bool, error) {
	var granted string
	err := r.pool.QueryRow(ctx,
		`SELECT permission FROM project_members WHERE project_id = $1 AND actor_id = $2`,
		projectID, actorID,
	).Scan(&granted)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}

	return permissionRank[domain.Permission(granted)] >= permissionRank[permission], nil
}

func (r *ProjectMemberRepository) Grant(ctx context.Context, projectID, actorID string, permission domain.Permission) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO project_members (project_id, actor_id, permission)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (project_id, actor_id) DO UPDATE SET permission = EXCLUDED.permission`,
		projectID, actorID, string(permission),
	)
	return err
}

func (r *ProjectMemberRepository) Revoke(ctx context.Context, projectID, actorID string) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM project_members WHERE project_id = $1 AND actor_id = $2`,
		projectID, actorID,
	)
	return err
}
