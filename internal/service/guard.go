package service

import (
	"context"

	"github.com/cloo-solutions/corpora/internal/domain"
)

// AccessChecker answers the directory service's boolean authorize call
type AccessChecker interface {
	Authorize(ctx context.Context, actorID, projectID string, permission domain.Permission) (bool, error)
}

// GuardProjectRepository is the project lookup needed for quota checks
type GuardProjectRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Project, error)
}

// GuardItemCounter counts admitted documents for a project
type GuardItemCounter interface {
	CountByProject(ctx context.Context, projectID string) (int, error)
}

// Guard runs permission and resource-limit checks before any mutation.
// Both checks are pure reads; a denial is terminal and guarantees no
// downstream step has written anything.
type Guard struct {
	checker  AccessChecker
	projects GuardProjectRepository
	counter  GuardItemCounter
}

// NewGuard creates a Guard instance
func NewGuard(checker AccessChecker, projects GuardProjectRepository, counter GuardItemCounter) *Guard {
	return &Guard{
		checker:  checker,
		projects: projects,
		counter:  counter,
	}
}

// Authorize verifies the actor holds the permission on the project
func (g *Guard) Authorize(ctx context.Context, actorID, projectID string, permission domain.Permission) error {
	if actorID == "" {
		return domain.ErrMissingActor
	}
	if projectID == "" {
		return domain.ErrMissingProject
	}
	if !domain.IsValidPermission(permission) {
		return domain.ErrInvalidPermission
	}

	allowed, err := g.checker.Authorize(ctx, actorID, projectID, permission)
	if err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "authorization check failed", err)
	}
	if !allowed {
		return domain.ErrAccessDenied
	}

	return nil
}

// CheckQuota verifies the project has headroom for one more document
func (g *Guard) CheckQuota(ctx context.Context, projectID string) error {
	project, err := g.projects.GetByID(ctx, projectID)
	if err != nil {
		return err
	}

	count, err := g.counter.CountByProject(ctx, projectID)
	if err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "quota check failed", err)
	}

	if count >= project.EffectiveMaxDocuments() {
		return domain.ErrQuotaExceeded
	}

	return nil
}
