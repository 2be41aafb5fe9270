package domain

import (
	"fmt"
	"time"
)

// DefaultMaxDocuments is the document quota applied when a project does not
// set its own limit.
const DefaultMaxDocuments = 10000

// Project owns an isolated knowledge corpus. MaxDocuments caps how many
// knowledge items the project may hold.
type Project struct {
	ID             string
	Name           string
	MaxDocuments   int
	LastAccessedAt *time.Time
	CreatedAt      time.Time
}

// ValidateProject validates a Project instance
func ValidateProject(p *Project) error {
	if p == nil {
		return fmt.Errorf("project cannot be nil")
	}

	if p.ID == "" {
		return fmt.Errorf("project ID is required")
	}

	if p.Name == "" {
		return fmt.Errorf("project Name is required")
	}

	if p.MaxDocuments < 0 {
		return fmt.Errorf("project MaxDocuments cannot be negative")
	}

	return nil
}

// EffectiveMaxDocuments returns the quota for the project, falling back to
// the platform default when unset.
func (p *Project) EffectiveMaxDocuments() int {
	if p.MaxDocuments > 0 {
		return p.MaxDocuments
	}
	return DefaultMaxDocuments
}
