package domain

import (
	"fmt"
	"time"
)

// Actor represents a user or service identity known to the platform
// directory. Corpora only needs enough of it to attribute ingestions and
// answer authorize calls.
type Actor struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Permission is the closed set of rights the guard understands
type Permission string

const (
	PermissionRead  Permission = "read"
	PermissionWrite Permission = "write"
	PermissionAdmin Permission = "admin"
)

// IsValidPermission checks if a Permission is drawn from the closed set
func IsValidPermission(p Permission) bool {
	switch p {
	case PermissionRead, PermissionWrite, PermissionAdmin:
		return true
	}
	return false
}

// ValidateActor validates an Actor instance
func ValidateActor(a *Actor) error {
	if a == nil {
		return fmt.Errorf("actor cannot be nil")
	}

	if a.ID == "" {
		return fmt.Errorf("actor ID is required")
	}

	if a.Name == "" {
		return fmt.Errorf("actor Name is required")
	}

	return nil
}
