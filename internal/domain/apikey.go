package domain

import (
	"fmt"
	"time"
)

// APIKey binds a credential to an actor. Only the SHA-256 hash of the token
// is stored.
type APIKey struct {
	ID        string
	ActorID   string
	Name      string
	KeyHash   string
	CreatedAt time.Time
	RevokedAt *time.Time
}

func (a *APIKey) IsRevoked() bool {
	return a.RevokedAt != nil
}

// ValidateAPIKey checks the fields required before persisting a key.
func ValidateAPIKey(a *APIKey) error {
	if a == nil {
		return fmt.Errorf("api key cannot be nil")
	}
	for _, f := range []struct {
		name, value string
	}{
		{"ID", a.ID},
		{"ActorID", a.ActorID},
		{"Name", a.Name},
		{"KeyHash", a.KeyHash},
	} {
		if f.value == "" {
			return fmt.Errorf("api key %s is required", f.name)
		}
	}
	return nil
}
