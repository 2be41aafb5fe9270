package domain

import (
	"fmt"
	"time"
)

// ProjectKeyLength is the raw key size used by the encryption engine.
const ProjectKeyLength = 32

// ProjectEncryptionKey is the symmetric key material shared by all sensitive
// items of one project. It is created lazily on the first sensitive
// ingestion and lives exactly as long as the project. Material is either
// hex-encoded raw key bytes or a passphrase; the encryption engine
// normalizes both to key length and plaintext keys never reach callers.
type ProjectEncryptionKey struct {
	ProjectID   string
	KeyMaterial string
	CreatedAt   time.Time
}

// ValidateProjectEncryptionKey validates a ProjectEncryptionKey instance
func ValidateProjectEncryptionKey(k *ProjectEncryptionKey) error {
	if k == nil {
		return fmt.Errorf("project encryption key cannot be nil")
	}

	if k.ProjectID == "" {
		return fmt.Errorf("project encryption key ProjectID is required")
	}

	if k.KeyMaterial == "" {
		return fmt.Errorf("project encryption key material is required")
	}

	return nil
}
