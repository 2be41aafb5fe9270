package domain

import (
	"fmt"
	"time"
)

// ContentFingerprint is the dedup record for a knowledge item. The pair
// (ProjectID, ContentHash) is unique per project; the hash is computed over
// canonical plaintext, never over protected output.
type ContentFingerprint struct {
	ID              string
	ProjectID       string
	ContentHash     string
	KnowledgeItemID string
	Embedding       []float32
	Metadata        map[string]interface{}
	CreatedAt       time.Time
}

// ValidateContentFingerprint validates a ContentFingerprint instance
func ValidateContentFingerprint(f *ContentFingerprint) error {
	if f == nil {
		return fmt.Errorf("content fingerprint cannot be nil")
	}

	if f.ID == "" {
		return fmt.Errorf("content fingerprint ID is required")
	}

	if f.ProjectID == "" {
		return fmt.Errorf("content fingerprint ProjectID is required")
	}

	if len(f.ContentHash) != 64 {
		return fmt.Errorf("content fingerprint ContentHash must be a sha-256 hex digest")
	}

	if f.KnowledgeItemID == "" {
		return fmt.Errorf("content fingerprint KnowledgeItemID is required")
	}

	return nil
}
