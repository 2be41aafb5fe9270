package domain

import (
	"fmt"
	"time"
)

// SensitivityTier governs encryption and compliance handling for an item
type SensitivityTier string

const (
	TierStandard     SensitivityTier = "standard"
	TierConfidential SensitivityTier = "confidential"
	TierRestricted   SensitivityTier = "restricted"
)

// EncryptionState records which protective transform was applied at rest
type EncryptionState string

const (
	EncryptionStateUnencrypted  EncryptionState = "unencrypted"
	EncryptionStateEncrypted    EncryptionState = "encrypted"
	EncryptionStateHSMEncrypted EncryptionState = "hsm_encrypted"
)

// RetentionPolicy controls how long an item is kept before the erasure sweep
type RetentionPolicy string

const (
	RetentionStandard   RetentionPolicy = "standard"
	RetentionExtended   RetentionPolicy = "extended"
	RetentionIndefinite RetentionPolicy = "indefinite"
)

// SourceType identifies where ingested content came from
type SourceType string

const (
	SourceTypeFile         SourceType = "file"
	SourceTypeConversation SourceType = "conversation"
	SourceTypeText         SourceType = "text"
)

// IngestionStatus is the terminal status reported for an admitted item
type IngestionStatus string

const (
	IngestionStatusProcessed IngestionStatus = "processed"
	IngestionStatusEncrypted IngestionStatus = "encrypted"
	IngestionStatusArchived  IngestionStatus = "archived"
)

// KnowledgeItem represents a single admitted piece of reference material.
// Items are immutable after creation except for compliance and retention
// flags; removal happens only through the erasure workflow.
type KnowledgeItem struct {
	ID                       string
	ProjectID                string
	OwnerID                  string
	Title                    string
	Content                  string
	OriginalContent          string
	Category                 string
	SourceType               SourceType
	SourceRef                string
	SensitivityTier          SensitivityTier
	EncryptionState          EncryptionState
	ClassificationConfidence float64
	Embedding                []float32
	RetentionPolicy          RetentionPolicy
	ComplianceFlags          map[string]bool
	CreatedAt                time.Time
}

// ExpectedEncryptionState returns the transform mandated for a tier.
// An item whose EncryptionState disagrees with this mapping is invalid.
func ExpectedEncryptionState(tier SensitivityTier) EncryptionState {
	switch tier {
	case TierConfidential:
		return EncryptionStateEncrypted
	case TierRestricted:
		return EncryptionStateHSMEncrypted
	default:
		return EncryptionStateUnencrypted
	}
}

// ComplianceFlagsForTier returns the regulatory flags attached per tier
func ComplianceFlagsForTier(tier SensitivityTier) map[string]bool {
	switch tier {
	case TierRestricted:
		return map[string]bool{"gdpr": true, "hipaa": true, "sox": true}
	case TierConfidential:
		return map[string]bool{"gdpr": true, "sox": true}
	default:
		return map[string]bool{}
	}
}

// ValidateKnowledgeItem validates a KnowledgeItem instance
func ValidateKnowledgeItem(k *KnowledgeItem) error {
	if k == nil {
		return fmt.Errorf("knowledge item cannot be nil")
	}

	if k.ID == "" {
		return fmt.Errorf("knowledge item ID is required")
	}

	if k.ProjectID == "" {
		return fmt.Errorf("knowledge item ProjectID is required")
	}

	if k.OwnerID == "" {
		return fmt.Errorf("knowledge item OwnerID is required")
	}

	if k.Content == "" {
		return fmt.Errorf("knowledge item Content is required")
	}

	if !isValidSensitivityTier(k.SensitivityTier) {
		return fmt.Errorf("knowledge item SensitivityTier is invalid: %s", k.SensitivityTier)
	}

	if !isValidEncryptionState(k.EncryptionState) {
		return fmt.Errorf("knowledge item EncryptionState is invalid: %s", k.EncryptionState)
	}

	if k.EncryptionState != ExpectedEncryptionState(k.SensitivityTier) {
		return fmt.Errorf("encryption state %s does not match tier %s", k.EncryptionState, k.SensitivityTier)
	}

	if !isValidRetentionPolicy(k.RetentionPolicy) {
		return fmt.Errorf("knowledge item RetentionPolicy is invalid: %s", k.RetentionPolicy)
	}

	if k.ClassificationConfidence < 0 || k.ClassificationConfidence > 1 {
		return fmt.Errorf("classification confidence must be in [0,1]: %f", k.ClassificationConfidence)
	}

	return nil
}

// isValidSensitivityTier checks if a SensitivityTier is valid
func isValidSensitivityTier(t SensitivityTier) bool {
	switch t {
	case TierStandard, TierConfidential, TierRestricted:
		return true
	}
	return false
}

// isValidEncryptionState checks if an EncryptionState is valid
func isValidEncryptionState(s EncryptionState) bool {
	switch s {
	case EncryptionStateUnencrypted, EncryptionStateEncrypted, EncryptionStateHSMEncrypted:
		return true
	}
	return false
}

// isValidRetentionPolicy checks if a RetentionPolicy is valid
func isValidRetentionPolicy(p RetentionPolicy) bool {
	switch p {
	case RetentionStandard, RetentionExtended, RetentionIndefinite:
		return true
	}
	return false
}

// IsValidSourceType checks if a SourceType is valid
func IsValidSourceType(t SourceType) bool {
	switch t {
	case SourceTypeFile, SourceTypeConversation, SourceTypeText:
		return true
	}
	return false
}
