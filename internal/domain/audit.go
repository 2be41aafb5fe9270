package domain

import (
	"fmt"
	"time"
)

// Audit actions recorded by the ingestion pipeline
const (
	AuditActionIngestDocument     = "INGEST_DOCUMENT"
	AuditActionIngestConversation = "INGEST_CONVERSATION"
	AuditActionIngestText         = "INGEST_TEXT"
	AuditActionIngestRejected     = "INGEST_REJECTED"
	AuditActionRetentionErase     = "RETENTION_ERASE"
)

// AuditRecord is an append-only entry in the project audit log.
// One record is written per ingestion attempt.
type AuditRecord struct {
	ID           string
	ProjectID    string
	ActorID      string
	Action       string
	ResourceType string
	ResourceID   string
	Metadata     map[string]interface{}
	Timestamp    time.Time
}

// ValidateAuditRecord validates an AuditRecord instance
func ValidateAuditRecord(a *AuditRecord) error {
	if a == nil {
		return fmt.Errorf("audit record cannot be nil")
	}

	if a.ID == "" {
		return fmt.Errorf("audit record ID is required")
	}

	if a.ProjectID == "" {
		return fmt.Errorf("audit record ProjectID is required")
	}

	if a.Action == "" {
		return fmt.Errorf("audit record Action is required")
	}

	if a.ResourceType == "" {
		return fmt.Errorf("audit record ResourceType is required")
	}

	return nil
}
