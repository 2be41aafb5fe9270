package service

import (
	"context"
	"log"
	"time"

	"github.com/cloo-solutions/corpora/internal/domain"
)

// Retention windows per policy. Indefinite items are never swept.
const (
	retentionStandardWindow = 365 * 24 * time.Hour
	retentionExtendedWindow = 7 * 365 * 24 * time.Hour
	retentionSweepBatchSize = 100
)

// RetentionService is the erasure workflow: the only path that removes
// knowledge items. Each erased item loses its fingerprint in the same
// transaction and leaves an audit record behind.
type RetentionService struct {
	items   KnowledgeItemRepositoryInterface
	tx      TxRunner
	uuidGen UUIDGenerator
	clock   func() time.Time
}

// NewRetentionService creates a new RetentionService instance
func NewRetentionService(items KnowledgeItemRepositoryInterface, tx TxRunner) *RetentionService {
	return &RetentionService{
		items:   items,
		tx:      tx,
		uuidGen: &DefaultUUIDGenerator{},
		clock:   func() time.Time { return time.Now().UTC() },
	}
}

// SweepExpired erases items whose retention window has elapsed and returns
// how many were removed. Indefinite-retention items are exempt.
func (s *RetentionService) SweepExpired(ctx context.Context) (int, error) {
	now := s.clock()

	erased := 0
	for _, policy := range []domain.RetentionPolicy{domain.RetentionStandard, domain.RetentionExtended} {
		cutoff := now.Add(-windowFor(policy))
		expired, err := s.items.ListExpiredBefore(ctx, cutoff, []domain.RetentionPolicy{policy}, retentionSweepBatchSize)
		if err != nil {
			return erased, err
		}

		for _, item := range expired {
			if err := s.eraseItem(ctx, item); err != nil {
				log.Printf("retention: failed to erase item %s: %v", item.ID, err)
				continue
			}
			erased++
		}
	}

	return erased, nil
}

// eraseItem removes an item and its fingerprint in one transaction, with an
// audit record committed alongside.
func (s *RetentionService) eraseItem(ctx context.Context, item *domain.KnowledgeItem) error {
	record := &domain.AuditRecord{
		ID:           s.uuidGen.NewString(),
		ProjectID:    item.ProjectID,
		ActorID:      "system",
		Action:       domain.AuditActionRetentionErase,
		ResourceType: "knowledge_item",
		ResourceID:   item.ID,
		Metadata: map[string]interface{}{
			"retention_policy": string(item.RetentionPolicy),
			"created_at":       item.CreatedAt.Format(time.RFC3339),
		},
		Timestamp: s.clock(),
	}

	return s.tx.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Fingerprints().DeleteByKnowledgeItem(ctx, item.ID); err != nil {
			return err
		}
		if err := repos.KnowledgeItems().Delete(ctx, item.ID); err != nil {
			return err
		}
		return repos.AuditLog().Create(ctx, record)
	})
}

func windowFor(policy domain.RetentionPolicy) time.Duration {
	if policy == domain.RetentionExtended {
		return retentionExtendedWindow
	}
	return retentionStandardWindow
}
