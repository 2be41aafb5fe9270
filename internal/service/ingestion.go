package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/cloo-solutions/corpora/internal/domain"
	"github.com/cloo-solutions/corpora/internal/pagination"
	"github.com/cloo-solutions/corpora/internal/telemetry"
	"github.com/google/uuid"
)

// KnowledgeItemRepositoryInterface defines the repository interface for
// knowledge item persistence
type KnowledgeItemRepositoryInterface interface {
	Create(ctx context.Context, k *domain.KnowledgeItem) error
	GetByID(ctx context.Context, id string) (*domain.KnowledgeItem, error)
	ListByProjectWithCursor(ctx context.Context, projectID string, cursor *pagination.Cursor, limit int) (*KnowledgePageResult, error)
	CountByProject(ctx context.Context, projectID string) (int, error)
	ListExpiredBefore(ctx context.Context, cutoff time.Time, policies []domain.RetentionPolicy, limit int) ([]*domain.KnowledgeItem, error)
	Delete(ctx context.Context, id string) error
}

// FingerprintRepositoryInterface defines the repository interface for dedup
// fingerprints. GetByProjectAndHash returns (nil, nil) when no fingerprint
// exists.
type FingerprintRepositoryInterface interface {
	Create(ctx context.Context, f *domain.ContentFingerprint) error
	GetByProjectAndHash(ctx context.Context, projectID, contentHash string) (*domain.ContentFingerprint, error)
	DeleteByKnowledgeItem(ctx context.Context, knowledgeItemID string) error
}

// AuditRepositoryInterface defines the repository interface for the
// append-only audit log
type AuditRepositoryInterface interface {
	Create(ctx context.Context, a *domain.AuditRecord) error
	ListByProjectWithCursor(ctx context.Context, projectID string, cursor *pagination.Cursor, limit int) (*AuditPageResult, error)
}

// ProjectRepositoryInterface defines the repository interface for projects
type ProjectRepositoryInterface interface {
	GetByID(ctx context.Context, id string) (*domain.Project, error)
	TouchLastAccessed(ctx context.Context, id string) error
}

// ConversationRepositoryInterface defines the repository interface for
// conversation transcripts
type ConversationRepositoryInterface interface {
	GetByID(ctx context.Context, id string) (*domain.Conversation, error)
	GetMessages(ctx context.Context, conversationID string) ([]*domain.ConversationMessage, error)
}

// ObjectFetcher retrieves raw document bytes from object storage
type ObjectFetcher interface {
	FetchObject(ctx context.Context, key string) ([]byte, error)
}

// MetricsRecorder receives usage counters for admitted and rejected
// ingestions. Implementations must be safe for concurrent use.
type MetricsRecorder interface {
	ObserveIngestion(tier domain.SensitivityTier, status domain.IngestionStatus)
	ObserveRejection(code string)
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// IngestOptions tune a single ingestion call
type IngestOptions struct {
	SensitivityLevel domain.SensitivityTier // explicit tier, overrides the classifier
	EncryptContent   bool                   // force at least the confidential transform
	ClassifyContent  bool                   // attach classifier confidence even for explicit tiers
	RetentionPolicy  domain.RetentionPolicy
}

// TextMetadata describes inline text submitted for ingestion
type TextMetadata struct {
	ProjectID  string
	ActorID    string
	Title      string
	Category   string
	SourceType domain.SourceType
	SourceRef  string
}

// IngestionResult is returned for every successful admission
type IngestionResult struct {
	ID          string
	ProjectID   string
	ActorID     string
	ContentHash string
	EmbeddingID string
	Status      domain.IngestionStatus
	Metadata    map[string]interface{}
	CreatedAt   time.Time
}

// IngestionService coordinates the admission pipeline:
// validate → extract → classify → protect → hash → dedup → embed →
// persist (one transaction) → audit → post-commit notifications.
type IngestionService struct {
	guard         *Guard
	engine        *EncryptionEngine
	embedder      EmbeddingProvider
	items         KnowledgeItemRepositoryInterface
	fingerprints  FingerprintRepositoryInterface
	projects      ProjectRepositoryInterface
	conversations ConversationRepositoryInterface
	audit         AuditRepositoryInterface
	tx            TxRunner
	notifier      *Notifier
	fetcher       ObjectFetcher
	metrics       MetricsRecorder
	uuidGen       UUIDGenerator
}

// IngestionServiceConfig wires an IngestionService. Fetcher, Notifier and
// Metrics are optional.
type IngestionServiceConfig struct {
	Guard         *Guard
	Engine        *EncryptionEngine
	Embedder      EmbeddingProvider
	Items         KnowledgeItemRepositoryInterface
	Fingerprints  FingerprintRepositoryInterface
	Projects      ProjectRepositoryInterface
	Conversations ConversationRepositoryInterface
	Audit         AuditRepositoryInterface
	Tx            TxRunner
	Notifier      *Notifier
	Fetcher       ObjectFetcher
	Metrics       MetricsRecorder
	UUIDGen       UUIDGenerator
}

// NewIngestionService creates a new IngestionService instance
func NewIngestionService(cfg IngestionServiceConfig) *IngestionService {
	uuidGen := cfg.UUIDGen
	if uuidGen == nil {
		uuidGen = &DefaultUUIDGenerator{}
	}
	return &IngestionService{
		guard:         cfg.Guard,
		engine:        cfg.Engine,
		embedder:      cfg.Embedder,
		items:         cfg.Items,
		fingerprints:  cfg.Fingerprints,
		projects:      cfg.Projects,
		conversations: cfg.Conversations,
		audit:         cfg.Audit,
		tx:            cfg.Tx,
		notifier:      cfg.Notifier,
		fetcher:       cfg.Fetcher,
		metrics:       cfg.Metrics,
		uuidGen:       uuidGen,
	}
}

// IngestDocument admits a file into the project corpus. When the input
// carries an object storage key instead of inline content, the raw bytes
// are pre-fetched first.
func (s *IngestionService) IngestDocument(ctx context.Context, file FileInput, projectID, actorID string, opts IngestOptions) (*IngestionResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestionService.IngestDocument", telemetry.SpanAttributes{
		ProjectID: projectID,
		ActorID:   actorID,
		Operation: "ingest_document",
	})
	defer span.End()

	if err := s.validateCaller(ctx, actorID, projectID); err != nil {
		return nil, s.reject(ctx, projectID, actorID, domain.AuditActionIngestDocument, err)
	}

	if file.ObjectKey != "" && len(file.Data) == 0 && file.Text == "" {
		if s.fetcher == nil {
			return nil, s.reject(ctx, projectID, actorID, domain.AuditActionIngestDocument,
				domain.NewDomainError(domain.ErrCodeValidation, "object storage not configured"))
		}
		data, err := s.fetcher.FetchObject(ctx, file.ObjectKey)
		if err != nil {
			return nil, s.reject(ctx, projectID, actorID, domain.AuditActionIngestDocument,
				domain.NewDomainErrorWithCause(domain.ErrCodeNotFound, "failed to fetch document object", err))
		}
		file.Data = data
	}

	canonical, err := ExtractFileContent(file)
	if err != nil {
		return nil, s.reject(ctx, projectID, actorID, domain.AuditActionIngestDocument, err)
	}

	title := file.Name
	if title == "" {
		title = "Untitled Document"
	}

	return s.admit(ctx, admission{
		projectID:  projectID,
		actorID:    actorID,
		canonical:  canonical,
		title:      title,
		category:   InferCategory(file.ContentType),
		sourceType: domain.SourceTypeFile,
		sourceRef:  file.ObjectKey,
		action:     domain.AuditActionIngestDocument,
		opts:       opts,
		auditMetadata: map[string]interface{}{
			"file_name": file.Name,
			"file_size": file.Size,
		},
	})
}

// IngestConversation admits a project conversation transcript
func (s *IngestionService) IngestConversation(ctx context.Context, conversationID, projectID, actorID string, opts IngestOptions) (*IngestionResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestionService.IngestConversation", telemetry.SpanAttributes{
		ProjectID: projectID,
		ActorID:   actorID,
		Operation: "ingest_conversation",
	})
	defer span.End()

	if err := s.validateCaller(ctx, actorID, projectID); err != nil {
		return nil, s.reject(ctx, projectID, actorID, domain.AuditActionIngestConversation, err)
	}

	conversation, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, s.reject(ctx, projectID, actorID, domain.AuditActionIngestConversation, err)
	}
	if conversation.ProjectID != projectID {
		return nil, s.reject(ctx, projectID, actorID, domain.AuditActionIngestConversation, domain.ErrConversationNotFound)
	}

	messages, err := s.conversations.GetMessages(ctx, conversationID)
	if err != nil {
		return nil, s.reject(ctx, projectID, actorID, domain.AuditActionIngestConversation, err)
	}

	canonical := ExtractConversationContent(messages)
	if canonical == "" {
		return nil, s.reject(ctx, projectID, actorID, domain.AuditActionIngestConversation, domain.ErrEmptyCanonicalContent)
	}

	title := conversation.Title
	if title == "" {
		title = "Conversation"
	}

	return s.admit(ctx, admission{
		projectID:  projectID,
		actorID:    actorID,
		canonical:  canonical,
		title:      title,
		category:   "conversation",
		sourceType: domain.SourceTypeConversation,
		sourceRef:  conversationID,
		action:     domain.AuditActionIngestConversation,
		opts:       opts,
		auditMetadata: map[string]interface{}{
			"conversation_id": conversationID,
			"message_count":   len(messages),
		},
	})
}

// IngestText admits inline text content
func (s *IngestionService) IngestText(ctx context.Context, content string, meta TextMetadata, opts IngestOptions) (*IngestionResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestionService.IngestText", telemetry.SpanAttributes{
		ProjectID: meta.ProjectID,
		ActorID:   meta.ActorID,
		Operation: "ingest_text",
	})
	defer span.End()

	if err := s.validateCaller(ctx, meta.ActorID, meta.ProjectID); err != nil {
		return nil, s.reject(ctx, meta.ProjectID, meta.ActorID, domain.AuditActionIngestText, err)
	}

	canonical := CanonicalizeText(content)
	if canonical == "" {
		return nil, s.reject(ctx, meta.ProjectID, meta.ActorID, domain.AuditActionIngestText, domain.ErrEmptyContent)
	}

	title := meta.Title
	if title == "" {
		title = "Text Content"
	}
	category := meta.Category
	if category == "" {
		category = "text"
	}
	sourceType := meta.SourceType
	if sourceType == "" {
		sourceType = domain.SourceTypeText
	}

	return s.admit(ctx, admission{
		projectID:     meta.ProjectID,
		actorID:       meta.ActorID,
		canonical:     canonical,
		title:         title,
		category:      category,
		sourceType:    sourceType,
		sourceRef:     meta.SourceRef,
		action:        domain.AuditActionIngestText,
		opts:          opts,
		auditMetadata: map[string]interface{}{},
	})
}

// admission carries one validated ingestion attempt through the pipeline
type admission struct {
	projectID     string
	actorID       string
	canonical     string
	title         string
	category      string
	sourceType    domain.SourceType
	sourceRef     string
	action        string
	opts          IngestOptions
	auditMetadata map[string]interface{}
}

func (s *IngestionService) admit(ctx context.Context, a admission) (*IngestionResult, error) {
	// Classifying. The classifier always runs so the label and confidence
	// land in metadata; an explicit caller tier wins over the verdict.
	classification := ClassifyContent(a.canonical)
	tier := classification.Tier
	if a.opts.SensitivityLevel != "" {
		if !isValidSensitivityTierOption(a.opts.SensitivityLevel) {
			return nil, s.reject(ctx, a.projectID, a.actorID, a.action, domain.ErrInvalidSensitivity)
		}
		tier = a.opts.SensitivityLevel
	}
	if a.opts.EncryptContent && tier == domain.TierStandard {
		tier = domain.TierConfidential
	}

	retention := a.opts.RetentionPolicy
	if retention == "" {
		retention = domain.RetentionStandard
	}
	if retention != domain.RetentionStandard && retention != domain.RetentionExtended && retention != domain.RetentionIndefinite {
		return nil, s.reject(ctx, a.projectID, a.actorID, a.action, domain.ErrInvalidRetention)
	}

	// Protecting
	protected, err := s.engine.Protect(ctx, a.projectID, tier, a.canonical)
	if err != nil {
		return nil, s.reject(ctx, a.projectID, a.actorID, a.action, err)
	}

	// Hashing over canonical plaintext, then the pre-emptive dedup check.
	// The unique index on (project_id, content_hash) remains the final
	// arbiter at commit time.
	contentHash := HashContent(a.canonical)

	existing, err := s.fingerprints.GetByProjectAndHash(ctx, a.projectID, contentHash)
	if err != nil {
		return nil, s.reject(ctx, a.projectID, a.actorID, a.action,
			domain.NewDomainErrorWithCause(domain.ErrCodePersistence, "dedup lookup failed", err))
	}
	if existing != nil {
		return nil, s.reject(ctx, a.projectID, a.actorID, a.action, domain.ErrDuplicateContent)
	}

	// Embedding over canonical plaintext
	embedding, err := s.embedder.GenerateEmbedding(ctx, a.canonical)
	if err != nil {
		return nil, s.reject(ctx, a.projectID, a.actorID, a.action,
			domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "embedding generation failed", err))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	itemID := s.uuidGen.NewString()
	fingerprintID := s.uuidGen.NewString()
	auditID := s.uuidGen.NewString()

	item := &domain.KnowledgeItem{
		ID:                       itemID,
		ProjectID:                a.projectID,
		OwnerID:                  a.actorID,
		Title:                    a.title,
		Content:                  protected.Content,
		OriginalContent:          originalForTier(tier, a.canonical),
		Category:                 a.category,
		SourceType:               a.sourceType,
		SourceRef:                a.sourceRef,
		SensitivityTier:          tier,
		EncryptionState:          protected.State,
		ClassificationConfidence: classification.Confidence,
		Embedding:                embedding,
		RetentionPolicy:          retention,
		ComplianceFlags:          domain.ComplianceFlagsForTier(tier),
		CreatedAt:                now,
	}

	if err := domain.ValidateKnowledgeItem(item); err != nil {
		return nil, s.reject(ctx, a.projectID, a.actorID, a.action,
			domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid knowledge item", err))
	}

	fingerprint := &domain.ContentFingerprint{
		ID:              fingerprintID,
		ProjectID:       a.projectID,
		ContentHash:     contentHash,
		KnowledgeItemID: itemID,
		Embedding:       embedding,
		Metadata: map[string]interface{}{
			"title":            a.title,
			"source_type":      string(a.sourceType),
			"sensitivity_tier": string(tier),
			"encryption_state": string(protected.State),
		},
		CreatedAt: now,
	}

	auditMeta := a.auditMetadata
	auditMeta["content_hash"] = contentHash
	auditMeta["sensitivity_tier"] = string(tier)
	auditMeta["encryption_state"] = string(protected.State)
	auditMeta["classifier_label"] = string(classification.Tier)
	auditMeta["classifier_confidence"] = classification.Confidence

	record := &domain.AuditRecord{
		ID:           auditID,
		ProjectID:    a.projectID,
		ActorID:      a.actorID,
		Action:       a.action,
		ResourceType: "knowledge_item",
		ResourceID:   itemID,
		Metadata:     auditMeta,
		Timestamp:    now,
	}

	// Persisting: item, fingerprint and audit row commit or roll back as
	// one unit. A uniqueness violation here means a concurrent ingestion
	// won the race and is reported as a dedup hit, not a storage failure.
	err = s.tx.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.KnowledgeItems().Create(ctx, item); err != nil {
			return err
		}
		if err := repos.Fingerprints().Create(ctx, fingerprint); err != nil {
			return err
		}
		return repos.AuditLog().Create(ctx, record)
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateContent) {
			return nil, s.reject(ctx, a.projectID, a.actorID, a.action, domain.ErrDuplicateContent)
		}
		return nil, s.reject(ctx, a.projectID, a.actorID, a.action,
			domain.NewDomainErrorWithCause(domain.ErrCodePersistence, "knowledge item persistence failed", err))
	}

	status := domain.IngestionStatusProcessed
	if protected.State != domain.EncryptionStateUnencrypted {
		status = domain.IngestionStatusEncrypted
	}

	if s.metrics != nil {
		s.metrics.ObserveIngestion(tier, status)
	}

	// Post-commit hooks are best-effort: the admission is already durable
	// and nothing below may fail it.
	if s.notifier != nil {
		s.notifier.IngestionCommitted(a.projectID, itemID)
	}

	return &IngestionResult{
		ID:          itemID,
		ProjectID:   a.projectID,
		ActorID:     a.actorID,
		ContentHash: contentHash,
		EmbeddingID: fingerprintID,
		Status:      status,
		Metadata: map[string]interface{}{
			"title":                 a.title,
			"category":              a.category,
			"source_type":           string(a.sourceType),
			"sensitivity_tier":      string(tier),
			"encryption_state":      string(protected.State),
			"classifier_label":      string(classification.Tier),
			"classifier_confidence": classification.Confidence,
			"retention_policy":      string(retention),
		},
		CreatedAt: now,
	}, nil
}

// validateCaller runs the Validating-state checks: identity presence, the
// directory authorize call and the document quota. Nothing is written
// before all three pass.
func (s *IngestionService) validateCaller(ctx context.Context, actorID, projectID string) error {
	if actorID == "" {
		return domain.ErrMissingActor
	}
	if projectID == "" {
		return domain.ErrMissingProject
	}

	if err := s.guard.Authorize(ctx, actorID, projectID, domain.PermissionWrite); err != nil {
		return err
	}

	return s.guard.CheckQuota(ctx, projectID)
}

// reject records the failed attempt in the audit log (best-effort, outside
// any transaction) and returns the rejection unchanged.
func (s *IngestionService) reject(ctx context.Context, projectID, actorID, action string, cause error) error {
	var domainErr *domain.DomainError
	code := domain.ErrCodeInternalError
	if errors.As(cause, &domainErr) {
		code = domainErr.Code
	}

	if s.metrics != nil {
		s.metrics.ObserveRejection(code)
	}

	if projectID != "" && s.audit != nil {
		record := &domain.AuditRecord{
			ID:           s.uuidGen.NewString(),
			ProjectID:    projectID,
			ActorID:      actorID,
			Action:       domain.AuditActionIngestRejected,
			ResourceType: "knowledge_item",
			Metadata: map[string]interface{}{
				"attempted_action": action,
				"rejection_code":   code,
			},
			Timestamp: time.Now().UTC(),
		}
		if err := s.audit.Create(context.WithoutCancel(ctx), record); err != nil {
			log.Printf("failed to audit rejected ingestion for project %s: %v", projectID, err)
		}
	}

	return cause
}

func originalForTier(tier domain.SensitivityTier, canonical string) string {
	// Plaintext is retained alongside protected content only for the
	// reversible confidential tier; restricted content is sealed and the
	// original must not be stored.
	if tier == domain.TierConfidential {
		return canonical
	}
	return ""
}

func isValidSensitivityTierOption(t domain.SensitivityTier) bool {
	switch t {
	case domain.TierStandard, domain.TierConfidential, domain.TierRestricted:
		return true
	}
	return false
}
