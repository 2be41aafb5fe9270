package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/corpora/internal/domain"
	"github.com/cloo-solutions/corpora/internal/pagination"
)

// MockKnowledgeItemRepository is a mock implementation of KnowledgeItemRepositoryInterface
type MockKnowledgeItemRepository struct {
	mock.Mock
}

func (m *MockKnowledgeItemRepository) Create(ctx context.Context, k *domain.KnowledgeItem) error {
	args := m.Called(ctx, k)
	return args.Error(0)
}

func (m *MockKnowledgeItemRepository) GetByID(ctx context.Context, id string) (*domain.KnowledgeItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KnowledgeItem), args.Error(1)
}

func (m *MockKnowledgeItemRepository) ListByProjectWithCursor(ctx context.Context, projectID string, cursor *pagination.Cursor, limit int) (*KnowledgePageResult, error) {
	args := m.Called(ctx, projectID, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*KnowledgePageResult), args.Error(1)
}

func (m *MockKnowledgeItemRepository) CountByProject(ctx context.Context, projectID string) (int, error) {
	args := m.Called(ctx, projectID)
	return args.Int(0), args.Error(1)
}

func (m *MockKnowledgeItemRepository) ListExpiredBefore(ctx context.Context, cutoff time.Time, policies []domain.RetentionPolicy, limit int) ([]*domain.KnowledgeItem, error) {
	args := m.Called(ctx, cutoff, policies, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.KnowledgeItem), args.Error(1)
}

func (m *MockKnowledgeItemRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockFingerprintRepository is a mock implementation of FingerprintRepositoryInterface
type MockFingerprintRepository struct {
	mock.Mock
}

func (m *MockFingerprintRepository) Create(ctx context.Context, f *domain.ContentFingerprint) error {
	args := m.Called(ctx, f)
	return args.Error(0)
}

func (m *MockFingerprintRepository) GetByProjectAndHash(ctx context.Context, projectID, contentHash string) (*domain.ContentFingerprint, error) {
	args := m.Called(ctx, projectID, contentHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ContentFingerprint), args.Error(1)
}

func (m *MockFingerprintRepository) DeleteByKnowledgeItem(ctx context.Context, knowledgeItemID string) error {
	args := m.Called(ctx, knowledgeItemID)
	return args.Error(0)
}

// MockAuditRepository is a mock implementation of AuditRepositoryInterface
type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Create(ctx context.Context, a *domain.AuditRecord) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockAuditRepository) ListByProjectWithCursor(ctx context.Context, projectID string, cursor *pagination.Cursor, limit int) (*AuditPageResult, error) {
	args := m.Called(ctx, projectID, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*AuditPageResult), args.Error(1)
}

// MockProjectRepository is a mock implementation of ProjectRepositoryInterface
type MockProjectRepository struct {
	mock.Mock
}

func (m *MockProjectRepository) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Project), args.Error(1)
}

func (m *MockProjectRepository) TouchLastAccessed(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockConversationRepository is a mock implementation of ConversationRepositoryInterface
type MockConversationRepository struct {
	mock.Mock
}

func (m *MockConversationRepository) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *MockConversationRepository) GetMessages(ctx context.Context, conversationID string) ([]*domain.ConversationMessage, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ConversationMessage), args.Error(1)
}

// MockAccessChecker is a mock implementation of AccessChecker
type MockAccessChecker struct {
	mock.Mock
}

func (m *MockAccessChecker) Authorize(ctx context.Context, actorID, projectID string, permission domain.Permission) (bool, error) {
	args := m.Called(ctx, actorID, projectID, permission)
	return args.Bool(0), args.Error(1)
}

// MockUUIDGenerator is a mock implementation of UUIDGenerator
type MockUUIDGenerator struct {
	mock.Mock
	callCount int
	uuids     []string
}

func NewMockUUIDGenerator(uuids ...string) *MockUUIDGenerator {
	return &MockUUIDGenerator{uuids: uuids}
}

func (m *MockUUIDGenerator) NewString() string {
	if m.callCount < len(m.uuids) {
		uuid := m.uuids[m.callCount]
		m.callCount++
		return uuid
	}
	return "default-uuid"
}

// stubKeyStore serves a fixed key for every project
type stubKeyStore struct {
	material string
	err      error
}

func (s *stubKeyStore) GetOrCreate(_ context.Context, projectID string) (*domain.ProjectEncryptionKey, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.ProjectEncryptionKey{
		ProjectID:   projectID,
		KeyMaterial: s.material,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// stubTxRepositories hands the ambient mocks back as transaction-bound repos
type stubTxRepositories struct {
	items        KnowledgeItemRepositoryInterface
	fingerprints FingerprintRepositoryInterface
	audit        AuditRepositoryInterface
}

func (s stubTxRepositories) KnowledgeItems() KnowledgeItemRepositoryInterface {
	return s.items
}

func (s stubTxRepositories) Fingerprints() FingerprintRepositoryInterface {
	return s.fingerprints
}

func (s stubTxRepositories) AuditLog() AuditRepositoryInterface {
	return s.audit
}

type stubTxRunner struct {
	repos stubTxRepositories
	err   error
}

func (s *stubTxRunner) WithTx(_ context.Context, fn func(repos TxRepositories) error) error {
	if s.err != nil {
		return s.err
	}
	return fn(s.repos)
}

type ingestionFixture struct {
	service      *IngestionService
	checker      *MockAccessChecker
	items        *MockKnowledgeItemRepository
	fingerprints *MockFingerprintRepository
	audit        *MockAuditRepository
	projects     *MockProjectRepository
	convos       *MockConversationRepository
	tx           *stubTxRunner
}

func newIngestionFixture(uuids ...string) *ingestionFixture {
	checker := new(MockAccessChecker)
	items := new(MockKnowledgeItemRepository)
	fingerprints := new(MockFingerprintRepository)
	audit := new(MockAuditRepository)
	projects := new(MockProjectRepository)
	convos := new(MockConversationRepository)

	tx := &stubTxRunner{repos: stubTxRepositories{
		items:        items,
		fingerprints: fingerprints,
		audit:        audit,
	}}

	svc := NewIngestionService(IngestionServiceConfig{
		Guard:         NewGuard(checker, projects, items),
		Engine:        NewEncryptionEngine(&stubKeyStore{material: "fixture passphrase"}),
		Embedder:      NewDeterministicEmbedder(DefaultEmbeddingDimension),
		Items:         items,
		Fingerprints:  fingerprints,
		Projects:      projects,
		Conversations: convos,
		Audit:         audit,
		Tx:            tx,
		UUIDGen:       NewMockUUIDGenerator(uuids...),
	})

	return &ingestionFixture{
		service:      svc,
		checker:      checker,
		items:        items,
		fingerprints: fingerprints,
		audit:        audit,
		projects:     projects,
		convos:       convos,
		tx:           tx,
	}
}

func (f *ingestionFixture) allowWrite(projectID, actorID string, count int) {
	f.checker.On("Authorize", mock.Anything, actorID, projectID, domain.PermissionWrite).Return(true, nil)
	f.projects.On("GetByID", mock.Anything, projectID).Return(&domain.Project{
		ID:           projectID,
		Name:         "Test Project",
		MaxDocuments: 100,
		CreatedAt:    time.Now().UTC(),
	}, nil)
	f.items.On("CountByProject", mock.Anything, projectID).Return(count, nil)
}

func TestIngestionService_IngestText(t *testing.T) {
	ctx := context.Background()

	t.Run("admits standard content unencrypted", func(t *testing.T) {
		f := newIngestionFixture("item-1", "fp-1", "audit-1")
		f.allowWrite("proj-1", "actor-1", 0)

		content := "some ordinary project notes"
		hash := HashContent(content)

		f.fingerprints.On("GetByProjectAndHash", mock.Anything, "proj-1", hash).Return(nil, nil)

		var createdItem *domain.KnowledgeItem
		f.items.On("Create", mock.Anything, mock.MatchedBy(func(k *domain.KnowledgeItem) bool {
			createdItem = k
			return k.ID == "item-1"
		})).Return(nil)
		f.fingerprints.On("Create", mock.Anything, mock.MatchedBy(func(fp *domain.ContentFingerprint) bool {
			return fp.ID == "fp-1" && fp.ContentHash == hash && fp.KnowledgeItemID == "item-1"
		})).Return(nil)
		f.audit.On("Create", mock.Anything, mock.MatchedBy(func(a *domain.AuditRecord) bool {
			return a.Action == domain.AuditActionIngestText && a.ResourceID == "item-1"
		})).Return(nil)

		result, err := f.service.IngestText(ctx, content, TextMetadata{
			ProjectID: "proj-1",
			ActorID:   "actor-1",
			Title:     "Notes",
		}, IngestOptions{})

		require.NoError(t, err)
		assert.Equal(t, "item-1", result.ID)
		assert.Equal(t, hash, result.ContentHash)
		assert.Equal(t, "fp-1", result.EmbeddingID)
		assert.Equal(t, domain.IngestionStatusProcessed, result.Status)

		require.NotNil(t, createdItem)
		assert.Equal(t, domain.TierStandard, createdItem.SensitivityTier)
		assert.Equal(t, domain.EncryptionStateUnencrypted, createdItem.EncryptionState)
		assert.Equal(t, content, createdItem.Content)
		assert.Len(t, createdItem.Embedding, DefaultEmbeddingDimension)
		f.items.AssertExpectations(t)
		f.fingerprints.AssertExpectations(t)
		f.audit.AssertExpectations(t)
	})

	t.Run("classifier marker escalates to restricted seal", func(t *testing.T) {
		f := newIngestionFixture("item-1", "fp-1", "audit-1")
		f.allowWrite("proj-1", "actor-1", 0)

		content := "Confidential: quarterly acquisition target list"
		hash := HashContent(content)

		f.fingerprints.On("GetByProjectAndHash", mock.Anything, "proj-1", hash).Return(nil, nil)

		var createdItem *domain.KnowledgeItem
		f.items.On("Create", mock.Anything, mock.MatchedBy(func(k *domain.KnowledgeItem) bool {
			createdItem = k
			return true
		})).Return(nil)
		f.fingerprints.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.audit.On("Create", mock.Anything, mock.Anything).Return(nil)

		result, err := f.service.IngestText(ctx, content, TextMetadata{
			ProjectID: "proj-1",
			ActorID:   "actor-1",
		}, IngestOptions{})

		require.NoError(t, err)
		assert.Equal(t, domain.IngestionStatusEncrypted, result.Status)

		require.NotNil(t, createdItem)
		assert.Equal(t, domain.TierRestricted, createdItem.SensitivityTier)
		assert.Equal(t, domain.EncryptionStateHSMEncrypted, createdItem.EncryptionState)
		assert.NotEqual(t, content, createdItem.Content)
		assert.Empty(t, createdItem.OriginalContent, "restricted plaintext must not be stored")
		// hash still covers the canonical plaintext
		assert.Equal(t, hash, result.ContentHash)
	})

	t.Run("explicit tier overrides the classifier verdict", func(t *testing.T) {
		f := newIngestionFixture("item-1", "fp-1", "audit-1")
		f.allowWrite("proj-1", "actor-1", 0)

		content := "plain meeting summary"
		f.fingerprints.On("GetByProjectAndHash", mock.Anything, "proj-1", HashContent(content)).Return(nil, nil)

		var createdItem *domain.KnowledgeItem
		f.items.On("Create", mock.Anything, mock.MatchedBy(func(k *domain.KnowledgeItem) bool {
			createdItem = k
			return true
		})).Return(nil)
		f.fingerprints.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.audit.On("Create", mock.Anything, mock.Anything).Return(nil)

		_, err := f.service.IngestText(ctx, content, TextMetadata{
			ProjectID: "proj-1",
			ActorID:   "actor-1",
		}, IngestOptions{SensitivityLevel: domain.TierConfidential})

		require.NoError(t, err)
		require.NotNil(t, createdItem)
		assert.Equal(t, domain.TierConfidential, createdItem.SensitivityTier)
		assert.Equal(t, domain.EncryptionStateEncrypted, createdItem.EncryptionState)
		assert.Equal(t, content, createdItem.OriginalContent)
	})

	t.Run("encrypt flag raises standard content to confidential", func(t *testing.T) {
		f := newIngestionFixture("item-1", "fp-1", "audit-1")
		f.allowWrite("proj-1", "actor-1", 0)

		content := "harmless but encrypt me anyway"
		f.fingerprints.On("GetByProjectAndHash", mock.Anything, "proj-1", HashContent(content)).Return(nil, nil)

		var createdItem *domain.KnowledgeItem
		f.items.On("Create", mock.Anything, mock.MatchedBy(func(k *domain.KnowledgeItem) bool {
			createdItem = k
			return true
		})).Return(nil)
		f.fingerprints.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.audit.On("Create", mock.Anything, mock.Anything).Return(nil)

		_, err := f.service.IngestText(ctx, content, TextMetadata{
			ProjectID: "proj-1",
			ActorID:   "actor-1",
		}, IngestOptions{EncryptContent: true})

		require.NoError(t, err)
		require.NotNil(t, createdItem)
		assert.Equal(t, domain.TierConfidential, createdItem.SensitivityTier)
		assert.Equal(t, domain.EncryptionStateEncrypted, createdItem.EncryptionState)
	})

	t.Run("duplicate hash is rejected before any write", func(t *testing.T) {
		f := newIngestionFixture("item-1", "fp-1", "audit-reject")
		f.allowWrite("proj-1", "actor-1", 0)

		content := "already ingested once"
		hash := HashContent(content)

		f.fingerprints.On("GetByProjectAndHash", mock.Anything, "proj-1", hash).Return(&domain.ContentFingerprint{
			ID:              "existing-fp",
			ProjectID:       "proj-1",
			ContentHash:     hash,
			KnowledgeItemID: "existing-item",
			CreatedAt:       time.Now().UTC(),
		}, nil)
		f.audit.On("Create", mock.Anything, mock.MatchedBy(func(a *domain.AuditRecord) bool {
			return a.Action == domain.AuditActionIngestRejected
		})).Return(nil)

		_, err := f.service.IngestText(ctx, content, TextMetadata{
			ProjectID: "proj-1",
			ActorID:   "actor-1",
		}, IngestOptions{})

		assert.ErrorIs(t, err, domain.ErrDuplicateContent)
		f.items.AssertNotCalled(t, "Create")
		f.fingerprints.AssertNotCalled(t, "Create")
	})

	t.Run("unique violation at commit time reports a dedup hit", func(t *testing.T) {
		f := newIngestionFixture("item-1", "fp-1", "audit-reject")
		f.allowWrite("proj-1", "actor-1", 0)

		content := "raced by a concurrent ingestion"
		f.fingerprints.On("GetByProjectAndHash", mock.Anything, "proj-1", HashContent(content)).Return(nil, nil)
		f.tx.err = domain.ErrDuplicateContent
		f.audit.On("Create", mock.Anything, mock.MatchedBy(func(a *domain.AuditRecord) bool {
			return a.Action == domain.AuditActionIngestRejected
		})).Return(nil)

		_, err := f.service.IngestText(ctx, content, TextMetadata{
			ProjectID: "proj-1",
			ActorID:   "actor-1",
		}, IngestOptions{})

		assert.ErrorIs(t, err, domain.ErrDuplicateContent)
	})

	t.Run("failing audit write rolls back the admission", func(t *testing.T) {
		f := newIngestionFixture("item-1", "fp-1", "audit-1", "audit-reject")
		f.allowWrite("proj-1", "actor-1", 0)

		content := "audit table unavailable"
		f.fingerprints.On("GetByProjectAndHash", mock.Anything, "proj-1", HashContent(content)).Return(nil, nil)
		f.items.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.fingerprints.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.audit.On("Create", mock.Anything, mock.MatchedBy(func(a *domain.AuditRecord) bool {
			return a.Action == domain.AuditActionIngestText
		})).Return(errors.New("disk full")).Once()
		f.audit.On("Create", mock.Anything, mock.MatchedBy(func(a *domain.AuditRecord) bool {
			return a.Action == domain.AuditActionIngestRejected
		})).Return(nil).Once()

		_, err := f.service.IngestText(ctx, content, TextMetadata{
			ProjectID: "proj-1",
			ActorID:   "actor-1",
		}, IngestOptions{})

		require.Error(t, err)
		var domainErr *domain.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, domain.ErrCodePersistence, domainErr.Code)
	})

	t.Run("empty content is rejected", func(t *testing.T) {
		f := newIngestionFixture("audit-reject")
		f.allowWrite("proj-1", "actor-1", 0)
		f.audit.On("Create", mock.Anything, mock.Anything).Return(nil)

		_, err := f.service.IngestText(ctx, "   \n\t  ", TextMetadata{
			ProjectID: "proj-1",
			ActorID:   "actor-1",
		}, IngestOptions{})

		assert.ErrorIs(t, err, domain.ErrEmptyContent)
		f.fingerprints.AssertNotCalled(t, "GetByProjectAndHash")
	})

	t.Run("missing actor is rejected without touching the directory", func(t *testing.T) {
		f := newIngestionFixture("audit-reject")
		f.audit.On("Create", mock.Anything, mock.Anything).Return(nil)

		_, err := f.service.IngestText(ctx, "content", TextMetadata{
			ProjectID: "proj-1",
		}, IngestOptions{})

		assert.ErrorIs(t, err, domain.ErrMissingActor)
		f.checker.AssertNotCalled(t, "Authorize")
	})

	t.Run("denied actor is rejected", func(t *testing.T) {
		f := newIngestionFixture("audit-reject")
		f.checker.On("Authorize", mock.Anything, "actor-1", "proj-1", domain.PermissionWrite).Return(false, nil)
		f.audit.On("Create", mock.Anything, mock.MatchedBy(func(a *domain.AuditRecord) bool {
			return a.Action == domain.AuditActionIngestRejected && a.Metadata["rejection_code"] == domain.ErrCodeForbidden
		})).Return(nil)

		_, err := f.service.IngestText(ctx, "content", TextMetadata{
			ProjectID: "proj-1",
			ActorID:   "actor-1",
		}, IngestOptions{})

		assert.ErrorIs(t, err, domain.ErrAccessDenied)
	})

	t.Run("full project is rejected with quota error", func(t *testing.T) {
		f := newIngestionFixture("audit-reject")
		f.checker.On("Authorize", mock.Anything, "actor-1", "proj-1", domain.PermissionWrite).Return(true, nil)
		f.projects.On("GetByID", mock.Anything, "proj-1").Return(&domain.Project{
			ID:           "proj-1",
			Name:         "Full Project",
			MaxDocuments: 2,
			CreatedAt:    time.Now().UTC(),
		}, nil)
		f.items.On("CountByProject", mock.Anything, "proj-1").Return(2, nil)
		f.audit.On("Create", mock.Anything, mock.Anything).Return(nil)

		_, err := f.service.IngestText(ctx, "content", TextMetadata{
			ProjectID: "proj-1",
			ActorID:   "actor-1",
		}, IngestOptions{})

		assert.ErrorIs(t, err, domain.ErrQuotaExceeded)
	})

	t.Run("invalid retention policy is rejected", func(t *testing.T) {
		f := newIngestionFixture("audit-reject")
		f.allowWrite("proj-1", "actor-1", 0)
		f.audit.On("Create", mock.Anything, mock.Anything).Return(nil)

		_, err := f.service.IngestText(ctx, "content", TextMetadata{
			ProjectID: "proj-1",
			ActorID:   "actor-1",
		}, IngestOptions{RetentionPolicy: "forever-ish"})

		assert.ErrorIs(t, err, domain.ErrInvalidRetention)
	})

	t.Run("keystore failure surfaces as encryption error", func(t *testing.T) {
		f := newIngestionFixture("audit-reject")
		f.service.engine = NewEncryptionEngine(&stubKeyStore{err: errors.New("keystore down")})
		f.allowWrite("proj-1", "actor-1", 0)
		f.audit.On("Create", mock.Anything, mock.Anything).Return(nil)

		_, err := f.service.IngestText(ctx, "content", TextMetadata{
			ProjectID: "proj-1",
			ActorID:   "actor-1",
		}, IngestOptions{SensitivityLevel: domain.TierConfidential})

		var domainErr *domain.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, domain.ErrCodeEncryption, domainErr.Code)
		f.fingerprints.AssertNotCalled(t, "GetByProjectAndHash")
	})
}

func TestIngestionService_IngestDocument(t *testing.T) {
	ctx := context.Background()

	t.Run("admits an inline UTF-8 file", func(t *testing.T) {
		f := newIngestionFixture("item-1", "fp-1", "audit-1")
		f.allowWrite("proj-1", "actor-1", 0)

		f.fingerprints.On("GetByProjectAndHash", mock.Anything, "proj-1", mock.Anything).Return(nil, nil)

		var createdItem *domain.KnowledgeItem
		f.items.On("Create", mock.Anything, mock.MatchedBy(func(k *domain.KnowledgeItem) bool {
			createdItem = k
			return true
		})).Return(nil)
		f.fingerprints.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.audit.On("Create", mock.Anything, mock.MatchedBy(func(a *domain.AuditRecord) bool {
			return a.Action == domain.AuditActionIngestDocument && a.Metadata["file_name"] == "readme.txt"
		})).Return(nil)

		result, err := f.service.IngestDocument(ctx, FileInput{
			Name:        "readme.txt",
			ContentType: "text/plain",
			Data:        []byte("line one\r\nline two\r\n"),
			Size:        20,
		}, "proj-1", "actor-1", IngestOptions{})

		require.NoError(t, err)
		assert.Equal(t, domain.IngestionStatusProcessed, result.Status)
		require.NotNil(t, createdItem)
		assert.Equal(t, "readme.txt", createdItem.Title)
		assert.Equal(t, "text", createdItem.Category)
		assert.Equal(t, "line one\nline two", createdItem.Content, "line endings normalized before hashing")
	})

	t.Run("identical content through file and text paths hashes identically", func(t *testing.T) {
		fileCanonical, err := ExtractFileContent(FileInput{Data: []byte("shared body\r\n")})
		require.NoError(t, err)
		assert.Equal(t, HashContent(CanonicalizeText("shared body\n")), HashContent(fileCanonical))
	})

	t.Run("rejects binary content", func(t *testing.T) {
		f := newIngestionFixture("audit-reject")
		f.allowWrite("proj-1", "actor-1", 0)
		f.audit.On("Create", mock.Anything, mock.Anything).Return(nil)

		_, err := f.service.IngestDocument(ctx, FileInput{
			Name: "blob.bin",
			Data: []byte{0xff, 0xfe, 0x00, 0x81},
		}, "proj-1", "actor-1", IngestOptions{})

		var domainErr *domain.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, domain.ErrCodeValidation, domainErr.Code)
	})

	t.Run("object key without fetcher configured is rejected", func(t *testing.T) {
		f := newIngestionFixture("audit-reject")
		f.allowWrite("proj-1", "actor-1", 0)
		f.audit.On("Create", mock.Anything, mock.Anything).Return(nil)

		_, err := f.service.IngestDocument(ctx, FileInput{
			Name:      "remote.txt",
			ObjectKey: "proj-1/remote.txt",
		}, "proj-1", "actor-1", IngestOptions{})

		require.Error(t, err)
	})
}

func TestIngestionService_IngestConversation(t *testing.T) {
	ctx := context.Background()

	t.Run("flattens messages and admits the transcript", func(t *testing.T) {
		f := newIngestionFixture("item-1", "fp-1", "audit-1")
		f.allowWrite("proj-1", "actor-1", 0)

		f.convos.On("GetByID", mock.Anything, "conv-1").Return(&domain.Conversation{
			ID:        "conv-1",
			ProjectID: "proj-1",
			Title:     "Planning session",
			CreatedAt: time.Now().UTC(),
		}, nil)
		f.convos.On("GetMessages", mock.Anything, "conv-1").Return([]*domain.ConversationMessage{
			{ID: "m1", ConversationID: "conv-1", Role: "user", Content: "what is the plan"},
			{ID: "m2", ConversationID: "conv-1", Role: "assistant", Content: "ship it"},
		}, nil)

		expectedCanonical := "user: what is the plan\nassistant: ship it"
		f.fingerprints.On("GetByProjectAndHash", mock.Anything, "proj-1", HashContent(expectedCanonical)).Return(nil, nil)

		var createdItem *domain.KnowledgeItem
		f.items.On("Create", mock.Anything, mock.MatchedBy(func(k *domain.KnowledgeItem) bool {
			createdItem = k
			return true
		})).Return(nil)
		f.fingerprints.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.audit.On("Create", mock.Anything, mock.MatchedBy(func(a *domain.AuditRecord) bool {
			return a.Action == domain.AuditActionIngestConversation && a.Metadata["message_count"] == 2
		})).Return(nil)

		result, err := f.service.IngestConversation(ctx, "conv-1", "proj-1", "actor-1", IngestOptions{})

		require.NoError(t, err)
		assert.Equal(t, HashContent(expectedCanonical), result.ContentHash)
		require.NotNil(t, createdItem)
		assert.Equal(t, "Planning session", createdItem.Title)
		assert.Equal(t, domain.SourceTypeConversation, createdItem.SourceType)
		assert.Equal(t, "conv-1", createdItem.SourceRef)
	})

	t.Run("conversation owned by another project is not found", func(t *testing.T) {
		f := newIngestionFixture("audit-reject")
		f.allowWrite("proj-1", "actor-1", 0)

		f.convos.On("GetByID", mock.Anything, "conv-9").Return(&domain.Conversation{
			ID:        "conv-9",
			ProjectID: "other-project",
			CreatedAt: time.Now().UTC(),
		}, nil)
		f.audit.On("Create", mock.Anything, mock.Anything).Return(nil)

		_, err := f.service.IngestConversation(ctx, "conv-9", "proj-1", "actor-1", IngestOptions{})

		assert.ErrorIs(t, err, domain.ErrConversationNotFound)
		f.convos.AssertNotCalled(t, "GetMessages")
	})

	t.Run("empty transcript is rejected", func(t *testing.T) {
		f := newIngestionFixture("audit-reject")
		f.allowWrite("proj-1", "actor-1", 0)

		f.convos.On("GetByID", mock.Anything, "conv-1").Return(&domain.Conversation{
			ID:        "conv-1",
			ProjectID: "proj-1",
			CreatedAt: time.Now().UTC(),
		}, nil)
		f.convos.On("GetMessages", mock.Anything, "conv-1").Return([]*domain.ConversationMessage{}, nil)
		f.audit.On("Create", mock.Anything, mock.Anything).Return(nil)

		_, err := f.service.IngestConversation(ctx, "conv-1", "proj-1", "actor-1", IngestOptions{})

		assert.ErrorIs(t, err, domain.ErrEmptyCanonicalContent)
	})
}
