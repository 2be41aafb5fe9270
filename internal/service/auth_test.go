package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/corpora/internal/domain"
)

type MockActorRepository struct {
	mock.Mock
}

func (m *MockActorRepository) Create(ctx context.Context, actor *domain.Actor) error {
	args := m.Called(ctx, actor)
	return args.Error(0)
}

func (m *MockActorRepository) GetByID(ctx context.Context, id string) (*domain.Actor, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Actor), args.Error(1)
}

func (m *MockActorRepository) GetByName(ctx context.Context, name string) (*domain.Actor, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Actor), args.Error(1)
}

func (m *MockActorRepository) List(ctx context.Context) ([]*domain.Actor, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Actor), args.Error(1)
}

type MockAPIKeyRepository struct {
	mock.Mock
}

func (m *MockAPIKeyRepository) Create(ctx context.Context, key *domain.APIKey) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockAPIKeyRepository) GetByID(ctx context.Context, id string) (*domain.APIKey, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.APIKey), args.Error(1)
}

func (m *MockAPIKeyRepository) GetByHash(ctx context.Context, hash string) (*domain.APIKey, error) {
	args := m.Called(ctx, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.APIKey), args.Error(1)
}

func (m *MockAPIKeyRepository) GetByActorID(ctx context.Context, actorID string) ([]*domain.APIKey, error) {
	args := m.Called(ctx, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.APIKey), args.Error(1)
}

func (m *MockAPIKeyRepository) Revoke(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func TestAuthService_CreateActor(t *testing.T) {
	ctx := context.Background()
	mockActorRepo := new(MockActorRepository)
	mockKeyRepo := new(MockAPIKeyRepository)
	mockUUIDGen := NewMockUUIDGenerator("actor-123")

	mockActorRepo.On("Create", ctx, mock.MatchedBy(func(actor *domain.Actor) bool {
		return actor.Name == "ci-bot" && actor.ID == "actor-123"
	})).Return(nil)

	service := NewAuthService(mockActorRepo, mockKeyRepo, mockUUIDGen)
	actor, err := service.CreateActor(ctx, "ci-bot")

	require.NoError(t, err)
	assert.Equal(t, "actor-123", actor.ID)
	assert.Equal(t, "ci-bot", actor.Name)
	mockActorRepo.AssertExpectations(t)
}

func TestAuthService_CreateActor_EmptyName(t *testing.T) {
	ctx := context.Background()
	mockActorRepo := new(MockActorRepository)
	mockKeyRepo := new(MockAPIKeyRepository)

	service := NewAuthService(mockActorRepo, mockKeyRepo, NewMockUUIDGenerator())
	_, err := service.CreateActor(ctx, "")

	assert.Error(t, err)
	mockActorRepo.AssertNotCalled(t, "Create")
}

func TestAuthService_CreateAPIKey_GeneratesCorToken(t *testing.T) {
	ctx := context.Background()
	mockActorRepo := new(MockActorRepository)
	mockKeyRepo := new(MockAPIKeyRepository)
	mockUUIDGen := NewMockUUIDGenerator("key-123")

	mockActorRepo.On("GetByID", ctx, "actor-123").Return(&domain.Actor{
		ID:        "actor-123",
		Name:      "ci-bot",
		CreatedAt: time.Now().UTC(),
	}, nil)

	mockKeyRepo.On("Create", ctx, mock.MatchedBy(func(key *domain.APIKey) bool {
		return key.ID == "key-123" && key.ActorID == "actor-123" && len(key.KeyHash) == 64
	})).Return(nil)

	service := NewAuthService(mockActorRepo, mockKeyRepo, mockUUIDGen)
	token, err := service.CreateAPIKey(ctx, "actor-123", "laptop")

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(token, "cor_"), "token should start with cor_")
	assert.Equal(t, 68, len(token), "token should be cor_ + 64 hex chars")
	mockKeyRepo.AssertExpectations(t)
}

func TestAuthService_CreateAPIKey_StoresSHA256Hash(t *testing.T) {
	ctx := context.Background()
	mockActorRepo := new(MockActorRepository)
	mockKeyRepo := new(MockAPIKeyRepository)
	mockUUIDGen := NewMockUUIDGenerator("key-123")

	mockActorRepo.On("GetByID", ctx, "actor-123").Return(&domain.Actor{
		ID:        "actor-123",
		Name:      "ci-bot",
		CreatedAt: time.Now().UTC(),
	}, nil)

	var capturedKey *domain.APIKey
	mockKeyRepo.On("Create", ctx, mock.MatchedBy(func(key *domain.APIKey) bool {
		capturedKey = key
		return true
	})).Return(nil)

	service := NewAuthService(mockActorRepo, mockKeyRepo, mockUUIDGen)
	token, err := service.CreateAPIKey(ctx, "actor-123", "laptop")

	require.NoError(t, err)
	require.NotNil(t, capturedKey)
	assert.NotEqual(t, token, capturedKey.KeyHash)
	assert.Equal(t, 64, len(capturedKey.KeyHash), "SHA256 hash should be 64 hex chars")
}

func TestAuthService_CreateAPIKey_UnknownActor(t *testing.T) {
	ctx := context.Background()
	mockActorRepo := new(MockActorRepository)
	mockKeyRepo := new(MockAPIKeyRepository)

	mockActorRepo.On("GetByID", ctx, "missing").Return(nil, domain.ErrActorNotFound)

	service := NewAuthService(mockActorRepo, mockKeyRepo, NewMockUUIDGenerator())
	_, err := service.CreateAPIKey(ctx, "missing", "laptop")

	assert.ErrorIs(t, err, domain.ErrActorNotFound)
	mockKeyRepo.AssertNotCalled(t, "Create")
}

func TestAuthService_ValidateAPIKey_ValidToken(t *testing.T) {
	ctx := context.Background()
	mockActorRepo := new(MockActorRepository)
	mockKeyRepo := new(MockAPIKeyRepository)
	mockUUIDGen := NewMockUUIDGenerator("key-123")

	mockActorRepo.On("GetByID", ctx, "actor-123").Return(&domain.Actor{
		ID:        "actor-123",
		Name:      "ci-bot",
		CreatedAt: time.Now().UTC(),
	}, nil)

	var storedHash string
	mockKeyRepo.On("Create", ctx, mock.MatchedBy(func(key *domain.APIKey) bool {
		storedHash = key.KeyHash
		return true
	})).Return(nil)

	service := NewAuthService(mockActorRepo, mockKeyRepo, mockUUIDGen)
	token, err := service.CreateAPIKey(ctx, "actor-123", "laptop")
	require.NoError(t, err)

	mockKeyRepo.On("GetByHash", ctx, storedHash).Return(&domain.APIKey{
		ID:        "key-123",
		ActorID:   "actor-123",
		Name:      "laptop",
		KeyHash:   storedHash,
		CreatedAt: time.Now().UTC(),
		RevokedAt: nil,
	}, nil)

	actorID, err := service.ValidateAPIKey(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "actor-123", actorID)
}

func TestAuthService_ValidateAPIKey_InvalidFormat(t *testing.T) {
	ctx := context.Background()
	mockKeyRepo := new(MockAPIKeyRepository)
	service := NewAuthService(new(MockActorRepository), mockKeyRepo, NewMockUUIDGenerator())

	for _, token := range []string{
		"",
		"cor_short",
		"wrong_" + strings.Repeat("a", 64),
		"cor_" + strings.Repeat("z", 64),
	} {
		_, err := service.ValidateAPIKey(ctx, token)
		assert.ErrorIs(t, err, domain.ErrInvalidAPIKey, token)
	}
	mockKeyRepo.AssertNotCalled(t, "GetByHash")
}

func TestAuthService_ValidateAPIKey_UnknownToken(t *testing.T) {
	ctx := context.Background()
	mockKeyRepo := new(MockAPIKeyRepository)
	mockKeyRepo.On("GetByHash", ctx, mock.Anything).Return(nil, domain.ErrAPIKeyNotFound)

	service := NewAuthService(new(MockActorRepository), mockKeyRepo, NewMockUUIDGenerator())
	_, err := service.ValidateAPIKey(ctx, "cor_"+strings.Repeat("a", 64))

	assert.ErrorIs(t, err, domain.ErrInvalidAPIKey)
}

func TestAuthService_ValidateAPIKey_RevokedToken(t *testing.T) {
	ctx := context.Background()
	mockKeyRepo := new(MockAPIKeyRepository)

	revokedAt := time.Now().UTC()
	mockKeyRepo.On("GetByHash", ctx, mock.Anything).Return(&domain.APIKey{
		ID:        "key-123",
		ActorID:   "actor-123",
		Name:      "laptop",
		KeyHash:   strings.Repeat("a", 64),
		CreatedAt: time.Now().UTC().Add(-time.Hour),
		RevokedAt: &revokedAt,
	}, nil)

	service := NewAuthService(new(MockActorRepository), mockKeyRepo, NewMockUUIDGenerator())
	_, err := service.ValidateAPIKey(ctx, "cor_"+strings.Repeat("a", 64))

	assert.ErrorIs(t, err, domain.ErrAPIKeyRevoked)
}

func TestIsValidAPIToken(t *testing.T) {
	assert.True(t, IsValidAPIToken("cor_"+strings.Repeat("0", 64)))
	assert.True(t, IsValidAPIToken("cor_"+strings.Repeat("aF", 32)))
	assert.False(t, IsValidAPIToken("cor_"+strings.Repeat("0", 63)))
	assert.False(t, IsValidAPIToken("bad_"+strings.Repeat("0", 64)))
	assert.False(t, IsValidAPIToken("cor_"+strings.Repeat("g", 64)))
}
