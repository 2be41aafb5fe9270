package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/cloo-solutions/corpora/internal/domain"
)

const (
	apiKeyPrefix = "cor_"
	tokenHexLen  = 64
)

type ActorRepository interface {
	Create(ctx context.Context, actor *domain.Actor) error
	GetByID(ctx context.Context, id string) (*domain.Actor, error)
	GetByName(ctx context.Context, name string) (*domain.Actor, error)
	List(ctx context.Context) ([]*domain.Actor, error)
}

type APIKeyRepository interface {
	Create(ctx context.Context, key *domain.APIKey) error
	GetByID(ctx context.Context, id string) (*domain.APIKey, error)
	GetByHash(ctx context.Context, hash string) (*domain.APIKey, error)
	GetByActorID(ctx context.Context, actorID string) ([]*domain.APIKey, error)
	Revoke(ctx context.Context, id string) error
}

// AuthService issues actors and bearer API keys. Only the SHA-256 hash of
// a token is ever stored; the plaintext is shown once at creation.
type AuthService struct {
	actorRepo ActorRepository
	keyRepo   APIKeyRepository
	uuidGen   UUIDGenerator
}

func NewAuthService(actorRepo ActorRepository, keyRepo APIKeyRepository, uuidGen UUIDGenerator) *AuthService {
	return &AuthService{
		actorRepo: actorRepo,
		keyRepo:   keyRepo,
		uuidGen:   uuidGen,
	}
}

func (s *AuthService) CreateActor(ctx context.Context, name string) (*domain.Actor, error) {
	if name == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "actor name is required")
	}

	actor := &domain.Actor{
		ID:        s.uuidGen.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := domain.ValidateActor(actor); err != nil {
		return nil, err
	}
	if err := s.actorRepo.Create(ctx, actor); err != nil {
		return nil, err
	}
	return actor, nil
}

// CreateAPIKey mints a fresh token for actorID and returns the plaintext.
func (s *AuthService) CreateAPIKey(ctx context.Context, actorID, name string) (string, error) {
	token, err := generateAPIToken()
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to generate API key", err)
	}
	if err := s.storeKey(ctx, actorID, name, token); err != nil {
		return "", err
	}
	return token, nil
}

// CreateAPIKeyWithToken registers a caller-supplied token, used when the
// token must be known out of band (provisioning scripts).
func (s *AuthService) CreateAPIKeyWithToken(ctx context.Context, actorID, name, token string) error {
	if !IsValidAPIToken(token) {
		return domain.NewDomainError(domain.ErrCodeValidation, "invalid API key format (expected cor_<64 hex chars>)")
	}
	return s.storeKey(ctx, actorID, name, token)
}

func (s *AuthService) storeKey(ctx context.Context, actorID, name, token string) error {
	if actorID == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "actor ID is required")
	}
	if name == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "API key name is required")
	}

	if _, err := s.actorRepo.GetByID(ctx, actorID); err != nil {
		return err
	}

	key := &domain.APIKey{
		ID:        s.uuidGen.NewString(),
		ActorID:   actorID,
		Name:      name,
		KeyHash:   hashToken(token),
		CreatedAt: time.Now().UTC(),
	}
	if err := domain.ValidateAPIKey(key); err != nil {
		return err
	}
	return s.keyRepo.Create(ctx, key)
}

// ValidateAPIKey resolves a bearer token to the owning actor's ID.
func (s *AuthService) ValidateAPIKey(ctx context.Context, token string) (string, error) {
	if !IsValidAPIToken(token) {
		return "", domain.ErrInvalidAPIKey
	}

	key, err := s.keyRepo.GetByHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, domain.ErrAPIKeyNotFound) {
			return "", domain.ErrInvalidAPIKey
		}
		return "", err
	}
	if key.IsRevoked() {
		return "", domain.ErrAPIKeyRevoked
	}
	return key.ActorID, nil
}

func (s *AuthService) RevokeAPIKey(ctx context.Context, keyID string) error {
	if keyID == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "API key ID is required")
	}
	return s.keyRepo.Revoke(ctx, keyID)
}

func (s *AuthService) ListAPIKeys(ctx context.Context, actorID string) ([]*domain.APIKey, error) {
	if actorID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "actor ID is required")
	}
	return s.keyRepo.GetByActorID(ctx, actorID)
}

func (s *AuthService) GetAPIKeyByHash(ctx context.Context, token string) (*domain.APIKey, error) {
	if !IsValidAPIToken(token) {
		return nil, domain.ErrInvalidAPIKey
	}
	return s.keyRepo.GetByHash(ctx, hashToken(token))
}

func generateAPIToken() (string, error) {
	raw := make([]byte, tokenHexLen/2)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return apiKeyPrefix + hex.EncodeToString(raw), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// IsValidAPIToken reports whether token is cor_ followed by 64 hex chars.
func IsValidAPIToken(token string) bool {
	rest, ok := strings.CutPrefix(token, apiKeyPrefix)
	if !ok || len(rest) != tokenHexLen {
		return false
	}
	_, err := hex.DecodeString(rest)
	return err == nil
}
