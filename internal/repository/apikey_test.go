//go:build integration

package repository

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/corpora/internal/domain"
	"github.com/cloo-solutions/corpora/internal/testutil"
)

func testAPIKey(actorID, hash string) *domain.APIKey {
	return &domain.APIKey{
		ID:        uuid.NewString(),
		ActorID:   actorID,
		Name:      "test-key",
		KeyHash:   hash,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestAPIKeyRepository_CreateAndGetByHash(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	actorRepo := NewActorRepository(pool)
	keyRepo := NewAPIKeyRepository(pool)

	actor := setupActor(ctx, t, actorRepo, "key-actor")

	hash := strings.Repeat("a1", 32)
	key := testAPIKey(actor.ID, hash)
	require.NoError(t, keyRepo.Create(ctx, key))

	retrieved, err := keyRepo.GetByHash(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, key.ID, retrieved.ID)
	assert.Equal(t, actor.ID, retrieved.ActorID)
	assert.False(t, retrieved.IsRevoked())
}

func TestAPIKeyRepository_GetByHash_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	keyRepo := NewAPIKeyRepository(pool)

	_, err := keyRepo.GetByHash(ctx, strings.Repeat("ff", 32))
	assert.ErrorIs(t, err, domain.ErrAPIKeyNotFound)
}

func TestAPIKeyRepository_GetByActorID(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	actorRepo := NewActorRepository(pool)
	keyRepo := NewAPIKeyRepository(pool)

	actor := setupActor(ctx, t, actorRepo, "multi-key-actor")
	other := setupActor(ctx, t, actorRepo, "other-actor")

	require.NoError(t, keyRepo.Create(ctx, testAPIKey(actor.ID, strings.Repeat("b1", 32))))
	require.NoError(t, keyRepo.Create(ctx, testAPIKey(actor.ID, strings.Repeat("b2", 32))))
	require.NoError(t, keyRepo.Create(ctx, testAPIKey(other.ID, strings.Repeat("b3", 32))))

	keys, err := keyRepo.GetByActorID(ctx, actor.ID)
	require.NoError(t, err)
	assert.Len(t, keys, 2)
}

func TestAPIKeyRepository_Revoke(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	actorRepo := NewActorRepository(pool)
	keyRepo := NewAPIKeyRepository(pool)

	actor := setupActor(ctx, t, actorRepo, "revocable-actor")

	key := testAPIKey(actor.ID, strings.Repeat("c1", 32))
	require.NoError(t, keyRepo.Create(ctx, key))

	require.NoError(t, keyRepo.Revoke(ctx, key.ID))

	retrieved, err := keyRepo.GetByID(ctx, key.ID)
	require.NoError(t, err)
	assert.True(t, retrieved.IsRevoked())

	// Already-revoked keys cannot be revoked again
	err = keyRepo.Revoke(ctx, key.ID)
	assert.ErrorIs(t, err, domain.ErrAPIKeyNotFound)
}
