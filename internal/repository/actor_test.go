//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/corpora/internal/domain"
	"github.com/cloo-solutions/corpora/internal/testutil"
)

func TestActorRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	actorRepo := NewActorRepository(pool)

	actor := setupActor(ctx, t, actorRepo, "ci-bot")

	byID, err := actorRepo.GetByID(ctx, actor.ID)
	require.NoError(t, err)
	assert.Equal(t, actor.ID, byID.ID)
	assert.Equal(t, "ci-bot", byID.Name)

	byName, err := actorRepo.GetByName(ctx, "ci-bot")
	require.NoError(t, err)
	assert.Equal(t, actor.ID, byName.ID)
}

func TestActorRepository_GetByName_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	actorRepo := NewActorRepository(pool)

	_, err := actorRepo.GetByName(ctx, "nobody")
	assert.ErrorIs(t, err, domain.ErrActorNotFound)

	_, err = actorRepo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrActorNotFound)
}

func TestActorRepository_DuplicateName(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	actorRepo := NewActorRepository(pool)

	setupActor(ctx, t, actorRepo, "unique-name")

	dup := &domain.Actor{ID: uuid.NewString(), Name: "unique-name", CreatedAt: time.Now().UTC()}
	err := actorRepo.Create(ctx, dup)
	assert.Error(t, err)
}

func TestActorRepository_List(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	actorRepo := NewActorRepository(pool)

	setupActor(ctx, t, actorRepo, "alpha")
	setupActor(ctx, t, actorRepo, "beta")

	actors, err := actorRepo.List(ctx)
	require.NoError(t, err)
	require.Len(t, actors, 2)
}
