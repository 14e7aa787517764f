//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-ai/inkwell/internal/domain"
	"github.com/inkwell-ai/inkwell/internal/testutil"
)

func TestChunkEventRepository_AppendAndList(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	orgRepo := NewOrgRepository(pool)
	eventRepo := NewChunkEventRepository(pool)

	org := createTestOrg(ctx, t, orgRepo)
	chunkID := uuid.NewString()
	base := time.Now().UTC().Truncate(time.Microsecond)

	first := &domain.ChunkEvent{
		ID:        uuid.NewString(),
		ChunkID:   chunkID,
		OrgID:     org.ID,
		Type:      domain.ChunkEventDeactivated,
		Before:    domain.FieldSnapshot{"is_active": true},
		After:     domain.FieldSnapshot{"is_active": false},
		Reason:    "stale claim",
		ActorID:   "user-1",
		CreatedAt: base,
	}
	second := &domain.ChunkEvent{
		ID:        uuid.NewString(),
		ChunkID:   chunkID,
		OrgID:     org.ID,
		Type:      domain.ChunkEventActivated,
		Before:    domain.FieldSnapshot{"is_active": false},
		After:     domain.FieldSnapshot{"is_active": true},
		ActorID:   "user-2",
		CreatedAt: base.Add(time.Second),
	}
	require.NoError(t, eventRepo.Append(ctx, first))
	require.NoError(t, eventRepo.Append(ctx, second))

	events, err := eventRepo.ListByChunk(ctx, org.ID, chunkID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, domain.ChunkEventDeactivated, events[0].Type)
	assert.Equal(t, "stale claim", events[0].Reason)
	assert.Equal(t, domain.FieldSnapshot{"is_active": true}, events[0].Before)
	assert.Equal(t, domain.ChunkEventActivated, events[1].Type)
	assert.Empty(t, events[1].Reason)

	count, err := eventRepo.CountByChunk(ctx, org.ID, chunkID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestChunkEventRepository_EventsSurviveChunkDeletion(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	orgRepo := NewOrgRepository(pool)
	chunkRepo := NewChunkRepository(pool)
	eventRepo := NewChunkEventRepository(pool)

	org := createTestOrg(ctx, t, orgRepo)
	c := newTestChunkRow(org.ID)
	require.NoError(t, chunkRepo.Create(ctx, c))

	terminal := &domain.ChunkEvent{
		ID:        uuid.NewString(),
		ChunkID:   c.ID,
		OrgID:     org.ID,
		Type:      domain.ChunkEventDeletedHard,
		Before:    domain.FieldSnapshot{"chunk_text": c.ChunkText},
		After:     nil,
		Reason:    "legal takedown",
		ActorID:   "user-1",
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, eventRepo.Append(ctx, terminal))
	require.NoError(t, chunkRepo.Delete(ctx, c.ID))

	events, err := eventRepo.ListByChunk(ctx, org.ID, c.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.ChunkEventDeletedHard, events[0].Type)
	assert.Nil(t, events[0].After)
	assert.Equal(t, c.ChunkText, events[0].Before["chunk_text"])
}
