//go:build integration

package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-ai/inkwell/internal/domain"
	"github.com/inkwell-ai/inkwell/internal/service"
	"github.com/inkwell-ai/inkwell/internal/testutil"
)

func TestTxRunner_RollsBackFailedPurge(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	orgRepo := NewOrgRepository(pool)
	sourceRepo := NewSourceRepository(pool)
	itemRepo := NewKnowledgeItemRepository(pool)
	chunkRepo := NewChunkRepository(pool)
	factRepo := NewBusinessFactRepository(pool)
	runner := NewTxRunner(pool)

	org := createTestOrg(ctx, t, orgRepo)
	source := newTextSource(org.ID)
	require.NoError(t, sourceRepo.Create(ctx, source))

	now := time.Now().UTC().Truncate(time.Microsecond)
	item := &domain.KnowledgeItem{
		ID:             uuid.NewString(),
		OrgID:          org.ID,
		UserID:         "user-1",
		SourceID:       source.ID,
		RawText:        "We ship on Fridays.",
		RawTextSHA256:  uuid.NewString(),
		Type:           domain.ItemTypeNote,
		Source:         domain.ItemSourcePaste,
		Confidence:     0.6,
		ChunkingStatus: domain.ChunkingStatusChunked,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, itemRepo.Create(ctx, item))

	chunk := newTestChunkRow(org.ID)
	chunk.ItemID = item.ID
	require.NoError(t, chunkRepo.Create(ctx, chunk))

	fact := &domain.BusinessFact{
		ID:         uuid.NewString(),
		OrgID:      org.ID,
		ItemID:     item.ID,
		Fact:       "Releases go out on Fridays",
		Category:   "operations",
		Confidence: 0.7,
		CreatedAt:  now,
	}
	require.NoError(t, factRepo.CreateBatch(ctx, []*domain.BusinessFact{fact}))

	// A purge that dies after the chunk delete must leave no trace: the
	// rollback restores the chunks so a retry sees the full set again.
	boom := errors.New("item delete failed")
	err := runner.WithTx(ctx, func(repos service.TxRepositories) error {
		ids, err := repos.Items().ItemIDsBySource(ctx, source.ID)
		if err != nil {
			return err
		}
		deleted, err := repos.Chunks().DeleteByItemIDs(ctx, ids)
		if err != nil {
			return err
		}
		require.Equal(t, int64(1), deleted)
		return boom
	})
	require.ErrorIs(t, err, boom)

	chunks, err := chunkRepo.ListByItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Len(t, chunks, 1, "rollback must restore deleted chunks")

	facts, err := factRepo.ListByItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Len(t, facts, 1)

	_, err = itemRepo.GetByID(ctx, org.ID, item.ID)
	require.NoError(t, err)
}

func TestTxRunner_ReingestRetryLeavesNoOrphans(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	orgRepo := NewOrgRepository(pool)
	sourceRepo := NewSourceRepository(pool)
	itemRepo := NewKnowledgeItemRepository(pool)
	chunkRepo := NewChunkRepository(pool)
	factRepo := NewBusinessFactRepository(pool)
	folderRepo := NewFolderRepository(pool)
	jobRepo := NewPipelineJobRepository(pool)
	runner := NewTxRunner(pool)

	org := createTestOrg(ctx, t, orgRepo)
	source := newTextSource(org.ID)
	source.Status = domain.SourceStatusCompleted
	require.NoError(t, sourceRepo.Create(ctx, source))

	now := time.Now().UTC().Truncate(time.Microsecond)
	item := &domain.KnowledgeItem{
		ID:             uuid.NewString(),
		OrgID:          org.ID,
		UserID:         "user-1",
		SourceID:       source.ID,
		RawText:        "We ship on Fridays.",
		RawTextSHA256:  uuid.NewString(),
		Type:           domain.ItemTypeNote,
		Source:         domain.ItemSourcePaste,
		Confidence:     0.6,
		ChunkingStatus: domain.ChunkingStatusCompleted,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, itemRepo.Create(ctx, item))

	chunk := newTestChunkRow(org.ID)
	chunk.ItemID = item.ID
	require.NoError(t, chunkRepo.Create(ctx, chunk))

	fact := &domain.BusinessFact{
		ID:         uuid.NewString(),
		OrgID:      org.ID,
		ItemID:     item.ID,
		Fact:       "Releases go out on Fridays",
		Category:   "operations",
		Confidence: 0.7,
		CreatedAt:  now,
	}
	require.NoError(t, factRepo.CreateBatch(ctx, []*domain.BusinessFact{fact}))

	// First attempt aborts mid-purge.
	boom := errors.New("connection reset")
	err := runner.WithTx(ctx, func(repos service.TxRepositories) error {
		ids, err := repos.Items().ItemIDsBySource(ctx, source.ID)
		if err != nil {
			return err
		}
		if _, err := repos.Chunks().DeleteByItemIDs(ctx, ids); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	// The retry runs the real reingest against the same rows.
	intakeSvc := service.NewIntakeService(sourceRepo, folderRepo, jobRepo, runner)
	require.NoError(t, intakeSvc.Reingest(ctx, org.ID, source.ID))

	chunks, err := chunkRepo.ListByItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Empty(t, chunks, "no orphaned chunks after reingest")

	facts, err := factRepo.ListByItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Empty(t, facts, "no orphaned facts after reingest")

	_, err = itemRepo.GetByID(ctx, org.ID, item.ID)
	assert.ErrorIs(t, err, domain.ErrItemNotFound)

	reset, err := sourceRepo.GetByID(ctx, org.ID, source.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceStatusPending, reset.Status)

	claimed, err := jobRepo.ClaimPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, source.ID, claimed[0].SourceID)
	assert.Equal(t, domain.StageNormalize, claimed[0].Stage)
}
