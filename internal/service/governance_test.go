package service

import (
	"context"
	"testing"

	"github.com/inkwell-ai/inkwell/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newGovernanceFixture(role domain.Role) (*GovernanceService, *MockChunkRepository, *MockEventRepository, *MockPipelineJobRepository, *MockItemRepository) {
	chunkRepo := &MockChunkRepository{}
	eventRepo := &MockEventRepository{}
	jobRepo := &MockPipelineJobRepository{}
	itemRepo := &MockItemRepository{}
	perms := &MockPermissionResolver{}
	perms.On("RoleOf", mock.Anything, "org-1", "user-1").Return(role, nil)

	txRepos := &stubTxRepositories{
		sources: &MockSourceRepository{},
		items:   itemRepo,
		chunks:  chunkRepo,
		facts:   &MockFactRepository{},
		traits:  &MockVoiceTraitRepository{},
		events:  eventRepo,
		jobs:    jobRepo,
	}
	svc := NewGovernanceServiceWithUUIDGen(
		chunkRepo, eventRepo,
		&stubTxRunner{repos: txRepos},
		perms,
		NewMockUUIDGenerator("id-1", "id-2", "id-3"),
	)
	return svc, chunkRepo, eventRepo, jobRepo, itemRepo
}

var editorActor = Actor{OrgID: "org-1", UserID: "user-1"}

func TestGovernanceService_Deactivate_AppendsOneEvent(t *testing.T) {
	svc, chunkRepo, eventRepo, _, _ := newGovernanceFixture(domain.RoleEditor)
	ctx := context.Background()

	chunk := &domain.KnowledgeChunk{ID: "chunk-1", OrgID: "org-1", IsActive: true}
	chunkRepo.On("GetByIDForUpdate", mock.Anything, "org-1", "chunk-1").Return(chunk, nil)
	chunkRepo.On("UpdateActive", mock.Anything, "chunk-1", false).Return(nil)
	eventRepo.On("Append", mock.Anything, mock.MatchedBy(func(e *domain.ChunkEvent) bool {
		return e.ChunkID == "chunk-1" &&
			e.Type == domain.ChunkEventDeactivated &&
			e.ActorID == "user-1" &&
			e.Before["is_active"] == true &&
			e.After["is_active"] == false
	})).Return(nil)

	changed, err := svc.Deactivate(ctx, editorActor, "chunk-1", "off topic")

	require.NoError(t, err)
	assert.True(t, changed)
	eventRepo.AssertNumberOfCalls(t, "Append", 1)
}

func TestGovernanceService_Deactivate_NoOpAppendsNoEvent(t *testing.T) {
	svc, chunkRepo, eventRepo, _, _ := newGovernanceFixture(domain.RoleEditor)
	ctx := context.Background()

	chunk := &domain.KnowledgeChunk{ID: "chunk-1", OrgID: "org-1", IsActive: false}
	chunkRepo.On("GetByIDForUpdate", mock.Anything, "org-1", "chunk-1").Return(chunk, nil)

	changed, err := svc.Deactivate(ctx, editorActor, "chunk-1", "")

	require.NoError(t, err)
	assert.False(t, changed)
	chunkRepo.AssertNotCalled(t, "UpdateActive", mock.Anything, mock.Anything, mock.Anything)
	eventRepo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestGovernanceService_Activate_Reversible(t *testing.T) {
	svc, chunkRepo, eventRepo, _, _ := newGovernanceFixture(domain.RoleEditor)
	ctx := context.Background()

	chunk := &domain.KnowledgeChunk{ID: "chunk-1", OrgID: "org-1", IsActive: false}
	chunkRepo.On("GetByIDForUpdate", mock.Anything, "org-1", "chunk-1").Return(chunk, nil)
	chunkRepo.On("UpdateActive", mock.Anything, "chunk-1", true).Return(nil)
	eventRepo.On("Append", mock.Anything, mock.MatchedBy(func(e *domain.ChunkEvent) bool {
		return e.Type == domain.ChunkEventActivated
	})).Return(nil)

	changed, err := svc.Activate(ctx, editorActor, "chunk-1", "restored")

	require.NoError(t, err)
	assert.True(t, changed)
}

func TestGovernanceService_Reclassify(t *testing.T) {
	svc, chunkRepo, eventRepo, _, _ := newGovernanceFixture(domain.RoleEditor)
	ctx := context.Background()

	chunk := &domain.KnowledgeChunk{ID: "chunk-1", OrgID: "org-1", Kind: domain.ChunkKindFact}
	chunkRepo.On("GetByIDForUpdate", mock.Anything, "org-1", "chunk-1").Return(chunk, nil)
	chunkRepo.On("UpdateKind", mock.Anything, "chunk-1", domain.ChunkKindQuote).Return(nil)
	eventRepo.On("Append", mock.Anything, mock.MatchedBy(func(e *domain.ChunkEvent) bool {
		return e.Type == domain.ChunkEventReclassified &&
			e.Before["chunk_kind"] == "fact" &&
			e.After["chunk_kind"] == "quote"
	})).Return(nil)

	changed, err := svc.Reclassify(ctx, editorActor, "chunk-1", domain.ChunkKindQuote, "verbatim quote")

	require.NoError(t, err)
	assert.True(t, changed)
}

func TestGovernanceService_Reclassify_InvalidKind(t *testing.T) {
	svc, chunkRepo, _, _, _ := newGovernanceFixture(domain.RoleEditor)

	changed, err := svc.Reclassify(context.Background(), editorActor, "chunk-1", "opinion", "")

	require.Error(t, err)
	assert.False(t, changed)
	var derr *domain.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domain.ErrCodeValidation, derr.Code)
	chunkRepo.AssertNotCalled(t, "GetByIDForUpdate", mock.Anything, mock.Anything, mock.Anything)
}

func TestGovernanceService_SetPolicy_NoOp(t *testing.T) {
	svc, chunkRepo, eventRepo, _, _ := newGovernanceFixture(domain.RoleEditor)
	ctx := context.Background()

	chunk := &domain.KnowledgeChunk{ID: "chunk-1", OrgID: "org-1", Policy: domain.UsagePolicyNeverGenerate}
	chunkRepo.On("GetByIDForUpdate", mock.Anything, "org-1", "chunk-1").Return(chunk, nil)

	changed, err := svc.SetPolicy(ctx, editorActor, "chunk-1", domain.UsagePolicyNeverGenerate, "")

	require.NoError(t, err)
	assert.False(t, changed)
	eventRepo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestGovernanceService_ViewerCannotMutate(t *testing.T) {
	svc, chunkRepo, _, _, _ := newGovernanceFixture(domain.RoleViewer)
	ctx := context.Background()

	_, err := svc.Deactivate(ctx, editorActor, "chunk-1", "")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.Reclassify(ctx, editorActor, "chunk-1", domain.ChunkKindQuote, "")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.SetPolicy(ctx, editorActor, "chunk-1", domain.UsagePolicyNormal, "")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	chunkRepo.AssertNotCalled(t, "GetByIDForUpdate", mock.Anything, mock.Anything, mock.Anything)
}

func TestGovernanceService_ViewerCanRead(t *testing.T) {
	svc, chunkRepo, eventRepo, _, _ := newGovernanceFixture(domain.RoleViewer)
	ctx := context.Background()

	chunk := &domain.KnowledgeChunk{ID: "chunk-1", OrgID: "org-1"}
	chunkRepo.On("GetByID", mock.Anything, "org-1", "chunk-1").Return(chunk, nil)
	eventRepo.On("ListByChunk", mock.Anything, "org-1", "chunk-1").Return([]*domain.ChunkEvent{}, nil)

	got, err := svc.GetChunk(ctx, editorActor, "chunk-1")
	require.NoError(t, err)
	assert.Equal(t, "chunk-1", got.ID)

	_, err = svc.ListChunkEvents(ctx, editorActor, "chunk-1")
	require.NoError(t, err)
}

func TestGovernanceService_NonMemberForbidden(t *testing.T) {
	chunkRepo := &MockChunkRepository{}
	perms := &MockPermissionResolver{}
	perms.On("RoleOf", mock.Anything, "org-1", "user-1").Return(domain.Role(""), domain.ErrMembershipNotFound)
	svc := NewGovernanceService(chunkRepo, &MockEventRepository{}, &stubTxRunner{repos: &stubTxRepositories{}}, perms)

	_, err := svc.GetChunk(context.Background(), editorActor, "chunk-1")

	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestGovernanceService_HardDelete_RequiresConfirmation(t *testing.T) {
	svc, chunkRepo, _, _, _ := newGovernanceFixture(domain.RoleAdmin)

	err := svc.HardDelete(context.Background(), editorActor, "chunk-1", false)

	assert.ErrorIs(t, err, domain.ErrDeleteNotConfirmed)
	chunkRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestGovernanceService_HardDelete_EditorForbidden(t *testing.T) {
	svc, chunkRepo, _, _, _ := newGovernanceFixture(domain.RoleEditor)

	err := svc.HardDelete(context.Background(), editorActor, "chunk-1", true)

	assert.ErrorIs(t, err, domain.ErrForbidden)
	chunkRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestGovernanceService_HardDelete_TerminalEventThenDelete(t *testing.T) {
	svc, chunkRepo, eventRepo, _, _ := newGovernanceFixture(domain.RoleAdmin)
	ctx := context.Background()

	chunk := &domain.KnowledgeChunk{
		ID:        "chunk-1",
		OrgID:     "org-1",
		ChunkText: "to be removed",
		Kind:      domain.ChunkKindFact,
		IsActive:  true,
		Policy:    domain.UsagePolicyNormal,
	}
	chunkRepo.On("GetByIDForUpdate", mock.Anything, "org-1", "chunk-1").Return(chunk, nil)
	eventRepo.On("Append", mock.Anything, mock.MatchedBy(func(e *domain.ChunkEvent) bool {
		return e.Type == domain.ChunkEventDeletedHard &&
			e.After == nil &&
			e.Before["chunk_text"] == "to be removed"
	})).Return(nil)
	chunkRepo.On("Delete", mock.Anything, "chunk-1").Return(nil)

	err := svc.HardDelete(ctx, editorActor, "chunk-1", true)

	require.NoError(t, err)
	eventRepo.AssertExpectations(t)
	chunkRepo.AssertExpectations(t)
}

func TestGovernanceService_PromoteFromResearch(t *testing.T) {
	svc, chunkRepo, eventRepo, jobRepo, itemRepo := newGovernanceFixture(domain.RoleEditor)
	ctx := context.Background()

	itemRepo.On("Create", mock.Anything, mock.MatchedBy(func(item *domain.KnowledgeItem) bool {
		return item.Source == domain.ItemSourceResearch &&
			item.Type == domain.ItemTypeFact &&
			item.ChunkingStatus == domain.ChunkingStatusCompleted
	})).Return(nil)
	chunkRepo.On("Create", mock.Anything, mock.MatchedBy(func(c *domain.KnowledgeChunk) bool {
		return c.Kind == domain.ChunkKindQuote &&
			c.IsActive &&
			c.Policy == domain.UsagePolicyNormal &&
			c.SourceType == "news" &&
			c.SourceRef == "article-9"
	})).Return(nil)
	eventRepo.On("Append", mock.Anything, mock.MatchedBy(func(e *domain.ChunkEvent) bool {
		return e.Type == domain.ChunkEventAddedFromResearch && e.Before == nil
	})).Return(nil)
	jobRepo.On("Create", mock.Anything, mock.MatchedBy(func(j *domain.PipelineJob) bool {
		return j.ItemID != "" && j.SourceID == "" && j.Stage == domain.StageEmbed
	})).Return(nil)

	chunk, err := svc.PromoteFromResearch(ctx, editorActor, PromoteInput{
		SnippetText: "A relevant quote from the field.",
		Kind:        domain.ChunkKindQuote,
		SourceType:  "news",
		SourceRef:   "article-9",
		SourceTitle: "Industry Report",
	})

	require.NoError(t, err)
	require.NotNil(t, chunk)
	assert.Equal(t, domain.TransformationExtractive, chunk.Transformation)
	jobRepo.AssertExpectations(t)
}

func TestGovernanceService_PromoteFromResearch_DuplicateSnippetReusesItem(t *testing.T) {
	svc, chunkRepo, eventRepo, jobRepo, itemRepo := newGovernanceFixture(domain.RoleEditor)
	ctx := context.Background()

	existing := &domain.KnowledgeItem{ID: "item-existing", OrgID: "org-1"}
	itemRepo.On("Create", mock.Anything, mock.Anything).Return(domain.ErrDuplicateContent)
	itemRepo.On("FindByContentHash", mock.Anything, "org-1", mock.Anything).Return(existing, nil)
	chunkRepo.On("Create", mock.Anything, mock.MatchedBy(func(c *domain.KnowledgeChunk) bool {
		return c.ItemID == "item-existing"
	})).Return(nil)
	eventRepo.On("Append", mock.Anything, mock.Anything).Return(nil)
	jobRepo.On("Create", mock.Anything, mock.MatchedBy(func(j *domain.PipelineJob) bool {
		return j.ItemID == "item-existing"
	})).Return(nil)

	chunk, err := svc.PromoteFromResearch(ctx, editorActor, PromoteInput{
		SnippetText: "Promoted twice.",
		Kind:        domain.ChunkKindFact,
	})

	require.NoError(t, err)
	assert.Equal(t, "item-existing", chunk.ItemID)
}

func TestGovernanceService_PromoteFromResearch_Validation(t *testing.T) {
	svc, _, _, _, _ := newGovernanceFixture(domain.RoleEditor)
	ctx := context.Background()

	_, err := svc.PromoteFromResearch(ctx, editorActor, PromoteInput{Kind: domain.ChunkKindFact})
	require.Error(t, err)

	_, err = svc.PromoteFromResearch(ctx, editorActor, PromoteInput{SnippetText: "x", Kind: "bogus"})
	require.Error(t, err)

	_, err = svc.PromoteFromResearch(ctx, editorActor, PromoteInput{SnippetText: "x", Kind: domain.ChunkKindFact, Policy: "bogus"})
	require.Error(t, err)
}

func TestGovernanceService_ListChunks_InvalidCursor(t *testing.T) {
	svc, _, _, _, _ := newGovernanceFixture(domain.RoleViewer)

	_, err := svc.ListChunks(context.Background(), editorActor, ChunkListFilters{}, "not-base64!!!", 50)

	require.Error(t, err)
	var derr *domain.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domain.ErrCodeValidation, derr.Code)
}
