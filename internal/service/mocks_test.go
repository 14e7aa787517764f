package service

import (
	"context"
	"time"

	"github.com/inkwell-ai/inkwell/internal/domain"
	"github.com/inkwell-ai/inkwell/internal/pagination"
	"github.com/stretchr/testify/mock"
)

// MockSourceRepository is a mock implementation of SourceRepositoryInterface
type MockSourceRepository struct {
	mock.Mock
}

func (m *MockSourceRepository) Create(ctx context.Context, s *domain.IngestionSource) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockSourceRepository) GetByID(ctx context.Context, orgID, id string) (*domain.IngestionSource, error) {
	args := m.Called(ctx, orgID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IngestionSource), args.Error(1)
}

func (m *MockSourceRepository) FindByDedupHash(ctx context.Context, orgID, hash string) (*domain.IngestionSource, error) {
	args := m.Called(ctx, orgID, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IngestionSource), args.Error(1)
}

func (m *MockSourceRepository) FindBySourceRef(ctx context.Context, orgID string, sourceType domain.SourceType, sourceRef string) (*domain.IngestionSource, error) {
	args := m.Called(ctx, orgID, sourceType, sourceRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IngestionSource), args.Error(1)
}

func (m *MockSourceRepository) ListByOrg(ctx context.Context, orgID string, limit int) ([]*domain.IngestionSource, error) {
	args := m.Called(ctx, orgID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.IngestionSource), args.Error(1)
}

func (m *MockSourceRepository) UpdateStatus(ctx context.Context, id string, status domain.SourceStatus, errMsg string) error {
	args := m.Called(ctx, id, status, errMsg)
	return args.Error(0)
}

func (m *MockSourceRepository) MarkDuplicate(ctx context.Context, id, reason string) error {
	args := m.Called(ctx, id, reason)
	return args.Error(0)
}

func (m *MockSourceRepository) SetTranscription(ctx context.Context, id, rawText, dedupHash string) error {
	args := m.Called(ctx, id, rawText, dedupHash)
	return args.Error(0)
}

func (m *MockSourceRepository) ResetForReingest(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockSourceRepository) SoftDelete(ctx context.Context, orgID, id string) error {
	args := m.Called(ctx, orgID, id)
	return args.Error(0)
}

// MockItemRepository is a mock implementation of ItemRepositoryInterface
type MockItemRepository struct {
	mock.Mock
}

func (m *MockItemRepository) Create(ctx context.Context, k *domain.KnowledgeItem) error {
	args := m.Called(ctx, k)
	return args.Error(0)
}

func (m *MockItemRepository) GetByID(ctx context.Context, orgID, id string) (*domain.KnowledgeItem, error) {
	args := m.Called(ctx, orgID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KnowledgeItem), args.Error(1)
}

func (m *MockItemRepository) FindByContentHash(ctx context.Context, orgID, sha256 string) (*domain.KnowledgeItem, error) {
	args := m.Called(ctx, orgID, sha256)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KnowledgeItem), args.Error(1)
}

func (m *MockItemRepository) ListBySource(ctx context.Context, sourceID string) ([]*domain.KnowledgeItem, error) {
	args := m.Called(ctx, sourceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.KnowledgeItem), args.Error(1)
}

func (m *MockItemRepository) ItemIDsBySource(ctx context.Context, sourceID string) ([]string, error) {
	args := m.Called(ctx, sourceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockItemRepository) UpdateChunkingStatus(ctx context.Context, id string, status domain.ChunkingStatus, errCode, errMsg string) error {
	args := m.Called(ctx, id, status, errCode, errMsg)
	return args.Error(0)
}

func (m *MockItemRepository) UpdateChunkingMetrics(ctx context.Context, id string, metrics *domain.ChunkingMetrics) error {
	args := m.Called(ctx, id, metrics)
	return args.Error(0)
}

func (m *MockItemRepository) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).(int64), args.Error(1)
}

// MockChunkRepository is a mock implementation of ChunkRepositoryInterface
type MockChunkRepository struct {
	mock.Mock
}

func (m *MockChunkRepository) Create(ctx context.Context, c *domain.KnowledgeChunk) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockChunkRepository) GetByID(ctx context.Context, orgID, id string) (*domain.KnowledgeChunk, error) {
	args := m.Called(ctx, orgID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KnowledgeChunk), args.Error(1)
}

func (m *MockChunkRepository) GetByIDForUpdate(ctx context.Context, orgID, id string) (*domain.KnowledgeChunk, error) {
	args := m.Called(ctx, orgID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KnowledgeChunk), args.Error(1)
}

func (m *MockChunkRepository) ListByItem(ctx context.Context, itemID string) ([]*domain.KnowledgeChunk, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.KnowledgeChunk), args.Error(1)
}

func (m *MockChunkRepository) List(ctx context.Context, filters ChunkListFilters, cursor *pagination.Cursor, limit int) (*ChunkPageResult, error) {
	args := m.Called(ctx, filters, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ChunkPageResult), args.Error(1)
}

func (m *MockChunkRepository) SearchByEmbedding(ctx context.Context, orgID string, embedding []float32, k int, forGeneration bool) ([]*ScoredChunk, error) {
	args := m.Called(ctx, orgID, embedding, k, forGeneration)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ScoredChunk), args.Error(1)
}

func (m *MockChunkRepository) UpdateEmbedding(ctx context.Context, id string, embedding []float32, model string, tokenCount int) error {
	args := m.Called(ctx, id, embedding, model, tokenCount)
	return args.Error(0)
}

func (m *MockChunkRepository) UpdateActive(ctx context.Context, id string, active bool) error {
	args := m.Called(ctx, id, active)
	return args.Error(0)
}

func (m *MockChunkRepository) UpdateKind(ctx context.Context, id string, kind domain.ChunkKind) error {
	args := m.Called(ctx, id, kind)
	return args.Error(0)
}

func (m *MockChunkRepository) UpdatePolicy(ctx context.Context, id string, policy domain.UsagePolicy) error {
	args := m.Called(ctx, id, policy)
	return args.Error(0)
}

func (m *MockChunkRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockChunkRepository) DeleteByItemIDs(ctx context.Context, itemIDs []string) (int64, error) {
	args := m.Called(ctx, itemIDs)
	return args.Get(0).(int64), args.Error(1)
}

// MockFactRepository is a mock implementation of FactRepositoryInterface
type MockFactRepository struct {
	mock.Mock
}

func (m *MockFactRepository) CreateBatch(ctx context.Context, facts []*domain.BusinessFact) error {
	args := m.Called(ctx, facts)
	return args.Error(0)
}

func (m *MockFactRepository) ListByOrg(ctx context.Context, orgID string, limit int) ([]*domain.BusinessFact, error) {
	args := m.Called(ctx, orgID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.BusinessFact), args.Error(1)
}

func (m *MockFactRepository) ListByItem(ctx context.Context, itemID string) ([]*domain.BusinessFact, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.BusinessFact), args.Error(1)
}

func (m *MockFactRepository) ClearItemRef(ctx context.Context, itemIDs []string) (int64, error) {
	args := m.Called(ctx, itemIDs)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockFactRepository) DeleteByItemIDs(ctx context.Context, itemIDs []string) (int64, error) {
	args := m.Called(ctx, itemIDs)
	return args.Get(0).(int64), args.Error(1)
}

// MockVoiceTraitRepository is a mock implementation of VoiceTraitRepositoryInterface
type MockVoiceTraitRepository struct {
	mock.Mock
}

func (m *MockVoiceTraitRepository) CreateBatch(ctx context.Context, traits []*domain.VoiceTrait) error {
	args := m.Called(ctx, traits)
	return args.Error(0)
}

func (m *MockVoiceTraitRepository) ListByOrg(ctx context.Context, orgID string, limit int) ([]*domain.VoiceTrait, error) {
	args := m.Called(ctx, orgID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.VoiceTrait), args.Error(1)
}

func (m *MockVoiceTraitRepository) DeleteByItemIDs(ctx context.Context, itemIDs []string) (int64, error) {
	args := m.Called(ctx, itemIDs)
	return args.Get(0).(int64), args.Error(1)
}

// MockEventRepository is a mock implementation of EventRepositoryInterface
type MockEventRepository struct {
	mock.Mock
}

func (m *MockEventRepository) Append(ctx context.Context, e *domain.ChunkEvent) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockEventRepository) ListByChunk(ctx context.Context, orgID, chunkID string) ([]*domain.ChunkEvent, error) {
	args := m.Called(ctx, orgID, chunkID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ChunkEvent), args.Error(1)
}

func (m *MockEventRepository) CountByChunk(ctx context.Context, orgID, chunkID string) (int64, error) {
	args := m.Called(ctx, orgID, chunkID)
	return args.Get(0).(int64), args.Error(1)
}

// MockPipelineJobRepository is a mock implementation of PipelineJobRepositoryInterface
type MockPipelineJobRepository struct {
	mock.Mock
}

func (m *MockPipelineJobRepository) Create(ctx context.Context, job *domain.PipelineJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockPipelineJobRepository) GetByID(ctx context.Context, id string) (*domain.PipelineJob, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PipelineJob), args.Error(1)
}

func (m *MockPipelineJobRepository) ClaimPending(ctx context.Context, limit int) ([]*domain.PipelineJob, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.PipelineJob), args.Error(1)
}

func (m *MockPipelineJobRepository) AdvanceStage(ctx context.Context, jobID string, next domain.PipelineStage) error {
	args := m.Called(ctx, jobID, next)
	return args.Error(0)
}

func (m *MockPipelineJobRepository) UpdateStatus(ctx context.Context, jobID string, status domain.PipelineJobStatus, errMsg string) error {
	args := m.Called(ctx, jobID, status, errMsg)
	return args.Error(0)
}

func (m *MockPipelineJobRepository) IncrementRetries(ctx context.Context, jobID string) error {
	args := m.Called(ctx, jobID)
	return args.Error(0)
}

func (m *MockPipelineJobRepository) DeleteBySource(ctx context.Context, sourceID string) error {
	args := m.Called(ctx, sourceID)
	return args.Error(0)
}

// MockFolderRepository is a mock implementation of FolderRepositoryInterface
type MockFolderRepository struct {
	mock.Mock
}

func (m *MockFolderRepository) Create(ctx context.Context, f *domain.Folder) error {
	args := m.Called(ctx, f)
	return args.Error(0)
}

func (m *MockFolderRepository) GetByID(ctx context.Context, orgID, id string) (*domain.Folder, error) {
	args := m.Called(ctx, orgID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Folder), args.Error(1)
}

func (m *MockFolderRepository) AttachSource(ctx context.Context, folderID, sourceID string) error {
	args := m.Called(ctx, folderID, sourceID)
	return args.Error(0)
}

func (m *MockFolderRepository) FoldersForSource(ctx context.Context, sourceID string) ([]string, error) {
	args := m.Called(ctx, sourceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockFolderRepository) MarkStale(ctx context.Context, folderID string) error {
	args := m.Called(ctx, folderID)
	return args.Error(0)
}

func (m *MockFolderRepository) ListStale(ctx context.Context, limit int) ([]*domain.Folder, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Folder), args.Error(1)
}

func (m *MockFolderRepository) SetEmbedding(ctx context.Context, folderID string, embedding []float32, staleAsOf time.Time) error {
	args := m.Called(ctx, folderID, embedding, staleAsOf)
	return args.Error(0)
}

func (m *MockFolderRepository) MemberChunkEmbeddings(ctx context.Context, folderID string) ([][]float32, error) {
	args := m.Called(ctx, folderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

// MockOrgRepository is a mock implementation of OrgRepositoryInterface
type MockOrgRepository struct {
	mock.Mock
}

func (m *MockOrgRepository) Create(ctx context.Context, org *domain.Organization) error {
	args := m.Called(ctx, org)
	return args.Error(0)
}

func (m *MockOrgRepository) GetByID(ctx context.Context, id string) (*domain.Organization, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Organization), args.Error(1)
}

func (m *MockOrgRepository) GetByName(ctx context.Context, name string) (*domain.Organization, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Organization), args.Error(1)
}

func (m *MockOrgRepository) UpsertMembership(ctx context.Context, membership *domain.Membership) error {
	args := m.Called(ctx, membership)
	return args.Error(0)
}

func (m *MockOrgRepository) RoleOf(ctx context.Context, orgID, userID string) (domain.Role, error) {
	args := m.Called(ctx, orgID, userID)
	return args.Get(0).(domain.Role), args.Error(1)
}

// MockAPIKeyRepository is a mock implementation of APIKeyRepositoryInterface
type MockAPIKeyRepository struct {
	mock.Mock
}

func (m *MockAPIKeyRepository) Create(ctx context.Context, key *domain.APIKey) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockAPIKeyRepository) GetByHash(ctx context.Context, hash string) (*domain.APIKey, error) {
	args := m.Called(ctx, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.APIKey), args.Error(1)
}

func (m *MockAPIKeyRepository) Revoke(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockExtractor is a mock implementation of Extractor
type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) ExtractChunks(ctx context.Context, text string) ([]domain.ExtractedChunk, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ExtractedChunk), args.Error(1)
}

func (m *MockExtractor) ExtractVoiceTraits(ctx context.Context, text string) ([]domain.ExtractedTrait, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ExtractedTrait), args.Error(1)
}

func (m *MockExtractor) ExtractBusinessFacts(ctx context.Context, text string) ([]domain.ExtractedFact, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ExtractedFact), args.Error(1)
}

// MockEmbedder is a mock implementation of Embedder
type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, int, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]float32), args.Int(1), args.Error(2)
}

func (m *MockEmbedder) Model() string {
	args := m.Called()
	return args.String(0)
}

// MockTranscriber is a mock implementation of Transcriber
type MockTranscriber struct {
	mock.Mock
}

func (m *MockTranscriber) Transcribe(ctx context.Context, filename string, audio []byte) (string, error) {
	args := m.Called(ctx, filename, audio)
	return args.String(0), args.Error(1)
}

// MockBlobStorage is a mock implementation of BlobStorage
type MockBlobStorage struct {
	mock.Mock
}

func (m *MockBlobStorage) Download(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockPageFetcher is a mock implementation of PageFetcher
type MockPageFetcher struct {
	mock.Mock
}

func (m *MockPageFetcher) FetchText(ctx context.Context, url string) (string, string, error) {
	args := m.Called(ctx, url)
	return args.String(0), args.String(1), args.Error(2)
}

// MockPermissionResolver is a mock implementation of PermissionResolver
type MockPermissionResolver struct {
	mock.Mock
}

func (m *MockPermissionResolver) RoleOf(ctx context.Context, orgID, userID string) (domain.Role, error) {
	args := m.Called(ctx, orgID, userID)
	return args.Get(0).(domain.Role), args.Error(1)
}

// MockUUIDGenerator returns a fixed sequence of ids, then a default.
type MockUUIDGenerator struct {
	callCount int
	uuids     []string
}

func NewMockUUIDGenerator(uuids ...string) *MockUUIDGenerator {
	return &MockUUIDGenerator{uuids: uuids}
}

func (m *MockUUIDGenerator) NewString() string {
	if m.callCount < len(m.uuids) {
		id := m.uuids[m.callCount]
		m.callCount++
		return id
	}
	return "default-uuid"
}

// stubTxRepositories binds the shared mocks into a TxRepositories view.
type stubTxRepositories struct {
	sources SourceRepositoryInterface
	items   ItemRepositoryInterface
	chunks  ChunkRepositoryInterface
	facts   FactRepositoryInterface
	traits  VoiceTraitRepositoryInterface
	events  EventRepositoryInterface
	jobs    PipelineJobRepositoryInterface
}

func (r *stubTxRepositories) Sources() SourceRepositoryInterface          { return r.sources }
func (r *stubTxRepositories) Items() ItemRepositoryInterface              { return r.items }
func (r *stubTxRepositories) Chunks() ChunkRepositoryInterface            { return r.chunks }
func (r *stubTxRepositories) Facts() FactRepositoryInterface              { return r.facts }
func (r *stubTxRepositories) VoiceTraits() VoiceTraitRepositoryInterface  { return r.traits }
func (r *stubTxRepositories) Events() EventRepositoryInterface            { return r.events }
func (r *stubTxRepositories) PipelineJobs() PipelineJobRepositoryInterface { return r.jobs }

// stubTxRunner runs the transaction body against the stub repositories
// without an actual database transaction.
type stubTxRunner struct {
	repos *stubTxRepositories
}

func (r *stubTxRunner) WithTx(ctx context.Context, fn func(repos TxRepositories) error) error {
	return fn(r.repos)
}
