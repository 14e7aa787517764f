package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/inkwell-ai/inkwell/internal/domain"
	"github.com/inkwell-ai/inkwell/internal/pagination"
)

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

// SourceRepositoryInterface defines the persistence contract for ingestion
// sources.
type SourceRepositoryInterface interface {
	Create(ctx context.Context, s *domain.IngestionSource) error
	GetByID(ctx context.Context, orgID, id string) (*domain.IngestionSource, error)
	FindByDedupHash(ctx context.Context, orgID, hash string) (*domain.IngestionSource, error)
	FindBySourceRef(ctx context.Context, orgID string, sourceType domain.SourceType, sourceRef string) (*domain.IngestionSource, error)
	ListByOrg(ctx context.Context, orgID string, limit int) ([]*domain.IngestionSource, error)
	UpdateStatus(ctx context.Context, id string, status domain.SourceStatus, errMsg string) error
	MarkDuplicate(ctx context.Context, id, reason string) error
	SetTranscription(ctx context.Context, id, rawText, dedupHash string) error
	ResetForReingest(ctx context.Context, id string) error
	SoftDelete(ctx context.Context, orgID, id string) error
}

// ItemRepositoryInterface defines the persistence contract for knowledge
// items.
type ItemRepositoryInterface interface {
	Create(ctx context.Context, k *domain.KnowledgeItem) error
	GetByID(ctx context.Context, orgID, id string) (*domain.KnowledgeItem, error)
	FindByContentHash(ctx context.Context, orgID, sha256 string) (*domain.KnowledgeItem, error)
	ListBySource(ctx context.Context, sourceID string) ([]*domain.KnowledgeItem, error)
	ItemIDsBySource(ctx context.Context, sourceID string) ([]string, error)
	UpdateChunkingStatus(ctx context.Context, id string, status domain.ChunkingStatus, errCode, errMsg string) error
	UpdateChunkingMetrics(ctx context.Context, id string, metrics *domain.ChunkingMetrics) error
	DeleteByIDs(ctx context.Context, ids []string) (int64, error)
}

// ChunkRepositoryInterface defines the persistence contract for knowledge
// chunks, including vector search.
type ChunkRepositoryInterface interface {
	Create(ctx context.Context, c *domain.KnowledgeChunk) error
	GetByID(ctx context.Context, orgID, id string) (*domain.KnowledgeChunk, error)
	GetByIDForUpdate(ctx context.Context, orgID, id string) (*domain.KnowledgeChunk, error)
	ListByItem(ctx context.Context, itemID string) ([]*domain.KnowledgeChunk, error)
	List(ctx context.Context, filters ChunkListFilters, cursor *pagination.Cursor, limit int) (*ChunkPageResult, error)
	SearchByEmbedding(ctx context.Context, orgID string, embedding []float32, k int, forGeneration bool) ([]*ScoredChunk, error)
	UpdateEmbedding(ctx context.Context, id string, embedding []float32, model string, tokenCount int) error
	UpdateActive(ctx context.Context, id string, active bool) error
	UpdateKind(ctx context.Context, id string, kind domain.ChunkKind) error
	UpdatePolicy(ctx context.Context, id string, policy domain.UsagePolicy) error
	Delete(ctx context.Context, id string) error
	DeleteByItemIDs(ctx context.Context, itemIDs []string) (int64, error)
}

// FactRepositoryInterface defines the persistence contract for business facts.
type FactRepositoryInterface interface {
	CreateBatch(ctx context.Context, facts []*domain.BusinessFact) error
	ListByOrg(ctx context.Context, orgID string, limit int) ([]*domain.BusinessFact, error)
	ListByItem(ctx context.Context, itemID string) ([]*domain.BusinessFact, error)
	ClearItemRef(ctx context.Context, itemIDs []string) (int64, error)
	DeleteByItemIDs(ctx context.Context, itemIDs []string) (int64, error)
}

// VoiceTraitRepositoryInterface defines the persistence contract for voice
// traits.
type VoiceTraitRepositoryInterface interface {
	CreateBatch(ctx context.Context, traits []*domain.VoiceTrait) error
	ListByOrg(ctx context.Context, orgID string, limit int) ([]*domain.VoiceTrait, error)
	DeleteByItemIDs(ctx context.Context, itemIDs []string) (int64, error)
}

// EventRepositoryInterface defines the persistence contract for the
// append-only chunk audit log.
type EventRepositoryInterface interface {
	Append(ctx context.Context, e *domain.ChunkEvent) error
	ListByChunk(ctx context.Context, orgID, chunkID string) ([]*domain.ChunkEvent, error)
	CountByChunk(ctx context.Context, orgID, chunkID string) (int64, error)
}

// PipelineJobRepositoryInterface defines the persistence contract for chunk
// pipeline jobs.
type PipelineJobRepositoryInterface interface {
	Create(ctx context.Context, job *domain.PipelineJob) error
	GetByID(ctx context.Context, id string) (*domain.PipelineJob, error)
	ClaimPending(ctx context.Context, limit int) ([]*domain.PipelineJob, error)
	AdvanceStage(ctx context.Context, jobID string, next domain.PipelineStage) error
	UpdateStatus(ctx context.Context, jobID string, status domain.PipelineJobStatus, errMsg string) error
	IncrementRetries(ctx context.Context, jobID string) error
	DeleteBySource(ctx context.Context, sourceID string) error
}

// FolderRepositoryInterface defines the persistence contract for folders and
// folder membership.
type FolderRepositoryInterface interface {
	Create(ctx context.Context, f *domain.Folder) error
	GetByID(ctx context.Context, orgID, id string) (*domain.Folder, error)
	AttachSource(ctx context.Context, folderID, sourceID string) error
	FoldersForSource(ctx context.Context, sourceID string) ([]string, error)
	MarkStale(ctx context.Context, folderID string) error
	ListStale(ctx context.Context, limit int) ([]*domain.Folder, error)
	SetEmbedding(ctx context.Context, folderID string, embedding []float32, staleAsOf time.Time) error
	MemberChunkEmbeddings(ctx context.Context, folderID string) ([][]float32, error)
}

// OrgRepositoryInterface resolves organizations and membership roles.
type OrgRepositoryInterface interface {
	Create(ctx context.Context, org *domain.Organization) error
	GetByID(ctx context.Context, id string) (*domain.Organization, error)
	GetByName(ctx context.Context, name string) (*domain.Organization, error)
	UpsertMembership(ctx context.Context, m *domain.Membership) error
	RoleOf(ctx context.Context, orgID, userID string) (domain.Role, error)
}

// TxRepositories exposes repositories bound to a single open transaction.
// Cross-table invariants (audit event with its mutation, purge before
// reingest) are upheld by doing all their writes through one of these.
type TxRepositories interface {
	Sources() SourceRepositoryInterface
	Items() ItemRepositoryInterface
	Chunks() ChunkRepositoryInterface
	Facts() FactRepositoryInterface
	VoiceTraits() VoiceTraitRepositoryInterface
	Events() EventRepositoryInterface
	PipelineJobs() PipelineJobRepositoryInterface
}

// TxRunner runs a function inside a database transaction, committing on nil
// and rolling back on error.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(repos TxRepositories) error) error
}
