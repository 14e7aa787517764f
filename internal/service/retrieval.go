package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/inkwell-ai/inkwell/internal/domain"
	"github.com/inkwell-ai/inkwell/internal/telemetry"
)

// ScoredChunk is a chunk with its cosine similarity to the query.
type ScoredChunk struct {
	Chunk *domain.KnowledgeChunk
	Score float32
}

// RetrievedChunk is one generation-context result. InspirationOnly tags
// chunks the consumer may paraphrase but not quote.
type RetrievedChunk struct {
	Chunk           *domain.KnowledgeChunk
	Score           float32
	InspirationOnly bool
}

// RetrievalService performs vector similarity search over knowledge chunks
// for both generation context and human-facing research search.
type RetrievalService struct {
	chunkRepo ChunkRepositoryInterface
	embedder  Embedder
	perms     PermissionResolver
}

// NewRetrievalService creates a new RetrievalService instance
func NewRetrievalService(chunkRepo ChunkRepositoryInterface, embedder Embedder, perms PermissionResolver) *RetrievalService {
	return &RetrievalService{
		chunkRepo: chunkRepo,
		embedder:  embedder,
		perms:     perms,
	}
}

// GenerationContextInput is a query from the content-generation path.
type GenerationContextInput struct {
	OrgID string
	Query string
	Limit int
}

// GenerationContext returns the top chunks for a generation query. Inactive
// chunks and never_generate policies are never returned, for any query;
// inspiration_only chunks are returned tagged.
func (s *RetrievalService) GenerationContext(ctx context.Context, input GenerationContextInput) ([]*RetrievedChunk, error) {
	ctx, span := telemetry.StartSpan(ctx, "RetrievalService.GenerationContext", telemetry.SpanAttributes{
		OrgID:     input.OrgID,
		Operation: "generation_context",
	})
	defer span.End()

	if input.Query == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "query is required")
	}
	limit := input.Limit
	if limit <= 0 {
		limit = 10
	}

	vector, _, err := s.embedder.GenerateEmbedding(ctx, input.Query)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	scored, err := s.chunkRepo.SearchByEmbedding(ctx, input.OrgID, vector, limit, true)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	results := make([]*RetrievedChunk, 0, len(scored))
	for _, sc := range scored {
		results = append(results, &RetrievedChunk{
			Chunk:           sc.Chunk,
			Score:           sc.Score,
			InspirationOnly: sc.Chunk.Policy == domain.UsagePolicyInspirationOnly,
		})
	}
	return results, nil
}

// ResearchSearchInput is a human-facing research query with metadata filters
// applied after the vector search.
type ResearchSearchInput struct {
	Query      string
	SourceType string
	Variant    string
	Since      *time.Time
	Until      *time.Time
	Limit      int
}

// researchCandidateFactor oversizes the vector query so post-filtering still
// fills a page.
const researchCandidateFactor = 4

// ResearchSearch returns ranked chunks for a research query. Unlike
// generation context it includes never_generate chunks; inactive chunks stay
// excluded from all retrieval.
func (s *RetrievalService) ResearchSearch(ctx context.Context, actor Actor, input ResearchSearchInput) ([]*ScoredChunk, error) {
	ctx, span := telemetry.StartSpan(ctx, "RetrievalService.ResearchSearch", telemetry.SpanAttributes{
		OrgID:     actor.OrgID,
		Operation: "research_search",
	})
	defer span.End()

	role, err := s.perms.RoleOf(ctx, actor.OrgID, actor.UserID)
	if err != nil {
		return nil, domain.ErrForbidden
	}
	if !role.HasCapability(domain.CapabilityKnowledgeRead) {
		return nil, domain.ErrForbidden
	}

	if input.Query == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "query is required")
	}
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}

	vector, _, err := s.embedder.GenerateEmbedding(ctx, input.Query)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	candidates := limit * researchCandidateFactor
	if candidates > 200 {
		candidates = 200
	}

	scored, err := s.chunkRepo.SearchByEmbedding(ctx, actor.OrgID, vector, candidates, false)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	filtered := make([]*ScoredChunk, 0, len(scored))
	for _, sc := range scored {
		if !matchesResearchFilters(sc.Chunk, input) {
			continue
		}
		filtered = append(filtered, sc)
	}

	// The repository orders by score; re-sorting keeps the contract explicit
	// after filtering, ties broken by recency.
	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].Score != filtered[j].Score {
			return filtered[i].Score > filtered[j].Score
		}
		return filtered[i].Chunk.CreatedAt.After(filtered[j].Chunk.CreatedAt)
	})

	if len(filtered) > limit {
		filtered = filtered[:limit]
	}
	return filtered, nil
}

func matchesResearchFilters(chunk *domain.KnowledgeChunk, input ResearchSearchInput) bool {
	if input.SourceType != "" && chunk.SourceType != input.SourceType {
		return false
	}
	if input.Variant != "" && chunk.SourceVariant != input.Variant {
		return false
	}
	if input.Since != nil && chunk.CreatedAt.Before(*input.Since) {
		return false
	}
	if input.Until != nil && chunk.CreatedAt.After(*input.Until) {
		return false
	}
	return true
}
