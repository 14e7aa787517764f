package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/inkwell-ai/inkwell/internal/domain"
	"github.com/inkwell-ai/inkwell/internal/hashing"
	"github.com/inkwell-ai/inkwell/internal/pagination"
	"github.com/inkwell-ai/inkwell/internal/telemetry"
)

// PermissionResolver resolves a caller's organization role.
type PermissionResolver interface {
	RoleOf(ctx context.Context, orgID, userID string) (domain.Role, error)
}

// Actor identifies the caller of a governed operation. Every operation takes
// it explicitly; there is no ambient request state.
type Actor struct {
	OrgID  string
	UserID string
}

// ChunkListFilters narrows the governance chunk listing.
type ChunkListFilters struct {
	OrgID      string
	Kind       domain.ChunkKind
	Policy     domain.UsagePolicy
	Active     *bool
	SourceType string
	Query      string
}

// ChunkPageResult is one page of the governance chunk listing.
type ChunkPageResult struct {
	Chunks     []*domain.KnowledgeChunk
	NextCursor string
	HasMore    bool
}

// GovernanceService handles administrative mutations of knowledge chunks.
// Every state-changing mutation appends exactly one audit event in the same
// transaction; no-ops append none.
type GovernanceService struct {
	chunkRepo ChunkRepositoryInterface
	eventRepo EventRepositoryInterface
	txRunner  TxRunner
	perms     PermissionResolver
	uuidGen   UUIDGenerator
}

// NewGovernanceService creates a new GovernanceService instance
func NewGovernanceService(
	chunkRepo ChunkRepositoryInterface,
	eventRepo EventRepositoryInterface,
	txRunner TxRunner,
	perms PermissionResolver,
) *GovernanceService {
	return &GovernanceService{
		chunkRepo: chunkRepo,
		eventRepo: eventRepo,
		txRunner:  txRunner,
		perms:     perms,
		uuidGen:   &DefaultUUIDGenerator{},
	}
}

// NewGovernanceServiceWithUUIDGen creates a new GovernanceService with custom UUID generator (for testing)
func NewGovernanceServiceWithUUIDGen(
	chunkRepo ChunkRepositoryInterface,
	eventRepo EventRepositoryInterface,
	txRunner TxRunner,
	perms PermissionResolver,
	uuidGen UUIDGenerator,
) *GovernanceService {
	s := NewGovernanceService(chunkRepo, eventRepo, txRunner, perms)
	s.uuidGen = uuidGen
	return s
}

// requireCapability resolves the actor's role and checks the capability.
// Insufficient permission is a hard failure, not a silent no-op.
func (s *GovernanceService) requireCapability(ctx context.Context, actor Actor, capability domain.Capability) error {
	role, err := s.perms.RoleOf(ctx, actor.OrgID, actor.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrMembershipNotFound) {
			return domain.ErrForbidden
		}
		return err
	}
	if !role.HasCapability(capability) {
		return domain.ErrForbidden
	}
	return nil
}

// ListChunks returns a cursor-paginated page of the organization's chunks.
func (s *GovernanceService) ListChunks(ctx context.Context, actor Actor, filters ChunkListFilters, cursorStr string, limit int) (*ChunkPageResult, error) {
	if err := s.requireCapability(ctx, actor, domain.CapabilityKnowledgeRead); err != nil {
		return nil, err
	}

	var cursor *pagination.Cursor
	if cursorStr != "" {
		decoded, err := pagination.DecodeCursor(cursorStr)
		if err != nil {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", err)
		}
		cursor = decoded
	}

	filters.OrgID = actor.OrgID
	return s.chunkRepo.List(ctx, filters, cursor, limit)
}

// GetChunk returns one chunk scoped to the actor's organization.
func (s *GovernanceService) GetChunk(ctx context.Context, actor Actor, chunkID string) (*domain.KnowledgeChunk, error) {
	if err := s.requireCapability(ctx, actor, domain.CapabilityKnowledgeRead); err != nil {
		return nil, err
	}
	return s.chunkRepo.GetByID(ctx, actor.OrgID, chunkID)
}

// ListChunkEvents returns the chunk's audit trail, oldest first.
func (s *GovernanceService) ListChunkEvents(ctx context.Context, actor Actor, chunkID string) ([]*domain.ChunkEvent, error) {
	if err := s.requireCapability(ctx, actor, domain.CapabilityKnowledgeRead); err != nil {
		return nil, err
	}
	return s.eventRepo.ListByChunk(ctx, actor.OrgID, chunkID)
}

// Activate makes a chunk retrievable again. Activating an active chunk
// succeeds with no event. Returns whether state changed.
func (s *GovernanceService) Activate(ctx context.Context, actor Actor, chunkID, reason string) (bool, error) {
	return s.setActive(ctx, actor, chunkID, reason, true)
}

// Deactivate removes a chunk from all retrieval. Deactivating an inactive
// chunk succeeds with no event. Returns whether state changed.
func (s *GovernanceService) Deactivate(ctx context.Context, actor Actor, chunkID, reason string) (bool, error) {
	return s.setActive(ctx, actor, chunkID, reason, false)
}

func (s *GovernanceService) setActive(ctx context.Context, actor Actor, chunkID, reason string, active bool) (bool, error) {
	capability := domain.CapabilityKnowledgeDeactivate
	eventType := domain.ChunkEventDeactivated
	if active {
		capability = domain.CapabilityKnowledgeActivate
		eventType = domain.ChunkEventActivated
	}
	ctx, span := telemetry.StartSpan(ctx, "GovernanceService.setActive", telemetry.SpanAttributes{
		OrgID:     actor.OrgID,
		ChunkID:   chunkID,
		Operation: string(eventType),
	})
	defer span.End()

	if err := s.requireCapability(ctx, actor, capability); err != nil {
		return false, err
	}

	changed := false
	err := s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		chunk, err := repos.Chunks().GetByIDForUpdate(ctx, actor.OrgID, chunkID)
		if err != nil {
			return err
		}
		if chunk.IsActive == active {
			return nil
		}
		if err := repos.Chunks().UpdateActive(ctx, chunkID, active); err != nil {
			return err
		}
		changed = true
		return repos.Events().Append(ctx, s.newEvent(actor, chunkID, eventType, reason,
			domain.FieldSnapshot{"is_active": chunk.IsActive},
			domain.FieldSnapshot{"is_active": active},
		))
	})
	if err != nil {
		span.SetError(err)
		return false, err
	}
	return changed, nil
}

// Reclassify changes a chunk's kind. Reclassifying to the current kind
// succeeds with no event.
func (s *GovernanceService) Reclassify(ctx context.Context, actor Actor, chunkID string, newKind domain.ChunkKind, reason string) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "GovernanceService.Reclassify", telemetry.SpanAttributes{
		OrgID:   actor.OrgID,
		ChunkID: chunkID,
	})
	defer span.End()

	if !domain.IsValidChunkKind(newKind) {
		return false, domain.NewDomainError(domain.ErrCodeValidation, fmt.Sprintf("invalid chunk kind: %s", newKind))
	}
	if err := s.requireCapability(ctx, actor, domain.CapabilityKnowledgeReclassify); err != nil {
		return false, err
	}

	changed := false
	err := s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		chunk, err := repos.Chunks().GetByIDForUpdate(ctx, actor.OrgID, chunkID)
		if err != nil {
			return err
		}
		if chunk.Kind == newKind {
			return nil
		}
		if err := repos.Chunks().UpdateKind(ctx, chunkID, newKind); err != nil {
			return err
		}
		changed = true
		return repos.Events().Append(ctx, s.newEvent(actor, chunkID, domain.ChunkEventReclassified, reason,
			domain.FieldSnapshot{"chunk_kind": string(chunk.Kind)},
			domain.FieldSnapshot{"chunk_kind": string(newKind)},
		))
	})
	if err != nil {
		span.SetError(err)
		return false, err
	}
	return changed, nil
}

// SetPolicy changes a chunk's usage policy. Setting the current policy
// succeeds with no event.
func (s *GovernanceService) SetPolicy(ctx context.Context, actor Actor, chunkID string, newPolicy domain.UsagePolicy, reason string) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "GovernanceService.SetPolicy", telemetry.SpanAttributes{
		OrgID:   actor.OrgID,
		ChunkID: chunkID,
	})
	defer span.End()

	if !domain.IsValidUsagePolicy(newPolicy) {
		return false, domain.NewDomainError(domain.ErrCodeValidation, fmt.Sprintf("invalid usage policy: %s", newPolicy))
	}
	if err := s.requireCapability(ctx, actor, domain.CapabilityKnowledgeSetPolicy); err != nil {
		return false, err
	}

	changed := false
	err := s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		chunk, err := repos.Chunks().GetByIDForUpdate(ctx, actor.OrgID, chunkID)
		if err != nil {
			return err
		}
		if chunk.Policy == newPolicy {
			return nil
		}
		if err := repos.Chunks().UpdatePolicy(ctx, chunkID, newPolicy); err != nil {
			return err
		}
		changed = true
		return repos.Events().Append(ctx, s.newEvent(actor, chunkID, domain.ChunkEventPolicyChanged, reason,
			domain.FieldSnapshot{"usage_policy": string(chunk.Policy)},
			domain.FieldSnapshot{"usage_policy": string(newPolicy)},
		))
	})
	if err != nil {
		span.SetError(err)
		return false, err
	}
	return changed, nil
}

// HardDelete removes the chunk row permanently and closes its audit trail
// with a terminal event. Requires the explicit confirmation flag; hard delete
// is a distinct permission from the soft governance actions.
func (s *GovernanceService) HardDelete(ctx context.Context, actor Actor, chunkID string, confirm bool) error {
	ctx, span := telemetry.StartSpan(ctx, "GovernanceService.HardDelete", telemetry.SpanAttributes{
		OrgID:     actor.OrgID,
		ChunkID:   chunkID,
		Operation: "hard_delete",
	})
	defer span.End()

	if !confirm {
		return domain.ErrDeleteNotConfirmed
	}
	if err := s.requireCapability(ctx, actor, domain.CapabilityKnowledgeDeleteHard); err != nil {
		return err
	}

	err := s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		chunk, err := repos.Chunks().GetByIDForUpdate(ctx, actor.OrgID, chunkID)
		if err != nil {
			return err
		}
		event := s.newEvent(actor, chunkID, domain.ChunkEventDeletedHard, "",
			domain.FieldSnapshot{
				"chunk_text":   chunk.ChunkText,
				"chunk_kind":   string(chunk.Kind),
				"is_active":    chunk.IsActive,
				"usage_policy": string(chunk.Policy),
			},
			nil,
		)
		if err := repos.Events().Append(ctx, event); err != nil {
			return err
		}
		return repos.Chunks().Delete(ctx, chunkID)
	})
	if err != nil {
		span.SetError(err)
		return err
	}
	return nil
}

// PromoteInput carries a research snippet being promoted into the knowledge
// base, with its external provenance.
type PromoteInput struct {
	SnippetText   string
	Kind          domain.ChunkKind
	Policy        domain.UsagePolicy
	Title         string
	SourceType    string
	SourceRef     string
	SourceTitle   string
	SourceVariant string
}

// PromoteFromResearch creates a knowledge item and a linked chunk from a
// research snippet in one transaction, records the provenance event, and
// schedules embedding of the new chunk.
func (s *GovernanceService) PromoteFromResearch(ctx context.Context, actor Actor, input PromoteInput) (*domain.KnowledgeChunk, error) {
	ctx, span := telemetry.StartSpan(ctx, "GovernanceService.PromoteFromResearch", telemetry.SpanAttributes{
		OrgID:     actor.OrgID,
		Operation: "promote_from_research",
	})
	defer span.End()

	if err := s.requireCapability(ctx, actor, domain.CapabilityKnowledgePromote); err != nil {
		return nil, err
	}
	if input.SnippetText == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "snippet text is required")
	}
	if !domain.IsValidChunkKind(input.Kind) {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, fmt.Sprintf("invalid chunk kind: %s", input.Kind))
	}
	policy := input.Policy
	if policy == "" {
		policy = domain.UsagePolicyNormal
	}
	if !domain.IsValidUsagePolicy(policy) {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, fmt.Sprintf("invalid usage policy: %s", policy))
	}

	snippet := hashing.NormalizeText(input.SnippetText)
	now := time.Now().UTC()
	var chunk *domain.KnowledgeChunk

	err := s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		item := &domain.KnowledgeItem{
			ID:             s.uuidGen.NewString(),
			OrgID:          actor.OrgID,
			UserID:         actor.UserID,
			RawText:        snippet,
			RawTextSHA256:  hashing.TextHash(snippet),
			Title:          input.Title,
			Type:           domain.ItemTypeFact,
			Source:         domain.ItemSourceResearch,
			Confidence:     domain.ConfidenceForSource(domain.ItemSourceResearch),
			ChunkingStatus: domain.ChunkingStatusCompleted,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := repos.Items().Create(ctx, item); err != nil {
			if !errors.Is(err, domain.ErrDuplicateContent) {
				return err
			}
			// The same snippet was promoted before; attach to the
			// existing item instead of failing.
			existing, findErr := repos.Items().FindByContentHash(ctx, actor.OrgID, item.RawTextSHA256)
			if findErr != nil {
				return findErr
			}
			item = existing
		}

		chunk = &domain.KnowledgeChunk{
			ID:             s.uuidGen.NewString(),
			ItemID:         item.ID,
			OrgID:          actor.OrgID,
			ChunkText:      snippet,
			Transformation: domain.TransformationExtractive,
			Kind:           input.Kind,
			Confidence:     domain.ConfidenceForSource(domain.ItemSourceResearch),
			IsActive:       true,
			Policy:         policy,
			SourceType:     input.SourceType,
			SourceRef:      input.SourceRef,
			SourceTitle:    input.SourceTitle,
			SourceVariant:  input.SourceVariant,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := repos.Chunks().Create(ctx, chunk); err != nil {
			return err
		}

		event := s.newEvent(actor, chunk.ID, domain.ChunkEventAddedFromResearch, "",
			nil,
			domain.FieldSnapshot{
				"chunk_kind":   string(chunk.Kind),
				"usage_policy": string(chunk.Policy),
				"source_type":  chunk.SourceType,
				"source_ref":   chunk.SourceRef,
			},
		)
		if err := repos.Events().Append(ctx, event); err != nil {
			return err
		}

		job := &domain.PipelineJob{
			ID:        s.uuidGen.NewString(),
			ItemID:    item.ID,
			OrgID:     actor.OrgID,
			Stage:     domain.StageEmbed,
			Status:    domain.PipelineJobStatusPending,
			CreatedAt: now,
		}
		return repos.PipelineJobs().Create(ctx, job)
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	return chunk, nil
}

func (s *GovernanceService) newEvent(actor Actor, chunkID string, eventType domain.ChunkEventType, reason string, before, after domain.FieldSnapshot) *domain.ChunkEvent {
	return &domain.ChunkEvent{
		ID:        s.uuidGen.NewString(),
		ChunkID:   chunkID,
		OrgID:     actor.OrgID,
		Type:      eventType,
		Before:    before,
		After:     after,
		Reason:    reason,
		ActorID:   actor.UserID,
		CreatedAt: time.Now().UTC(),
	}
}
