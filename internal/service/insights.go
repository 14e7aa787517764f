package service

import (
	"context"

	"github.com/inkwell-ai/inkwell/internal/domain"
)

// InsightsService reads the extraction by-products of the pipeline: business
// facts and voice traits.
type InsightsService struct {
	factRepo  FactRepositoryInterface
	traitRepo VoiceTraitRepositoryInterface
	perms     PermissionResolver
}

func NewInsightsService(factRepo FactRepositoryInterface, traitRepo VoiceTraitRepositoryInterface, perms PermissionResolver) *InsightsService {
	return &InsightsService{
		factRepo:  factRepo,
		traitRepo: traitRepo,
		perms:     perms,
	}
}

func (s *InsightsService) requireRead(ctx context.Context, actor Actor) error {
	role, err := s.perms.RoleOf(ctx, actor.OrgID, actor.UserID)
	if err != nil {
		return domain.ErrForbidden
	}
	if !role.HasCapability(domain.CapabilityKnowledgeRead) {
		return domain.ErrForbidden
	}
	return nil
}

// ListFacts returns the organization's business facts, newest first.
func (s *InsightsService) ListFacts(ctx context.Context, actor Actor, limit int) ([]*domain.BusinessFact, error) {
	if err := s.requireRead(ctx, actor); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}
	return s.factRepo.ListByOrg(ctx, actor.OrgID, limit)
}

// ListVoiceTraits returns the organization's voice traits, newest first.
func (s *InsightsService) ListVoiceTraits(ctx context.Context, actor Actor, limit int) ([]*domain.VoiceTrait, error) {
	if err := s.requireRead(ctx, actor); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}
	return s.traitRepo.ListByOrg(ctx, actor.OrgID, limit)
}
