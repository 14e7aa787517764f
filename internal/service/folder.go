package service

import (
	"context"
	"log"
	"time"

	"github.com/inkwell-ai/inkwell/internal/domain"
	"github.com/inkwell-ai/inkwell/internal/telemetry"
)

// FolderService manages folders and their aggregate embeddings. A folder's
// aggregate is the mean of its member chunks' vectors; attaching sources
// marks it stale until the recompute pass runs.
type FolderService struct {
	folderRepo FolderRepositoryInterface
	uuidGen    UUIDGenerator
}

func NewFolderService(folderRepo FolderRepositoryInterface) *FolderService {
	return &FolderService{
		folderRepo: folderRepo,
		uuidGen:    &DefaultUUIDGenerator{},
	}
}

func (s *FolderService) CreateFolder(ctx context.Context, orgID, name string) (*domain.Folder, error) {
	now := time.Now().UTC()
	folder := &domain.Folder{
		ID:        s.uuidGen.NewString(),
		OrgID:     orgID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := domain.ValidateFolder(folder); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, err.Error(), err)
	}
	if err := s.folderRepo.Create(ctx, folder); err != nil {
		return nil, err
	}
	return folder, nil
}

func (s *FolderService) GetFolder(ctx context.Context, orgID, folderID string) (*domain.Folder, error) {
	return s.folderRepo.GetByID(ctx, orgID, folderID)
}

// RecomputeStale recomputes the aggregate vector of up to limit stale
// folders and clears their staleness. Returns how many were recomputed.
// Folders marked stale again mid-recompute stay stale.
func (s *FolderService) RecomputeStale(ctx context.Context, limit int) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "FolderService.RecomputeStale", telemetry.SpanAttributes{
		Operation: "recompute_stale_folders",
	})
	defer span.End()

	folders, err := s.folderRepo.ListStale(ctx, limit)
	if err != nil {
		span.SetError(err)
		return 0, err
	}

	recomputed := 0
	for _, folder := range folders {
		if folder.StaleAt == nil {
			continue
		}
		embeddings, err := s.folderRepo.MemberChunkEmbeddings(ctx, folder.ID)
		if err != nil {
			log.Printf("folders: failed to load member embeddings for %s: %v", folder.ID, err)
			continue
		}
		mean := meanVector(embeddings)
		if err := s.folderRepo.SetEmbedding(ctx, folder.ID, mean, *folder.StaleAt); err != nil {
			log.Printf("folders: failed to store aggregate for %s: %v", folder.ID, err)
			continue
		}
		recomputed++
	}
	return recomputed, nil
}

func meanVector(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}
	mean := make([]float32, len(vectors[0]))
	count := 0
	for _, v := range vectors {
		if len(v) != len(mean) {
			continue
		}
		for i, x := range v {
			mean[i] += x
		}
		count++
	}
	if count == 0 {
		return nil
	}
	for i := range mean {
		mean[i] /= float32(count)
	}
	return mean
}
