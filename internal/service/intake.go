package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/inkwell-ai/inkwell/internal/domain"
	"github.com/inkwell-ai/inkwell/internal/hashing"
	"github.com/inkwell-ai/inkwell/internal/telemetry"
)

// Submit statuses returned to intake callers.
const (
	SubmitStatusIngested  = "ingested"
	SubmitStatusDuplicate = "duplicate"
)

// IntakeService handles intake of raw content and the source lifecycle.
type IntakeService struct {
	sourceRepo SourceRepositoryInterface
	folderRepo FolderRepositoryInterface
	jobRepo    PipelineJobRepositoryInterface
	txRunner   TxRunner
	uuidGen    UUIDGenerator
}

// NewIntakeService creates a new IntakeService instance
func NewIntakeService(
	sourceRepo SourceRepositoryInterface,
	folderRepo FolderRepositoryInterface,
	jobRepo PipelineJobRepositoryInterface,
	txRunner TxRunner,
) *IntakeService {
	return &IntakeService{
		sourceRepo: sourceRepo,
		folderRepo: folderRepo,
		jobRepo:    jobRepo,
		txRunner:   txRunner,
		uuidGen:    &DefaultUUIDGenerator{},
	}
}

// NewIntakeServiceWithUUIDGen creates a new IntakeService with custom UUID generator (for testing)
func NewIntakeServiceWithUUIDGen(
	sourceRepo SourceRepositoryInterface,
	folderRepo FolderRepositoryInterface,
	jobRepo PipelineJobRepositoryInterface,
	txRunner TxRunner,
	uuidGen UUIDGenerator,
) *IntakeService {
	s := NewIntakeService(sourceRepo, folderRepo, jobRepo, txRunner)
	s.uuidGen = uuidGen
	return s
}

// SubmitInput represents the input for submitting raw content.
// Exactly the fields for the given Type are required: URL for bookmarks,
// Text for pasted text, StorageKey and MimeType for files and voice.
type SubmitInput struct {
	OrgID      string
	UserID     string
	Type       domain.SourceType
	SourceRef  string
	Title      string
	Metadata   map[string]string
	URL        string
	Text       string
	StorageKey string
	MimeType   string
	FolderIDs  []string
}

// SubmitResult reports the outcome of an intake request. For duplicates,
// SourceID is the id of the already-ingested source.
type SubmitResult struct {
	SourceID string
	Status   string
}

// Submit accepts raw content, deduplicates it against prior sources, and
// queues the chunk pipeline for new content.
func (s *IntakeService) Submit(ctx context.Context, input SubmitInput) (*SubmitResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "IntakeService.Submit", telemetry.SpanAttributes{
		OrgID:     input.OrgID,
		Operation: "submit",
	})
	defer span.End()

	payload, dedupHash, err := buildPayload(input)
	if err != nil {
		return nil, err
	}

	// An external source ref is a stronger identity than the content hash:
	// the same bookmark re-submitted with edited page content is still the
	// same source.
	if input.SourceRef != "" {
		existing, err := s.sourceRepo.FindBySourceRef(ctx, input.OrgID, input.Type, input.SourceRef)
		if err != nil && !errors.Is(err, domain.ErrSourceNotFound) {
			span.SetError(err)
			return nil, err
		}
		if existing != nil {
			return &SubmitResult{SourceID: existing.ID, Status: SubmitStatusDuplicate}, nil
		}
	}

	existing, err := s.sourceRepo.FindByDedupHash(ctx, input.OrgID, dedupHash)
	if err != nil && !errors.Is(err, domain.ErrSourceNotFound) {
		span.SetError(err)
		return nil, err
	}
	if existing != nil {
		return &SubmitResult{SourceID: existing.ID, Status: SubmitStatusDuplicate}, nil
	}

	now := time.Now().UTC()
	source := &domain.IngestionSource{
		ID:        s.uuidGen.NewString(),
		OrgID:     input.OrgID,
		UserID:    input.UserID,
		Type:      input.Type,
		SourceRef: input.SourceRef,
		Payload:   payload,
		Title:     input.Title,
		Metadata:  input.Metadata,
		RawText:   input.Text,
		DedupHash: dedupHash,
		Status:    domain.InitialStatus(input.Type),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := domain.ValidateSource(source); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, err.Error(), err)
	}

	if err := s.sourceRepo.Create(ctx, source); err != nil {
		if errors.Is(err, domain.ErrDuplicateSourceRef) {
			// Lost a race with a concurrent submit of the same content.
			if existing, findErr := s.sourceRepo.FindByDedupHash(ctx, input.OrgID, dedupHash); findErr == nil && existing != nil {
				return &SubmitResult{SourceID: existing.ID, Status: SubmitStatusDuplicate}, nil
			}
			return nil, err
		}
		span.SetError(err)
		return nil, fmt.Errorf("failed to create source: %w", err)
	}

	s.attachFolders(ctx, input.OrgID, source.ID, input.FolderIDs)

	job := &domain.PipelineJob{
		ID:        s.uuidGen.NewString(),
		SourceID:  source.ID,
		OrgID:     input.OrgID,
		Stage:     domain.StageNormalize,
		Status:    domain.PipelineJobStatusPending,
		CreatedAt: now,
	}
	if err := s.jobRepo.Create(ctx, job); err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("failed to queue pipeline job: %w", err)
	}

	return &SubmitResult{SourceID: source.ID, Status: SubmitStatusIngested}, nil
}

func buildPayload(input SubmitInput) (domain.SourcePayload, string, error) {
	switch input.Type {
	case domain.SourceTypeBookmark:
		if input.URL == "" {
			return domain.SourcePayload{}, "", domain.NewDomainError(domain.ErrCodeValidation, "bookmark requires a URL")
		}
		return domain.SourcePayload{Bookmark: &domain.BookmarkPayload{URL: input.URL}},
			hashing.Hash(hashing.KindURL, input.URL), nil
	case domain.SourceTypeText:
		if input.Text == "" {
			return domain.SourcePayload{}, "", domain.NewDomainError(domain.ErrCodeValidation, "text intake requires text")
		}
		return domain.SourcePayload{Text: &domain.TextPayload{Text: input.Text}},
			hashing.TextHash(input.Text), nil
	case domain.SourceTypeFile:
		if input.StorageKey == "" {
			return domain.SourcePayload{}, "", domain.NewDomainError(domain.ErrCodeValidation, "file intake requires a storage key")
		}
		return domain.SourcePayload{File: &domain.FilePayload{StorageKey: input.StorageKey, MimeType: input.MimeType}},
			hashing.Hash(hashing.KindStorageKey, input.StorageKey), nil
	case domain.SourceTypeVoiceRecording:
		if input.StorageKey == "" {
			return domain.SourcePayload{}, "", domain.NewDomainError(domain.ErrCodeValidation, "voice intake requires a storage key")
		}
		return domain.SourcePayload{Voice: &domain.VoicePayload{StorageKey: input.StorageKey, MimeType: input.MimeType}},
			hashing.Hash(hashing.KindStorageKey, input.StorageKey), nil
	default:
		return domain.SourcePayload{}, "", domain.NewDomainErrorWithCause(domain.ErrCodeValidation,
			fmt.Sprintf("unknown source type: %s", input.Type), domain.ErrInvalidSourceType)
	}
}

// attachFolders attaches the source to each folder and marks the folders'
// aggregate embeddings stale. Staleness marking is best effort: a failure is
// logged and swallowed so it never fails the attach.
func (s *IntakeService) attachFolders(ctx context.Context, orgID, sourceID string, folderIDs []string) {
	for _, folderID := range folderIDs {
		if _, err := s.folderRepo.GetByID(ctx, orgID, folderID); err != nil {
			log.Printf("intake: skipping folder %s for source %s: %v", folderID, sourceID, err)
			continue
		}
		if err := s.folderRepo.AttachSource(ctx, folderID, sourceID); err != nil {
			log.Printf("intake: failed to attach folder %s to source %s: %v", folderID, sourceID, err)
			continue
		}
		if err := s.folderRepo.MarkStale(ctx, folderID); err != nil {
			log.Printf("intake: failed to mark folder %s stale: %v", folderID, err)
		}
	}
}

// AttachFolders adds folder associations to an existing source. Attaching an
// already-attached folder is a no-op.
func (s *IntakeService) AttachFolders(ctx context.Context, orgID, sourceID string, folderIDs []string) error {
	ctx, span := telemetry.StartSpan(ctx, "IntakeService.AttachFolders", telemetry.SpanAttributes{
		OrgID:    orgID,
		SourceID: sourceID,
	})
	defer span.End()

	if _, err := s.sourceRepo.GetByID(ctx, orgID, sourceID); err != nil {
		return err
	}
	s.attachFolders(ctx, orgID, sourceID, folderIDs)
	return nil
}

// GetSource returns one source scoped to the organization.
func (s *IntakeService) GetSource(ctx context.Context, orgID, sourceID string) (*domain.IngestionSource, error) {
	return s.sourceRepo.GetByID(ctx, orgID, sourceID)
}

// ListSources returns the organization's sources, newest first.
func (s *IntakeService) ListSources(ctx context.Context, orgID string, limit int) ([]*domain.IngestionSource, error) {
	return s.sourceRepo.ListByOrg(ctx, orgID, limit)
}

// Reingest purges everything derived from the source and restarts the
// pipeline from normalize. Running it twice in succession lands in the same
// end state.
func (s *IntakeService) Reingest(ctx context.Context, orgID, sourceID string) error {
	ctx, span := telemetry.StartSpan(ctx, "IntakeService.Reingest", telemetry.SpanAttributes{
		OrgID:     orgID,
		SourceID:  sourceID,
		Operation: "reingest",
	})
	defer span.End()

	source, err := s.sourceRepo.GetByID(ctx, orgID, sourceID)
	if err != nil {
		return err
	}
	// A source already sitting in pending is reingested again rather than
	// rejected; the purge and requeue land in the same end state.
	if source.Status != domain.SourceStatusPending && !domain.CanTransition(source.Status, domain.SourceStatusPending) {
		return domain.NewDomainErrorWithCause(domain.ErrCodeValidation,
			fmt.Sprintf("source in status %s cannot be reingested", source.Status),
			domain.ErrInvalidStatusChange)
	}

	err = s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		if _, err := purgeDerived(ctx, repos, sourceID, false); err != nil {
			return err
		}
		if err := repos.PipelineJobs().DeleteBySource(ctx, sourceID); err != nil {
			return err
		}
		if err := repos.Sources().ResetForReingest(ctx, sourceID); err != nil {
			return err
		}
		job := &domain.PipelineJob{
			ID:        s.uuidGen.NewString(),
			SourceID:  sourceID,
			OrgID:     orgID,
			Stage:     domain.StageNormalize,
			Status:    domain.PipelineJobStatusPending,
			CreatedAt: time.Now().UTC(),
		}
		return repos.PipelineJobs().Create(ctx, job)
	})
	if err != nil {
		span.SetError(err)
		return fmt.Errorf("reingest failed: %w", err)
	}
	return nil
}

// PurgeCounts reports how many derived rows a purge removed.
type PurgeCounts struct {
	Chunks int64
	Facts  int64
	Items  int64
}

// Delete soft-deletes the source and purges derived items and chunks in the
// same transaction. Business facts keep their content but lose the item
// back-reference.
func (s *IntakeService) Delete(ctx context.Context, orgID, sourceID string) (*PurgeCounts, error) {
	ctx, span := telemetry.StartSpan(ctx, "IntakeService.Delete", telemetry.SpanAttributes{
		OrgID:     orgID,
		SourceID:  sourceID,
		Operation: "delete",
	})
	defer span.End()

	if _, err := s.sourceRepo.GetByID(ctx, orgID, sourceID); err != nil {
		return nil, err
	}

	var counts *PurgeCounts
	err := s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		var err error
		counts, err = purgeDerived(ctx, repos, sourceID, true)
		if err != nil {
			return err
		}
		if err := repos.PipelineJobs().DeleteBySource(ctx, sourceID); err != nil {
			return err
		}
		return repos.Sources().SoftDelete(ctx, orgID, sourceID)
	})
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("delete failed: %w", err)
	}
	return counts, nil
}

// purgeDerived deletes everything derived from the source inside the caller's
// transaction: chunks first, then facts, then items, so a partial purge can
// never leave chunks or facts referencing a missing item. When keepFacts is
// set the facts survive with their item reference cleared instead.
func purgeDerived(ctx context.Context, repos TxRepositories, sourceID string, keepFacts bool) (*PurgeCounts, error) {
	itemIDs, err := repos.Items().ItemIDsBySource(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate items: %w", err)
	}
	if len(itemIDs) == 0 {
		return &PurgeCounts{}, nil
	}

	counts := &PurgeCounts{}
	if counts.Chunks, err = repos.Chunks().DeleteByItemIDs(ctx, itemIDs); err != nil {
		return nil, fmt.Errorf("failed to delete chunks: %w", err)
	}
	if keepFacts {
		if counts.Facts, err = repos.Facts().ClearItemRef(ctx, itemIDs); err != nil {
			return nil, fmt.Errorf("failed to clear fact references: %w", err)
		}
	} else {
		if counts.Facts, err = repos.Facts().DeleteByItemIDs(ctx, itemIDs); err != nil {
			return nil, fmt.Errorf("failed to delete facts: %w", err)
		}
	}
	if _, err = repos.VoiceTraits().DeleteByItemIDs(ctx, itemIDs); err != nil {
		return nil, fmt.Errorf("failed to delete voice traits: %w", err)
	}
	if counts.Items, err = repos.Items().DeleteByIDs(ctx, itemIDs); err != nil {
		return nil, fmt.Errorf("failed to delete items: %w", err)
	}
	return counts, nil
}
