package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/inkwell-ai/inkwell/internal/domain"
	"github.com/inkwell-ai/inkwell/internal/hashing"
	"github.com/inkwell-ai/inkwell/internal/telemetry"
)

// Extractor turns normalized text into structured results. Opaque collaborator:
// it may fail or time out, and the pipeline retries it.
type Extractor interface {
	ExtractChunks(ctx context.Context, text string) ([]domain.ExtractedChunk, error)
	ExtractVoiceTraits(ctx context.Context, text string) ([]domain.ExtractedTrait, error)
	ExtractBusinessFacts(ctx context.Context, text string) ([]domain.ExtractedFact, error)
}

// Embedder turns text into a vector. Returns the vector, the token count
// reported by the provider, and the model identifier via Model.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, int, error)
	Model() string
}

// Transcriber converts recorded audio to text.
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, audio []byte) (string, error)
}

// BlobStorage fetches uploaded binary content by storage key.
type BlobStorage interface {
	Download(ctx context.Context, key string) ([]byte, error)
}

// PageFetcher retrieves the readable text of a bookmarked page.
type PageFetcher interface {
	FetchText(ctx context.Context, url string) (title, text string, err error)
}

// PipelineConfig tunes stage retries and timeouts.
type PipelineConfig struct {
	MaxStageRetries uint64
	StageTimeout    time.Duration
	InitialBackoff  time.Duration
}

// DefaultPipelineConfig provides sane defaults for the stage chain.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		MaxStageRetries: 3,
		StageTimeout:    2 * time.Minute,
		InitialBackoff:  time.Second,
	}
}

// errSkipChain aborts the chain without failing it: the source completes with
// no derived item (duplicate content, unsupported file type).
var errSkipChain = errors.New("pipeline chain skipped")

// DedupReasonDuplicateContent is recorded on a source whose normalized
// content matched an existing knowledge item.
const DedupReasonDuplicateContent = "duplicate_content"

// PipelineService runs the ordered stage chain
// normalize -> chunk -> embed -> extract_voice_traits -> extract_business_facts.
// Each stage consumes the previous stage's committed output; the job row
// records the reached stage so a crashed worker resumes there.
type PipelineService struct {
	sourceRepo SourceRepositoryInterface
	itemRepo   ItemRepositoryInterface
	chunkRepo  ChunkRepositoryInterface
	factRepo   FactRepositoryInterface
	traitRepo  VoiceTraitRepositoryInterface
	jobRepo    PipelineJobRepositoryInterface

	extractor   Extractor
	embedder    Embedder
	transcriber Transcriber
	storage     BlobStorage
	fetcher     PageFetcher

	uuidGen UUIDGenerator
	cfg     PipelineConfig
}

// PipelineDeps bundles the collaborators of the stage chain.
type PipelineDeps struct {
	SourceRepo  SourceRepositoryInterface
	ItemRepo    ItemRepositoryInterface
	ChunkRepo   ChunkRepositoryInterface
	FactRepo    FactRepositoryInterface
	TraitRepo   VoiceTraitRepositoryInterface
	JobRepo     PipelineJobRepositoryInterface
	Extractor   Extractor
	Embedder    Embedder
	Transcriber Transcriber
	Storage     BlobStorage
	Fetcher     PageFetcher
}

// NewPipelineService creates a new PipelineService instance
func NewPipelineService(deps PipelineDeps, cfg PipelineConfig) *PipelineService {
	if cfg.MaxStageRetries == 0 {
		cfg = DefaultPipelineConfig()
	}
	return &PipelineService{
		sourceRepo:  deps.SourceRepo,
		itemRepo:    deps.ItemRepo,
		chunkRepo:   deps.ChunkRepo,
		factRepo:    deps.FactRepo,
		traitRepo:   deps.TraitRepo,
		jobRepo:     deps.JobRepo,
		extractor:   deps.Extractor,
		embedder:    deps.Embedder,
		transcriber: deps.Transcriber,
		storage:     deps.Storage,
		fetcher:     deps.Fetcher,
		uuidGen:     &DefaultUUIDGenerator{},
		cfg:         cfg,
	}
}

// stageContext is shared by the stages of one chain run.
type stageContext struct {
	job    *domain.PipelineJob
	source *domain.IngestionSource
	item   *domain.KnowledgeItem

	startedAt  time.Time
	chunkCount int
	factCount  int
	tokensUsed int
	retries    int
}

// RunJob executes the chain for one claimed job, from the job's recorded
// stage to the end. Item-scoped jobs (promoted chunks awaiting embedding)
// run the embed stage only.
func (s *PipelineService) RunJob(ctx context.Context, job *domain.PipelineJob) error {
	ctx, span := telemetry.StartSpan(ctx, "PipelineService.RunJob", telemetry.SpanAttributes{
		OrgID:    job.OrgID,
		SourceID: job.SourceID,
		ItemID:   job.ItemID,
		Stage:    string(job.Stage),
	})
	defer span.End()

	if job.ItemID != "" {
		return s.runItemJob(ctx, job)
	}

	sc := &stageContext{job: job, startedAt: time.Now()}

	source, err := s.sourceRepo.GetByID(ctx, job.OrgID, job.SourceID)
	if err != nil {
		s.failJob(ctx, sc, fmt.Errorf("source lookup failed: %w", err))
		return err
	}
	sc.source = source

	if source.Status == domain.SourceStatusTranscribing {
		if err := s.transcribeSource(ctx, sc); err != nil {
			s.failChain(ctx, sc, err)
			return err
		}
	}

	if err := s.sourceRepo.UpdateStatus(ctx, source.ID, domain.SourceStatusProcessing, ""); err != nil {
		return err
	}
	source.Status = domain.SourceStatusProcessing

	// Resuming past normalize needs the item the earlier run created.
	if job.Stage != domain.StageNormalize {
		if err := s.loadItem(ctx, sc); err != nil {
			s.failChain(ctx, sc, err)
			return err
		}
	}

	for stage := job.Stage; stage != ""; {
		err := s.runStage(ctx, sc, stage)
		if errors.Is(err, errSkipChain) {
			return s.completeChain(ctx, sc)
		}
		if err != nil {
			s.failChain(ctx, sc, err)
			return err
		}

		next := domain.NextStage(stage)
		if next == "" {
			return s.completeChain(ctx, sc)
		}
		if err := s.jobRepo.AdvanceStage(ctx, job.ID, next); err != nil {
			return err
		}
		stage = next
	}
	return nil
}

// runItemJob embeds the chunks of one item outside a source chain.
func (s *PipelineService) runItemJob(ctx context.Context, job *domain.PipelineJob) error {
	item, err := s.itemRepo.GetByID(ctx, job.OrgID, job.ItemID)
	if err != nil {
		s.failJob(ctx, &stageContext{job: job}, err)
		return err
	}
	sc := &stageContext{job: job, item: item, startedAt: time.Now()}
	if err := s.runStage(ctx, sc, domain.StageEmbed); err != nil {
		s.failJob(ctx, sc, err)
		return err
	}
	return s.jobRepo.UpdateStatus(ctx, job.ID, domain.PipelineJobStatusCompleted, "")
}

// runStage executes one stage with exponential backoff. Validation-class
// errors are permanent; everything else retries up to MaxStageRetries.
func (s *PipelineService) runStage(ctx context.Context, sc *stageContext, stage domain.PipelineStage) error {
	_, span := telemetry.StartSpan(ctx, "PipelineService.runStage", telemetry.SpanAttributes{
		OrgID: sc.job.OrgID,
		Stage: string(stage),
	})
	defer span.End()

	fn, err := s.stageFunc(stage)
	if err != nil {
		return err
	}

	b := backoff.NewExponentialBackOff()
	if s.cfg.InitialBackoff > 0 {
		b.InitialInterval = s.cfg.InitialBackoff
	}

	operation := func() error {
		stageCtx := ctx
		if s.cfg.StageTimeout > 0 {
			var cancel context.CancelFunc
			stageCtx, cancel = context.WithTimeout(ctx, s.cfg.StageTimeout)
			defer cancel()
		}

		err := fn(stageCtx, sc)
		if err == nil {
			return nil
		}
		if errors.Is(err, errSkipChain) || isPermanentStageError(err) {
			return backoff.Permanent(err)
		}

		sc.retries++
		if incErr := s.jobRepo.IncrementRetries(ctx, sc.job.ID); incErr != nil {
			log.Printf("pipeline: failed to record retry for job %s: %v", sc.job.ID, incErr)
		}
		log.Printf("pipeline: stage %s failed for job %s (attempt %d): %v", stage, sc.job.ID, sc.retries, err)
		return err
	}

	err = backoff.Retry(operation, backoff.WithMaxRetries(backoff.WithContext(b, ctx), s.cfg.MaxStageRetries))
	if err == nil || errors.Is(err, errSkipChain) || isPermanentStageError(err) {
		return err
	}
	return domain.NewDomainErrorWithCause(domain.ErrCodeTerminalStage,
		fmt.Sprintf("stage %s retries exhausted", stage), err)
}

func (s *PipelineService) stageFunc(stage domain.PipelineStage) (func(context.Context, *stageContext) error, error) {
	switch stage {
	case domain.StageNormalize:
		return s.stageNormalize, nil
	case domain.StageChunk:
		return s.stageChunk, nil
	case domain.StageEmbed:
		return s.stageEmbed, nil
	case domain.StageVoiceTraits:
		return s.stageVoiceTraits, nil
	case domain.StageBusinessFact:
		return s.stageBusinessFacts, nil
	default:
		return nil, fmt.Errorf("unknown pipeline stage: %s", stage)
	}
}

func isPermanentStageError(err error) bool {
	var derr *domain.DomainError
	if errors.As(err, &derr) {
		return derr.Code == domain.ErrCodeValidation || derr.Code == domain.ErrCodeTerminalStage
	}
	return false
}

// transcribeSource downloads the recorded audio, transcribes it, and rewrites
// the source's raw text and dedup hash before the common chain runs.
func (s *PipelineService) transcribeSource(ctx context.Context, sc *stageContext) error {
	if s.transcriber == nil || s.storage == nil {
		return domain.NewDomainError(domain.ErrCodeTerminalStage, "transcription is not configured")
	}
	payload := sc.source.Payload.Voice
	if payload == nil {
		return domain.NewDomainError(domain.ErrCodeValidation, "voice source has no voice payload")
	}

	audio, err := s.storage.Download(ctx, payload.StorageKey)
	if err != nil {
		return fmt.Errorf("failed to download audio: %w", err)
	}
	text, err := s.transcriber.Transcribe(ctx, path.Base(payload.StorageKey), audio)
	if err != nil {
		return fmt.Errorf("transcription failed: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return domain.NewDomainError(domain.ErrCodeTerminalStage, "transcription produced no text")
	}

	hash := hashing.TextHash(text)
	if err := s.sourceRepo.SetTranscription(ctx, sc.source.ID, text, hash); err != nil {
		return err
	}
	sc.source.RawText = text
	sc.source.DedupHash = hash
	sc.source.Status = domain.SourceStatusPending
	return nil
}

// stageNormalize resolves the source's raw text, deduplicates it against
// existing knowledge items by content hash, and creates the item the rest of
// the chain operates on.
func (s *PipelineService) stageNormalize(ctx context.Context, sc *stageContext) error {
	rawText, title, err := s.resolveRawText(ctx, sc.source)
	if err != nil {
		return err
	}
	rawText = hashing.NormalizeText(rawText)
	if rawText == "" {
		return domain.NewDomainError(domain.ErrCodeTerminalStage, "source has no text content")
	}
	if title == "" {
		title = sc.source.Title
	}

	contentHash := hashing.TextHash(rawText)
	existing, err := s.itemRepo.FindByContentHash(ctx, sc.source.OrgID, contentHash)
	if err != nil && !errors.Is(err, domain.ErrItemNotFound) {
		return err
	}
	if existing != nil {
		if err := s.sourceRepo.MarkDuplicate(ctx, sc.source.ID, DedupReasonDuplicateContent); err != nil {
			return err
		}
		sc.source.Status = domain.SourceStatusCompleted
		return errSkipChain
	}

	itemSource := domain.ItemSourceForType(sc.source.Type)
	now := time.Now().UTC()
	item := &domain.KnowledgeItem{
		ID:             s.uuidGen.NewString(),
		OrgID:          sc.source.OrgID,
		UserID:         sc.source.UserID,
		SourceID:       sc.source.ID,
		RawText:        rawText,
		RawTextSHA256:  contentHash,
		Title:          title,
		Type:           itemTypeForSource(sc.source.Type),
		Source:         itemSource,
		Confidence:     domain.ConfidenceForSource(itemSource),
		ChunkingStatus: domain.ChunkingStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := domain.ValidateKnowledgeItem(item); err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, err.Error(), err)
	}

	if err := s.itemRepo.Create(ctx, item); err != nil {
		if errors.Is(err, domain.ErrDuplicateContent) {
			// Lost a race against a concurrent chain ingesting the same text.
			if err := s.sourceRepo.MarkDuplicate(ctx, sc.source.ID, DedupReasonDuplicateContent); err != nil {
				return err
			}
			sc.source.Status = domain.SourceStatusCompleted
			return errSkipChain
		}
		return err
	}
	sc.item = item
	return nil
}

func (s *PipelineService) resolveRawText(ctx context.Context, source *domain.IngestionSource) (text, title string, err error) {
	switch source.Type {
	case domain.SourceTypeText:
		return source.RawText, "", nil
	case domain.SourceTypeVoiceRecording:
		// Transcription already rewrote raw_text.
		return source.RawText, "", nil
	case domain.SourceTypeBookmark:
		if s.fetcher == nil {
			return "", "", domain.NewDomainError(domain.ErrCodeTerminalStage, "no page fetcher configured")
		}
		title, text, err := s.fetcher.FetchText(ctx, source.Payload.Bookmark.URL)
		if err != nil {
			return "", "", fmt.Errorf("failed to fetch page: %w", err)
		}
		return text, title, nil
	case domain.SourceTypeFile:
		if s.storage == nil {
			return "", "", domain.NewDomainError(domain.ErrCodeTerminalStage, "no blob storage configured")
		}
		if !isTextMime(source.Payload.File.MimeType) {
			if err := s.itemSkippedFile(ctx, source); err != nil {
				return "", "", err
			}
			return "", "", errSkipChain
		}
		data, err := s.storage.Download(ctx, source.Payload.File.StorageKey)
		if err != nil {
			return "", "", fmt.Errorf("failed to download file: %w", err)
		}
		return string(data), "", nil
	default:
		return "", "", domain.NewDomainErrorWithCause(domain.ErrCodeValidation,
			fmt.Sprintf("unknown source type: %s", source.Type), domain.ErrInvalidSourceType)
	}
}

func (s *PipelineService) itemSkippedFile(ctx context.Context, source *domain.IngestionSource) error {
	log.Printf("pipeline: skipping source %s: unsupported mime type %q", source.ID, source.Payload.File.MimeType)
	if err := s.sourceRepo.UpdateStatus(ctx, source.ID, domain.SourceStatusCompleted, ""); err != nil {
		return err
	}
	source.Status = domain.SourceStatusCompleted
	return nil
}

func isTextMime(mime string) bool {
	if mime == "" {
		return true
	}
	if strings.HasPrefix(mime, "text/") {
		return true
	}
	switch mime {
	case "application/json", "application/xml", "application/x-markdown":
		return true
	}
	return false
}

func itemTypeForSource(t domain.SourceType) domain.ItemType {
	switch t {
	case domain.SourceTypeBookmark, domain.SourceTypeFile:
		return domain.ItemTypeArticle
	case domain.SourceTypeVoiceRecording:
		return domain.ItemTypeTranscript
	default:
		return domain.ItemTypeNote
	}
}

// stageChunk extracts classified chunks from the item. The stage drops and
// recreates the item's chunks so a retried run cannot duplicate them.
func (s *PipelineService) stageChunk(ctx context.Context, sc *stageContext) error {
	if s.extractor == nil {
		return domain.NewDomainError(domain.ErrCodeTerminalStage, "no extractor configured")
	}
	item := sc.item

	extracted, err := s.extractor.ExtractChunks(ctx, item.RawText)
	if err != nil {
		return err
	}

	if _, err := s.chunkRepo.DeleteByItemIDs(ctx, []string{item.ID}); err != nil {
		return err
	}

	now := time.Now().UTC()
	for _, e := range extracted {
		chunk := &domain.KnowledgeChunk{
			ID:             s.uuidGen.NewString(),
			ItemID:         item.ID,
			OrgID:          item.OrgID,
			ChunkText:      strings.TrimSpace(e.Text),
			SourceText:     e.SourceText,
			SourceSpans:    spansFor(item.RawText, e.SourceText),
			Transformation: transformationFor(e),
			Kind:           kindFor(e.Kind),
			Role:           e.Role,
			Confidence:     e.Confidence,
			IsActive:       true,
			Policy:         domain.UsagePolicyNormal,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if chunk.ChunkText == "" {
			continue
		}
		if err := s.chunkRepo.Create(ctx, chunk); err != nil {
			return err
		}
		sc.chunkCount++
	}

	return s.itemRepo.UpdateChunkingStatus(ctx, item.ID, domain.ChunkingStatusChunked, "", "")
}

func kindFor(kind string) domain.ChunkKind {
	k := domain.ChunkKind(kind)
	if domain.IsValidChunkKind(k) {
		return k
	}
	return domain.ChunkKindFact
}

func transformationFor(e domain.ExtractedChunk) domain.TransformationType {
	if e.Transformation == string(domain.TransformationExtractive) {
		return domain.TransformationExtractive
	}
	if e.SourceText != "" && strings.TrimSpace(e.Text) == strings.TrimSpace(e.SourceText) {
		return domain.TransformationExtractive
	}
	return domain.TransformationAbstractive
}

func spansFor(rawText, sourceText string) []domain.SourceSpan {
	if sourceText == "" {
		return nil
	}
	start := strings.Index(rawText, sourceText)
	if start < 0 {
		return nil
	}
	return []domain.SourceSpan{{Start: start, End: start + len(sourceText)}}
}

// stageEmbed embeds every chunk of the item that has no vector yet. A resumed
// run skips chunks embedded before the crash. Without an embedder the stage is
// a no-op: chunks stay unembedded, so vector search never surfaces them, and
// the rest of the chain still runs.
func (s *PipelineService) stageEmbed(ctx context.Context, sc *stageContext) error {
	item := sc.item
	if s.embedder == nil {
		log.Printf("pipeline: no embedder configured, leaving item %s chunks unembedded", item.ID)
		return nil
	}

	chunks, err := s.chunkRepo.ListByItem(ctx, item.ID)
	if err != nil {
		return err
	}
	for _, chunk := range chunks {
		if len(chunk.Embedding) > 0 {
			continue
		}
		vector, tokens, err := s.embedder.GenerateEmbedding(ctx, chunk.ChunkText)
		if err != nil {
			return fmt.Errorf("failed to embed chunk %s: %w", chunk.ID, err)
		}
		if err := s.chunkRepo.UpdateEmbedding(ctx, chunk.ID, vector, s.embedder.Model(), tokens); err != nil {
			return err
		}
		sc.tokensUsed += tokens
	}

	if sc.job.ItemID != "" {
		// Item-scoped jobs do not own the item's chunking status.
		return nil
	}
	return s.itemRepo.UpdateChunkingStatus(ctx, item.ID, domain.ChunkingStatusEmbedded, "", "")
}

// stageVoiceTraits replaces the item's extracted voice traits.
func (s *PipelineService) stageVoiceTraits(ctx context.Context, sc *stageContext) error {
	if s.extractor == nil {
		return domain.NewDomainError(domain.ErrCodeTerminalStage, "no extractor configured")
	}
	item := sc.item

	extracted, err := s.extractor.ExtractVoiceTraits(ctx, item.RawText)
	if err != nil {
		return err
	}
	if _, err := s.traitRepo.DeleteByItemIDs(ctx, []string{item.ID}); err != nil {
		return err
	}
	if len(extracted) == 0 {
		return nil
	}

	now := time.Now().UTC()
	traits := make([]*domain.VoiceTrait, 0, len(extracted))
	for _, e := range extracted {
		traits = append(traits, &domain.VoiceTrait{
			ID:         s.uuidGen.NewString(),
			OrgID:      item.OrgID,
			ItemID:     item.ID,
			Trait:      e.Trait,
			Example:    e.Example,
			Confidence: e.Confidence,
			CreatedAt:  now,
		})
	}
	return s.traitRepo.CreateBatch(ctx, traits)
}

// stageBusinessFacts replaces the item's extracted business facts and closes
// out the item.
func (s *PipelineService) stageBusinessFacts(ctx context.Context, sc *stageContext) error {
	if s.extractor == nil {
		return domain.NewDomainError(domain.ErrCodeTerminalStage, "no extractor configured")
	}
	item := sc.item

	extracted, err := s.extractor.ExtractBusinessFacts(ctx, item.RawText)
	if err != nil {
		return err
	}
	if _, err := s.factRepo.DeleteByItemIDs(ctx, []string{item.ID}); err != nil {
		return err
	}

	now := time.Now().UTC()
	facts := make([]*domain.BusinessFact, 0, len(extracted))
	for _, e := range extracted {
		facts = append(facts, &domain.BusinessFact{
			ID:         s.uuidGen.NewString(),
			OrgID:      item.OrgID,
			ItemID:     item.ID,
			Fact:       e.Fact,
			Category:   e.Category,
			Confidence: e.Confidence,
			CreatedAt:  now,
		})
	}
	if len(facts) > 0 {
		if err := s.factRepo.CreateBatch(ctx, facts); err != nil {
			return err
		}
	}
	sc.factCount = len(facts)

	return s.itemRepo.UpdateChunkingStatus(ctx, item.ID, domain.ChunkingStatusCompleted, "", "")
}

func (s *PipelineService) loadItem(ctx context.Context, sc *stageContext) error {
	items, err := s.itemRepo.ListBySource(ctx, sc.source.ID)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return domain.NewDomainError(domain.ErrCodeTerminalStage, "no knowledge item for resumed chain")
	}
	sc.item = items[0]
	return nil
}

func (s *PipelineService) completeChain(ctx context.Context, sc *stageContext) error {
	if sc.item != nil {
		s.writeMetrics(ctx, sc)
	}
	if err := s.jobRepo.UpdateStatus(ctx, sc.job.ID, domain.PipelineJobStatusCompleted, ""); err != nil {
		return err
	}
	// A duplicate source was already completed by MarkDuplicate.
	if sc.source.Status == domain.SourceStatusProcessing {
		return s.sourceRepo.UpdateStatus(ctx, sc.source.ID, domain.SourceStatusCompleted, "")
	}
	return nil
}

// failChain records terminal diagnostics. Partial results committed by
// earlier stages stay committed; only an explicit reingest purges them.
func (s *PipelineService) failChain(ctx context.Context, sc *stageContext, cause error) {
	if sc.item != nil {
		errCode := domain.ErrCodeTerminalStage
		var derr *domain.DomainError
		if errors.As(cause, &derr) {
			errCode = derr.Code
		}
		if err := s.itemRepo.UpdateChunkingStatus(ctx, sc.item.ID, domain.ChunkingStatusFailed, errCode, cause.Error()); err != nil {
			log.Printf("pipeline: failed to record item failure for %s: %v", sc.item.ID, err)
		}
		s.writeMetrics(ctx, sc)
	}
	s.failJob(ctx, sc, cause)
	if sc.source != nil {
		if err := s.sourceRepo.UpdateStatus(ctx, sc.source.ID, domain.SourceStatusFailed, cause.Error()); err != nil {
			log.Printf("pipeline: failed to record source failure for %s: %v", sc.source.ID, err)
		}
	}
}

func (s *PipelineService) failJob(ctx context.Context, sc *stageContext, cause error) {
	if err := s.jobRepo.UpdateStatus(ctx, sc.job.ID, domain.PipelineJobStatusFailed, cause.Error()); err != nil {
		log.Printf("pipeline: failed to record job failure for %s: %v", sc.job.ID, err)
	}
}

func (s *PipelineService) writeMetrics(ctx context.Context, sc *stageContext) {
	metrics := &domain.ChunkingMetrics{
		ChunkCount:   sc.chunkCount,
		FactCount:    sc.factCount,
		TokensUsed:   sc.tokensUsed,
		ElapsedMS:    time.Since(sc.startedAt).Milliseconds(),
		RetriesTotal: sc.retries,
	}
	if err := s.itemRepo.UpdateChunkingMetrics(ctx, sc.item.ID, metrics); err != nil {
		log.Printf("pipeline: failed to record metrics for item %s: %v", sc.item.ID, err)
	}
}
