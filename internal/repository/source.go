package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/inkwell-ai/inkwell/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SourceRepository handles persistence of ingestion sources.
type SourceRepository struct {
	db dbtx
}

func NewSourceRepository(pool *pgxpool.Pool) *SourceRepository {
	return &SourceRepository{db: pool}
}

func NewSourceRepositoryWithTx(tx pgx.Tx) *SourceRepository {
	return &SourceRepository{db: tx}
}

const sourceColumns = `id, org_id, user_id, source_type, source_ref, raw_url, raw_text, storage_key, mime_type, title, metadata, dedup_hash, dedup_reason, status, error, created_at, updated_at, deleted_at`

func (r *SourceRepository) Create(ctx context.Context, s *domain.IngestionSource) error {
	metadata, err := json.Marshal(s.Metadata)
	if err != nil {
		return err
	}

	var rawURL, storageKey, mimeType *string
	switch s.Type {
	case domain.SourceTypeBookmark:
		rawURL = &s.Payload.Bookmark.URL
	case domain.SourceTypeFile:
		storageKey = &s.Payload.File.StorageKey
		mimeType = nullableString(s.Payload.File.MimeType)
	case domain.SourceTypeVoiceRecording:
		storageKey = &s.Payload.Voice.StorageKey
		mimeType = nullableString(s.Payload.Voice.MimeType)
	}

	rawText := s.RawText
	if s.Type == domain.SourceTypeText && s.Payload.Text != nil {
		rawText = s.Payload.Text.Text
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO ingestion_sources
			(id, org_id, user_id, source_type, source_ref, raw_url, raw_text, storage_key, mime_type, title, metadata, dedup_hash, dedup_reason, status, error, created_at, updated_at)
		 VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		s.ID, s.OrgID, s.UserID, s.Type, nullableString(s.SourceRef),
		rawURL, nullableString(rawText), storageKey, mimeType,
		nullableString(s.Title), metadata, s.DedupHash, nullableString(s.DedupReason),
		s.Status, nullableString(s.Error), s.CreatedAt, s.UpdatedAt,
	)
	if err != nil && isUniqueViolation(err) {
		return domain.ErrDuplicateSourceRef
	}
	return err
}

func (r *SourceRepository) GetByID(ctx context.Context, orgID, id string) (*domain.IngestionSource, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+sourceColumns+` FROM ingestion_sources
		 WHERE id = $1 AND org_id = $2 AND deleted_at IS NULL`,
		id, orgID,
	)
	s, err := scanSource(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSourceNotFound
		}
		return nil, err
	}
	return s, nil
}

// FindByDedupHash returns the newest live source with the given dedup hash
// in the organization, or ErrSourceNotFound.
func (r *SourceRepository) FindByDedupHash(ctx context.Context, orgID, hash string) (*domain.IngestionSource, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+sourceColumns+` FROM ingestion_sources
		 WHERE org_id = $1 AND dedup_hash = $2 AND deleted_at IS NULL
		 ORDER BY created_at DESC LIMIT 1`,
		orgID, hash,
	)
	s, err := scanSource(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSourceNotFound
		}
		return nil, err
	}
	return s, nil
}

// FindBySourceRef enforces the (source_type, source_ref) uniqueness check.
func (r *SourceRepository) FindBySourceRef(ctx context.Context, orgID string, sourceType domain.SourceType, sourceRef string) (*domain.IngestionSource, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+sourceColumns+` FROM ingestion_sources
		 WHERE org_id = $1 AND source_type = $2 AND source_ref = $3 AND deleted_at IS NULL
		 LIMIT 1`,
		orgID, sourceType, sourceRef,
	)
	s, err := scanSource(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSourceNotFound
		}
		return nil, err
	}
	return s, nil
}

func (r *SourceRepository) ListByOrg(ctx context.Context, orgID string, limit int) ([]*domain.IngestionSource, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+sourceColumns+` FROM ingestion_sources
		 WHERE org_id = $1 AND deleted_at IS NULL
		 ORDER BY created_at DESC LIMIT $2`,
		orgID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*domain.IngestionSource
	for rows.Next() {
		s, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, s)
	}
	return results, rows.Err()
}

// UpdateStatus applies a state-machine transition, recording an error message
// for failures and clearing it otherwise.
func (r *SourceRepository) UpdateStatus(ctx context.Context, id string, status domain.SourceStatus, errMsg string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE ingestion_sources SET status = $1, error = $2, updated_at = $3
		 WHERE id = $4 AND deleted_at IS NULL`,
		status, nullableString(errMsg), time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrSourceNotFound
	}
	return nil
}

// MarkDuplicate completes the source with a dedup reason and no derived
// items, after normalization found identical already-ingested content.
func (r *SourceRepository) MarkDuplicate(ctx context.Context, id, reason string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE ingestion_sources SET status = $1, dedup_reason = $2, updated_at = $3
		 WHERE id = $4 AND deleted_at IS NULL`,
		domain.SourceStatusCompleted, nullableString(reason), time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrSourceNotFound
	}
	return nil
}

// SetTranscription rewrites the raw text and dedup hash once async
// transcription finishes, moving the source from transcribing to pending.
func (r *SourceRepository) SetTranscription(ctx context.Context, id, rawText, dedupHash string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE ingestion_sources
		 SET raw_text = $1, dedup_hash = $2, status = $3, error = NULL, updated_at = $4
		 WHERE id = $5 AND status = $6 AND deleted_at IS NULL`,
		rawText, dedupHash, domain.SourceStatusPending, time.Now().UTC(), id, domain.SourceStatusTranscribing,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrSourceNotFound
	}
	return nil
}

// ResetForReingest clears error and dedup bookkeeping and returns the source
// to pending so the pipeline can be re-dispatched.
func (r *SourceRepository) ResetForReingest(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE ingestion_sources
		 SET status = $1, error = NULL, dedup_reason = NULL, updated_at = $2
		 WHERE id = $3 AND deleted_at IS NULL`,
		domain.SourceStatusPending, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrSourceNotFound
	}
	return nil
}

func (r *SourceRepository) SoftDelete(ctx context.Context, orgID, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE ingestion_sources SET deleted_at = $1, updated_at = $1
		 WHERE id = $2 AND org_id = $3 AND deleted_at IS NULL`,
		time.Now().UTC(), id, orgID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrSourceNotFound
	}
	return nil
}

func scanSource(row pgx.Row) (*domain.IngestionSource, error) {
	var s domain.IngestionSource
	var sourceRef, rawURL, rawText, storageKey, mimeType, title, dedupReason, errMsg *string
	var metadata []byte

	err := row.Scan(
		&s.ID, &s.OrgID, &s.UserID, &s.Type, &sourceRef,
		&rawURL, &rawText, &storageKey, &mimeType, &title, &metadata,
		&s.DedupHash, &dedupReason, &s.Status, &errMsg,
		&s.CreatedAt, &s.UpdatedAt, &s.DeletedAt,
	)
	if err != nil {
		return nil, err
	}

	if sourceRef != nil {
		s.SourceRef = *sourceRef
	}
	if rawText != nil {
		s.RawText = *rawText
	}
	if title != nil {
		s.Title = *title
	}
	if dedupReason != nil {
		s.DedupReason = *dedupReason
	}
	if errMsg != nil {
		s.Error = *errMsg
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &s.Metadata); err != nil {
			return nil, err
		}
	}

	switch s.Type {
	case domain.SourceTypeBookmark:
		if rawURL != nil {
			s.Payload.Bookmark = &domain.BookmarkPayload{URL: *rawURL}
		}
	case domain.SourceTypeText:
		s.Payload.Text = &domain.TextPayload{Text: s.RawText}
	case domain.SourceTypeFile:
		if storageKey != nil {
			s.Payload.File = &domain.FilePayload{StorageKey: *storageKey}
			if mimeType != nil {
				s.Payload.File.MimeType = *mimeType
			}
		}
	case domain.SourceTypeVoiceRecording:
		if storageKey != nil {
			s.Payload.Voice = &domain.VoicePayload{StorageKey: *storageKey}
			if mimeType != nil {
				s.Payload.Voice.MimeType = *mimeType
			}
		}
	}

	return &s, nil
}
