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

// KnowledgeItemRepository handles persistence of knowledge items.
type KnowledgeItemRepository struct {
	db dbtx
}

func NewKnowledgeItemRepository(pool *pgxpool.Pool) *KnowledgeItemRepository {
	return &KnowledgeItemRepository{db: pool}
}

func NewKnowledgeItemRepositoryWithTx(tx pgx.Tx) *KnowledgeItemRepository {
	return &KnowledgeItemRepository{db: tx}
}

const itemColumns = `id, org_id, user_id, source_id, raw_text, raw_text_sha256, title, type, source, confidence, chunking_status, chunking_skip_reason, chunking_error_code, chunking_error_message, chunking_metrics, created_at, updated_at`

// Create inserts a knowledge item. A unique violation on
// (org_id, raw_text_sha256) surfaces as ErrDuplicateContent.
func (r *KnowledgeItemRepository) Create(ctx context.Context, k *domain.KnowledgeItem) error {
	var metrics []byte
	if k.ChunkingMetrics != nil {
		var err error
		metrics, err = json.Marshal(k.ChunkingMetrics)
		if err != nil {
			return err
		}
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO knowledge_items
			(id, org_id, user_id, source_id, raw_text, raw_text_sha256, title, type, source, confidence, chunking_status, chunking_skip_reason, chunking_error_code, chunking_error_message, chunking_metrics, created_at, updated_at)
		 VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		k.ID, k.OrgID, k.UserID, nullableString(k.SourceID),
		k.RawText, k.RawTextSHA256, nullableString(k.Title), k.Type, k.Source, k.Confidence,
		k.ChunkingStatus, nullableString(k.ChunkingSkipReason),
		nullableString(k.ChunkingErrorCode), nullableString(k.ChunkingErrorMessage), metrics,
		k.CreatedAt, k.UpdatedAt,
	)
	if err != nil && isUniqueViolation(err) {
		return domain.ErrDuplicateContent
	}
	return err
}

func (r *KnowledgeItemRepository) GetByID(ctx context.Context, orgID, id string) (*domain.KnowledgeItem, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+itemColumns+` FROM knowledge_items WHERE id = $1 AND org_id = $2`,
		id, orgID,
	)
	k, err := scanItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrItemNotFound
		}
		return nil, err
	}
	return k, nil
}

// FindByContentHash looks up the item owning a raw-text hash in an
// organization, the dedup invariant's read side.
func (r *KnowledgeItemRepository) FindByContentHash(ctx context.Context, orgID, sha256 string) (*domain.KnowledgeItem, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+itemColumns+` FROM knowledge_items
		 WHERE org_id = $1 AND raw_text_sha256 = $2 LIMIT 1`,
		orgID, sha256,
	)
	k, err := scanItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrItemNotFound
		}
		return nil, err
	}
	return k, nil
}

func (r *KnowledgeItemRepository) ListBySource(ctx context.Context, sourceID string) ([]*domain.KnowledgeItem, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+itemColumns+` FROM knowledge_items WHERE source_id = $1 ORDER BY created_at ASC`,
		sourceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*domain.KnowledgeItem
	for rows.Next() {
		k, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, k)
	}
	return results, rows.Err()
}

// ItemIDsBySource returns the ids of all items derived from a source,
// enumerated for the transactional purge.
func (r *KnowledgeItemRepository) ItemIDsBySource(ctx context.Context, sourceID string) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id FROM knowledge_items WHERE source_id = $1`,
		sourceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpdateChunkingStatus writes the per-stage pipeline diagnostics onto the item.
func (r *KnowledgeItemRepository) UpdateChunkingStatus(ctx context.Context, id string, status domain.ChunkingStatus, errCode, errMsg string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE knowledge_items
		 SET chunking_status = $1, chunking_error_code = $2, chunking_error_message = $3, updated_at = $4
		 WHERE id = $5`,
		status, nullableString(errCode), nullableString(errMsg), time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

func (r *KnowledgeItemRepository) UpdateChunkingMetrics(ctx context.Context, id string, metrics *domain.ChunkingMetrics) error {
	encoded, err := json.Marshal(metrics)
	if err != nil {
		return err
	}
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE knowledge_items SET chunking_metrics = $1, updated_at = $2 WHERE id = $3`,
		encoded, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

// DeleteByIDs removes items by id and returns the count, used as the last
// step of the purge transaction.
func (r *KnowledgeItemRepository) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM knowledge_items WHERE id = ANY($1)`,
		ids,
	)
	if err != nil {
		return 0, err
	}
	return cmdTag.RowsAffected(), nil
}

func scanItem(row pgx.Row) (*domain.KnowledgeItem, error) {
	var k domain.KnowledgeItem
	var sourceID, title, skipReason, errCode, errMsg *string
	var metrics []byte

	err := row.Scan(
		&k.ID, &k.OrgID, &k.UserID, &sourceID,
		&k.RawText, &k.RawTextSHA256, &title, &k.Type, &k.Source, &k.Confidence,
		&k.ChunkingStatus, &skipReason, &errCode, &errMsg, &metrics,
		&k.CreatedAt, &k.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if sourceID != nil {
		k.SourceID = *sourceID
	}
	if title != nil {
		k.Title = *title
	}
	if skipReason != nil {
		k.ChunkingSkipReason = *skipReason
	}
	if errCode != nil {
		k.ChunkingErrorCode = *errCode
	}
	if errMsg != nil {
		k.ChunkingErrorMessage = *errMsg
	}
	if len(metrics) > 0 {
		k.ChunkingMetrics = &domain.ChunkingMetrics{}
		if err := json.Unmarshal(metrics, k.ChunkingMetrics); err != nil {
			return nil, err
		}
	}

	return &k, nil
}
