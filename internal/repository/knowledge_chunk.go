package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/inkwell-ai/inkwell/internal/domain"
	"github.com/inkwell-ai/inkwell/internal/pagination"
	"github.com/inkwell-ai/inkwell/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// ChunkRepository handles persistence of knowledge chunks, including vector
// search over their embeddings.
type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

func NewChunkRepositoryWithTx(tx pgx.Tx) *ChunkRepository {
	return &ChunkRepository{db: tx}
}

const chunkColumns = `id, item_id, org_id, chunk_text, source_text, source_spans, transformation, kind, role, authority, confidence, time_horizon, domain, actor, is_active, usage_policy, source_type, source_ref, source_title, source_variant, embedding_model, token_count, created_at, updated_at`

func (r *ChunkRepository) Create(ctx context.Context, c *domain.KnowledgeChunk) error {
	spans, err := json.Marshal(c.SourceSpans)
	if err != nil {
		return err
	}

	var embedding any
	if len(c.Embedding) > 0 {
		embedding = pgvector.NewVector(c.Embedding)
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO knowledge_chunks
			(id, item_id, org_id, chunk_text, source_text, source_spans, transformation, kind, role, authority, confidence, time_horizon, domain, actor, is_active, usage_policy, source_type, source_ref, source_title, source_variant, embedding, embedding_model, token_count, created_at, updated_at)
		 VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)`,
		c.ID, nullableString(c.ItemID), c.OrgID,
		c.ChunkText, nullableString(c.SourceText), spans, c.Transformation,
		c.Kind, nullableString(c.Role), nullableString(c.Authority), c.Confidence,
		nullableString(c.TimeHorizon), nullableString(c.Domain), nullableString(c.Actor),
		c.IsActive, c.Policy,
		nullableString(c.SourceType), nullableString(c.SourceRef),
		nullableString(c.SourceTitle), nullableString(c.SourceVariant),
		embedding, nullableString(c.EmbeddingModel), c.TokenCount,
		c.CreatedAt, c.UpdatedAt,
	)
	return err
}

func (r *ChunkRepository) GetByID(ctx context.Context, orgID, id string) (*domain.KnowledgeChunk, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+chunkColumns+` FROM knowledge_chunks WHERE id = $1 AND org_id = $2`,
		id, orgID,
	)
	c, err := scanChunk(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrChunkNotFound
		}
		return nil, err
	}
	return c, nil
}

// GetByIDForUpdate locks the chunk row for the duration of the enclosing
// transaction so concurrent governance mutations serialize.
func (r *ChunkRepository) GetByIDForUpdate(ctx context.Context, orgID, id string) (*domain.KnowledgeChunk, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+chunkColumns+` FROM knowledge_chunks WHERE id = $1 AND org_id = $2 FOR UPDATE`,
		id, orgID,
	)
	c, err := scanChunk(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrChunkNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *ChunkRepository) ListByItem(ctx context.Context, itemID string) ([]*domain.KnowledgeChunk, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+chunkColumns+` FROM knowledge_chunks WHERE item_id = $1 ORDER BY created_at ASC`,
		itemID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChunkRows(rows)
}

// List returns chunks matching the governance listing filters, newest first,
// cursor-paginated.
func (r *ChunkRepository) List(ctx context.Context, filters service.ChunkListFilters, cursor *pagination.Cursor, limit int) (*service.ChunkPageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT ` + chunkColumns + ` FROM knowledge_chunks WHERE org_id = $1`
	args := []any{filters.OrgID}

	if filters.Kind != "" {
		args = append(args, filters.Kind)
		query += ` AND kind = $` + strconv.Itoa(len(args))
	}
	if filters.Policy != "" {
		args = append(args, filters.Policy)
		query += ` AND usage_policy = $` + strconv.Itoa(len(args))
	}
	if filters.Active != nil {
		args = append(args, *filters.Active)
		query += ` AND is_active = $` + strconv.Itoa(len(args))
	}
	if filters.SourceType != "" {
		args = append(args, filters.SourceType)
		query += ` AND source_type = $` + strconv.Itoa(len(args))
	}
	if filters.Query != "" {
		args = append(args, "%"+filters.Query+"%")
		query += ` AND chunk_text ILIKE $` + strconv.Itoa(len(args))
	}
	if cursor != nil {
		args = append(args, cursor.Timestamp, cursor.LastID)
		query += ` AND (created_at, id) < ($` + strconv.Itoa(len(args)-1) + `, $` + strconv.Itoa(len(args)) + `)`
	}

	args = append(args, limit+1)
	query += ` ORDER BY created_at DESC, id DESC LIMIT $` + strconv.Itoa(len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	chunks, err := scanChunkRows(rows)
	if err != nil {
		return nil, err
	}

	hasMore := len(chunks) > limit
	if hasMore {
		chunks = chunks[:limit]
	}

	var nextCursor string
	if hasMore && len(chunks) > 0 {
		last := chunks[len(chunks)-1]
		nextCursor = pagination.EncodeCursor(last.ID, last.CreatedAt)
	}

	return &service.ChunkPageResult{
		Chunks:     chunks,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// SearchByEmbedding runs the cosine-distance k-NN query. Generation queries
// exclude inactive chunks and never_generate policies at the SQL boundary;
// research queries exclude only inactive chunks.
func (r *ChunkRepository) SearchByEmbedding(ctx context.Context, orgID string, embedding []float32, k int, forGeneration bool) ([]*service.ScoredChunk, error) {
	if k <= 0 {
		k = 10
	}

	query := `
		SELECT ` + chunkColumns + `, 1 - (embedding <=> $1) AS score
		FROM knowledge_chunks
		WHERE org_id = $2 AND embedding IS NOT NULL AND is_active = TRUE`
	if forGeneration {
		query += ` AND usage_policy <> 'never_generate'`
	}
	query += `
		ORDER BY score DESC, created_at DESC
		LIMIT $3`

	rows, err := r.db.Query(ctx, query, pgvector.NewVector(embedding), orgID, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*service.ScoredChunk
	for rows.Next() {
		c, score, err := scanScoredChunk(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, &service.ScoredChunk{Chunk: c, Score: score})
	}
	return results, rows.Err()
}

// UpdateEmbedding upserts the embedding vector for a chunk.
func (r *ChunkRepository) UpdateEmbedding(ctx context.Context, id string, embedding []float32, model string, tokenCount int) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE knowledge_chunks
		 SET embedding = $1, embedding_model = $2, token_count = $3, updated_at = $4
		 WHERE id = $5`,
		pgvector.NewVector(embedding), model, tokenCount, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrChunkNotFound
	}
	return nil
}

func (r *ChunkRepository) UpdateActive(ctx context.Context, id string, active bool) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE knowledge_chunks SET is_active = $1, updated_at = $2 WHERE id = $3`,
		active, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrChunkNotFound
	}
	return nil
}

func (r *ChunkRepository) UpdateKind(ctx context.Context, id string, kind domain.ChunkKind) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE knowledge_chunks SET kind = $1, updated_at = $2 WHERE id = $3`,
		kind, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrChunkNotFound
	}
	return nil
}

func (r *ChunkRepository) UpdatePolicy(ctx context.Context, id string, policy domain.UsagePolicy) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE knowledge_chunks SET usage_policy = $1, updated_at = $2 WHERE id = $3`,
		policy, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrChunkNotFound
	}
	return nil
}

func (r *ChunkRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM knowledge_chunks WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrChunkNotFound
	}
	return nil
}

// DeleteByItemIDs removes all chunks derived from the given items, the first
// step of the purge transaction. Returns the deleted count for verification.
func (r *ChunkRepository) DeleteByItemIDs(ctx context.Context, itemIDs []string) (int64, error) {
	if len(itemIDs) == 0 {
		return 0, nil
	}
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM knowledge_chunks WHERE item_id = ANY($1)`,
		itemIDs,
	)
	if err != nil {
		return 0, err
	}
	return cmdTag.RowsAffected(), nil
}

func scanChunkRows(rows pgx.Rows) ([]*domain.KnowledgeChunk, error) {
	var results []*domain.KnowledgeChunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

func scanChunk(row pgx.Row) (*domain.KnowledgeChunk, error) {
	c, _, err := scanChunkFields(row, false)
	return c, err
}

func scanScoredChunk(row pgx.Row) (*domain.KnowledgeChunk, float32, error) {
	return scanChunkFields(row, true)
}

func scanChunkFields(row pgx.Row, withScore bool) (*domain.KnowledgeChunk, float32, error) {
	var c domain.KnowledgeChunk
	var itemID, sourceText, role, authority, timeHorizon, domainField, actor *string
	var sourceType, sourceRef, sourceTitle, sourceVariant, embeddingModel *string
	var spans []byte
	var score float32

	dest := []any{
		&c.ID, &itemID, &c.OrgID,
		&c.ChunkText, &sourceText, &spans, &c.Transformation,
		&c.Kind, &role, &authority, &c.Confidence,
		&timeHorizon, &domainField, &actor,
		&c.IsActive, &c.Policy,
		&sourceType, &sourceRef, &sourceTitle, &sourceVariant,
		&embeddingModel, &c.TokenCount,
		&c.CreatedAt, &c.UpdatedAt,
	}
	if withScore {
		dest = append(dest, &score)
	}

	if err := row.Scan(dest...); err != nil {
		return nil, 0, err
	}

	assign := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	assign(&c.ItemID, itemID)
	assign(&c.SourceText, sourceText)
	assign(&c.Role, role)
	assign(&c.Authority, authority)
	assign(&c.TimeHorizon, timeHorizon)
	assign(&c.Domain, domainField)
	assign(&c.Actor, actor)
	assign(&c.SourceType, sourceType)
	assign(&c.SourceRef, sourceRef)
	assign(&c.SourceTitle, sourceTitle)
	assign(&c.SourceVariant, sourceVariant)
	assign(&c.EmbeddingModel, embeddingModel)

	if len(spans) > 0 {
		if err := json.Unmarshal(spans, &c.SourceSpans); err != nil {
			return nil, 0, err
		}
	}

	return &c, score, nil
}
