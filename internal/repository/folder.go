package repository

import (
	"context"
	"errors"
	"time"

	"github.com/inkwell-ai/inkwell/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// FolderRepository handles folders, their source associations, and the
// staleness markers consumed by the folder embedding worker.
type FolderRepository struct {
	db dbtx
}

func NewFolderRepository(pool *pgxpool.Pool) *FolderRepository {
	return &FolderRepository{db: pool}
}

func NewFolderRepositoryWithTx(tx pgx.Tx) *FolderRepository {
	return &FolderRepository{db: tx}
}

func (r *FolderRepository) Create(ctx context.Context, f *domain.Folder) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO folders (id, org_id, name, stale_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		f.ID, f.OrgID, f.Name, f.StaleAt, f.CreatedAt, f.UpdatedAt,
	)
	return err
}

func (r *FolderRepository) GetByID(ctx context.Context, orgID, id string) (*domain.Folder, error) {
	var f domain.Folder
	err := r.db.QueryRow(ctx,
		`SELECT id, org_id, name, stale_at, created_at, updated_at
		 FROM folders WHERE id = $1 AND org_id = $2`,
		id, orgID,
	).Scan(&f.ID, &f.OrgID, &f.Name, &f.StaleAt, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrFolderNotFound
		}
		return nil, err
	}
	return &f, nil
}

// AttachSource associates a source with a folder. Idempotent: attaching an
// already-attached pair is a no-op.
func (r *FolderRepository) AttachSource(ctx context.Context, folderID, sourceID string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO folder_sources (folder_id, source_id, created_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (folder_id, source_id) DO NOTHING`,
		folderID, sourceID, time.Now().UTC(),
	)
	return err
}

func (r *FolderRepository) FoldersForSource(ctx context.Context, sourceID string) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT folder_id FROM folder_sources WHERE source_id = $1`,
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

// MarkStale stamps the folder's aggregate embedding as out of date.
func (r *FolderRepository) MarkStale(ctx context.Context, folderID string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE folders SET stale_at = $1, updated_at = $1 WHERE id = $2`,
		time.Now().UTC(), folderID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrFolderNotFound
	}
	return nil
}

// ListStale returns folders whose aggregate embedding needs recomputing.
func (r *FolderRepository) ListStale(ctx context.Context, limit int) ([]*domain.Folder, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, org_id, name, stale_at, created_at, updated_at
		 FROM folders WHERE stale_at IS NOT NULL
		 ORDER BY stale_at ASC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*domain.Folder
	for rows.Next() {
		var f domain.Folder
		if err := rows.Scan(&f.ID, &f.OrgID, &f.Name, &f.StaleAt, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		results = append(results, &f)
	}
	return results, rows.Err()
}

// SetEmbedding stores the recomputed aggregate vector and clears staleness
// only if no new staleness marker arrived since the recompute started.
func (r *FolderRepository) SetEmbedding(ctx context.Context, folderID string, embedding []float32, staleAsOf time.Time) error {
	_, err := r.db.Exec(ctx,
		`UPDATE folders
		 SET embedding = $1,
		     stale_at = CASE WHEN stale_at <= $2 THEN NULL ELSE stale_at END,
		     updated_at = $3
		 WHERE id = $4`,
		pgvector.NewVector(embedding), staleAsOf, time.Now().UTC(), folderID,
	)
	return err
}

// MemberChunkEmbeddings returns the embeddings of all active chunks whose
// items derive from sources attached to the folder.
func (r *FolderRepository) MemberChunkEmbeddings(ctx context.Context, folderID string) ([][]float32, error) {
	rows, err := r.db.Query(ctx,
		`SELECT c.embedding
		 FROM knowledge_chunks c
		 JOIN knowledge_items i ON i.id = c.item_id
		 JOIN folder_sources fs ON fs.source_id = i.source_id
		 WHERE fs.folder_id = $1 AND c.embedding IS NOT NULL AND c.is_active = TRUE`,
		folderID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var embeddings [][]float32
	for rows.Next() {
		var vec pgvector.Vector
		if err := rows.Scan(&vec); err != nil {
			return nil, err
		}
		embeddings = append(embeddings, vec.Slice())
	}
	return embeddings, rows.Err()
}
