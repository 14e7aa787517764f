package repository

import (
	"context"
	"encoding/json"

	"github.com/inkwell-ai/inkwell/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ChunkEventRepository handles the append-only chunk audit log.
type ChunkEventRepository struct {
	db dbtx
}

func NewChunkEventRepository(pool *pgxpool.Pool) *ChunkEventRepository {
	return &ChunkEventRepository{db: pool}
}

func NewChunkEventRepositoryWithTx(tx pgx.Tx) *ChunkEventRepository {
	return &ChunkEventRepository{db: tx}
}

// Append inserts one audit event. There is no update or delete: the table is
// append-only.
func (r *ChunkEventRepository) Append(ctx context.Context, e *domain.ChunkEvent) error {
	before, err := marshalSnapshot(e.Before)
	if err != nil {
		return err
	}
	after, err := marshalSnapshot(e.After)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO knowledge_chunk_events
			(id, chunk_id, org_id, event_type, before, after, reason, actor_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.ChunkID, e.OrgID, e.Type, before, after,
		nullableString(e.Reason), e.ActorID, e.CreatedAt,
	)
	return err
}

// ListByChunk returns the audit trail for a chunk, oldest first.
func (r *ChunkEventRepository) ListByChunk(ctx context.Context, orgID, chunkID string) ([]*domain.ChunkEvent, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, chunk_id, org_id, event_type, before, after, reason, actor_id, created_at
		 FROM knowledge_chunk_events
		 WHERE chunk_id = $1 AND org_id = $2
		 ORDER BY created_at ASC`,
		chunkID, orgID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.ChunkEvent
	for rows.Next() {
		var e domain.ChunkEvent
		var before, after []byte
		var reason *string
		if err := rows.Scan(&e.ID, &e.ChunkID, &e.OrgID, &e.Type, &before, &after, &reason, &e.ActorID, &e.CreatedAt); err != nil {
			return nil, err
		}
		if reason != nil {
			e.Reason = *reason
		}
		if e.Before, err = unmarshalSnapshot(before); err != nil {
			return nil, err
		}
		if e.After, err = unmarshalSnapshot(after); err != nil {
			return nil, err
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}

// CountByChunk returns the number of audit events recorded for a chunk.
func (r *ChunkEventRepository) CountByChunk(ctx context.Context, orgID, chunkID string) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM knowledge_chunk_events WHERE chunk_id = $1 AND org_id = $2`,
		chunkID, orgID,
	).Scan(&count)
	return count, err
}

func marshalSnapshot(s domain.FieldSnapshot) ([]byte, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

func unmarshalSnapshot(b []byte) (domain.FieldSnapshot, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var s domain.FieldSnapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	return s, nil
}
