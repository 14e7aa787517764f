package repository

import (
	"context"

	"github.com/inkwell-ai/inkwell/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BusinessFactRepository handles persistence of extracted business facts.
type BusinessFactRepository struct {
	db dbtx
}

func NewBusinessFactRepository(pool *pgxpool.Pool) *BusinessFactRepository {
	return &BusinessFactRepository{db: pool}
}

func NewBusinessFactRepositoryWithTx(tx pgx.Tx) *BusinessFactRepository {
	return &BusinessFactRepository{db: tx}
}

func (r *BusinessFactRepository) CreateBatch(ctx context.Context, facts []*domain.BusinessFact) error {
	for _, f := range facts {
		_, err := r.db.Exec(ctx,
			`INSERT INTO business_facts (id, org_id, item_id, fact, category, confidence, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			f.ID, f.OrgID, nullableString(f.ItemID), f.Fact, nullableString(f.Category), f.Confidence, f.CreatedAt,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *BusinessFactRepository) ListByOrg(ctx context.Context, orgID string, limit int) ([]*domain.BusinessFact, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, org_id, item_id, fact, category, confidence, created_at
		 FROM business_facts WHERE org_id = $1
		 ORDER BY created_at DESC LIMIT $2`,
		orgID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFactRows(rows)
}

func (r *BusinessFactRepository) ListByItem(ctx context.Context, itemID string) ([]*domain.BusinessFact, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, org_id, item_id, fact, category, confidence, created_at
		 FROM business_facts WHERE item_id = $1 ORDER BY created_at ASC`,
		itemID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFactRows(rows)
}

// ClearItemRef nulls the back-reference for facts pointing at the given
// items. Used when an item disappears outside a full purge: the fact
// survives, its provenance is cleared rather than cascaded.
func (r *BusinessFactRepository) ClearItemRef(ctx context.Context, itemIDs []string) (int64, error) {
	if len(itemIDs) == 0 {
		return 0, nil
	}
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE business_facts SET item_id = NULL WHERE item_id = ANY($1)`,
		itemIDs,
	)
	if err != nil {
		return 0, err
	}
	return cmdTag.RowsAffected(), nil
}

// DeleteByItemIDs removes facts referencing the given items, the purge
// transaction's second step. Returns the deleted count for verification.
func (r *BusinessFactRepository) DeleteByItemIDs(ctx context.Context, itemIDs []string) (int64, error) {
	if len(itemIDs) == 0 {
		return 0, nil
	}
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM business_facts WHERE item_id = ANY($1)`,
		itemIDs,
	)
	if err != nil {
		return 0, err
	}
	return cmdTag.RowsAffected(), nil
}

func scanFactRows(rows pgx.Rows) ([]*domain.BusinessFact, error) {
	var results []*domain.BusinessFact
	for rows.Next() {
		var f domain.BusinessFact
		var itemID, category *string
		if err := rows.Scan(&f.ID, &f.OrgID, &itemID, &f.Fact, &category, &f.Confidence, &f.CreatedAt); err != nil {
			return nil, err
		}
		if itemID != nil {
			f.ItemID = *itemID
		}
		if category != nil {
			f.Category = *category
		}
		results = append(results, &f)
	}
	return results, rows.Err()
}
