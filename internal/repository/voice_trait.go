package repository

import (
	"context"

	"github.com/inkwell-ai/inkwell/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// VoiceTraitRepository handles persistence of extracted voice traits.
type VoiceTraitRepository struct {
	db dbtx
}

func NewVoiceTraitRepository(pool *pgxpool.Pool) *VoiceTraitRepository {
	return &VoiceTraitRepository{db: pool}
}

func NewVoiceTraitRepositoryWithTx(tx pgx.Tx) *VoiceTraitRepository {
	return &VoiceTraitRepository{db: tx}
}

func (r *VoiceTraitRepository) CreateBatch(ctx context.Context, traits []*domain.VoiceTrait) error {
	for _, t := range traits {
		_, err := r.db.Exec(ctx,
			`INSERT INTO voice_traits (id, org_id, item_id, trait, example, confidence, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			t.ID, t.OrgID, nullableString(t.ItemID), t.Trait, nullableString(t.Example), t.Confidence, t.CreatedAt,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *VoiceTraitRepository) ListByOrg(ctx context.Context, orgID string, limit int) ([]*domain.VoiceTrait, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, org_id, item_id, trait, example, confidence, created_at
		 FROM voice_traits WHERE org_id = $1
		 ORDER BY created_at DESC LIMIT $2`,
		orgID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*domain.VoiceTrait
	for rows.Next() {
		var t domain.VoiceTrait
		var itemID, example *string
		if err := rows.Scan(&t.ID, &t.OrgID, &itemID, &t.Trait, &example, &t.Confidence, &t.CreatedAt); err != nil {
			return nil, err
		}
		if itemID != nil {
			t.ItemID = *itemID
		}
		if example != nil {
			t.Example = *example
		}
		results = append(results, &t)
	}
	return results, rows.Err()
}

// DeleteByItemIDs removes traits extracted from the given items during a purge.
func (r *VoiceTraitRepository) DeleteByItemIDs(ctx context.Context, itemIDs []string) (int64, error) {
	if len(itemIDs) == 0 {
		return 0, nil
	}
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM voice_traits WHERE item_id = ANY($1)`,
		itemIDs,
	)
	if err != nil {
		return 0, err
	}
	return cmdTag.RowsAffected(), nil
}
