package repository

import (
	"context"

	"github.com/inkwell-ai/inkwell/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TxRunner provides transactional repositories using a pgx pool. Purge and
// governance mutations run through it so their multi-table writes commit or
// roll back as one unit.
type TxRunner struct {
	pool *pgxpool.Pool
}

func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

func (r *TxRunner) WithTx(ctx context.Context, fn func(repos service.TxRepositories) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}

	repos := &txRepos{tx: tx}
	if err := fn(repos); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	return tx.Commit(ctx)
}

type txRepos struct {
	tx pgx.Tx
}

func (r *txRepos) Sources() service.SourceRepositoryInterface {
	return NewSourceRepositoryWithTx(r.tx)
}

func (r *txRepos) Items() service.ItemRepositoryInterface {
	return NewKnowledgeItemRepositoryWithTx(r.tx)
}

func (r *txRepos) Chunks() service.ChunkRepositoryInterface {
	return NewChunkRepositoryWithTx(r.tx)
}

func (r *txRepos) Facts() service.FactRepositoryInterface {
	return NewBusinessFactRepositoryWithTx(r.tx)
}

func (r *txRepos) VoiceTraits() service.VoiceTraitRepositoryInterface {
	return NewVoiceTraitRepositoryWithTx(r.tx)
}

func (r *txRepos) Events() service.EventRepositoryInterface {
	return NewChunkEventRepositoryWithTx(r.tx)
}

func (r *txRepos) PipelineJobs() service.PipelineJobRepositoryInterface {
	return NewPipelineJobRepositoryWithTx(r.tx)
}
