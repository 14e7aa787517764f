package repository

import (
	"context"
	"errors"
	"time"

	"github.com/inkwell-ai/inkwell/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PipelineJobRepository handles persistence of chunk pipeline jobs.
type PipelineJobRepository struct {
	db dbtx
}

func NewPipelineJobRepository(pool *pgxpool.Pool) *PipelineJobRepository {
	return &PipelineJobRepository{db: pool}
}

func NewPipelineJobRepositoryWithTx(tx pgx.Tx) *PipelineJobRepository {
	return &PipelineJobRepository{db: tx}
}

func (r *PipelineJobRepository) Create(ctx context.Context, job *domain.PipelineJob) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO pipeline_jobs (id, source_id, item_id, org_id, stage, status, retries, error, created_at, processed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		job.ID, nullableString(job.SourceID), nullableString(job.ItemID), job.OrgID,
		job.Stage, job.Status, job.Retries,
		nullableString(job.Error), job.CreatedAt, job.ProcessedAt,
	)
	return err
}

func (r *PipelineJobRepository) GetByID(ctx context.Context, id string) (*domain.PipelineJob, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, source_id, item_id, org_id, stage, status, retries, error, created_at, processed_at
		 FROM pipeline_jobs WHERE id = $1`,
		id,
	)
	return scanPipelineJob(row)
}

// ClaimPending atomically claims up to limit pending jobs, marking them
// processing so concurrent workers never pick the same job.
func (r *PipelineJobRepository) ClaimPending(ctx context.Context, limit int) ([]*domain.PipelineJob, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.Query(ctx,
		`UPDATE pipeline_jobs
		 SET status = $1
		 WHERE id IN (
			SELECT id FROM pipeline_jobs
			WHERE status = $2
			ORDER BY created_at ASC
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		 )
		 RETURNING id, source_id, item_id, org_id, stage, status, retries, error, created_at, processed_at`,
		domain.PipelineJobStatusProcessing, domain.PipelineJobStatusPending, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*domain.PipelineJob
	for rows.Next() {
		job, err := scanPipelineJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// AdvanceStage records stage completion and moves the job to the next stage,
// back to pending, so a crashed worker resumes from the correct stage.
func (r *PipelineJobRepository) AdvanceStage(ctx context.Context, jobID string, next domain.PipelineStage) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE pipeline_jobs SET stage = $1, status = $2, retries = 0, error = NULL WHERE id = $3`,
		next, domain.PipelineJobStatusPending, jobID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return errors.New("pipeline job not found")
	}
	return nil
}

func (r *PipelineJobRepository) UpdateStatus(ctx context.Context, jobID string, status domain.PipelineJobStatus, errMsg string) error {
	var processedAt *time.Time
	if status == domain.PipelineJobStatusCompleted || status == domain.PipelineJobStatusFailed {
		now := time.Now().UTC()
		processedAt = &now
	}
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE pipeline_jobs SET status = $1, error = $2, processed_at = COALESCE($3, processed_at) WHERE id = $4`,
		status, nullableString(errMsg), processedAt, jobID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return errors.New("pipeline job not found")
	}
	return nil
}

func (r *PipelineJobRepository) IncrementRetries(ctx context.Context, jobID string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE pipeline_jobs SET retries = retries + 1 WHERE id = $1`,
		jobID,
	)
	return err
}

// DeleteBySource removes pending jobs for a source ahead of a reingest so
// the old chain cannot race the new one.
func (r *PipelineJobRepository) DeleteBySource(ctx context.Context, sourceID string) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM pipeline_jobs WHERE source_id = $1 AND status IN ($2, $3)`,
		sourceID, domain.PipelineJobStatusPending, domain.PipelineJobStatusProcessing,
	)
	return err
}

func scanPipelineJob(row pgx.Row) (*domain.PipelineJob, error) {
	var job domain.PipelineJob
	var sourceID, itemID, errMsg *string
	err := row.Scan(&job.ID, &sourceID, &itemID, &job.OrgID, &job.Stage, &job.Status, &job.Retries, &errMsg, &job.CreatedAt, &job.ProcessedAt)
	if err != nil {
		return nil, err
	}
	if sourceID != nil {
		job.SourceID = *sourceID
	}
	if itemID != nil {
		job.ItemID = *itemID
	}
	if errMsg != nil {
		job.Error = *errMsg
	}
	return &job, nil
}
