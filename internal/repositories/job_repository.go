package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"adstudio/internal/httpkit"
	"adstudio/internal/models"
)

var ErrJobNotFound = errors.New("job not found")
var ErrJobExists = errors.New("job id already exists")
var ErrSchemaMissing = errors.New("overlay_jobs table missing, apply migrations/001_overlay_jobs.sql")

// DB is the subset of *pgxpool.Pool the repository uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type JobRepository struct {
	db DB
}

func NewJobRepository(db DB) *JobRepository {
	return &JobRepository{db: db}
}

const jobColumns = `id, status, params_json, COALESCE(input_key,''), COALESCE(output_key,''),
	COALESCE(output_size,0), COALESCE(error_code,''), COALESCE(error_text,''),
	created_at, started_at, finished_at`

func (r *JobRepository) Create(ctx context.Context, j *models.OverlayJob) error {
	if j.Status == "" {
		j.Status = models.JobQueued
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO overlay_jobs (id, status, params_json, input_key)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at
	`, j.ID, j.Status, j.Params, nullIfEmpty(j.InputKey)).Scan(&j.CreatedAt)

	if err != nil {
		if httpkit.IsUniqueViolation(err) {
			return ErrJobExists
		}
		return schemaErr(err)
	}
	return nil
}

func (r *JobRepository) Get(ctx context.Context, id string) (*models.OverlayJob, error) {
	j, err := scanJob(r.db.QueryRow(ctx, `SELECT `+jobColumns+` FROM overlay_jobs WHERE id=$1`, id))
	if err != nil {
		if httpkit.IsNoRows(err) {
			return nil, ErrJobNotFound
		}
		return nil, schemaErr(err)
	}
	return j, nil
}

// List returns the newest jobs first, optionally filtered by status.
func (r *JobRepository) List(ctx context.Context, status models.JobStatus, limit int) ([]models.OverlayJob, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if status != "" {
		rows, err = r.db.Query(ctx, `SELECT `+jobColumns+` FROM overlay_jobs
			WHERE status=$1 ORDER BY created_at DESC LIMIT $2`, status, limit)
	} else {
		rows, err = r.db.Query(ctx, `SELECT `+jobColumns+` FROM overlay_jobs
			ORDER BY created_at DESC LIMIT $1`, limit)
	}
	if err != nil {
		return nil, schemaErr(err)
	}
	defer rows.Close()

	out := make([]models.OverlayJob, 0, limit)
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *j)
	}
	return out, rows.Err()
}

// MarkRunning moves a QUEUED job to RUNNING. It returns ErrJobNotFound when
// the job is missing or already picked up by another worker.
func (r *JobRepository) MarkRunning(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE overlay_jobs
		SET status='RUNNING', started_at=NOW(), finished_at=NULL, error_code=NULL, error_text=NULL
		WHERE id=$1 AND status='QUEUED'
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrJobNotFound
	}
	return nil
}

func (r *JobRepository) MarkDone(ctx context.Context, id, outputKey string, size int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE overlay_jobs
		SET status='DONE', output_key=$2, output_size=$3, finished_at=NOW()
		WHERE id=$1
	`, id, outputKey, size)
	return err
}

func (r *JobRepository) MarkFailed(ctx context.Context, id, code, msg string) error {
	if len(msg) > 2000 {
		msg = msg[:2000]
	}
	_, err := r.db.Exec(ctx, `
		UPDATE overlay_jobs
		SET status='FAILED', error_code=$2, error_text=$3, finished_at=NOW()
		WHERE id=$1
	`, id, code, msg)
	return err
}

// Ping is used by the deep health check.
func (r *JobRepository) Ping(ctx context.Context) error {
	var one int
	return r.db.QueryRow(ctx, `SELECT 1`).Scan(&one)
}

func scanJob(row pgx.Row) (*models.OverlayJob, error) {
	var (
		j          models.OverlayJob
		status     string
		params     []byte
		startedAt  *time.Time
		finishedAt *time.Time
	)
	err := row.Scan(&j.ID, &status, &params, &j.InputKey, &j.OutputKey,
		&j.OutputSize, &j.ErrorCode, &j.ErrorText, &j.CreatedAt, &startedAt, &finishedAt)
	if err != nil {
		return nil, err
	}
	j.Status = models.JobStatus(status)
	j.Params = params
	j.StartedAt = startedAt
	j.FinishedAt = finishedAt
	return &j, nil
}

func schemaErr(err error) error {
	if httpkit.IsUndefinedTable(err) {
		return fmt.Errorf("%w: %v", ErrSchemaMissing, err)
	}
	return err
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
