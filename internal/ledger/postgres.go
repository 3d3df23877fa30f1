package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/lib/pq"
)

// uniqueViolation is the Postgres SQLSTATE for a duplicate key.
const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS lecture_jobs (
	id              TEXT PRIMARY KEY,
	original_name   TEXT NOT NULL,
	audio_path      TEXT NOT NULL,
	transcript_text TEXT NOT NULL DEFAULT '',
	summary_text    TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL
)`

const jobColumns = `id, original_name, audio_path, transcript_text, summary_text, status, created_at`

type postgresLedger struct {
	db  *sql.DB
	now func() time.Time
}

// NewPostgres opens dsn with lib/pq and makes sure the jobs table exists.
func NewPostgres(ctx context.Context, dsn string) (Ledger, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate lecture_jobs: %w", err)
	}

	return &postgresLedger{db: db, now: time.Now}, nil
}

func (p *postgresLedger) Create(ctx context.Context, id, title, audioLocation string) (Job, error) {
	job := newJob(id, title, audioLocation, p.now())

	query := `
		INSERT INTO lecture_jobs (` + jobColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := p.db.ExecContext(ctx, query,
		job.ID,
		job.Title,
		job.AudioLocation,
		job.TranscriptText,
		job.SummaryText,
		job.Status,
		job.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return Job{}, duplicate(id)
		}
		return Job{}, fmt.Errorf("insert job: %w", err)
	}

	return job, nil
}

// RecordSuccess and RecordFailure use one guarded UPDATE so the status
// check and the write cannot interleave with another writer.
func (p *postgresLedger) RecordSuccess(ctx context.Context, id, transcript, summary string) (Job, error) {
	query := `
		UPDATE lecture_jobs
		SET transcript_text = $2, summary_text = $3, status = $4
		WHERE id = $1 AND status = $5
		RETURNING ` + jobColumns
	row := p.db.QueryRowContext(ctx, query, id, transcript, summary, StatusCompleted, StatusProcessing)
	return p.finish(ctx, id, row)
}

func (p *postgresLedger) RecordFailure(ctx context.Context, id, description string) (Job, error) {
	query := `
		UPDATE lecture_jobs
		SET summary_text = $2, status = $3
		WHERE id = $1 AND status = $4
		RETURNING ` + jobColumns
	row := p.db.QueryRowContext(ctx, query, id, description, StatusFailed, StatusProcessing)
	return p.finish(ctx, id, row)
}

// finish scans an UPDATE ... RETURNING row. No row means the job is either
// unknown or already terminal.
func (p *postgresLedger) finish(ctx context.Context, id string, row *sql.Row) (Job, error) {
	job, err := scanJob(row)
	if err == nil {
		return job, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Job{}, fmt.Errorf("update job: %w", err)
	}

	existing, err := p.Get(ctx, id)
	if err != nil {
		return Job{}, err
	}
	return Job{}, fmt.Errorf("%w: %s is %s", ErrJobFinalized, id, existing.Status)
}

func (p *postgresLedger) Get(ctx context.Context, id string) (Job, error) {
	query := `SELECT ` + jobColumns + ` FROM lecture_jobs WHERE id = $1`

	job, err := scanJob(p.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, notFound(id)
	}
	if err != nil {
		return Job{}, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

func (p *postgresLedger) FailStale(ctx context.Context, description string) ([]string, error) {
	query := `
		UPDATE lecture_jobs
		SET summary_text = $1, status = $2
		WHERE status = $3
		RETURNING id`
	rows, err := p.db.QueryContext(ctx, query, description, StatusFailed, StatusProcessing)
	if err != nil {
		return nil, fmt.Errorf("fail stale jobs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan stale job: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fail stale jobs: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

func (p *postgresLedger) Close() error {
	return p.db.Close()
}

func scanJob(row *sql.Row) (Job, error) {
	var job Job
	err := row.Scan(
		&job.ID,
		&job.Title,
		&job.AudioLocation,
		&job.TranscriptText,
		&job.SummaryText,
		&job.Status,
		&job.CreatedAt,
	)
	if err != nil {
		return Job{}, err
	}
	job.CreatedAt = job.CreatedAt.UTC()
	return job, nil
}
