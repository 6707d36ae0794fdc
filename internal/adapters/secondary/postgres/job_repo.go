package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"vision-platform-client/internal/core/domain"
	output "vision-platform-client/internal/core/ports/output"
)

type jobRepo struct {
	pool *pgxpool.Pool
}

// NewJobRepository creates a new JobRepository
func NewJobRepository(pool *pgxpool.Pool) output.JobRepository {
	return &jobRepo{pool: pool}
}

const jobColumns = `id, project_id, task_id, type, state, progress, message, model_id, created_at, updated_at`

func (r *jobRepo) Create(ctx context.Context, j *domain.Job) error {
	query := `
		INSERT INTO job (` + jobColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.pool.Exec(ctx, query,
		j.ID, j.ProjectID, j.TaskID, j.Type, string(j.State),
		j.Progress, j.Message, j.ModelID, j.CreatedAt, j.UpdatedAt,
	)
	if err != nil {
		if pgCode(err) == pgForeignKeyViolation {
			return domain.ErrProjectNotFound
		}
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (r *jobRepo) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM job WHERE id = $1`

	j, err := scanJob(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("get job by id: %w", err)
	}
	return j, nil
}

func (r *jobRepo) Update(ctx context.Context, j *domain.Job) error {
	query := `
		UPDATE job
		SET state = $1, progress = $2, message = $3, model_id = $4, updated_at = $5
		WHERE id = $6
	`
	result, err := r.pool.Exec(ctx, query,
		string(j.State), j.Progress, j.Message, j.ModelID, j.UpdatedAt, j.ID,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

func (r *jobRepo) List(ctx context.Context, filter domain.JobFilter) ([]*domain.Job, error) {
	query := `
		SELECT ` + jobColumns + ` FROM job
		WHERE ($1 = '' OR project_id = $1) AND ($2 = '' OR state = $2)
		ORDER BY seq
	`
	rows, err := r.pool.Query(ctx, query, filter.ProjectID, string(filter.State))
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*domain.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	j := &domain.Job{}
	var state string

	err := row.Scan(
		&j.ID, &j.ProjectID, &j.TaskID, &j.Type, &state,
		&j.Progress, &j.Message, &j.ModelID, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	j.State = domain.JobState(state)
	return j, nil
}
