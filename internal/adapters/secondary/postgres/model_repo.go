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

type modelRepo struct {
	pool *pgxpool.Pool
}

// NewModelRepository creates a new ModelRepository
func NewModelRepository(pool *pgxpool.Pool) output.ModelRepository {
	return &modelRepo{pool: pool}
}

const modelColumns = `id, project_id, task_id, job_id, name, architecture, score, deployable, artifact_size, created_at`

func (r *modelRepo) Create(ctx context.Context, m *domain.Model, artifact []byte) error {
	query := `
		INSERT INTO model (` + modelColumns + `, artifact)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.pool.Exec(ctx, query,
		m.ID, m.ProjectID, m.TaskID, m.JobID, m.Name, m.Architecture,
		m.Score, m.Deployable, m.ArtifactSize, m.CreatedAt, artifact,
	)
	if err != nil {
		if pgCode(err) == pgForeignKeyViolation {
			return domain.ErrProjectNotFound
		}
		return fmt.Errorf("create model: %w", err)
	}
	return nil
}

func (r *modelRepo) GetByID(ctx context.Context, projectID, id string) (*domain.Model, error) {
	query := `SELECT ` + modelColumns + ` FROM model WHERE id = $1 AND project_id = $2`

	m, err := scanModel(r.pool.QueryRow(ctx, query, id, projectID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrModelNotFound
		}
		return nil, fmt.Errorf("get model by id: %w", err)
	}
	return m, nil
}

func (r *modelRepo) GetArtifact(ctx context.Context, projectID, id string) ([]byte, error) {
	var artifact []byte
	err := r.pool.QueryRow(ctx,
		`SELECT artifact FROM model WHERE id = $1 AND project_id = $2`, id, projectID,
	).Scan(&artifact)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrModelNotFound
		}
		return nil, fmt.Errorf("get model artifact: %w", err)
	}
	return artifact, nil
}

func (r *modelRepo) Update(ctx context.Context, m *domain.Model) error {
	query := `
		UPDATE model
		SET name = $1, score = $2, deployable = $3
		WHERE id = $4 AND project_id = $5
	`
	result, err := r.pool.Exec(ctx, query, m.Name, m.Score, m.Deployable, m.ID, m.ProjectID)
	if err != nil {
		return fmt.Errorf("update model: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrModelNotFound
	}
	return nil
}

func (r *modelRepo) Delete(ctx context.Context, projectID, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM model WHERE id = $1 AND project_id = $2`, id, projectID)
	if err != nil {
		return fmt.Errorf("delete model: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrModelNotFound
	}
	return nil
}

func (r *modelRepo) List(ctx context.Context, projectID string) ([]*domain.Model, error) {
	query := `SELECT ` + modelColumns + ` FROM model WHERE project_id = $1 ORDER BY seq`
	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer rows.Close()

	var models []*domain.Model
	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan model: %w", err)
		}
		models = append(models, m)
	}
	return models, rows.Err()
}

func scanModel(row pgx.Row) (*domain.Model, error) {
	m := &domain.Model{}
	err := row.Scan(
		&m.ID, &m.ProjectID, &m.TaskID, &m.JobID, &m.Name, &m.Architecture,
		&m.Score, &m.Deployable, &m.ArtifactSize, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}
