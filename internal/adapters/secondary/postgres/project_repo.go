package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"vision-platform-client/internal/core/domain"
	output "vision-platform-client/internal/core/ports/output"
)

type projectRepo struct {
	pool *pgxpool.Pool
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(pool *pgxpool.Pool) output.ProjectRepository {
	return &projectRepo{pool: pool}
}

const projectColumns = `id, name, created_at, updated_at, tasks, label_schema_version, parameters`

func (r *projectRepo) Create(ctx context.Context, p *domain.Project) error {
	tasksJSON, paramsJSON, err := marshalProject(p)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO project (` + projectColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.pool.Exec(ctx, query,
		p.ID, p.Name, p.CreatedAt, p.UpdatedAt,
		tasksJSON, p.LabelSchemaVersion, paramsJSON,
	)
	if err != nil {
		if pgCode(err) == pgUniqueViolation {
			return domain.ErrProjectNameConflict
		}
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

func (r *projectRepo) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM project WHERE id = $1`

	p, err := scanProject(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProjectNotFound
		}
		return nil, fmt.Errorf("get project by id: %w", err)
	}
	return p, nil
}

func (r *projectRepo) GetByName(ctx context.Context, name string) (*domain.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM project WHERE lower(name) = lower($1)`

	p, err := scanProject(r.pool.QueryRow(ctx, query, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProjectNotFound
		}
		return nil, fmt.Errorf("get project by name: %w", err)
	}
	return p, nil
}

func (r *projectRepo) Update(ctx context.Context, p *domain.Project) error {
	tasksJSON, paramsJSON, err := marshalProject(p)
	if err != nil {
		return err
	}

	query := `
		UPDATE project
		SET name = $1, updated_at = $2, tasks = $3, label_schema_version = $4, parameters = $5
		WHERE id = $6
	`
	result, err := r.pool.Exec(ctx, query,
		p.Name, p.UpdatedAt, tasksJSON, p.LabelSchemaVersion, paramsJSON, p.ID,
	)
	if err != nil {
		if pgCode(err) == pgUniqueViolation {
			return domain.ErrProjectNameConflict
		}
		return fmt.Errorf("update project: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrProjectNotFound
	}
	return nil
}

// Delete relies on ON DELETE CASCADE for media, annotations, jobs and models.
func (r *projectRepo) Delete(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM project WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrProjectNotFound
	}
	return nil
}

func (r *projectRepo) List(ctx context.Context, filter output.ListFilter) ([]*domain.Project, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM project`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count projects: %w", err)
	}

	query := `SELECT ` + projectColumns + ` FROM project ORDER BY seq LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, query, limitArg(filter.Limit), filter.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := []*domain.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, total, rows.Err()
}

func marshalProject(p *domain.Project) ([]byte, []byte, error) {
	tasksJSON, err := json.Marshal(p.Tasks)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal tasks: %w", err)
	}
	params := p.Parameters
	if params == nil {
		params = map[string]string{}
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal parameters: %w", err)
	}
	return tasksJSON, paramsJSON, nil
}

func scanProject(row pgx.Row) (*domain.Project, error) {
	p := &domain.Project{}
	var tasksJSON, paramsJSON []byte

	err := row.Scan(
		&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt,
		&tasksJSON, &p.LabelSchemaVersion, &paramsJSON,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(tasksJSON, &p.Tasks); err != nil {
		return nil, fmt.Errorf("unmarshal tasks: %w", err)
	}
	if len(paramsJSON) > 0 {
		if err := json.Unmarshal(paramsJSON, &p.Parameters); err != nil {
			return nil, fmt.Errorf("unmarshal parameters: %w", err)
		}
	}
	return p, nil
}

// limitArg turns a zero limit into NULL, which Postgres reads as LIMIT ALL.
func limitArg(limit int) *int {
	if limit <= 0 {
		return nil
	}
	return &limit
}
