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

type annotationRepo struct {
	pool *pgxpool.Pool
}

// NewAnnotationRepository creates a new AnnotationRepository
func NewAnnotationRepository(pool *pgxpool.Pool) output.AnnotationRepository {
	return &annotationRepo{pool: pool}
}

const annotationColumns = `id, project_id, media_id, kind, shapes, label_schema_version, created_at`

// Create inserts only when the media item belongs to the annotation's project.
func (r *annotationRepo) Create(ctx context.Context, a *domain.Annotation) error {
	shapesJSON, err := json.Marshal(a.Shapes)
	if err != nil {
		return fmt.Errorf("marshal shapes: %w", err)
	}

	query := `
		INSERT INTO annotation (` + annotationColumns + `)
		SELECT $1, $2, $3, $4, $5, $6, $7
		WHERE EXISTS (SELECT 1 FROM media WHERE id = $3 AND project_id = $2)
	`
	result, err := r.pool.Exec(ctx, query,
		a.ID, a.ProjectID, a.MediaID, a.Kind, shapesJSON, a.LabelSchemaVersion, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create annotation: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrMediaNotFound
	}
	return nil
}

func (r *annotationRepo) GetByID(ctx context.Context, projectID, id string) (*domain.Annotation, error) {
	query := `SELECT ` + annotationColumns + ` FROM annotation WHERE id = $1 AND project_id = $2`

	a, err := scanAnnotation(r.pool.QueryRow(ctx, query, id, projectID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAnnotationNotFound
		}
		return nil, fmt.Errorf("get annotation by id: %w", err)
	}
	return a, nil
}

func (r *annotationRepo) Update(ctx context.Context, a *domain.Annotation) error {
	shapesJSON, err := json.Marshal(a.Shapes)
	if err != nil {
		return fmt.Errorf("marshal shapes: %w", err)
	}

	query := `
		UPDATE annotation
		SET shapes = $1, label_schema_version = $2
		WHERE id = $3 AND project_id = $4
	`
	result, err := r.pool.Exec(ctx, query, shapesJSON, a.LabelSchemaVersion, a.ID, a.ProjectID)
	if err != nil {
		return fmt.Errorf("update annotation: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrAnnotationNotFound
	}
	return nil
}

func (r *annotationRepo) Delete(ctx context.Context, projectID, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM annotation WHERE id = $1 AND project_id = $2`, id, projectID)
	if err != nil {
		return fmt.Errorf("delete annotation: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrAnnotationNotFound
	}
	return nil
}

func (r *annotationRepo) ListByMedia(ctx context.Context, projectID, mediaID string) ([]*domain.Annotation, error) {
	query := `
		SELECT ` + annotationColumns + ` FROM annotation
		WHERE project_id = $1 AND media_id = $2
		ORDER BY seq
	`
	rows, err := r.pool.Query(ctx, query, projectID, mediaID)
	if err != nil {
		return nil, fmt.Errorf("list annotations: %w", err)
	}
	defer rows.Close()

	var out []*domain.Annotation
	for rows.Next() {
		a, err := scanAnnotation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan annotation: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *annotationRepo) CountAnnotatedMedia(ctx context.Context, projectID string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(DISTINCT media_id) FROM annotation WHERE project_id = $1`, projectID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count annotated media: %w", err)
	}
	return n, nil
}

func scanAnnotation(row pgx.Row) (*domain.Annotation, error) {
	a := &domain.Annotation{}
	var shapesJSON []byte

	err := row.Scan(&a.ID, &a.ProjectID, &a.MediaID, &a.Kind, &shapesJSON, &a.LabelSchemaVersion, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(shapesJSON, &a.Shapes); err != nil {
		return nil, fmt.Errorf("unmarshal shapes: %w", err)
	}
	return a, nil
}
