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

type mediaRepo struct {
	pool *pgxpool.Pool
}

// NewMediaRepository creates a new MediaRepository
func NewMediaRepository(pool *pgxpool.Pool) output.MediaRepository {
	return &mediaRepo{pool: pool}
}

const mediaColumns = `id, project_id, name, uploaded_at, size, content_hash`

func (r *mediaRepo) Create(ctx context.Context, img *domain.Image, data []byte) error {
	query := `
		INSERT INTO media (` + mediaColumns + `, data)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.pool.Exec(ctx, query,
		img.ID, img.ProjectID, img.Name, img.UploadedAt, img.Size, img.ContentHash, data,
	)
	if err != nil {
		if pgCode(err) == pgForeignKeyViolation {
			return domain.ErrProjectNotFound
		}
		return fmt.Errorf("create media: %w", err)
	}
	return nil
}

func (r *mediaRepo) GetByID(ctx context.Context, projectID, id string) (*domain.Image, error) {
	query := `SELECT ` + mediaColumns + ` FROM media WHERE id = $1 AND project_id = $2`

	img, err := scanImage(r.pool.QueryRow(ctx, query, id, projectID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMediaNotFound
		}
		return nil, fmt.Errorf("get media by id: %w", err)
	}
	return img, nil
}

func (r *mediaRepo) GetData(ctx context.Context, projectID, id string) ([]byte, error) {
	var data []byte
	err := r.pool.QueryRow(ctx,
		`SELECT data FROM media WHERE id = $1 AND project_id = $2`, id, projectID,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMediaNotFound
		}
		return nil, fmt.Errorf("get media data: %w", err)
	}
	return data, nil
}

func (r *mediaRepo) Delete(ctx context.Context, projectID, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM media WHERE id = $1 AND project_id = $2`, id, projectID)
	if err != nil {
		return fmt.Errorf("delete media: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrMediaNotFound
	}
	return nil
}

func (r *mediaRepo) List(ctx context.Context, projectID string, filter output.ListFilter) ([]*domain.Image, int, error) {
	var total int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM media WHERE project_id = $1`, projectID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count media: %w", err)
	}

	query := `
		SELECT ` + mediaColumns + ` FROM media
		WHERE project_id = $1
		ORDER BY seq
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query, projectID, limitArg(filter.Limit), filter.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list media: %w", err)
	}
	defer rows.Close()

	images := []*domain.Image{}
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan media: %w", err)
		}
		images = append(images, img)
	}
	return images, total, rows.Err()
}

func scanImage(row pgx.Row) (*domain.Image, error) {
	img := &domain.Image{}
	err := row.Scan(&img.ID, &img.ProjectID, &img.Name, &img.UploadedAt, &img.Size, &img.ContentHash)
	if err != nil {
		return nil, err
	}
	return img, nil
}
