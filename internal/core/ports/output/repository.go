package ports

import (
	"context"

	"vision-platform-client/internal/core/domain"
)

// Repositories back the reference platform server.

type ListFilter struct {
	Limit  int
	Offset int
}

type ProjectRepository interface {
	Create(ctx context.Context, project *domain.Project) error
	GetByID(ctx context.Context, id string) (*domain.Project, error)
	GetByName(ctx context.Context, name string) (*domain.Project, error)
	Update(ctx context.Context, project *domain.Project) error
	// Delete removes the project with all of its media, annotations, jobs and models.
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter ListFilter) ([]*domain.Project, int, error)
}

type MediaRepository interface {
	Create(ctx context.Context, image *domain.Image, data []byte) error
	GetByID(ctx context.Context, projectID, id string) (*domain.Image, error)
	GetData(ctx context.Context, projectID, id string) ([]byte, error)
	// Delete removes the image and its annotations.
	Delete(ctx context.Context, projectID, id string) error
	// List returns images in upload order.
	List(ctx context.Context, projectID string, filter ListFilter) ([]*domain.Image, int, error)
}

type AnnotationRepository interface {
	Create(ctx context.Context, ann *domain.Annotation) error
	GetByID(ctx context.Context, projectID, id string) (*domain.Annotation, error)
	Update(ctx context.Context, ann *domain.Annotation) error
	Delete(ctx context.Context, projectID, id string) error
	// ListByMedia returns annotations oldest first.
	ListByMedia(ctx context.Context, projectID, mediaID string) ([]*domain.Annotation, error)
	CountAnnotatedMedia(ctx context.Context, projectID string) (int, error)
}

type JobRepository interface {
	Create(ctx context.Context, job *domain.Job) error
	GetByID(ctx context.Context, id string) (*domain.Job, error)
	Update(ctx context.Context, job *domain.Job) error
	List(ctx context.Context, filter domain.JobFilter) ([]*domain.Job, error)
}

type ModelRepository interface {
	Create(ctx context.Context, model *domain.Model, artifact []byte) error
	GetByID(ctx context.Context, projectID, id string) (*domain.Model, error)
	GetArtifact(ctx context.Context, projectID, id string) ([]byte, error)
	Update(ctx context.Context, model *domain.Model) error
	Delete(ctx context.Context, projectID, id string) error
	List(ctx context.Context, projectID string) ([]*domain.Model, error)
}
