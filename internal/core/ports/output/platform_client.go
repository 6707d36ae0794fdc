package ports

import (
	"context"
	"io"

	"vision-platform-client/internal/core/domain"
)

// ============================================================================
// Remote Platform Resources
// ============================================================================

// ProjectClient manages projects on the remote platform.
type ProjectClient interface {
	CreateProject(ctx context.Context, spec domain.ProjectSpec) (*domain.Project, error)
	ListProjects(ctx context.Context) ([]*domain.Project, error)
	GetProject(ctx context.Context, projectID string) (*domain.Project, error)
	UpdateProject(ctx context.Context, projectID string, update domain.ProjectUpdate) (*domain.Project, error)
	DeleteProject(ctx context.Context, projectID string) error
}

// MediaClient manages image media items inside a project.
type MediaClient interface {
	UploadImage(ctx context.Context, projectID string, upload domain.MediaUpload) (*domain.Image, error)
	// ListImages follows pagination and returns every image of the project.
	ListImages(ctx context.Context, projectID string) ([]*domain.Image, error)
	GetImage(ctx context.Context, projectID, mediaID string) (*domain.Image, error)
	DownloadImage(ctx context.Context, projectID, mediaID string, w io.Writer) (int64, error)
	DeleteImage(ctx context.Context, projectID, mediaID string) error
}

// AnnotationClient manages annotation scenes attached to media items.
type AnnotationClient interface {
	CreateAnnotation(ctx context.Context, projectID, mediaID string, ann *domain.Annotation) (*domain.Annotation, error)
	ListAnnotations(ctx context.Context, projectID, mediaID string) ([]*domain.Annotation, error)
	// GetLatestAnnotation returns nil, nil when the media item has no annotation.
	GetLatestAnnotation(ctx context.Context, projectID, mediaID string) (*domain.Annotation, error)
	GetAnnotation(ctx context.Context, projectID, annotationID string) (*domain.Annotation, error)
	UpdateAnnotation(ctx context.Context, projectID string, ann *domain.Annotation) (*domain.Annotation, error)
	DeleteAnnotation(ctx context.Context, projectID, annotationID string) error
}

// JobClient submits and observes training jobs.
type JobClient interface {
	SubmitTraining(ctx context.Context, projectID, taskID string) (*domain.Job, error)
	ListJobs(ctx context.Context, filter domain.JobFilter) ([]*domain.Job, error)
	GetJob(ctx context.Context, jobID string) (*domain.Job, error)
	CancelJob(ctx context.Context, jobID string) error
}

// ModelClient reads trained models and their artifacts.
type ModelClient interface {
	ListModels(ctx context.Context, projectID string) ([]*domain.Model, error)
	GetModel(ctx context.Context, projectID, modelID string) (*domain.Model, error)
	UpdateModel(ctx context.Context, projectID, modelID string, update domain.ModelUpdate) (*domain.Model, error)
	DeleteModel(ctx context.Context, projectID, modelID string) error
	DownloadModelArtifact(ctx context.Context, projectID, modelID string, w io.Writer) (int64, error)
}

// PlatformClient is the full resource surface the orchestrator composes.
type PlatformClient interface {
	ProjectClient
	MediaClient
	AnnotationClient
	JobClient
	ModelClient
}
