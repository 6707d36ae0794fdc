package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"vision-platform-client/internal/core/domain"
	output "vision-platform-client/internal/core/ports/output"
)

// AnnotationService stores annotation scenes and enforces their references.
type AnnotationService struct {
	projects    output.ProjectRepository
	media       output.MediaRepository
	annotations output.AnnotationRepository
}

func NewAnnotationService(
	projects output.ProjectRepository,
	media output.MediaRepository,
	annotations output.AnnotationRepository,
) *AnnotationService {
	return &AnnotationService{projects: projects, media: media, annotations: annotations}
}

// check validates ann against the project's labels and schema version.
func (s *AnnotationService) check(ctx context.Context, projectID string, ann *domain.Annotation) (*domain.Project, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if ann.LabelSchemaVersion != 0 && ann.LabelSchemaVersion != project.LabelSchemaVersion {
		return nil, domain.ErrSchemaVersionMismatch
	}
	if err := ann.Validate(project.LabelIndex()); err != nil {
		return nil, err
	}
	return project, nil
}

func (s *AnnotationService) Create(ctx context.Context, projectID, mediaID string, ann *domain.Annotation) (*domain.Annotation, error) {
	project, err := s.check(ctx, projectID, ann)
	if err != nil {
		return nil, err
	}
	if _, err := s.media.GetByID(ctx, projectID, mediaID); err != nil {
		return nil, err
	}

	created := &domain.Annotation{
		ID:                 uuid.NewString(),
		ProjectID:          projectID,
		MediaID:            mediaID,
		Kind:               domain.AnnotationKindAnnotation,
		Shapes:             ann.Shapes,
		LabelSchemaVersion: project.LabelSchemaVersion,
		CreatedAt:          time.Now().UTC(),
	}
	if err := s.annotations.Create(ctx, created); err != nil {
		return nil, err
	}
	return created, nil
}

func (s *AnnotationService) List(ctx context.Context, projectID, mediaID string) ([]*domain.Annotation, error) {
	if _, err := s.media.GetByID(ctx, projectID, mediaID); err != nil {
		return nil, err
	}
	return s.annotations.ListByMedia(ctx, projectID, mediaID)
}

// Latest returns the newest annotation of a media item, or ErrAnnotationNotFound.
func (s *AnnotationService) Latest(ctx context.Context, projectID, mediaID string) (*domain.Annotation, error) {
	anns, err := s.List(ctx, projectID, mediaID)
	if err != nil {
		return nil, err
	}
	if len(anns) == 0 {
		return nil, domain.ErrAnnotationNotFound
	}
	return anns[len(anns)-1], nil
}

func (s *AnnotationService) Get(ctx context.Context, projectID, id string) (*domain.Annotation, error) {
	return s.annotations.GetByID(ctx, projectID, id)
}

func (s *AnnotationService) Update(ctx context.Context, projectID, id string, ann *domain.Annotation) (*domain.Annotation, error) {
	existing, err := s.annotations.GetByID(ctx, projectID, id)
	if err != nil {
		return nil, err
	}
	project, err := s.check(ctx, projectID, ann)
	if err != nil {
		return nil, err
	}

	existing.Shapes = ann.Shapes
	existing.LabelSchemaVersion = project.LabelSchemaVersion
	if err := s.annotations.Update(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

func (s *AnnotationService) Delete(ctx context.Context, projectID, id string) error {
	return s.annotations.Delete(ctx, projectID, id)
}
