package services

import (
	"context"
	"strings"

	"vision-platform-client/internal/core/domain"
	output "vision-platform-client/internal/core/ports/output"
)

type ModelService struct {
	projects output.ProjectRepository
	models   output.ModelRepository
}

func NewModelService(projects output.ProjectRepository, models output.ModelRepository) *ModelService {
	return &ModelService{projects: projects, models: models}
}

func (s *ModelService) List(ctx context.Context, projectID string) ([]*domain.Model, error) {
	if _, err := s.projects.GetByID(ctx, projectID); err != nil {
		return nil, err
	}
	return s.models.List(ctx, projectID)
}

func (s *ModelService) Get(ctx context.Context, projectID, id string) (*domain.Model, error) {
	return s.models.GetByID(ctx, projectID, id)
}

func (s *ModelService) Update(ctx context.Context, projectID, id string, update domain.ModelUpdate) (*domain.Model, error) {
	model, err := s.models.GetByID(ctx, projectID, id)
	if err != nil {
		return nil, err
	}
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, domain.ErrInvalidModelName
		}
		model.Name = name
	}
	if err := s.models.Update(ctx, model); err != nil {
		return nil, err
	}
	return model, nil
}

func (s *ModelService) Delete(ctx context.Context, projectID, id string) error {
	return s.models.Delete(ctx, projectID, id)
}

func (s *ModelService) Artifact(ctx context.Context, projectID, id string) (*domain.Model, []byte, error) {
	model, err := s.models.GetByID(ctx, projectID, id)
	if err != nil {
		return nil, nil, err
	}
	artifact, err := s.models.GetArtifact(ctx, projectID, id)
	if err != nil {
		return nil, nil, err
	}
	return model, artifact, nil
}
