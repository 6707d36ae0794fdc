package services

import (
	"context"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"vision-platform-client/internal/core/domain"
	output "vision-platform-client/internal/core/ports/output"
)

type MediaService struct {
	projects output.ProjectRepository
	media    output.MediaRepository
}

func NewMediaService(projects output.ProjectRepository, media output.MediaRepository) *MediaService {
	return &MediaService{projects: projects, media: media}
}

func (s *MediaService) Upload(ctx context.Context, projectID string, upload domain.MediaUpload) (*domain.Image, error) {
	if err := upload.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.projects.GetByID(ctx, projectID); err != nil {
		return nil, err
	}

	img := &domain.Image{
		ID:          uuid.NewString(),
		ProjectID:   projectID,
		Name:        filepath.Base(upload.Name),
		UploadedAt:  time.Now().UTC(),
		Size:        int64(len(upload.Data)),
		ContentHash: domain.ContentHash(upload.Data),
	}
	if err := s.media.Create(ctx, img, upload.Data); err != nil {
		return nil, err
	}
	return img, nil
}

func (s *MediaService) Get(ctx context.Context, projectID, id string) (*domain.Image, error) {
	return s.media.GetByID(ctx, projectID, id)
}

func (s *MediaService) Data(ctx context.Context, projectID, id string) (*domain.Image, []byte, error) {
	img, err := s.media.GetByID(ctx, projectID, id)
	if err != nil {
		return nil, nil, err
	}
	data, err := s.media.GetData(ctx, projectID, id)
	if err != nil {
		return nil, nil, err
	}
	return img, data, nil
}

func (s *MediaService) List(ctx context.Context, projectID string, filter output.ListFilter) ([]*domain.Image, int, error) {
	if _, err := s.projects.GetByID(ctx, projectID); err != nil {
		return nil, 0, err
	}
	return s.media.List(ctx, projectID, filter)
}

func (s *MediaService) Delete(ctx context.Context, projectID, id string) error {
	return s.media.Delete(ctx, projectID, id)
}
