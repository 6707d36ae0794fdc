package testutil

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"vision-platform-client/internal/core/domain"
)

// MockPlatformClient is a mock of PlatformClient.
// Download methods write the []byte returned as first value to w.
type MockPlatformClient struct {
	mock.Mock
}

// ============================================================================
// Projects
// ============================================================================

func (m *MockPlatformClient) CreateProject(ctx context.Context, spec domain.ProjectSpec) (*domain.Project, error) {
	args := m.Called(ctx, spec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Project), args.Error(1)
}

func (m *MockPlatformClient) ListProjects(ctx context.Context) ([]*domain.Project, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Project), args.Error(1)
}

func (m *MockPlatformClient) GetProject(ctx context.Context, projectID string) (*domain.Project, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Project), args.Error(1)
}

func (m *MockPlatformClient) UpdateProject(ctx context.Context, projectID string, update domain.ProjectUpdate) (*domain.Project, error) {
	args := m.Called(ctx, projectID, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Project), args.Error(1)
}

func (m *MockPlatformClient) DeleteProject(ctx context.Context, projectID string) error {
	args := m.Called(ctx, projectID)
	return args.Error(0)
}

// ============================================================================
// Media
// ============================================================================

func (m *MockPlatformClient) UploadImage(ctx context.Context, projectID string, upload domain.MediaUpload) (*domain.Image, error) {
	args := m.Called(ctx, projectID, upload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Image), args.Error(1)
}

func (m *MockPlatformClient) ListImages(ctx context.Context, projectID string) ([]*domain.Image, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Image), args.Error(1)
}

func (m *MockPlatformClient) GetImage(ctx context.Context, projectID, mediaID string) (*domain.Image, error) {
	args := m.Called(ctx, projectID, mediaID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Image), args.Error(1)
}

func (m *MockPlatformClient) DownloadImage(ctx context.Context, projectID, mediaID string, w io.Writer) (int64, error) {
	args := m.Called(ctx, projectID, mediaID, w)
	return writeBody(w, args)
}

func (m *MockPlatformClient) DeleteImage(ctx context.Context, projectID, mediaID string) error {
	args := m.Called(ctx, projectID, mediaID)
	return args.Error(0)
}

// ============================================================================
// Annotations
// ============================================================================

func (m *MockPlatformClient) CreateAnnotation(ctx context.Context, projectID, mediaID string, ann *domain.Annotation) (*domain.Annotation, error) {
	args := m.Called(ctx, projectID, mediaID, ann)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Annotation), args.Error(1)
}

func (m *MockPlatformClient) ListAnnotations(ctx context.Context, projectID, mediaID string) ([]*domain.Annotation, error) {
	args := m.Called(ctx, projectID, mediaID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Annotation), args.Error(1)
}

func (m *MockPlatformClient) GetLatestAnnotation(ctx context.Context, projectID, mediaID string) (*domain.Annotation, error) {
	args := m.Called(ctx, projectID, mediaID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Annotation), args.Error(1)
}

func (m *MockPlatformClient) GetAnnotation(ctx context.Context, projectID, annotationID string) (*domain.Annotation, error) {
	args := m.Called(ctx, projectID, annotationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Annotation), args.Error(1)
}

func (m *MockPlatformClient) UpdateAnnotation(ctx context.Context, projectID string, ann *domain.Annotation) (*domain.Annotation, error) {
	args := m.Called(ctx, projectID, ann)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Annotation), args.Error(1)
}

func (m *MockPlatformClient) DeleteAnnotation(ctx context.Context, projectID, annotationID string) error {
	args := m.Called(ctx, projectID, annotationID)
	return args.Error(0)
}

// ============================================================================
// Jobs
// ============================================================================

func (m *MockPlatformClient) SubmitTraining(ctx context.Context, projectID, taskID string) (*domain.Job, error) {
	args := m.Called(ctx, projectID, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Job), args.Error(1)
}

func (m *MockPlatformClient) ListJobs(ctx context.Context, filter domain.JobFilter) ([]*domain.Job, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Job), args.Error(1)
}

func (m *MockPlatformClient) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Job), args.Error(1)
}

func (m *MockPlatformClient) CancelJob(ctx context.Context, jobID string) error {
	args := m.Called(ctx, jobID)
	return args.Error(0)
}

// ============================================================================
// Models
// ============================================================================

func (m *MockPlatformClient) ListModels(ctx context.Context, projectID string) ([]*domain.Model, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Model), args.Error(1)
}

func (m *MockPlatformClient) GetModel(ctx context.Context, projectID, modelID string) (*domain.Model, error) {
	args := m.Called(ctx, projectID, modelID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Model), args.Error(1)
}

func (m *MockPlatformClient) UpdateModel(ctx context.Context, projectID, modelID string, update domain.ModelUpdate) (*domain.Model, error) {
	args := m.Called(ctx, projectID, modelID, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Model), args.Error(1)
}

func (m *MockPlatformClient) DeleteModel(ctx context.Context, projectID, modelID string) error {
	args := m.Called(ctx, projectID, modelID)
	return args.Error(0)
}

func (m *MockPlatformClient) DownloadModelArtifact(ctx context.Context, projectID, modelID string, w io.Writer) (int64, error) {
	args := m.Called(ctx, projectID, modelID, w)
	return writeBody(w, args)
}

func writeBody(w io.Writer, args mock.Arguments) (int64, error) {
	if err := args.Error(1); err != nil {
		return 0, err
	}
	body, _ := args.Get(0).([]byte)
	n, err := w.Write(body)
	return int64(n), err
}

// ============================================================================
// Archive Store & Serving Publisher
// ============================================================================

// MockArchiveStore is a mock of ArchiveStore.
type MockArchiveStore struct {
	mock.Mock
}

func (m *MockArchiveStore) Put(ctx context.Context, name string, r io.Reader, size int64) (*domain.ArchiveRef, error) {
	args := m.Called(ctx, name, r, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ArchiveRef), args.Error(1)
}

func (m *MockArchiveStore) Open(ctx context.Context, ref domain.ArchiveRef) (io.ReadCloser, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *MockArchiveStore) Delete(ctx context.Context, ref domain.ArchiveRef) error {
	args := m.Called(ctx, ref)
	return args.Error(0)
}

// MockServingPublisher is a mock of ServingPublisher.
type MockServingPublisher struct {
	mock.Mock
}

func (m *MockServingPublisher) Publish(ctx context.Context, target domain.ServingTarget, deployment *domain.Deployment, storageURI string) (*domain.PublishResult, error) {
	args := m.Called(ctx, target, deployment, storageURI)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PublishResult), args.Error(1)
}

func (m *MockServingPublisher) Unpublish(ctx context.Context, namespace, name string) error {
	args := m.Called(ctx, namespace, name)
	return args.Error(0)
}

func (m *MockServingPublisher) GetStatus(ctx context.Context, namespace, name string) (*domain.ServingStatus, error) {
	args := m.Called(ctx, namespace, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ServingStatus), args.Error(1)
}

func (m *MockServingPublisher) IsAvailable() bool {
	args := m.Called()
	return args.Bool(0)
}
