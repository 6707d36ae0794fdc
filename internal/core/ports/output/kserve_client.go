package ports

import (
	"context"

	"vision-platform-client/internal/core/domain"
)

// ServingPublisher defines the contract for exposing a deployment through KServe.
type ServingPublisher interface {
	// Publish creates an InferenceService serving the archive at storageURI
	Publish(ctx context.Context, target domain.ServingTarget, deployment *domain.Deployment, storageURI string) (*domain.PublishResult, error)

	// Unpublish deletes the InferenceService
	Unpublish(ctx context.Context, namespace, name string) error

	// GetStatus retrieves current serving status from Kubernetes
	GetStatus(ctx context.Context, namespace, name string) (*domain.ServingStatus, error)

	// IsAvailable checks if KServe integration is enabled and configured
	IsAvailable() bool
}
