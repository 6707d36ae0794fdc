package services

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"vision-platform-client/internal/core/domain"
)

type DeployRequest struct {
	ProjectID string
	// ModelIDs selects the models to deploy. Empty means the newest
	// deployable model of every trainable task.
	ModelIDs []string
	// OutputDir receives the deployment. Defaults to a directory in the work dir.
	OutputDir string
}

// DeployProject builds a local deployment package from trained models.
func (o *Orchestrator) DeployProject(ctx context.Context, req DeployRequest) (*domain.Deployment, error) {
	// 1. Get project
	project, err := retry(ctx, o, "project.get", func() (*domain.Project, error) {
		return o.client.GetProject(ctx, req.ProjectID)
	})
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}

	// 2. Resolve models (requested or newest per task)
	models, err := o.resolveModels(ctx, project, req.ModelIDs)
	if err != nil {
		return nil, err
	}

	// 3. Validate every model came out of a succeeded job
	for _, m := range models {
		if err := o.checkDeployable(ctx, m); err != nil {
			return nil, err
		}
	}

	// 4. Prepare the output directory
	dir := req.OutputDir
	if dir == "" {
		dir = filepath.Join(o.workDir, "deployment-"+project.ID)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create deployment directory: %w", err)
	}

	deployment := &domain.Deployment{
		ProjectID:   project.ID,
		ProjectName: project.Name,
		CreatedAt:   o.clock.Now().UTC(),
		Dir:         dir,
	}

	// 5. Download artifacts
	for _, m := range models {
		task, _ := project.TaskByID(m.TaskID)
		rel := path.Join(domain.DeploymentModelsDir, safeName(task.Title), domain.DeploymentArtifactName)
		if err := o.downloadArtifact(ctx, m, filepath.Join(dir, filepath.FromSlash(rel))); err != nil {
			return nil, fmt.Errorf("download model %s: %w", m.ID, err)
		}
		deployment.Models = append(deployment.Models, domain.DeployedModel{
			TaskID:       task.ID,
			TaskTitle:    task.Title,
			TaskType:     task.Type,
			ModelID:      m.ID,
			JobID:        m.JobID,
			Name:         m.Name,
			Architecture: m.Architecture,
			Score:        m.Score,
			Path:         rel,
		})
	}

	// 6. Write deployment.yaml
	raw, err := yaml.Marshal(deployment)
	if err != nil {
		return nil, fmt.Errorf("encode deployment: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, domain.DeploymentManifestName), raw, 0o644); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"project_id": project.ID,
		"models":     len(deployment.Models),
		"dir":        dir,
	}).Info("deployment created")
	return deployment, nil
}

func (o *Orchestrator) resolveModels(ctx context.Context, project *domain.Project, ids []string) ([]*domain.Model, error) {
	if len(ids) > 0 {
		models := make([]*domain.Model, 0, len(ids))
		byTask := make(map[string]string, len(ids))
		for _, id := range ids {
			m, err := retry(ctx, o, "model.get", func() (*domain.Model, error) {
				return o.client.GetModel(ctx, project.ID, id)
			})
			if err != nil {
				return nil, fmt.Errorf("get model %s: %w", id, err)
			}
			if _, ok := project.TaskByID(m.TaskID); !ok {
				return nil, fmt.Errorf("model %s: %w", m.ID, domain.ErrTaskNotFound)
			}
			// one artifact path per task
			if prev, ok := byTask[m.TaskID]; ok {
				return nil, fmt.Errorf("models %s and %s: %w", prev, m.ID, domain.ErrDuplicateTaskModel)
			}
			byTask[m.TaskID] = m.ID
			models = append(models, m)
		}
		return models, nil
	}

	all, err := retry(ctx, o, "model.list", func() ([]*domain.Model, error) {
		return o.client.ListModels(ctx, project.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	deployable := make([]*domain.Model, 0, len(all))
	for _, m := range all {
		if m.Deployable {
			deployable = append(deployable, m)
		}
	}
	newest := domain.NewestPerTask(deployable)

	var models []*domain.Model
	for _, task := range project.TrainableTasks() {
		m, ok := newest[task.ID]
		if !ok {
			return nil, fmt.Errorf("task %q: %w", task.Title, domain.ErrNoDeployableModel)
		}
		models = append(models, m)
	}
	return models, nil
}

func (o *Orchestrator) checkDeployable(ctx context.Context, m *domain.Model) error {
	if !m.Deployable {
		return fmt.Errorf("model %s: %w", m.ID, domain.ErrModelNotDeployable)
	}
	job, err := retry(ctx, o, "job.get", func() (*domain.Job, error) {
		return o.client.GetJob(ctx, m.JobID)
	})
	if err != nil {
		return fmt.Errorf("get job of model %s: %w", m.ID, err)
	}
	if job.State != domain.JobStateSucceeded {
		return fmt.Errorf("model %s: job %s is %s: %w", m.ID, job.ID, job.State, domain.ErrModelNotDeployable)
	}
	return nil
}

func (o *Orchestrator) downloadArtifact(ctx context.Context, m *domain.Model, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = retry(ctx, o, "model.export", func() (int64, error) {
		if err := f.Truncate(0); err != nil {
			return 0, err
		}
		if _, err := f.Seek(0, 0); err != nil {
			return 0, err
		}
		return o.client.DownloadModelArtifact(ctx, m.ProjectID, m.ID, f)
	})
	if err != nil {
		return err
	}
	return f.Close()
}

// PublishDeployment stores a deployment package in the archive store and,
// when a serving publisher is available, exposes it as an InferenceService.
func (o *Orchestrator) PublishDeployment(ctx context.Context, deployment *domain.Deployment, target domain.ServingTarget) (*domain.PublishResult, error) {
	// 1. Archive the package
	ref, err := o.storeDir(ctx, deployment.Dir)
	if err != nil {
		return nil, err
	}
	result := &domain.PublishResult{
		ArchiveURI: ref.URI,
		Status:     "archived",
		Message:    "deployment archived",
	}

	// 2. Publish to KServe (if available)
	if o.publisher == nil || !o.publisher.IsAvailable() {
		result.Message = domain.ErrServingNotConfigured.Error()
		return result, nil
	}

	published, err := o.publisher.Publish(ctx, target, deployment, ref.URI)
	if err != nil {
		result.Message = err.Error()
		return result, fmt.Errorf("publish deployment: %w", err)
	}

	log.WithFields(log.Fields{
		"name":      published.Name,
		"namespace": published.Namespace,
		"archive":   ref.URI,
	}).Info("deployment published")
	return published, nil
}

// ServingStatus reports the state of a published deployment.
func (o *Orchestrator) ServingStatus(ctx context.Context, namespace, name string) (*domain.ServingStatus, error) {
	if o.publisher == nil || !o.publisher.IsAvailable() {
		return nil, domain.ErrServingNotConfigured
	}
	return o.publisher.GetStatus(ctx, namespace, name)
}

// Unpublish removes a published deployment. The stored archive is kept.
func (o *Orchestrator) Unpublish(ctx context.Context, namespace, name string) error {
	if o.publisher == nil || !o.publisher.IsAvailable() {
		return domain.ErrServingNotConfigured
	}
	return o.publisher.Unpublish(ctx, namespace, name)
}
