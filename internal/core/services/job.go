package services

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"vision-platform-client/internal/core/domain"
	output "vision-platform-client/internal/core/ports/output"
)

// ParamSimulateFailure makes every training job of a project end FAILED.
const ParamSimulateFailure = "simulate_training_failure"

// TrainingSimulation controls how fast simulated jobs progress.
type TrainingSimulation struct {
	// ReadsPerState is the number of status reads a job spends queued, and
	// again running, before it advances.
	ReadsPerState int
}

// JobService runs simulated training jobs for the reference platform.
// Jobs advance only when their status is read.
type JobService struct {
	projects    output.ProjectRepository
	annotations output.AnnotationRepository
	jobs        output.JobRepository
	models      output.ModelRepository
	sim         TrainingSimulation

	mu    sync.Mutex
	reads map[string]int
}

func NewJobService(
	projects output.ProjectRepository,
	annotations output.AnnotationRepository,
	jobs output.JobRepository,
	models output.ModelRepository,
	sim TrainingSimulation,
) *JobService {
	if sim.ReadsPerState <= 0 {
		sim.ReadsPerState = 1
	}
	return &JobService{
		projects:    projects,
		annotations: annotations,
		jobs:        jobs,
		models:      models,
		sim:         sim,
		reads:       make(map[string]int),
	}
}

func (s *JobService) Submit(ctx context.Context, projectID, taskID string) (*domain.Job, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	task, ok := project.TaskByID(taskID)
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	if !task.Type.IsTrainable() {
		return nil, domain.ErrTaskNotTrainable
	}
	annotated, err := s.annotations.CountAnnotatedMedia(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("count annotated media: %w", err)
	}
	if annotated == 0 {
		return nil, domain.ErrNoTrainingData
	}

	now := time.Now().UTC()
	job := &domain.Job{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		TaskID:    taskID,
		Type:      domain.JobTypeTrain,
		State:     domain.JobStateQueued,
		Message:   "waiting for resources",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"job_id":     job.ID,
		"project_id": projectID,
		"task_id":    taskID,
	}).Info("training job queued")
	return job, nil
}

// Get returns the job after letting it advance by one status read.
func (s *JobService) Get(ctx context.Context, id string) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.advanceLocked(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *JobService) List(ctx context.Context, filter domain.JobFilter) ([]*domain.Job, error) {
	return s.jobs.List(ctx, filter)
}

func (s *JobService) Cancel(ctx context.Context, id string) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := job.TransitionTo(domain.JobStateCancelled, time.Now().UTC()); err != nil {
		return nil, err
	}
	job.Message = "cancelled by user"
	if err := s.jobs.Update(ctx, job); err != nil {
		return nil, err
	}
	delete(s.reads, id)
	return job, nil
}

func (s *JobService) advanceLocked(ctx context.Context, job *domain.Job) error {
	if job.State.IsTerminal() {
		return nil
	}

	s.reads[job.ID]++
	now := time.Now().UTC()

	switch job.State {
	case domain.JobStateQueued:
		if s.reads[job.ID] < s.sim.ReadsPerState {
			return nil
		}
		s.reads[job.ID] = 0
		if err := job.TransitionTo(domain.JobStateRunning, now); err != nil {
			return err
		}
		job.Message = "training"

	case domain.JobStateRunning:
		done := s.reads[job.ID]
		job.Progress = 100 * float64(done) / float64(s.sim.ReadsPerState)
		job.UpdatedAt = now
		if done < s.sim.ReadsPerState {
			break
		}
		job.Progress = 100
		delete(s.reads, job.ID)
		if err := s.finish(ctx, job, now); err != nil {
			return err
		}
	}

	return s.jobs.Update(ctx, job)
}

func (s *JobService) finish(ctx context.Context, job *domain.Job, now time.Time) error {
	project, err := s.projects.GetByID(ctx, job.ProjectID)
	if err != nil {
		return err
	}
	if project.Parameters[ParamSimulateFailure] == "true" {
		job.Message = "training diverged"
		return job.TransitionTo(domain.JobStateFailed, now)
	}

	task, _ := project.TaskByID(job.TaskID)
	model := &domain.Model{
		ID:           uuid.NewString(),
		ProjectID:    job.ProjectID,
		TaskID:       job.TaskID,
		JobID:        job.ID,
		Architecture: domain.DefaultArchitecture[task.Type],
		Score:        0.85,
		Deployable:   true,
		CreatedAt:    now,
	}
	model.Name = fmt.Sprintf("%s %s", task.Title, model.Architecture)

	artifact, err := buildModelArtifact(model)
	if err != nil {
		return fmt.Errorf("build model artifact: %w", err)
	}
	model.ArtifactSize = int64(len(artifact))
	if err := s.models.Create(ctx, model, artifact); err != nil {
		return err
	}

	job.ModelID = model.ID
	job.Message = "training completed"
	log.WithFields(log.Fields{"job_id": job.ID, "model_id": model.ID}).Info("training job succeeded")
	return job.TransitionTo(domain.JobStateSucceeded, now)
}

// buildModelArtifact packs a placeholder model export: its config and weights.
func buildModelArtifact(m *domain.Model) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	cfg, err := json.MarshalIndent(map[string]any{
		"model_id":     m.ID,
		"task_id":      m.TaskID,
		"architecture": m.Architecture,
		"score":        m.Score,
	}, "", "  ")
	if err != nil {
		return nil, err
	}
	files := map[string][]byte{
		"config.json": cfg,
		"weights.bin": bytes.Repeat([]byte{0x2a}, 256),
	}
	for _, name := range []string{"config.json", "weights.bin"} {
		w, err := zw.Create(name)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(files[name]); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
