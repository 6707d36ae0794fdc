package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vision-platform-client/internal/adapters/secondary/memory"
	"vision-platform-client/internal/core/domain"
)

type jobFixture struct {
	jobs        *JobService
	models      *ModelService
	project     *domain.Project
	annotations *AnnotationService
	media       *MediaService
}

func newJobFixture(t *testing.T, readsPerState int, params map[string]string) *jobFixture {
	t.Helper()
	store := memory.NewStore()
	projects := memory.NewProjectRepository(store)
	media := memory.NewMediaRepository(store)
	annotations := memory.NewAnnotationRepository(store)
	jobs := memory.NewJobRepository(store)
	models := memory.NewModelRepository(store)

	f := &jobFixture{
		jobs:        NewJobService(projects, annotations, jobs, models, TrainingSimulation{ReadsPerState: readsPerState}),
		models:      NewModelService(projects, models),
		annotations: NewAnnotationService(projects, media, annotations),
		media:       NewMediaService(projects, media),
	}

	project, err := NewProjectService(projects).Create(context.Background(), domain.ProjectSpec{
		Name: "jobs",
		Tasks: []domain.Task{
			{Title: "Detection", Type: domain.TaskTypeDetection, Labels: []domain.Label{{Name: "card"}}},
			{Title: "Crop", Type: domain.TaskTypeCrop},
		},
		Parameters: params,
	})
	require.NoError(t, err)
	f.project = project
	return f
}

func (f *jobFixture) annotateOne(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	img, err := f.media.Upload(ctx, f.project.ID, domain.MediaUpload{Name: "a.jpg", Data: []byte("img")})
	require.NoError(t, err)
	_, err = f.annotations.Create(ctx, f.project.ID, img.ID, &domain.Annotation{
		Shapes: []domain.AnnotatedShape{{
			Shape:  domain.Shape{Type: domain.ShapeRectangle, Width: 0.5, Height: 0.5},
			Labels: []domain.ScoredLabel{{ID: f.project.Tasks[0].Labels[0].ID}},
		}},
	})
	require.NoError(t, err)
}

func TestJobService_Submit_Validation(t *testing.T) {
	f := newJobFixture(t, 1, nil)
	ctx := context.Background()

	_, err := f.jobs.Submit(ctx, f.project.ID, f.project.Tasks[0].ID)
	assert.ErrorIs(t, err, domain.ErrNoTrainingData)

	f.annotateOne(t)
	_, err = f.jobs.Submit(ctx, f.project.ID, f.project.Tasks[1].ID)
	assert.ErrorIs(t, err, domain.ErrTaskNotTrainable)

	_, err = f.jobs.Submit(ctx, f.project.ID, "missing")
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)

	_, err = f.jobs.Submit(ctx, "missing", f.project.Tasks[0].ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestJobService_Get_AdvancesMonotonically(t *testing.T) {
	f := newJobFixture(t, 2, nil)
	f.annotateOne(t)
	ctx := context.Background()

	job, err := f.jobs.Submit(ctx, f.project.ID, f.project.Tasks[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStateQueued, job.State)

	var states []domain.JobState
	for i := 0; i < 6; i++ {
		j, err := f.jobs.Get(ctx, job.ID)
		require.NoError(t, err)
		states = append(states, j.State)
	}
	assert.Equal(t, []domain.JobState{
		domain.JobStateQueued,
		domain.JobStateRunning,
		domain.JobStateRunning,
		domain.JobStateSucceeded,
		domain.JobStateSucceeded,
		domain.JobStateSucceeded,
	}, states)

	done, err := f.jobs.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(100), done.Progress)
	require.NotEmpty(t, done.ModelID)

	model, artifact, err := f.models.Artifact(ctx, f.project.ID, done.ModelID)
	require.NoError(t, err)
	assert.True(t, model.Deployable)
	assert.Equal(t, job.ID, model.JobID)
	assert.Equal(t, int64(len(artifact)), model.ArtifactSize)

	_, err = f.jobs.Cancel(ctx, job.ID)
	assert.ErrorIs(t, err, domain.ErrJobAlreadyTerminal)
}

func TestJobService_SimulatedFailure(t *testing.T) {
	f := newJobFixture(t, 1, map[string]string{ParamSimulateFailure: "true"})
	f.annotateOne(t)
	ctx := context.Background()

	job, err := f.jobs.Submit(ctx, f.project.ID, f.project.Tasks[0].ID)
	require.NoError(t, err)

	_, err = f.jobs.Get(ctx, job.ID)
	require.NoError(t, err)
	failed, err := f.jobs.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStateFailed, failed.State)
	assert.Empty(t, failed.ModelID)

	models, err := f.models.List(ctx, f.project.ID)
	require.NoError(t, err)
	assert.Empty(t, models)
}

func TestJobService_Cancel(t *testing.T) {
	f := newJobFixture(t, 3, nil)
	f.annotateOne(t)
	ctx := context.Background()

	job, err := f.jobs.Submit(ctx, f.project.ID, f.project.Tasks[0].ID)
	require.NoError(t, err)

	cancelled, err := f.jobs.Cancel(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStateCancelled, cancelled.State)

	// a cancelled job never moves again
	again, err := f.jobs.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStateCancelled, again.State)

	list, err := f.jobs.List(ctx, domain.JobFilter{ProjectID: f.project.ID, State: domain.JobStateCancelled})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
