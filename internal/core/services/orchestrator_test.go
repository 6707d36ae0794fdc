package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	testclock "k8s.io/utils/clock/testing"

	"vision-platform-client/internal/core/domain"
	"vision-platform-client/internal/testutil"
)

// stepSleeper advances a fake clock instead of waiting.
type stepSleeper struct {
	clock *testclock.FakeClock
	slept []time.Duration
}

func (s *stepSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.slept = append(s.slept, d)
	s.clock.Step(d)
	return nil
}

func newTestOrchestrator(client *testutil.MockPlatformClient, opts ...Option) (*Orchestrator, *stepSleeper) {
	fc := testclock.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	sleeper := &stepSleeper{clock: fc}
	base := []Option{
		WithClock(fc),
		WithSleeper(sleeper),
		WithRetryPolicy(RetryPolicy{MaxAttempts: 4, InitialBackoff: time.Second, Factor: 2, MaxBackoff: 10 * time.Second}),
	}
	return NewOrchestrator(client, append(base, opts...)...), sleeper
}

func networkErr(op string) error {
	return &domain.RemoteError{Kind: domain.ErrNetwork, Op: op, StatusCode: 503}
}

func validationErr(op string) error {
	return &domain.RemoteError{Kind: domain.ErrValidation, Op: op, StatusCode: 422}
}

func testProject() *domain.Project {
	return &domain.Project{
		ID:                 "p1",
		Name:               "cards",
		LabelSchemaVersion: 1,
		Tasks: []domain.Task{{
			ID:    "t1",
			Title: "Detection",
			Type:  domain.TaskTypeDetection,
			Labels: []domain.Label{
				{ID: "l-card", Name: "card"},
				{ID: "l-coin", Name: "coin"},
			},
		}},
	}
}

func box(labels ...string) []LabeledShape {
	return []LabeledShape{{
		Shape:  domain.Shape{Type: domain.ShapeRectangle, X: 0.1, Y: 0.1, Width: 0.5, Height: 0.5},
		Labels: labels,
	}}
}

func uploadNamed(name string) interface{} {
	return mock.MatchedBy(func(u domain.MediaUpload) bool { return u.Name == name })
}

// ============================================================================
// Dataset
// ============================================================================

func TestOrchestrator_CreateProjectFromDataset(t *testing.T) {
	client := new(testutil.MockPlatformClient)
	o, _ := newTestOrchestrator(client)
	ctx := context.Background()

	client.On("CreateProject", mock.Anything, mock.Anything).Return(testProject(), nil)

	client.On("UploadImage", mock.Anything, "p1", uploadNamed("ok.jpg")).
		Return(&domain.Image{ID: "m1", Name: "ok.jpg"}, nil)
	client.On("CreateAnnotation", mock.Anything, "p1", "m1", mock.Anything).
		Return(&domain.Annotation{ID: "a1", MediaID: "m1"}, nil)

	client.On("UploadImage", mock.Anything, "p1", uploadNamed("refused.jpg")).
		Return(nil, validationErr("media.upload"))

	client.On("UploadImage", mock.Anything, "p1", uploadNamed("bad-ann.jpg")).
		Return(&domain.Image{ID: "m3", Name: "bad-ann.jpg"}, nil)
	client.On("CreateAnnotation", mock.Anything, "p1", "m3", mock.Anything).
		Return(nil, validationErr("annotation.create"))
	client.On("DeleteImage", mock.Anything, "p1", "m3").Return(nil)

	client.On("UploadImage", mock.Anything, "p1", uploadNamed("plain.jpg")).
		Return(&domain.Image{ID: "m5", Name: "plain.jpg"}, nil)

	var events []ProgressEvent
	o.progress = func(ev ProgressEvent) { events = append(events, ev) }

	res, err := o.CreateProjectFromDataset(ctx, DatasetRequest{
		Project: domain.ProjectSpec{Name: "cards"},
		Items: []DatasetItem{
			{Name: "ok.jpg", Data: []byte("1"), Shapes: box("Card")},
			{Name: "refused.jpg", Data: []byte("2"), Shapes: box("card")},
			{Name: "bad-ann.jpg", Data: []byte("3"), Shapes: box("coin")},
			{Name: "unknown.jpg", Data: []byte("4"), Shapes: box("banknote")},
			{Name: "plain.jpg", Data: []byte("5")},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "p1", res.Project.ID)
	require.Len(t, res.Succeeded, 2)
	assert.Equal(t, "m1", res.Succeeded[0].Media.ID)
	assert.Equal(t, "a1", res.Succeeded[0].Annotation.ID)
	assert.Nil(t, res.Succeeded[1].Annotation)

	require.Len(t, res.Failures, 3)
	assert.Equal(t, 1, res.Failures[0].Index)
	assert.Equal(t, StageMedia, res.Failures[0].Stage)
	assert.Equal(t, 2, res.Failures[1].Index)
	assert.Equal(t, StageAnnotation, res.Failures[1].Stage)
	assert.False(t, res.Failures[1].Orphaned)
	assert.Equal(t, 3, res.Failures[2].Index)
	assert.ErrorIs(t, res.Failures[2], domain.ErrUnknownLabel)

	assert.Len(t, events, 5)
	assert.Equal(t, 5, events[4].Done)

	client.AssertNotCalled(t, "UploadImage", mock.Anything, "p1", uploadNamed("unknown.jpg"))
	client.AssertExpectations(t)
}

func TestOrchestrator_CreateProjectFromDataset_ProjectFails(t *testing.T) {
	client := new(testutil.MockPlatformClient)
	o, _ := newTestOrchestrator(client)

	client.On("CreateProject", mock.Anything, mock.Anything).Return(nil, validationErr("project.create"))

	res, err := o.CreateProjectFromDataset(context.Background(), DatasetRequest{
		Project: domain.ProjectSpec{Name: "cards"},
		Items:   []DatasetItem{{Name: "a.jpg", Data: []byte("1")}},
	})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, domain.ErrValidation)
	client.AssertNotCalled(t, "UploadImage", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrchestrator_CreateProjectFromDataset_Orphaned(t *testing.T) {
	client := new(testutil.MockPlatformClient)
	o, _ := newTestOrchestrator(client)

	client.On("CreateProject", mock.Anything, mock.Anything).Return(testProject(), nil)
	client.On("UploadImage", mock.Anything, "p1", mock.Anything).Return(&domain.Image{ID: "m1"}, nil)
	client.On("CreateAnnotation", mock.Anything, "p1", "m1", mock.Anything).Return(nil, validationErr("annotation.create"))
	client.On("DeleteImage", mock.Anything, "p1", "m1").Return(networkErr("media.delete"))

	res, err := o.CreateProjectFromDataset(context.Background(), DatasetRequest{
		Items: []DatasetItem{{Name: "a.jpg", Data: []byte("1"), Shapes: box("card")}},
	})
	require.NoError(t, err)
	require.Len(t, res.Failures, 1)
	assert.True(t, res.Failures[0].Orphaned)
	assert.Contains(t, res.Failures[0].Error(), "media left behind")
	client.AssertNumberOfCalls(t, "DeleteImage", 4)
}

func TestOrchestrator_CreateProjectFromDataset_Cancelled(t *testing.T) {
	client := new(testutil.MockPlatformClient)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	o, _ := newTestOrchestrator(client, WithProgress(func(ProgressEvent) { cancel() }))

	client.On("CreateProject", mock.Anything, mock.Anything).Return(testProject(), nil)
	client.On("UploadImage", mock.Anything, "p1", mock.Anything).Return(&domain.Image{ID: "m1"}, nil)

	res, err := o.CreateProjectFromDataset(ctx, DatasetRequest{
		Items: []DatasetItem{
			{Name: "a.jpg", Data: []byte("1")},
			{Name: "b.jpg", Data: []byte("2")},
		},
	})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Len(t, res.Succeeded, 1)
	client.AssertNumberOfCalls(t, "UploadImage", 1)
}

// ============================================================================
// Retry
// ============================================================================

func TestOrchestrator_RetryTransient(t *testing.T) {
	client := new(testutil.MockPlatformClient)
	o, sleeper := newTestOrchestrator(client)

	client.On("CreateProject", mock.Anything, mock.Anything).Return(testProject(), nil)
	client.On("UploadImage", mock.Anything, "p1", mock.Anything).Return(nil, networkErr("media.upload")).Twice()
	client.On("UploadImage", mock.Anything, "p1", mock.Anything).Return(&domain.Image{ID: "m1"}, nil).Once()

	res, err := o.CreateProjectFromDataset(context.Background(), DatasetRequest{
		Items: []DatasetItem{{Name: "a.jpg", Data: []byte("1")}},
	})
	require.NoError(t, err)
	assert.Len(t, res.Succeeded, 1)
	assert.Empty(t, res.Failures)
	assert.Len(t, sleeper.slept, 2)
	assert.Equal(t, time.Second, sleeper.slept[0])
	assert.Equal(t, 2*time.Second, sleeper.slept[1])
}

func TestOrchestrator_RetryExhausted(t *testing.T) {
	client := new(testutil.MockPlatformClient)
	o, sleeper := newTestOrchestrator(client)

	client.On("CreateProject", mock.Anything, mock.Anything).Return(testProject(), nil)
	client.On("UploadImage", mock.Anything, "p1", mock.Anything).Return(nil, networkErr("media.upload"))

	res, err := o.CreateProjectFromDataset(context.Background(), DatasetRequest{
		Items: []DatasetItem{{Name: "a.jpg", Data: []byte("1")}},
	})
	require.NoError(t, err)
	require.Len(t, res.Failures, 1)
	assert.ErrorIs(t, res.Failures[0], domain.ErrNetwork)
	client.AssertNumberOfCalls(t, "UploadImage", 4)
	assert.Len(t, sleeper.slept, 3)
}

func TestOrchestrator_NoRetryOnValidation(t *testing.T) {
	client := new(testutil.MockPlatformClient)
	o, sleeper := newTestOrchestrator(client)

	client.On("SubmitTraining", mock.Anything, "p1", "t1").Return(nil, validationErr("job.submit"))

	res, err := o.TrainAndMonitor(context.Background(), TrainRequest{ProjectID: "p1", TaskID: "t1"})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Empty(t, sleeper.slept)
	client.AssertNumberOfCalls(t, "SubmitTraining", 1)
	client.AssertNotCalled(t, "GetJob", mock.Anything, mock.Anything)
}

// ============================================================================
// Monitoring
// ============================================================================

func job(state domain.JobState, progress float64) *domain.Job {
	return &domain.Job{ID: "j1", ProjectID: "p1", TaskID: "t1", State: state, Progress: progress}
}

func TestOrchestrator_TrainAndMonitor(t *testing.T) {
	client := new(testutil.MockPlatformClient)
	o, sleeper := newTestOrchestrator(client)

	client.On("SubmitTraining", mock.Anything, "p1", "t1").Return(job(domain.JobStateQueued, 0), nil)
	client.On("GetJob", mock.Anything, "j1").Return(job(domain.JobStateQueued, 0), nil).Once()
	client.On("GetJob", mock.Anything, "j1").Return(nil, networkErr("job.get")).Once()
	client.On("GetJob", mock.Anything, "j1").Return(job(domain.JobStateRunning, 50), nil).Once()
	client.On("GetJob", mock.Anything, "j1").Return(job(domain.JobStateSucceeded, 100), nil).Once()

	res, err := o.TrainAndMonitor(context.Background(), TrainRequest{
		ProjectID: "p1",
		TaskID:    "t1",
		Monitor:   MonitorOptions{Interval: 10 * time.Second, Timeout: time.Hour},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.JobStateSucceeded, res.LastKnown.State)
	assert.Equal(t, 3, res.Polls)
	assert.False(t, res.TimedOut)
	assert.NoError(t, res.Err())
	// two poll intervals plus one retry backoff
	assert.Equal(t, []time.Duration{10 * time.Second, time.Second, 10 * time.Second}, sleeper.slept)
}

func TestOrchestrator_MonitorJob_TimeoutIsSoft(t *testing.T) {
	client := new(testutil.MockPlatformClient)
	o, sleeper := newTestOrchestrator(client)

	client.On("GetJob", mock.Anything, "j1").Return(job(domain.JobStateRunning, 10), nil)

	res, err := o.MonitorJob(context.Background(), "j1", MonitorOptions{
		Interval: 10 * time.Second,
		Timeout:  25 * time.Second,
	})
	require.NoError(t, err)
	assert.True(t, res.TimedOut)
	assert.Equal(t, domain.JobStateRunning, res.LastKnown.State)
	assert.Equal(t, 4, res.Polls)
	assert.Equal(t, []time.Duration{10 * time.Second, 10 * time.Second, 5 * time.Second}, sleeper.slept)
	assert.ErrorIs(t, res.Err(), domain.ErrTimeout)

	// the remote job is left alone
	client.AssertNotCalled(t, "CancelJob", mock.Anything, mock.Anything)
}

func TestOrchestrator_MonitorJob_FailOnTimeout(t *testing.T) {
	client := new(testutil.MockPlatformClient)
	o, _ := newTestOrchestrator(client)

	client.On("GetJob", mock.Anything, "j1").Return(job(domain.JobStateQueued, 0), nil)

	res, err := o.MonitorJob(context.Background(), "j1", MonitorOptions{
		Interval:      time.Second,
		Timeout:       3 * time.Second,
		FailOnTimeout: true,
	})
	assert.ErrorIs(t, err, domain.ErrTimeout)
	require.NotNil(t, res)
	assert.True(t, res.TimedOut)
}

func TestOrchestrator_MonitorJob_TerminalStopsPolling(t *testing.T) {
	client := new(testutil.MockPlatformClient)
	o, sleeper := newTestOrchestrator(client)

	client.On("GetJob", mock.Anything, "j1").Return(job(domain.JobStateFailed, 40), nil)

	res, err := o.MonitorJob(context.Background(), "j1", MonitorOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Polls)
	assert.Empty(t, sleeper.slept)
	assert.ErrorIs(t, res.Err(), domain.ErrJobFailed)
}

func TestOrchestrator_MonitorJob_DefaultsFromOptions(t *testing.T) {
	client := new(testutil.MockPlatformClient)
	o, sleeper := newTestOrchestrator(client, WithMonitorOptions(MonitorOptions{Interval: 2 * time.Second, Timeout: 3 * time.Second}))

	client.On("GetJob", mock.Anything, "j1").Return(job(domain.JobStateRunning, 0), nil)

	res, err := o.MonitorJob(context.Background(), "j1", MonitorOptions{})
	require.NoError(t, err)
	assert.True(t, res.TimedOut)
	assert.Equal(t, []time.Duration{2 * time.Second, time.Second}, sleeper.slept)
}

func TestOrchestrator_MonitorJob_FailOnTimeoutFromOptions(t *testing.T) {
	client := new(testutil.MockPlatformClient)
	o, _ := newTestOrchestrator(client, WithMonitorOptions(MonitorOptions{
		Interval:      time.Second,
		Timeout:       2 * time.Second,
		FailOnTimeout: true,
	}))

	client.On("GetJob", mock.Anything, "j1").Return(job(domain.JobStateRunning, 0), nil)

	res, err := o.MonitorJob(context.Background(), "j1", MonitorOptions{})
	assert.ErrorIs(t, err, domain.ErrTimeout)
	require.NotNil(t, res)
	assert.True(t, res.TimedOut)
}

func TestOrchestrator_MonitorJob_RetriesStopAtDeadline(t *testing.T) {
	client := new(testutil.MockPlatformClient)
	o, sleeper := newTestOrchestrator(client)

	client.On("GetJob", mock.Anything, "j1").Return(job(domain.JobStateRunning, 30), nil).Once()
	client.On("GetJob", mock.Anything, "j1").Return(nil, networkErr("job.get"))

	res, err := o.MonitorJob(context.Background(), "j1", MonitorOptions{
		Interval: 10 * time.Second,
		Timeout:  12 * time.Second,
	})
	require.NoError(t, err)
	assert.True(t, res.TimedOut)
	assert.Equal(t, domain.JobStateRunning, res.LastKnown.State)
	assert.Equal(t, 1, res.Polls)
	// backoff of 1s, then 2s cut to the 1s left before the deadline
	assert.Equal(t, []time.Duration{10 * time.Second, time.Second, time.Second}, sleeper.slept)
	client.AssertNumberOfCalls(t, "GetJob", 4)
	assert.ErrorIs(t, res.Err(), domain.ErrTimeout)
}

func TestOrchestrator_MonitorJob_UnreachableBeforeFirstPoll(t *testing.T) {
	client := new(testutil.MockPlatformClient)
	o, sleeper := newTestOrchestrator(client)

	client.On("GetJob", mock.Anything, "j1").Return(nil, networkErr("job.get"))

	res, err := o.MonitorJob(context.Background(), "j1", MonitorOptions{
		Interval: 10 * time.Second,
		Timeout:  2 * time.Second,
	})
	assert.ErrorIs(t, err, domain.ErrNetwork)
	assert.Nil(t, res.LastKnown)
	assert.False(t, res.TimedOut)
	assert.Equal(t, []time.Duration{time.Second, time.Second}, sleeper.slept)
}

func TestOrchestrator_MonitorJob_ContextCancelled(t *testing.T) {
	client := new(testutil.MockPlatformClient)
	o, _ := newTestOrchestrator(client)
	ctx, cancel := context.WithCancel(context.Background())

	client.On("GetJob", mock.Anything, "j1").Run(func(mock.Arguments) { cancel() }).
		Return(job(domain.JobStateRunning, 0), nil)

	res, err := o.MonitorJob(ctx, "j1", MonitorOptions{Interval: time.Second, Timeout: time.Minute})
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, res.Polls)
	assert.False(t, res.TimedOut)
}

// ============================================================================
// Deployment
// ============================================================================

func TestOrchestrator_DeployProject_RejectsTwoModelsForOneTask(t *testing.T) {
	client := new(testutil.MockPlatformClient)
	o, _ := newTestOrchestrator(client, WithWorkDir(t.TempDir()))

	client.On("GetProject", mock.Anything, "p1").Return(testProject(), nil)
	client.On("GetModel", mock.Anything, "p1", "m1").
		Return(&domain.Model{ID: "m1", ProjectID: "p1", TaskID: "t1", JobID: "j1", Deployable: true}, nil)
	client.On("GetModel", mock.Anything, "p1", "m2").
		Return(&domain.Model{ID: "m2", ProjectID: "p1", TaskID: "t1", JobID: "j2", Deployable: true}, nil)

	_, err := o.DeployProject(context.Background(), DeployRequest{ProjectID: "p1", ModelIDs: []string{"m1", "m2"}})
	assert.ErrorIs(t, err, domain.ErrDuplicateTaskModel)
	assert.ErrorIs(t, err, domain.ErrValidation)
	client.AssertNotCalled(t, "DownloadModelArtifact", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOrchestrator_DeployProject_RejectsModelOfUnknownTask(t *testing.T) {
	client := new(testutil.MockPlatformClient)
	o, _ := newTestOrchestrator(client, WithWorkDir(t.TempDir()))

	client.On("GetProject", mock.Anything, "p1").Return(testProject(), nil)
	client.On("GetModel", mock.Anything, "p1", "m1").
		Return(&domain.Model{ID: "m1", ProjectID: "p1", TaskID: "gone", JobID: "j1", Deployable: true}, nil)

	_, err := o.DeployProject(context.Background(), DeployRequest{ProjectID: "p1", ModelIDs: []string{"m1"}})
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}
