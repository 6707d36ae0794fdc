package platform_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vision-platform-client/internal/adapters/secondary/platform"
	"vision-platform-client/internal/core/domain"
	"vision-platform-client/internal/testutil/platformtest"
)

// recorder captures every request that reaches the platform.
type recorder struct {
	mu       sync.Mutex
	requests []recorded
}

type recorded struct {
	method string
	path   string
	auth   string
}

func (r *recorder) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.mu.Lock()
		r.requests = append(r.requests, recorded{req.Method, req.URL.Path, req.Header.Get("Authorization")})
		r.mu.Unlock()
		next.ServeHTTP(w, req)
	})
}

func (r *recorder) resourceCalls() []recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []recorded
	for _, req := range r.requests {
		if !strings.HasSuffix(req.path, "/auth/token") {
			out = append(out, req)
		}
	}
	return out
}

func (r *recorder) tokenCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, req := range r.requests {
		if strings.HasSuffix(req.path, "/auth/token") {
			n++
		}
	}
	return n
}

func detectionSpec(name string) domain.ProjectSpec {
	return domain.ProjectSpec{
		Name: name,
		Tasks: []domain.Task{{
			Title:  "Detection",
			Type:   domain.TaskTypeDetection,
			Labels: []domain.Label{{Name: "card"}, {Name: "coin"}},
		}},
	}
}

func boxAnnotation(labelID string) *domain.Annotation {
	return &domain.Annotation{
		Shapes: []domain.AnnotatedShape{{
			Shape:  domain.Shape{Type: domain.ShapeRectangle, X: 1, Y: 2, Width: 10, Height: 20},
			Labels: []domain.ScoredLabel{{ID: labelID, Probability: 1}},
		}},
	}
}

type staticToken string

func (s staticToken) Token(context.Context) (string, error) { return string(s), nil }
func (s staticToken) Refresh(context.Context, string) (string, error) {
	return string(s), nil
}

func TestClient_AttachesSessionToken(t *testing.T) {
	rec := &recorder{}
	p := platformtest.New(t, platformtest.Options{Wrap: rec.wrap})
	c := p.Client(t)
	ctx := context.Background()

	project, err := c.CreateProject(ctx, detectionSpec("cards"))
	require.NoError(t, err)
	_, err = c.UploadImage(ctx, project.ID, domain.MediaUpload{Name: "a.jpg", Data: []byte("jpeg")})
	require.NoError(t, err)
	_, err = c.ListProjects(ctx)
	require.NoError(t, err)

	calls := rec.resourceCalls()
	require.Len(t, calls, 3)
	for _, call := range calls {
		assert.True(t, strings.HasPrefix(call.auth, "Bearer "), "%s %s sent without token", call.method, call.path)
	}
}

func TestClient_ExpiredTokenRefreshesOnce(t *testing.T) {
	rec := &recorder{}
	p := platformtest.New(t, platformtest.Options{AccessTokenTTL: time.Minute, Wrap: rec.wrap})
	c := p.Client(t)
	require.Equal(t, 1, rec.tokenCalls())

	// the server now considers the issued token expired
	p.Clock.SetTime(p.Clock.Now().Add(2 * time.Minute))

	_, err := c.ListProjects(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, rec.tokenCalls())
	assert.Len(t, rec.resourceCalls(), 2)
}

func TestClient_InvalidToken(t *testing.T) {
	p := platformtest.New(t, platformtest.Options{})
	c := platform.NewClient(platform.Config{BaseURL: p.URL()}, staticToken("not-a-jwt"))

	_, err := c.ListProjects(context.Background())
	assert.ErrorIs(t, err, domain.ErrAuth)
	assert.False(t, domain.IsRetryable(err))
}

func TestClient_ValidationBeforeDispatch(t *testing.T) {
	rec := &recorder{}
	p := platformtest.New(t, platformtest.Options{Wrap: rec.wrap})
	c := p.Client(t)
	ctx := context.Background()

	_, err := c.GetProject(ctx, "")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = c.CreateProject(ctx, domain.ProjectSpec{Name: "no tasks"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	var rerr *domain.RemoteError
	require.True(t, errors.As(err, &rerr))
	assert.NotNil(t, rerr.Payload)

	_, err = c.UploadImage(ctx, "p1", domain.MediaUpload{Name: "empty.jpg"})
	assert.ErrorIs(t, err, domain.ErrEmptyMedia)

	_, err = c.SubmitTraining(ctx, "p1", " ")
	assert.ErrorIs(t, err, domain.ErrValidation)

	assert.Empty(t, rec.resourceCalls())
}

func TestClient_StatusMapping(t *testing.T) {
	p := platformtest.New(t, platformtest.Options{})
	c := p.Client(t)
	ctx := context.Background()

	_, err := c.GetProject(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = c.CreateProject(ctx, detectionSpec("dup"))
	require.NoError(t, err)
	spec := detectionSpec("dup")
	_, err = c.CreateProject(ctx, spec)
	assert.ErrorIs(t, err, domain.ErrValidation)

	var rerr *domain.RemoteError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, http.StatusConflict, rerr.StatusCode)
	assert.NotEmpty(t, rerr.Message)
	assert.NotNil(t, rerr.Payload)
}

func TestClient_ServerErrorIsNetwork(t *testing.T) {
	unavailable := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasSuffix(r.URL.Path, "/auth/token") {
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, `{"access_token":"t","token_type":"Bearer","expires_in":600}`)
				return
			}
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	p := platformtest.New(t, platformtest.Options{Wrap: unavailable})
	c := p.Client(t)

	_, err := c.ListJobs(context.Background(), domain.JobFilter{})
	assert.ErrorIs(t, err, domain.ErrNetwork)
	assert.True(t, domain.IsRetryable(err))
}

func TestClient_MediaPagination(t *testing.T) {
	p := platformtest.New(t, platformtest.Options{})
	c := platform.NewClient(platform.Config{BaseURL: p.URL(), PageSize: 2}, p.Session(t))
	ctx := context.Background()

	project, err := c.CreateProject(ctx, detectionSpec("paged"))
	require.NoError(t, err)

	var want []string
	for i := 0; i < 5; i++ {
		img, err := c.UploadImage(ctx, project.ID, domain.MediaUpload{
			Name: fmt.Sprintf("img%d.png", i),
			Data: []byte(fmt.Sprintf("payload-%d", i)),
		})
		require.NoError(t, err)
		want = append(want, img.ID)
	}

	images, err := c.ListImages(ctx, project.ID)
	require.NoError(t, err)
	got := make([]string, 0, len(images))
	for _, img := range images {
		got = append(got, img.ID)
	}
	assert.Equal(t, want, got)
}

func TestClient_MediaRoundTrip(t *testing.T) {
	p := platformtest.New(t, platformtest.Options{})
	c := p.Client(t)
	ctx := context.Background()

	project, err := c.CreateProject(ctx, detectionSpec("roundtrip"))
	require.NoError(t, err)

	payload := []byte("\x89PNG fake image bytes")
	img, err := c.UploadImage(ctx, project.ID, domain.MediaUpload{Name: "dir/photo.png", Data: payload})
	require.NoError(t, err)
	assert.Equal(t, "photo.png", img.Name)
	assert.Equal(t, domain.ContentHash(payload), img.ContentHash)

	var buf bytes.Buffer
	n, err := c.DownloadImage(ctx, project.ID, img.ID, &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), n)
	assert.Equal(t, payload, buf.Bytes())

	require.NoError(t, c.DeleteImage(ctx, project.ID, img.ID))
	_, err = c.GetImage(ctx, project.ID, img.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestClient_Annotations(t *testing.T) {
	p := platformtest.New(t, platformtest.Options{})
	c := p.Client(t)
	ctx := context.Background()

	project, err := c.CreateProject(ctx, detectionSpec("annotated"))
	require.NoError(t, err)
	img, err := c.UploadImage(ctx, project.ID, domain.MediaUpload{Name: "a.jpg", Data: []byte("a")})
	require.NoError(t, err)

	latest, err := c.GetLatestAnnotation(ctx, project.ID, img.ID)
	require.NoError(t, err)
	assert.Nil(t, latest)

	labelID := project.Tasks[0].Labels[0].ID
	created, err := c.CreateAnnotation(ctx, project.ID, img.ID, boxAnnotation(labelID))
	require.NoError(t, err)
	assert.Equal(t, img.ID, created.MediaID)
	assert.Equal(t, project.LabelSchemaVersion, created.LabelSchemaVersion)

	latest, err = c.GetLatestAnnotation(ctx, project.ID, img.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, created.ID, latest.ID)

	_, err = c.CreateAnnotation(ctx, project.ID, img.ID, boxAnnotation("no-such-label"))
	assert.ErrorIs(t, err, domain.ErrValidation)

	require.NoError(t, c.DeleteAnnotation(ctx, project.ID, created.ID))
	_, err = c.GetAnnotation(ctx, project.ID, created.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestClient_TrainingLifecycle(t *testing.T) {
	p := platformtest.New(t, platformtest.Options{ReadsPerState: 1})
	c := p.Client(t)
	ctx := context.Background()

	project, err := c.CreateProject(ctx, detectionSpec("trained"))
	require.NoError(t, err)
	taskID := project.Tasks[0].ID

	_, err = c.SubmitTraining(ctx, project.ID, taskID)
	assert.ErrorIs(t, err, domain.ErrValidation, "no annotated media yet")

	img, err := c.UploadImage(ctx, project.ID, domain.MediaUpload{Name: "a.jpg", Data: []byte("a")})
	require.NoError(t, err)
	_, err = c.CreateAnnotation(ctx, project.ID, img.ID, boxAnnotation(project.Tasks[0].Labels[0].ID))
	require.NoError(t, err)

	job, err := c.SubmitTraining(ctx, project.ID, taskID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStateQueued, job.State)

	for i := 0; i < 5 && !job.State.IsTerminal(); i++ {
		job, err = c.GetJob(ctx, job.ID)
		require.NoError(t, err)
	}
	require.Equal(t, domain.JobStateSucceeded, job.State)
	require.NotEmpty(t, job.ModelID)

	model, err := c.GetModel(ctx, project.ID, job.ModelID)
	require.NoError(t, err)
	assert.True(t, model.Deployable)

	var buf bytes.Buffer
	n, err := c.DownloadModelArtifact(ctx, project.ID, model.ID, &buf)
	require.NoError(t, err)
	assert.Equal(t, model.ArtifactSize, n)

	jobs, err := c.ListJobs(ctx, domain.JobFilter{ProjectID: project.ID, State: domain.JobStateSucceeded})
	require.NoError(t, err)
	assert.Len(t, jobs, 1)

	// cancelling a finished job is refused
	assert.ErrorIs(t, c.CancelJob(ctx, job.ID), domain.ErrValidation)
}

func TestClient_ProjectLifecycle(t *testing.T) {
	p := platformtest.New(t, platformtest.Options{})
	c := p.Client(t)
	ctx := context.Background()

	project, err := c.CreateProject(ctx, detectionSpec("lifecycle"))
	require.NoError(t, err)
	task := project.Tasks[0]
	cardID := task.Labels[0].ID

	renamed := "renamed"
	updated, err := c.UpdateProject(ctx, project.ID, domain.ProjectUpdate{
		Name:       &renamed,
		Parameters: map[string]string{"epochs": "3"},
		Labels:     map[string][]domain.Label{task.ID: {{Name: "card"}, {Name: "note"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Name)
	assert.Equal(t, "3", updated.Parameters["epochs"])
	assert.Greater(t, updated.LabelSchemaVersion, project.LabelSchemaVersion)
	require.Len(t, updated.Tasks[0].Labels, 2)
	assert.Equal(t, cardID, updated.Tasks[0].Labels[0].ID, "existing label keeps its ID")

	projects, err := c.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, project.ID, projects[0].ID)

	require.NoError(t, c.DeleteProject(ctx, project.ID))
	_, err = c.GetProject(ctx, project.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestClient_ModelLifecycle(t *testing.T) {
	p := platformtest.New(t, platformtest.Options{ReadsPerState: 1})
	c := p.Client(t)
	ctx := context.Background()

	project, err := c.CreateProject(ctx, detectionSpec("models"))
	require.NoError(t, err)
	img, err := c.UploadImage(ctx, project.ID, domain.MediaUpload{Name: "a.jpg", Data: []byte("a")})
	require.NoError(t, err)
	_, err = c.CreateAnnotation(ctx, project.ID, img.ID, boxAnnotation(project.Tasks[0].Labels[0].ID))
	require.NoError(t, err)

	job, err := c.SubmitTraining(ctx, project.ID, project.Tasks[0].ID)
	require.NoError(t, err)
	for i := 0; i < 5 && !job.State.IsTerminal(); i++ {
		job, err = c.GetJob(ctx, job.ID)
		require.NoError(t, err)
	}
	require.Equal(t, domain.JobStateSucceeded, job.State)

	models, err := c.ListModels(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, job.ModelID, models[0].ID)

	name := "card-detector"
	model, err := c.UpdateModel(ctx, project.ID, job.ModelID, domain.ModelUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "card-detector", model.Name)

	require.NoError(t, c.DeleteModel(ctx, project.ID, job.ModelID))
	_, err = c.GetModel(ctx, project.ID, job.ModelID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
