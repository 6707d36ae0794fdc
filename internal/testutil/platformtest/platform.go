// Package platformtest runs the reference platform in-process for tests.
package platformtest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	testclock "k8s.io/utils/clock/testing"

	"vision-platform-client/internal/adapters/primary/http/handlers"
	"vision-platform-client/internal/adapters/secondary/auth"
	"vision-platform-client/internal/adapters/secondary/memory"
	"vision-platform-client/internal/adapters/secondary/platform"
	"vision-platform-client/internal/core/services"
)

const (
	Username = "alice"
	Password = "secret"
	PAT      = "pat-alice"
)

type Options struct {
	AccessTokenTTL time.Duration
	ReadsPerState  int
	// Wrap decorates the router, e.g. to inject faults.
	Wrap func(http.Handler) http.Handler
}

// Platform is a running reference platform backed by a memory store.
type Platform struct {
	Server *httptest.Server
	Store  *memory.Store
	// Clock drives token expiry on the server side.
	Clock *testclock.FakePassiveClock

	Projects    *services.ProjectService
	Media       *services.MediaService
	Annotations *services.AnnotationService
	Jobs        *services.JobService
	Models      *services.ModelService
	Tokens      *services.TokenService
}

func New(t testing.TB, opts Options) *Platform {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	projectRepo := memory.NewProjectRepository(store)
	mediaRepo := memory.NewMediaRepository(store)
	annotationRepo := memory.NewAnnotationRepository(store)
	jobRepo := memory.NewJobRepository(store)
	modelRepo := memory.NewModelRepository(store)

	clk := testclock.NewFakePassiveClock(time.Now())
	p := &Platform{
		Store:       store,
		Clock:       clk,
		Projects:    services.NewProjectService(projectRepo),
		Media:       services.NewMediaService(projectRepo, mediaRepo),
		Annotations: services.NewAnnotationService(projectRepo, mediaRepo, annotationRepo),
		Jobs: services.NewJobService(projectRepo, annotationRepo, jobRepo, modelRepo,
			services.TrainingSimulation{ReadsPerState: opts.ReadsPerState}),
		Models: services.NewModelService(projectRepo, modelRepo),
		Tokens: services.NewTokenService(services.TokenConfig{
			Secret:         "platformtest-secret",
			Issuer:         "platformtest",
			AccessTokenTTL: opts.AccessTokenTTL,
			Users:          map[string]string{Username: Password},
			AccessTokens:   map[string]string{PAT: Username},
		}, clk),
	}

	h := handlers.New(p.Projects, p.Media, p.Annotations, p.Jobs, p.Models, p.Tokens)
	var router http.Handler = handlers.NewRouter(h, nil)
	if opts.Wrap != nil {
		router = opts.Wrap(router)
	}

	p.Server = httptest.NewServer(router)
	t.Cleanup(p.Server.Close)
	return p
}

func (p *Platform) URL() string {
	return p.Server.URL
}

// Session logs in with the test user.
func (p *Platform) Session(t testing.TB) *auth.Session {
	t.Helper()
	m := auth.NewManager(auth.Config{BaseURL: p.URL(), Timeout: 10 * time.Second})
	s, err := m.Acquire(context.Background(), auth.Credentials{Username: Username, Password: Password})
	require.NoError(t, err)
	return s
}

// Client returns a resource client authenticated as the test user.
func (p *Platform) Client(t testing.TB) *platform.Client {
	t.Helper()
	return platform.NewClient(platform.Config{BaseURL: p.URL(), Timeout: 10 * time.Second}, p.Session(t))
}
