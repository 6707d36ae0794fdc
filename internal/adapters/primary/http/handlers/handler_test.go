package handlers_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testclock "k8s.io/utils/clock/testing"

	"vision-platform-client/internal/adapters/primary/http/handlers"
	"vision-platform-client/internal/adapters/secondary/memory"
	"vision-platform-client/internal/core/services"
	"vision-platform-client/internal/dto"
)

type contractEnv struct {
	router *gin.Engine
	clock  *testclock.FakePassiveClock
	token  string
}

// setupRouter wires the full handler stack on a memory store.
func setupRouter(t *testing.T) *contractEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	projectRepo := memory.NewProjectRepository(store)
	mediaRepo := memory.NewMediaRepository(store)
	annotationRepo := memory.NewAnnotationRepository(store)
	jobRepo := memory.NewJobRepository(store)
	modelRepo := memory.NewModelRepository(store)

	clk := testclock.NewFakePassiveClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	tokens := services.NewTokenService(services.TokenConfig{
		Secret:         "contract-secret",
		Issuer:         "contract",
		AccessTokenTTL: time.Minute,
		Users:          map[string]string{"alice": "secret"},
	}, clk)

	h := handlers.New(
		services.NewProjectService(projectRepo),
		services.NewMediaService(projectRepo, mediaRepo),
		services.NewAnnotationService(projectRepo, mediaRepo, annotationRepo),
		services.NewJobService(projectRepo, annotationRepo, jobRepo, modelRepo, services.TrainingSimulation{}),
		services.NewModelService(projectRepo, modelRepo),
		tokens,
	)

	env := &contractEnv{router: handlers.NewRouter(h, nil), clock: clk}
	w := env.do(t, http.MethodPost, "/api/v1/auth/token", "", map[string]string{
		"grant_type": "password", "username": "alice", "password": "secret",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var tok dto.TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tok))
	env.token = tok.AccessToken
	return env
}

func (e *contractEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *contractEnv) upload(t *testing.T, projectID, name string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(dto.MediaFormField, name)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/projects/"+projectID+"/media/images", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+e.token)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func assertFieldString(t *testing.T, resp map[string]interface{}, key string) {
	t.Helper()
	val, ok := resp[key]
	assert.True(t, ok, "response missing field %q", key)
	if ok {
		_, isStr := val.(string)
		assert.True(t, isStr, "field %q should be string, got %T", key, val)
	}
}

func assertFieldNumber(t *testing.T, resp map[string]interface{}, key string) {
	t.Helper()
	val, ok := resp[key]
	assert.True(t, ok, "response missing field %q", key)
	if ok {
		_, isNum := val.(float64)
		assert.True(t, isNum, "field %q should be number, got %T", key, val)
	}
}

var cardsProject = map[string]interface{}{
	"name": "cards",
	"pipeline": map[string]interface{}{
		"tasks": []map[string]interface{}{{
			"title":     "Detection",
			"task_type": "detection",
			"labels":    []map[string]string{{"name": "card"}},
		}},
	},
}

// ---------------------------------------------------------------------------
// Auth
// ---------------------------------------------------------------------------

func TestContract_IssueToken(t *testing.T) {
	env := setupRouter(t)

	w := env.do(t, http.MethodPost, "/api/v1/auth/token", "", map[string]string{
		"grant_type": "password", "username": "alice", "password": "secret",
	})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assertFieldString(t, resp, "access_token")
	assertFieldString(t, resp, "refresh_token")
	assertFieldNumber(t, resp, "expires_in")
	assert.Equal(t, "Bearer", resp["token_type"])
}

func TestContract_IssueTokenRejected(t *testing.T) {
	env := setupRouter(t)

	tests := []struct {
		name string
		body map[string]string
		want int
	}{
		{"wrong password", map[string]string{"grant_type": "password", "username": "alice", "password": "nope"}, http.StatusUnauthorized},
		{"unknown grant", map[string]string{"grant_type": "magic"}, http.StatusBadRequest},
		{"missing grant", map[string]string{}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/v1/auth/token", "", tt.body)
			assert.Equal(t, tt.want, w.Code)
			assertFieldString(t, decode(t, w), "error")
		})
	}
}

func TestContract_RequiresBearerToken(t *testing.T) {
	env := setupRouter(t)

	w := env.do(t, http.MethodGet, "/api/v1/projects", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/projects", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, decode(t, w)["error_code"])
}

func TestContract_ExpiredTokenIsMarked(t *testing.T) {
	env := setupRouter(t)
	env.clock.SetTime(env.clock.Now().Add(2 * time.Minute))

	w := env.do(t, http.MethodGet, "/api/v1/projects", env.token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, dto.ErrorCodeTokenExpired, decode(t, w)["error_code"])
}

// ---------------------------------------------------------------------------
// Projects
// ---------------------------------------------------------------------------

func TestContract_CreateProject(t *testing.T) {
	env := setupRouter(t)

	w := env.do(t, http.MethodPost, "/api/v1/projects", env.token, cardsProject)
	require.Equal(t, http.StatusCreated, w.Code)
	resp := decode(t, w)
	assertFieldString(t, resp, "id")
	assertFieldString(t, resp, "created_at")
	assertFieldNumber(t, resp, "label_schema_version")
	assert.Equal(t, "cards", resp["name"])

	tasks := resp["pipeline"].(map[string]interface{})["tasks"].([]interface{})
	require.Len(t, tasks, 1)
	task := tasks[0].(map[string]interface{})
	assertFieldString(t, task, "id")
	label := task["labels"].([]interface{})[0].(map[string]interface{})
	assertFieldString(t, label, "id")
	assert.Equal(t, "card", label["name"])

	// names are unique regardless of case
	dup := map[string]interface{}{"name": "CARDS", "pipeline": cardsProject["pipeline"]}
	w = env.do(t, http.MethodPost, "/api/v1/projects", env.token, dup)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestContract_ListProjectsPaging(t *testing.T) {
	env := setupRouter(t)
	for _, name := range []string{"a", "b", "c"} {
		body := map[string]interface{}{"name": name, "pipeline": cardsProject["pipeline"]}
		require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/v1/projects", env.token, body).Code)
	}

	w := env.do(t, http.MethodGet, "/api/v1/projects?top=2", env.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page dto.ListProjectsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Projects, 2)
	require.NotEmpty(t, page.NextPage)

	w = env.do(t, http.MethodGet, page.NextPage, env.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	page = dto.ListProjectsResponse{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Projects, 1)
	assert.Equal(t, "c", page.Projects[0].Name)
	assert.Empty(t, page.NextPage)
}

func TestContract_GetMissingProject(t *testing.T) {
	env := setupRouter(t)

	w := env.do(t, http.MethodGet, "/api/v1/projects/does-not-exist", env.token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assertFieldString(t, decode(t, w), "error")
}

// ---------------------------------------------------------------------------
// Media and annotations
// ---------------------------------------------------------------------------

func TestContract_UploadAndAnnotate(t *testing.T) {
	env := setupRouter(t)

	w := env.do(t, http.MethodPost, "/api/v1/projects", env.token, cardsProject)
	require.Equal(t, http.StatusCreated, w.Code)
	var project dto.ProjectResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &project))
	labelID := project.Pipeline.Tasks[0].Labels[0].ID

	w = env.upload(t, project.ID, "img1.jpg", []byte("jpeg"))
	require.Equal(t, http.StatusCreated, w.Code)
	img := decode(t, w)
	assertFieldString(t, img, "id")
	assertFieldString(t, img, "content_hash")
	assert.Equal(t, "img1.jpg", img["name"])
	mediaID := img["id"].(string)

	annotations := "/api/v1/projects/" + project.ID + "/media/images/" + mediaID + "/annotations"
	scene := func(label string) map[string]interface{} {
		return map[string]interface{}{
			"annotations": []map[string]interface{}{{
				"shape":  map[string]interface{}{"type": "RECTANGLE", "x": 0.1, "y": 0.1, "width": 0.5, "height": 0.5},
				"labels": []map[string]string{{"id": label}},
			}},
		}
	}

	w = env.do(t, http.MethodPost, annotations, env.token, scene("not-a-label"))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = env.do(t, http.MethodPost, annotations, env.token, scene(labelID))
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode(t, w)
	assertFieldString(t, created, "id")

	w = env.do(t, http.MethodGet, annotations+"/latest", env.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created["id"], decode(t, w)["id"])

	w = env.do(t, http.MethodGet, "/api/v1/projects/"+project.ID+"/media/images", env.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list dto.ListMediaResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 1, list.MediaCount.Images)
}

func TestContract_Healthz(t *testing.T) {
	env := setupRouter(t)

	w := env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
}
