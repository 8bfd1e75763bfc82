package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docflow/internal/api"
	"docflow/internal/engine"
	"docflow/internal/logging"
	"docflow/internal/report"
	"docflow/internal/testsupport"
)

type client struct {
	t      *testing.T
	server *httptest.Server
	token  string
}

func newClient(t *testing.T, opts ...api.HandlerOption) *client {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	eng := engine.New(st, logging.NewNop())
	svc := api.NewService(st, eng, report.PolicyFromConfig(cfg))
	opts = append([]api.HandlerOption{api.WithHealthCheck(st.Ping)}, opts...)
	server := httptest.NewServer(api.NewHandler(svc, opts...))
	t.Cleanup(server.Close)
	return &client{t: t, server: server}
}

func (c *client) do(method, path string, body any, out any) *http.Response {
	c.t.Helper()
	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		data, err := json.Marshal(v)
		require.NoError(c.t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.server.URL+path, reader)
	require.NoError(c.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode != http.StatusNoContent {
		require.NoError(c.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func (c *client) createEpisode(title string) api.EpisodeDetail {
	c.t.Helper()
	var project api.Project
	resp := c.do(http.MethodPost, "/api/projects", api.CreateProjectRequest{Title: "Apollo 11: Journey to the Moon"}, &project)
	require.Equal(c.t, http.StatusCreated, resp.StatusCode)

	var detail api.EpisodeDetail
	resp = c.do(http.MethodPost, "/api/episodes", api.CreateEpisodeRequest{ProjectID: project.ID, Title: title, Duration: "45 min"}, &detail)
	require.Equal(c.t, http.StatusCreated, resp.StatusCode)
	return detail
}

func TestProjectRoutes(t *testing.T) {
	c := newClient(t)

	var created api.Project
	resp := c.do(http.MethodPost, "/api/projects", api.CreateProjectRequest{Title: "  Apollo 11  ", Description: "Moon landing"}, &created)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "Apollo 11", created.Title)
	assert.Equal(t, "In Production", created.Status)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var listed []api.Project
	resp = c.do(http.MethodGet, "/api/projects", nil, &listed)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, listed, 1)
	assert.Equal(t, created.ID, listed[0].ID)

	var fetched api.Project
	resp = c.do(http.MethodGet, "/api/projects/"+created.ID, nil, &fetched)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Moon landing", fetched.Description)

	var episodes []api.Episode
	resp = c.do(http.MethodGet, "/api/projects/"+created.ID+"/episodes", nil, &episodes)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, episodes)

	resp = c.do(http.MethodDelete, "/api/projects/"+created.ID, nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	var errResp api.ErrorResponse
	resp = c.do(http.MethodGet, "/api/projects/"+created.ID, nil, &errResp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", errResp.Kind)
}

func TestUpdateProject(t *testing.T) {
	c := newClient(t)

	var created api.Project
	resp := c.do(http.MethodPost, "/api/projects", api.CreateProjectRequest{Title: "Apollo 11", Description: "Moon landing"}, &created)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var updated api.Project
	resp = c.do(http.MethodPut, "/api/projects/"+created.ID, map[string]string{"status": "Complete"}, &updated)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Complete", updated.Status)
	assert.Equal(t, "Apollo 11", updated.Title)
	assert.Equal(t, "Moon landing", updated.Description)

	var fetched api.Project
	resp = c.do(http.MethodGet, "/api/projects/"+created.ID, nil, &fetched)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Complete", fetched.Status)

	tests := []struct {
		name   string
		path   string
		body   any
		status int
		kind   string
	}{
		{name: "blank title", path: "/api/projects/" + created.ID, body: map[string]string{"title": "   "}, status: http.StatusBadRequest, kind: "bad_request"},
		{name: "empty status", path: "/api/projects/" + created.ID, body: map[string]string{"status": ""}, status: http.StatusBadRequest, kind: "bad_request"},
		{name: "unknown field", path: "/api/projects/" + created.ID, body: `{"owner":"nasa"}`, status: http.StatusBadRequest, kind: "bad_request"},
		{name: "missing project", path: "/api/projects/missing", body: map[string]string{"status": "Complete"}, status: http.StatusNotFound, kind: "not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var errResp api.ErrorResponse
			resp := c.do(http.MethodPut, tt.path, tt.body, &errResp)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.kind, errResp.Kind)
		})
	}
}

func TestCreateRejectsBadRequests(t *testing.T) {
	c := newClient(t)

	tests := []struct {
		name   string
		path   string
		body   any
		status int
	}{
		{name: "missing title", path: "/api/projects", body: api.CreateProjectRequest{}, status: http.StatusBadRequest},
		{name: "malformed json", path: "/api/projects", body: "{", status: http.StatusBadRequest},
		{name: "unknown field", path: "/api/projects", body: `{"title":"x","owner":"y"}`, status: http.StatusBadRequest},
		{name: "episode without project", path: "/api/episodes", body: api.CreateEpisodeRequest{Title: "Episode 1"}, status: http.StatusBadRequest},
		{name: "episode unknown project", path: "/api/episodes", body: api.CreateEpisodeRequest{ProjectID: "missing", Title: "Episode 1"}, status: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var errResp api.ErrorResponse
			resp := c.do(http.MethodPost, tt.path, tt.body, &errResp)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.NotEmpty(t, errResp.Error)
			assert.NotEmpty(t, errResp.RequestID)
		})
	}

	var errResp api.ErrorResponse
	c.do(http.MethodPost, "/api/projects", api.CreateProjectRequest{}, &errResp)
	assert.Equal(t, "title: is required", errResp.Error)
}

func TestWorkflowRoutes(t *testing.T) {
	c := newClient(t)
	detail := c.createEpisode("Episode 1: The Race Begins")
	assert.Equal(t, "research", detail.Workflow.CurrentPhase)
	assert.Equal(t, "in_progress", detail.Workflow.Summary["research"])
	base := "/api/episodes/" + detail.ID

	var wf api.Workflow
	resp := c.do(http.MethodPut, base+"/workflow/phase", api.AdvanceRequest{Phase: "research", Status: "review"}, &wf)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "review", wf.Summary["research"])

	var errResp api.ErrorResponse
	resp = c.do(http.MethodPut, base+"/workflow/phase", api.AdvanceRequest{Phase: "archive", Status: "approved"}, &errResp)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "validation", errResp.Kind)
	assert.Contains(t, errResp.Error, "invalid phase")

	resp = c.do(http.MethodPut, base+"/workflow/phase", api.AdvanceRequest{Phase: "research", Status: "pending"}, &errResp)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, errResp.Error, "illegal transition")

	resp = c.do(http.MethodPut, base+"/workflow/phase", api.AdvanceRequest{Phase: "research"}, &errResp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = c.do(http.MethodPut, base+"/workflow/phase", api.AdvanceRequest{Phase: "Research", Status: "approved", Notes: "solid sources"}, &wf)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "archive", wf.CurrentPhase)
	assert.Equal(t, "approved", wf.Summary["research"])
	assert.Equal(t, "in_progress", wf.Summary["archive"])
	assert.Equal(t, "solid sources", wf.Phases[0].ReviewNotes)
	assert.NotEmpty(t, wf.Phases[0].CompletedAt)

	var fetched api.Workflow
	resp = c.do(http.MethodGet, base+"/workflow", nil, &fetched)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, wf.Version, fetched.Version)

	var history []api.Transition
	resp = c.do(http.MethodGet, base+"/history", nil, &history)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, history, 4)
	assert.Equal(t, "archive", history[3].Phase)
	assert.Equal(t, "in_progress", history[3].To)

	var rep api.Report
	resp = c.do(http.MethodGet, "/api/report", nil, &rep)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, rep.Episodes)
	require.Len(t, rep.Phases, 5)
	assert.Equal(t, 1, rep.Phases[1].Counts["in_progress"])
	assert.Empty(t, rep.Overdue)
}

func TestEpisodeRoutes(t *testing.T) {
	c := newClient(t)
	detail := c.createEpisode("Episode 3: Launch")
	base := "/api/episodes/" + detail.ID

	duration := "52 min"
	var updated api.Episode
	resp := c.do(http.MethodPut, base, api.UpdateEpisodeRequest{Duration: &duration}, &updated)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Episode 3: Launch", updated.Title)
	assert.Equal(t, "52 min", updated.Duration)

	blank := "   "
	resp = c.do(http.MethodPut, base, api.UpdateEpisodeRequest{Title: &blank}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var fetched api.EpisodeDetail
	resp = c.do(http.MethodGet, base, nil, &fetched)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "52 min", fetched.Duration)
	assert.Len(t, fetched.Workflow.Phases, 5)

	resp = c.do(http.MethodDelete, base, nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	for _, path := range []string{base, base + "/workflow", base + "/history"} {
		resp = c.do(http.MethodGet, path, nil, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
	resp = c.do(http.MethodPut, base+"/workflow/phase", api.AdvanceRequest{Phase: "research", Status: "review"}, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBearerToken(t *testing.T) {
	c := newClient(t, api.WithToken("s3cret"))

	resp := c.do(http.MethodGet, "/api/projects", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	c.token = "wrong"
	resp = c.do(http.MethodGet, "/api/projects", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	c.token = "s3cret"
	var projects []api.Project
	resp = c.do(http.MethodGet, "/api/projects", nil, &projects)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	c.token = ""
	var health api.HealthResponse
	resp = c.do(http.MethodGet, "/health", nil, &health)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", health.Status)
}

func TestHealthReportsDatabaseFailure(t *testing.T) {
	c := newClient(t, api.WithHealthCheck(func(context.Context) error { return errors.New("database is closed") }))

	var health api.HealthResponse
	resp := c.do(http.MethodGet, "/health", nil, &health)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "degraded", health.Status)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, api.StatusFor(&api.RequestError{Message: "bad"}))
	assert.Equal(t, http.StatusInternalServerError, api.StatusFor(errors.New("disk full")))
}
