package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	derrors "git.home.luguber.info/inful/postbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/postbuilder/internal/site"
)

type fakeRebuilder struct {
	mu     sync.Mutex
	calls  []bool
	report *site.Report
	err    error
	status site.Status
}

func (f *fakeRebuilder) Run(_ context.Context, _ string, syncContent bool) (*site.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, syncContent)
	return f.report, f.err
}

func (f *fakeRebuilder) Status() site.Status { return f.status }

func writeSite(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "blog", "hello"), 0o750))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "blog", "empty"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "blog", "hello", site.PageFile), []byte("<h1>Hello</h1>"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, site.NotFoundFile), []byte("<h1>Not here</h1>"), 0o600))
	return dir
}

func sampleReport() *site.Report {
	start := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	return &site.Report{
		BuildID:  "b-1",
		Started:  start,
		Finished: start.Add(1500 * time.Millisecond),
		Results: []site.Result{
			{Slug: "a", Outcome: site.OutcomeBuilt},
			{Slug: "b", Outcome: site.OutcomeFailed, Err: derrors.ParseError("unterminated fence").Build()},
			{Slug: "c", Outcome: site.OutcomeNotFound},
		},
	}
}

func TestSiteHandler(t *testing.T) {
	srv := New(Options{Dir: writeSite(t)}, nil)

	tests := []struct {
		name   string
		method string
		path   string
		status int
		body   string
	}{
		{"post page", http.MethodGet, "/blog/hello/", http.StatusOK, "Hello"},
		{"unknown post", http.MethodGet, "/blog/missing/", http.StatusNotFound, "Not here"},
		{"dir without index", http.MethodGet, "/blog/empty/", http.StatusNotFound, "Not here"},
		{"post method", http.MethodPost, "/blog/hello/", http.StatusMethodNotAllowed, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.body)
		})
	}
}

func TestHealth(t *testing.T) {
	srv := New(Options{Dir: t.TempDir()}, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.NotEmpty(t, resp.Version.GoVersion)
}

func TestMetricsMountedWhenConfigured(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("postbuilder_build_workers 4\n"))
	})
	srv := New(Options{Dir: t.TempDir(), Metrics: metrics}, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "postbuilder_build_workers")
}

func TestStatus(t *testing.T) {
	finished := time.Date(2024, 1, 2, 3, 4, 6, 0, time.UTC)
	rb := &fakeRebuilder{status: site.Status{Reason: "watch", Commit: "abc1234", Finished: finished, Report: sampleReport()}}
	srv := New(Options{Dir: t.TempDir()}, rb)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "watch", resp.Reason)
	assert.Equal(t, "abc1234", resp.Commit)
	require.NotNil(t, resp.Finished)
	assert.True(t, finished.Equal(*resp.Finished))
	require.NotNil(t, resp.LastBuild)
	assert.Equal(t, "b-1", resp.LastBuild.BuildID)
	assert.Equal(t, "partial", resp.LastBuild.Outcome)
	assert.Equal(t, 1, resp.LastBuild.Counts["built"])
	assert.Equal(t, 1, resp.LastBuild.Counts["not_found"])
	assert.Equal(t, int64(1500), resp.LastBuild.DurationMS)
	require.Len(t, resp.LastBuild.Failed, 1)
	assert.Equal(t, "b", resp.LastBuild.Failed[0].Slug)
	assert.Contains(t, resp.LastBuild.Failed[0].Error, "unterminated fence")
}

func TestRebuild(t *testing.T) {
	rb := &fakeRebuilder{report: sampleReport()}
	srv := New(Options{Dir: t.TempDir()}, rb)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/rebuild?sync=true", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var sum BuildSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sum))
	assert.Equal(t, "b-1", sum.BuildID)
	assert.Equal(t, []bool{true}, rb.calls)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/rebuild?sync=maybe", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, rb.calls, 1)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/rebuild", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Len(t, rb.calls, 1)
}

func TestSiteHandler_StaysInsideDir(t *testing.T) {
	dir := writeSite(t)
	h := &siteHandler{dir: filepath.Join(dir, "blog")}
	assert.True(t, h.exists("/hello/"))
	assert.False(t, h.exists("/../404.html"))
	assert.False(t, h.exists("../../404.html"))
}

func TestRebuild_SyncFailure(t *testing.T) {
	rb := &fakeRebuilder{err: derrors.GitError("fetch failed").Build()}
	srv := New(Options{Dir: t.TempDir()}, rb)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/rebuild?sync=1", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	var resp derrors.HTTPErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "fetch failed", resp.Error)
	assert.Equal(t, string(derrors.CategoryGit), resp.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	h := chain(slog.Default(), derrors.NewHTTPErrorAdapter(nil))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal server error")
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	srv := New(Options{Dir: writeSite(t)}, nil)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/blog/hello/")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
