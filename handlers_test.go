package havewecrashedyet

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Anaethelion/havewecrashedyet/pipeline"
)

// countingStep stands in for the real pipeline in handler tests.
type countingStep struct {
	runs atomic.Int64
}

func (s *countingStep) Name() string { return "count" }

func (s *countingStep) Run(ctx context.Context, st *pipeline.State) error {
	s.runs.Add(1)
	return nil
}

func newTestApp(t *testing.T, cfg Config, steps ...pipeline.Step) *App {
	t.Helper()
	cfg.DatabasePath = filepath.Join(t.TempDir(), "test.db")
	if cfg.SiteDir == "" {
		cfg.SiteDir = filepath.Join(t.TempDir(), "site")
	}
	cfg.setDefaults()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := NewStore(cfg.DatabasePath)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	if len(steps) == 0 {
		steps = []pipeline.Step{&countingStep{}}
	}
	return &App{
		Config:       cfg,
		Echo:         echo.New(),
		Store:        store,
		Cache:        NewSnapshotCache(store, cfg.SnapshotCacheTTL),
		Metrics:      NewMetrics(),
		Log:          log,
		Runner:       pipeline.NewRunner(log, steps...),
		loginLimiter: newLoginLimiter(5, time.Minute),
	}
}

func doRequest(a *App, method, target string, body string, header map[string]string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	c := a.Echo.NewContext(req, rec)

	var err error
	switch {
	case target == "/status.json":
		err = a.handleStatusJSON(c)
	case target == "/":
		err = a.handleIndex(c)
	case target == "/healthz":
		err = a.handleHealthz(c)
	case target == "/hooks/push":
		err = a.handlePushHook(c)
	case target == "/robots.txt":
		err = a.handleRobots(c)
	}
	if err != nil {
		a.Echo.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestStatusJSONNoSnapshot(t *testing.T) {
	a := newTestApp(t, Config{})

	rec := doRequest(a, http.MethodGet, "/status.json", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusJSON(t *testing.T) {
	a := newTestApp(t, Config{})
	_, err := a.Store.SaveSnapshot(Snapshot{
		Symbol:        "SPY",
		Price:         512.34,
		ChangePercent: -5.5,
		HasChange:     true,
		StatusClass:   "bleeding",
		StatusText:    "BLEEDING",
		Subtitle:      "S&P 500 down 5.50%. Deep breaths.",
		CreatedAt:     time.Now().UTC(),
	})
	require.NoError(t, err)

	rec := doRequest(a, http.MethodGet, "/status.json", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `"symbol":"SPY"`)
	assert.Contains(t, body, `"status":"BLEEDING"`)
	assert.Contains(t, body, `"status_class":"bleeding"`)
	assert.Contains(t, body, `"change_percent":-5.5`)
}

func TestStatusJSONOmitsMissingChange(t *testing.T) {
	a := newTestApp(t, Config{})
	_, err := a.Store.SaveSnapshot(Snapshot{
		Symbol:      "SPY",
		Price:       500,
		HasChange:   false,
		StatusClass: "sideways",
		StatusText:  "FLAT",
		CreatedAt:   time.Now().UTC(),
	})
	require.NoError(t, err)

	rec := doRequest(a, http.MethodGet, "/status.json", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"change_percent":null`)
}

func TestIndexBeforeFirstRun(t *testing.T) {
	a := newTestApp(t, Config{})

	rec := doRequest(a, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "No page generated yet")
}

func TestIndexServesGeneratedPage(t *testing.T) {
	a := newTestApp(t, Config{})
	ws := a.workspace()
	require.NoError(t, ws.Ensure())
	require.NoError(t, os.WriteFile(ws.OutputPath(), []byte("<html><body>NOT YET!</body></html>"), 0o644))

	rec := doRequest(a, http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT YET!")
}

func TestHealthz(t *testing.T) {
	a := newTestApp(t, Config{})

	rec := doRequest(a, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestRobots(t *testing.T) {
	a := newTestApp(t, Config{SiteURL: "https://crash.example"})

	rec := doRequest(a, http.MethodGet, "/robots.txt", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Sitemap: https://crash.example/sitemap.xml")
	assert.Contains(t, rec.Body.String(), "Disallow: /admin/")
}

func TestPushHookBadSecret(t *testing.T) {
	a := newTestApp(t, Config{HookSecret: "s3cret"})

	rec := doRequest(a, http.MethodPost, "/hooks/push",
		`{"ref":"refs/heads/main"}`, map[string]string{"X-Hook-Secret": "wrong"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPushHookBadPayload(t *testing.T) {
	a := newTestApp(t, Config{HookSecret: "s3cret"})

	rec := doRequest(a, http.MethodPost, "/hooks/push",
		`{not json`, map[string]string{"X-Hook-Secret": "s3cret"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPushHookBranchFilter(t *testing.T) {
	step := &countingStep{}
	a := newTestApp(t, Config{SourceBranch: "main"}, step)

	rec := doRequest(a, http.MethodPost, "/hooks/push",
		`{"ref":"refs/heads/feature/foo","head_commit":{"message":"wip"}}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ignored")
	assert.Equal(t, int64(0), step.runs.Load())
}

func TestPushHookTriggersRun(t *testing.T) {
	step := &countingStep{}
	a := newTestApp(t, Config{SourceBranch: "main", HookSecret: "s3cret"}, step)

	rec := doRequest(a, http.MethodPost, "/hooks/push",
		`{"ref":"refs/heads/main","head_commit":{"message":"Update thresholds\n\ndetails"}}`,
		map[string]string{"X-Hook-Secret": "s3cret"})
	require.Equal(t, http.StatusAccepted, rec.Code)

	require.Eventually(t, func() bool {
		return step.runs.Load() == 1
	}, 2*time.Second, 10*time.Millisecond, "expected the pipeline to run")

	require.Eventually(t, func() bool {
		runs, err := a.Store.ListRecentRuns(5)
		return err == nil && len(runs) == 1
	}, 2*time.Second, 10*time.Millisecond, "expected the run to be persisted")

	runs, err := a.Store.ListRecentRuns(5)
	require.NoError(t, err)
	assert.Equal(t, "push", runs[0].Trigger)
	assert.Equal(t, "Update thresholds", runs[0].Detail, "only the first commit message line")
	assert.Equal(t, RunOK, runs[0].Status)
	assert.Equal(t, "deploy: Update thresholds", runs[0].CommitMessage)
}
