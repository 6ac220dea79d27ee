// Package havewecrashedyet answers one question on a schedule: has the
// market crashed yet? It fetches an index quote, renders the answer into a
// static page, publishes the page to a git branch, and serves it, replacing
// the hosted CI workflow that used to do all of this.
package havewecrashedyet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Anaethelion/havewecrashedyet/deploy"
	"github.com/Anaethelion/havewecrashedyet/market"
	"github.com/Anaethelion/havewecrashedyet/pipeline"
	"github.com/Anaethelion/havewecrashedyet/site"
)

// runTimeout bounds a whole pipeline run, network and git included.
const runTimeout = 5 * time.Minute

// snapshotRetention caps history growth under an hourly schedule.
const snapshotRetention = 90 * 24 * time.Hour

// App wires together the store, cache, pipeline, scheduler, and HTTP server.
type App struct {
	Config  Config
	Echo    *echo.Echo
	Store   *Store
	Cache   *SnapshotCache
	Metrics *Metrics
	Log     *slog.Logger
	Runner  *pipeline.Runner

	scheduler    *pipeline.Scheduler
	loginLimiter *loginLimiter
}

// New creates an App from cfg. Call Init before using it.
func New(cfg Config) *App {
	cfg.setDefaults()
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	return &App{
		Config: cfg,
		Echo:   e,
		Log:    newLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr),
	}
}

func (a *App) workspace() site.Workspace {
	return site.Workspace{Dir: a.Config.SiteDir}
}

// adminEnabled reports whether the admin UI can be served. Both secrets are
// required; a half-configured admin stays off.
func (a *App) adminEnabled() bool {
	return a.Config.AdminPassword != "" && a.Config.SessionSecret != ""
}

// publisher returns the branch publisher, or nil in local preview mode.
func (a *App) publisher() *deploy.Publisher {
	if a.Config.PublishRemote == "" {
		return nil
	}
	return &deploy.Publisher{
		SiteDir:   a.Config.SiteDir,
		RepoDir:   a.Config.PublishRepoDir,
		Branch:    a.Config.PublishBranch,
		RemoteURL: a.Config.PublishRemote,
		Token:     a.Config.GitToken,
		UserName:  a.Config.GitUserName,
		UserEmail: a.Config.GitUserEmail,
		Log:       a.Log,
	}
}

// buildSteps assembles the five-step pipeline: sync, template, fetch,
// render, publish.
func (a *App) buildSteps() []pipeline.Step {
	ws := a.workspace()
	var client *market.Client
	if a.Config.APIKey != "" {
		client = market.NewClient(a.Config.APIKey, market.WithBaseURL(a.Config.APIBaseURL))
	}
	return []pipeline.Step{
		&pipeline.SyncStep{
			Workspace:    ws,
			SourceRemote: a.Config.SourceRemote,
			SourceBranch: a.Config.SourceBranch,
			Token:        a.Config.GitToken,
			Log:          a.Log,
		},
		&pipeline.TemplateStep{Workspace: ws},
		&pipeline.FetchStep{Client: client, Symbol: a.Config.Symbol, Log: a.Log},
		&pipeline.RenderStep{Workspace: ws},
		&pipeline.PublishStep{Publisher: a.publisher()},
	}
}

// Init opens the store and builds the pipeline. It does not start anything.
func (a *App) Init() error {
	store, err := NewStore(a.Config.DatabasePath)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	a.Store = store
	a.Cache = NewSnapshotCache(store, a.Config.SnapshotCacheTTL)
	a.Metrics = NewMetrics()
	a.loginLimiter = newLoginLimiter(5, time.Minute)
	a.Runner = pipeline.NewRunner(a.Log, a.buildSteps()...)

	if a.Config.Schedule != "" {
		sched, err := pipeline.NewScheduler(a.Config.Schedule, a.Log, func() {
			a.DispatchAsync(pipeline.Trigger{Kind: pipeline.TriggerSchedule})
		})
		if err != nil {
			return err
		}
		a.scheduler = sched
	}
	return nil
}

// Start initializes everything, starts the scheduler, and serves HTTP until
// the server stops.
func (a *App) Start() error {
	if a.Store == nil {
		if err := a.Init(); err != nil {
			return err
		}
	}
	a.setupMiddleware()
	a.setupRoutes()

	if a.scheduler != nil {
		a.scheduler.Start()
	}

	a.Log.Info("listening", "addr", a.Config.Addr, "site_dir", a.Config.SiteDir)
	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.GET("/", a.handleIndex)
	e.GET("/status.json", a.handleStatusJSON)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/sitemap.xml", a.renderSitemap)
	e.GET("/robots.txt", a.handleRobots)
	e.GET("/healthz", a.handleHealthz)
	e.GET("/metrics", a.Metrics.Handler())
	e.POST("/hooks/push", a.handlePushHook)

	if a.adminEnabled() {
		e.GET("/admin/", a.handleAdmin)
		e.POST("/admin/login/", a.handleAdminLogin)
		e.POST("/admin/logout/", handleAdminLogout)
		e.POST("/admin/run/", a.handleAdminRun)
	}
}

// Close cleans up resources. Call when shutting down.
func (a *App) Close() error {
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}

// Running reports whether a pipeline run is in flight.
func (a *App) Running() bool {
	return a.Runner.Running()
}

// DispatchAsync fires a run in the background. Trigger sources that must
// not block (webhook, scheduler, admin button) use this.
func (a *App) DispatchAsync(trig pipeline.Trigger) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()
		if _, err := a.RunPipeline(ctx, trig); err != nil && !errors.Is(err, pipeline.ErrRunInProgress) {
			a.Log.Error("dispatch failed", "trigger", string(trig.Kind), "error", err)
		}
	}()
}

// RunPipeline executes one run and records everything about it: the run row,
// the snapshot when the fetch succeeded, metrics, and the cache invalidation.
func (a *App) RunPipeline(ctx context.Context, trig pipeline.Trigger) (*pipeline.Result, error) {
	msg := trig.CommitMessage(a.Config.CommitPrefix, time.Now())
	res, err := a.Runner.Run(ctx, trig, msg)
	if errors.Is(err, pipeline.ErrRunInProgress) {
		a.recordSkipped(trig, msg)
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	run := Run{
		ID:            res.ID,
		Trigger:       string(trig.Kind),
		Detail:        trig.Detail,
		CommitMessage: res.CommitMessage,
		Status:        RunOK,
		Notices:       res.Notices,
		StartedAt:     res.StartedAt,
		FinishedAt:    res.FinishedAt,
	}
	if !res.OK() {
		run.Status = RunFailed
		run.FailedStep = res.FailedStep
		run.Error = res.Err.Error()
	}
	if err := a.Store.SaveRun(run); err != nil {
		a.Log.Error("save run", "run_id", res.ID, "error", err)
	}

	if res.Quote != nil {
		snap := Snapshot{
			Symbol:      res.Quote.Symbol,
			Price:       res.Quote.Current,
			StatusClass: res.Status.Class,
			StatusText:  res.Status.Text,
			Subtitle:    res.Status.Subtitle,
			CreatedAt:   res.Quote.FetchedAt,
		}
		if res.Quote.ChangePercent != nil {
			snap.ChangePercent = *res.Quote.ChangePercent
			snap.HasChange = true
		}
		if _, err := a.Store.SaveSnapshot(snap); err != nil {
			a.Log.Error("save snapshot", "run_id", res.ID, "error", err)
		}
		if _, err := a.Store.PruneSnapshots(snapshotRetention); err != nil {
			a.Log.Error("prune snapshots", "error", err)
		}
		a.Cache.Invalidate()
	}

	a.Metrics.ObserveRun(string(trig.Kind), run.Status, fetchSeconds(res))
	return res, nil
}

// recordSkipped persists an overlap rejection so it shows up in run history.
func (a *App) recordSkipped(trig pipeline.Trigger, msg string) {
	now := time.Now()
	run := Run{
		ID:            uuid.NewString(),
		Trigger:       string(trig.Kind),
		Detail:        trig.Detail,
		CommitMessage: msg,
		Status:        RunSkipped,
		Error:         pipeline.ErrRunInProgress.Error(),
		StartedAt:     now,
		FinishedAt:    now,
	}
	if err := a.Store.SaveRun(run); err != nil {
		a.Log.Error("save skipped run", "error", err)
	}
	a.Metrics.ObserveRun(string(trig.Kind), RunSkipped, 0)
	a.Log.Warn("trigger skipped, run in progress", "trigger", string(trig.Kind))
}

func fetchSeconds(res *pipeline.Result) float64 {
	for _, s := range res.Steps {
		if s.Name == "fetch" {
			return s.Duration.Seconds()
		}
	}
	return 0
}
