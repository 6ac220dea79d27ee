package havewecrashedyet

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Anaethelion/havewecrashedyet/pipeline"
)

// handleIndex serves the generated page. Before the first run there is
// nothing to serve yet.
func (a *App) handleIndex(c echo.Context) error {
	path := a.workspace().OutputPath()
	if _, err := os.Stat(path); err != nil {
		return c.HTML(http.StatusServiceUnavailable,
			"<!DOCTYPE html><html><body><p>No page generated yet. Check back after the first run.</p></body></html>")
	}
	return c.File(path)
}

// statusResponse is the /status.json payload.
type statusResponse struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	ChangePercent *float64  `json:"change_percent"`
	StatusText    string    `json:"status"`
	StatusClass   string    `json:"status_class"`
	Subtitle      string    `json:"subtitle"`
	FetchedAt     time.Time `json:"fetched_at"`
}

func (a *App) handleStatusJSON(c echo.Context) error {
	snap, err := a.Cache.Latest()
	if err != nil {
		if errors.Is(err, ErrNoSnapshot) {
			return echo.NewHTTPError(http.StatusNotFound, "no snapshot yet")
		}
		return err
	}
	resp := statusResponse{
		Symbol:      snap.Symbol,
		Price:       snap.Price,
		StatusText:  snap.StatusText,
		StatusClass: snap.StatusClass,
		Subtitle:    snap.Subtitle,
		FetchedAt:   snap.CreatedAt,
	}
	if snap.HasChange {
		dp := snap.ChangePercent
		resp.ChangePercent = &dp
	}
	return c.JSON(http.StatusOK, resp)
}

func (a *App) handleFeed(c echo.Context) error {
	changes, err := a.Cache.Changes()
	if err != nil {
		return err
	}
	return a.renderFeed(c, changes)
}

func (a *App) handleRobots(c echo.Context) error {
	body := fmt.Sprintf("User-agent: *\nAllow: /\nDisallow: /admin/\n\nSitemap: %s/sitemap.xml\n", a.Config.SiteURL)
	return c.String(http.StatusOK, body)
}

func (a *App) handleHealthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// pushPayload is the minimal webhook body: the ref that was pushed and the
// head commit whose message becomes the publish commit message.
type pushPayload struct {
	Ref        string `json:"ref"`
	HeadCommit struct {
		Message string `json:"message"`
	} `json:"head_commit"`
}

func (p pushPayload) branch() string {
	return strings.TrimPrefix(p.Ref, "refs/heads/")
}

// handlePushHook triggers a run for pushes to the configured source branch.
// Other branches are acknowledged and ignored, like a CI branch filter.
func (a *App) handlePushHook(c echo.Context) error {
	if a.Config.HookSecret != "" {
		got := c.Request().Header.Get("X-Hook-Secret")
		if subtle.ConstantTimeCompare([]byte(got), []byte(a.Config.HookSecret)) != 1 {
			return echo.NewHTTPError(http.StatusForbidden, "bad hook secret")
		}
	}

	var payload pushPayload
	if err := json.NewDecoder(c.Request().Body).Decode(&payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "bad payload")
	}
	if branch := payload.branch(); branch != a.Config.SourceBranch {
		a.Log.Info("push ignored", "branch", branch, "want", a.Config.SourceBranch)
		return c.JSON(http.StatusOK, map[string]string{"result": "ignored", "reason": "branch filter"})
	}

	trig := pipeline.Trigger{
		Kind:   pipeline.TriggerPush,
		Detail: strings.SplitN(payload.HeadCommit.Message, "\n", 2)[0],
	}
	a.DispatchAsync(trig)
	return c.JSON(http.StatusAccepted, map[string]string{"result": "accepted"})
}
