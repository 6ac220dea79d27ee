package havewecrashedyet

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Anaethelion/havewecrashedyet/pipeline"
)

type adminLoginData struct {
	SiteName  string
	ShowError bool
	CSRF      string
}

type adminDashboardData struct {
	SiteName  string
	Message   string
	CSRF      string
	Latest    *Snapshot
	Runs      []Run
	Snapshots []Snapshot
}

func (a *App) handleAdmin(c echo.Context) error {
	if !isAdmin(c) {
		return renderHTML(c, http.StatusOK, "admin_login", adminLoginData{
			SiteName: a.Config.SiteName,
			CSRF:     csrfToken(c),
		})
	}
	return a.renderAdminDashboard(c, c.QueryParam("msg"))
}

func (a *App) handleAdminLogin(c echo.Context) error {
	if !a.loginLimiter.Allow(c.RealIP()) {
		return c.String(http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	}
	pass := c.FormValue("password")
	if subtle.ConstantTimeCompare([]byte(pass), []byte(a.Config.AdminPassword)) == 1 {
		if err := setAdminSession(c); err != nil {
			return err
		}
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	return renderHTML(c, http.StatusOK, "admin_login", adminLoginData{
		SiteName:  a.Config.SiteName,
		ShowError: true,
		CSRF:      csrfToken(c),
	})
}

func handleAdminLogout(c echo.Context) error {
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/")
}

// handleAdminRun is the manual dispatch button, the workflow_dispatch of
// this app.
func (a *App) handleAdminRun(c echo.Context) error {
	if !isAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	if a.Running() {
		return c.Redirect(http.StatusSeeOther, "/admin/?msg=A+run+is+already+in+progress.")
	}
	a.DispatchAsync(pipeline.Trigger{Kind: pipeline.TriggerManual, Detail: "triggered from admin"})
	return c.Redirect(http.StatusSeeOther, "/admin/?msg=Run+started.")
}

func (a *App) renderAdminDashboard(c echo.Context, msg string) error {
	runs, err := a.Store.ListRecentRuns(20)
	if err != nil {
		return err
	}
	snaps, err := a.Cache.Recent(20)
	if err != nil {
		return err
	}
	data := adminDashboardData{
		SiteName:  a.Config.SiteName,
		Message:   msg,
		CSRF:      csrfToken(c),
		Runs:      runs,
		Snapshots: snaps,
	}
	if len(snaps) > 0 {
		data.Latest = &snaps[0]
	}
	return renderHTML(c, http.StatusOK, "admin_dashboard", data)
}
