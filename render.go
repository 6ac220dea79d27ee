package havewecrashedyet

import (
	"bytes"
	"embed"
	"html/template"
	"time"

	"github.com/labstack/echo/v4"
)

// Admin pages are rendered from templates compiled into the binary; unlike
// the public page template they are not meant to be user-edited.
//
//go:embed templates/*.html
var adminAssets embed.FS

var adminTmpl = template.Must(template.New("admin").Funcs(template.FuncMap{
	"change":   FormatChangePercent,
	"truncate": truncate,
	"timefmt": func(t time.Time) string {
		return t.Format("2006-01-02 15:04:05 MST")
	},
}).ParseFS(adminAssets, "templates/*.html"))

// renderHTML executes a named admin template into the response. Rendering
// into a buffer first keeps half-written pages off the wire on template
// errors.
func renderHTML(c echo.Context, code int, name string, data any) error {
	var buf bytes.Buffer
	if err := adminTmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	return c.HTMLBlob(code, buf.Bytes())
}
