// Package site manages the on-disk site workspace: the user-editable HTML
// template and the generated index.html published as the site root.
package site

import (
	"embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"github.com/Anaethelion/havewecrashedyet/market"
)

const (
	// TemplateFile is the template name inside the workspace.
	TemplateFile = "template.html"
	// OutputFile is the generated page, the root of the published site.
	OutputFile = "index.html"
)

// defaultAssets ships a starter template so a fresh workspace renders
// without any setup. Users edit the copy in their workspace, not this one.
//
//go:embed assets/template.html
var defaultAssets embed.FS

// PageData is everything the template can reference.
type PageData struct {
	StatusText         string
	StatusClass        string
	StatusArrow        string
	Subtitle           string
	GiphyEmbedCode     template.HTML
	IndexChangePercent string
	IndexCurrentPrice  string
	IndexSymbol        string
	GenerationTime     string
	ErrorMessage       string
}

// BuildPageData assembles template data from a quote and its status.
// quote may be nil when the fetch failed; the page then shows N/A values.
func BuildPageData(quote *market.Quote, status market.Status, now time.Time) PageData {
	data := PageData{
		StatusText:         status.Text,
		StatusClass:        status.Class,
		StatusArrow:        status.Arrow,
		Subtitle:           status.Subtitle,
		GiphyEmbedCode:     template.HTML(market.EmbedFor(status.Class)),
		IndexChangePercent: "N/A",
		IndexCurrentPrice:  "N/A",
		IndexSymbol:        market.DefaultSymbol,
		GenerationTime:     now.Format("2006-01-02 15:04:05 MST"),
		ErrorMessage:       status.Warning,
	}
	if quote != nil {
		data.IndexSymbol = quote.Symbol
		data.IndexCurrentPrice = fmt.Sprintf("%.2f", quote.Current)
		if quote.ChangePercent != nil {
			data.IndexChangePercent = fmt.Sprintf("%.2f%%", *quote.ChangePercent)
		} else {
			data.IndexChangePercent = "0.00%"
		}
	}
	return data
}

// Workspace is a directory holding the template and the generated site.
type Workspace struct {
	Dir string
}

// Ensure creates the workspace directory if missing.
func (w Workspace) Ensure() error {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return fmt.Errorf("create site workspace %s: %w", w.Dir, err)
	}
	return nil
}

// TemplatePath returns the absolute-ish path of the workspace template.
func (w Workspace) TemplatePath() string {
	return filepath.Join(w.Dir, TemplateFile)
}

// OutputPath returns the path of the generated page.
func (w Workspace) OutputPath() string {
	return filepath.Join(w.Dir, OutputFile)
}

// EnsureTemplate materializes the embedded default template when the
// workspace has none. An existing template is never overwritten.
func (w Workspace) EnsureTemplate() error {
	path := w.TemplatePath()
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat template: %w", err)
	}
	b, err := defaultAssets.ReadFile("assets/" + TemplateFile)
	if err != nil {
		return fmt.Errorf("read embedded template: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write default template: %w", err)
	}
	return nil
}

// Render parses the workspace template and writes the generated page.
// The write goes through a temp file and rename so a crash mid-render
// never leaves a truncated index.html behind.
func (w Workspace) Render(data PageData) error {
	tmpl, err := template.ParseFiles(w.TemplatePath())
	if err != nil {
		return fmt.Errorf("parse %s: %w", TemplateFile, err)
	}

	tmp, err := os.CreateTemp(w.Dir, OutputFile+".*")
	if err != nil {
		return fmt.Errorf("create temp output: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmpl.Execute(tmp, data); err != nil {
		tmp.Close()
		return fmt.Errorf("render %s: %w", OutputFile, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp output: %w", err)
	}
	if err := os.Rename(tmp.Name(), w.OutputPath()); err != nil {
		return fmt.Errorf("replace %s: %w", OutputFile, err)
	}
	return nil
}
