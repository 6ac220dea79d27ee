package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Anaethelion/havewecrashedyet/deploy"
	"github.com/Anaethelion/havewecrashedyet/market"
	"github.com/Anaethelion/havewecrashedyet/site"
)

// SyncStep makes sure the site workspace exists and, when it tracks a git
// remote, fast-forwards it before generating.
type SyncStep struct {
	Workspace    site.Workspace
	SourceRemote string
	SourceBranch string
	Token        string
	Log          *slog.Logger
}

func (s *SyncStep) Name() string { return "sync" }

func (s *SyncStep) Run(ctx context.Context, st *State) error {
	if err := s.Workspace.Ensure(); err != nil {
		return err
	}
	if s.SourceRemote == "" {
		return nil
	}
	return deploy.Pull(ctx, s.Log, s.Workspace.Dir, s.SourceRemote, s.SourceBranch, s.Token)
}

// TemplateStep provisions the workspace template, materializing the embedded
// default on first run.
type TemplateStep struct {
	Workspace site.Workspace
}

func (s *TemplateStep) Name() string { return "template" }

func (s *TemplateStep) Run(ctx context.Context, st *State) error {
	return s.Workspace.EnsureTemplate()
}

// FetchStep queries the quote API and classifies the result. A fetch failure
// does not abort the run: the page is still generated with an ERROR status,
// matching the behavior of the page it replaces.
type FetchStep struct {
	Client *market.Client
	Symbol string
	Log    *slog.Logger
}

func (s *FetchStep) Name() string { return "fetch" }

func (s *FetchStep) Run(ctx context.Context, st *State) error {
	if s.Client == nil {
		return errors.New("no quote client configured (is FINANCIAL_API_KEY set?)")
	}
	quote, err := s.Client.GetQuote(ctx, s.Symbol)
	if err != nil {
		s.Log.Error("quote fetch failed", "symbol", s.Symbol, "error", err)
		st.Status = market.ErrorStatus(err)
		st.Notice("fetch failed, rendering error page: %v", err)
		return nil
	}
	st.Quote = &quote
	st.Status = market.Classify(quote.ChangePercent)
	return nil
}

// RenderStep writes index.html from the workspace template and the fetched
// state.
type RenderStep struct {
	Workspace site.Workspace
	Now       func() time.Time
}

func (s *RenderStep) Name() string { return "render" }

func (s *RenderStep) Run(ctx context.Context, st *State) error {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return s.Workspace.Render(site.BuildPageData(st.Quote, st.Status, now()))
}

// PublishStep commits the workspace to the publish branch. With no publisher
// configured the step records a notice and succeeds, which is the local
// preview mode.
type PublishStep struct {
	Publisher *deploy.Publisher
}

func (s *PublishStep) Name() string { return "publish" }

func (s *PublishStep) Run(ctx context.Context, st *State) error {
	if s.Publisher == nil {
		st.Notice("publish skipped: no publish repo configured")
		return nil
	}
	err := s.Publisher.Publish(ctx, st.CommitMessage)
	if errors.Is(err, deploy.ErrNoChanges) {
		st.Notice("publish skipped: site unchanged since last publish")
		return nil
	}
	return err
}
