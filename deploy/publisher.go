// Package deploy publishes the generated site to a dedicated git branch,
// the moral equivalent of a gh-pages deploy: the branch holds nothing but
// the rendered artifact and is force-pushed on every publish.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrNoChanges reports that the workspace is identical to the last publish.
// Callers treat it as a notice, not a failure.
var ErrNoChanges = errors.New("deploy: nothing to publish")

// Publisher commits a site directory to a publish branch and pushes it.
type Publisher struct {
	SiteDir   string // rendered site to publish
	RepoDir   string // local clone used as staging area for the branch
	Branch    string // publish branch, e.g. "pages"
	RemoteURL string // push target; empty means commit locally only
	Token     string // auth token injected into the remote URL, never logged
	UserName  string
	UserEmail string

	Log *slog.Logger
}

func (p *Publisher) logger() *slog.Logger {
	if p.Log != nil {
		return p.Log
	}
	return slog.Default()
}

// Publish stages the site directory onto the publish branch, commits it with
// message, and pushes when a remote is configured. Returns ErrNoChanges when
// the branch already matches the site directory.
func (p *Publisher) Publish(ctx context.Context, message string) error {
	if err := p.ensureRepo(ctx); err != nil {
		return err
	}
	if err := syncTree(p.RepoDir, p.SiteDir); err != nil {
		return fmt.Errorf("stage site: %w", err)
	}
	if _, err := p.git(ctx, "add", "-A"); err != nil {
		return err
	}

	status, err := p.git(ctx, "status", "--porcelain")
	if err != nil {
		return err
	}
	if strings.TrimSpace(status) == "" {
		return ErrNoChanges
	}

	if _, err := p.git(ctx, "commit", "-m", message); err != nil {
		return err
	}
	p.logger().Info("committed site", "branch", p.Branch, "message", message)

	if p.RemoteURL == "" {
		return nil
	}
	pushURL, err := authenticatedURL(p.RemoteURL, p.Token)
	if err != nil {
		return fmt.Errorf("deploy: bad remote url: %w", err)
	}
	// The publish branch is a build artifact. Force-push so a rewritten
	// history on the branch never blocks a deploy.
	if _, err := p.git(ctx, "push", "--force", pushURL, "HEAD:refs/heads/"+p.Branch); err != nil {
		return err
	}
	p.logger().Info("pushed site", "branch", p.Branch)
	return nil
}

// ensureRepo initializes the staging repo on first use and points HEAD at
// the publish branch.
func (p *Publisher) ensureRepo(ctx context.Context) error {
	if err := os.MkdirAll(p.RepoDir, 0o755); err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	if _, err := os.Stat(filepath.Join(p.RepoDir, ".git")); err == nil {
		return nil
	}
	if _, err := p.git(ctx, "init", "-b", p.Branch); err != nil {
		return err
	}
	if _, err := p.git(ctx, "config", "user.name", p.UserName); err != nil {
		return err
	}
	if _, err := p.git(ctx, "config", "user.email", p.UserEmail); err != nil {
		return err
	}
	if p.RemoteURL == "" {
		return nil
	}
	// Seed from the remote branch so the first local publish extends the
	// existing history instead of rewriting it from scratch.
	fetchURL, err := authenticatedURL(p.RemoteURL, p.Token)
	if err != nil {
		return fmt.Errorf("deploy: bad remote url: %w", err)
	}
	if _, err := p.git(ctx, "fetch", fetchURL, p.Branch); err != nil {
		// Remote branch absent on first ever publish. Start fresh.
		p.logger().Info("publish branch not on remote yet", "branch", p.Branch)
		return nil
	}
	if _, err := p.git(ctx, "reset", "--hard", "FETCH_HEAD"); err != nil {
		return err
	}
	return nil
}

// Pull fast-forwards a source checkout, used by the sync step when the site
// workspace tracks a git remote.
func Pull(ctx context.Context, log *slog.Logger, dir, remoteURL, branch, token string) error {
	pullURL, err := authenticatedURL(remoteURL, token)
	if err != nil {
		return fmt.Errorf("deploy: bad remote url: %w", err)
	}
	out, err := runGit(ctx, dir, token, "pull", "--ff-only", pullURL, branch)
	if err != nil {
		return err
	}
	log.Debug("pulled source", "dir", dir, "branch", branch, "output", strings.TrimSpace(out))
	return nil
}

func (p *Publisher) git(ctx context.Context, args ...string) (string, error) {
	return runGit(ctx, p.RepoDir, p.Token, args...)
}

// runGit executes git in dir. Output and errors are scrubbed so the token
// never reaches a log line or an error message.
func runGit(ctx context.Context, dir, token string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	safe := scrub(string(out), token)
	if err != nil {
		return safe, fmt.Errorf("git %s: %w: %s", scrub(args[0], token), err, strings.TrimSpace(safe))
	}
	return safe, nil
}

// scrub replaces the token in s with a placeholder.
func scrub(s, token string) string {
	if token == "" {
		return s
	}
	return strings.ReplaceAll(s, token, "***")
}

// authenticatedURL injects the token as userinfo into an http(s) remote.
// Non-http remotes (ssh, file paths) pass through untouched.
func authenticatedURL(remote, token string) (string, error) {
	if token == "" || !strings.HasPrefix(remote, "http") {
		return remote, nil
	}
	u, err := url.Parse(remote)
	if err != nil {
		return "", err
	}
	u.User = url.UserPassword("oauth2", token)
	return u.String(), nil
}

// syncTree makes dst mirror src, leaving dst's .git directory alone.
// Deletions in src propagate to dst.
func syncTree(dst, src string) error {
	entries, err := os.ReadDir(dst)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.Name() == ".git" {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dst, e.Name())); err != nil {
			return err
		}
	}
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return os.MkdirAll(filepath.Join(dst, rel), 0o755)
		}
		return copyFile(filepath.Join(dst, rel), path)
	})
}

func copyFile(dst, src string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
