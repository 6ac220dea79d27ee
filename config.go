package havewecrashedyet

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Anaethelion/havewecrashedyet/market"
)

// Config holds everything the app needs. Values come from an optional
// pipeline file plus environment variables; env always wins, and secrets
// only ever come from env.
type Config struct {
	SiteName string // SITE_NAME
	SiteURL  string // SITE_URL, canonical URL for feed links
	Addr     string // ADDR, HTTP listen address

	SiteDir      string // SITE_DIR, workspace holding template + generated page
	DatabasePath string // DATABASE_PATH, SQLite file for runs and snapshots

	Symbol     string // INDEX_SYMBOL
	APIBaseURL string // FINANCIAL_API_BASE_URL
	APIKey     string // FINANCIAL_API_KEY (secret)

	Schedule     string // SCHEDULE, cron spec; empty disables the scheduler
	SourceBranch string // SOURCE_BRANCH, branch whose pushes trigger a run
	SourceRemote string // SOURCE_REMOTE, optional git remote the workspace tracks

	PublishBranch  string // PUBLISH_BRANCH, deploy target branch
	PublishRemote  string // PUBLISH_REMOTE, push target; empty = local preview mode
	PublishRepoDir string // PUBLISH_REPO_DIR, staging clone for the publish branch
	CommitPrefix   string // COMMIT_PREFIX, prepended to publish commit messages
	GitUserName    string // GIT_USER_NAME
	GitUserEmail   string // GIT_USER_EMAIL
	GitToken       string // GIT_TOKEN (secret)

	HookSecret    string // HOOK_SECRET, shared secret for the push webhook (secret)
	AdminPassword string // ADMIN_PASSWORD (secret); empty disables the admin UI
	SessionSecret string // SESSION_SECRET (secret)
	CookieSecure  bool   // COOKIE_SECURE, set for HTTPS deployments

	SnapshotCacheTTL time.Duration // SNAPSHOT_CACHE_TTL

	LogLevel  string // LOG_LEVEL: debug, info, warn, error
	LogFormat string // LOG_FORMAT: text or json
}

func (c *Config) setDefaults() {
	if c.SiteName == "" {
		c.SiteName = "Have We Crashed Yet?"
	}
	if c.SiteURL == "" {
		c.SiteURL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.SiteDir == "" {
		c.SiteDir = "data/site"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/crashedyet.db"
	}
	if c.Symbol == "" {
		c.Symbol = market.DefaultSymbol
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = market.DefaultBaseURL
	}
	if c.SourceBranch == "" {
		c.SourceBranch = "main"
	}
	if c.PublishBranch == "" {
		c.PublishBranch = "pages"
	}
	if c.PublishRepoDir == "" {
		c.PublishRepoDir = "data/publish"
	}
	if c.CommitPrefix == "" {
		c.CommitPrefix = "deploy"
	}
	if c.GitUserName == "" {
		c.GitUserName = "crashedyet bot"
	}
	if c.GitUserEmail == "" {
		c.GitUserEmail = "bot@havewecrashedyet.local"
	}
	if c.SnapshotCacheTTL == 0 {
		c.SnapshotCacheTTL = 5 * time.Minute
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
}

// pipelineFile is the on-disk YAML shape, kept close to the CI workflow file
// this app replaces. It is a DTO; applyTo maps it onto Config.
type pipelineFile struct {
	On struct {
		Push struct {
			Branch string `yaml:"branch"`
		} `yaml:"push"`
		Schedule string `yaml:"schedule"`
	} `yaml:"on"`
	Site struct {
		Name   string `yaml:"name"`
		URL    string `yaml:"url"`
		Dir    string `yaml:"dir"`
		Symbol string `yaml:"symbol"`
	} `yaml:"site"`
	Publish struct {
		Branch       string `yaml:"branch"`
		Remote       string `yaml:"remote"`
		SourceRemote string `yaml:"source_remote"`
		CommitPrefix string `yaml:"commit_prefix"`
		UserName     string `yaml:"user_name"`
		UserEmail    string `yaml:"user_email"`
	} `yaml:"publish"`
}

func (f *pipelineFile) applyTo(c *Config) {
	setIf(&c.SourceBranch, f.On.Push.Branch)
	setIf(&c.Schedule, f.On.Schedule)
	setIf(&c.SiteName, f.Site.Name)
	setIf(&c.SiteURL, f.Site.URL)
	setIf(&c.SiteDir, f.Site.Dir)
	setIf(&c.Symbol, f.Site.Symbol)
	setIf(&c.PublishBranch, f.Publish.Branch)
	setIf(&c.PublishRemote, f.Publish.Remote)
	setIf(&c.SourceRemote, f.Publish.SourceRemote)
	setIf(&c.CommitPrefix, f.Publish.CommitPrefix)
	setIf(&c.GitUserName, f.Publish.UserName)
	setIf(&c.GitUserEmail, f.Publish.UserEmail)
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// LoadConfig builds the app configuration. path is an optional pipeline
// file; "" means env-only. A .env file is loaded first when present, the
// same convenience the original tooling offered.
func LoadConfig(path string) (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read pipeline file %s: %w", path, err)
		}
		var f pipelineFile
		if err := yaml.Unmarshal(b, &f); err != nil {
			return Config{}, fmt.Errorf("parse pipeline file %s: %w", path, err)
		}
		f.applyTo(&cfg)
	}
	cfg.applyEnv()
	cfg.setDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setIf(&c.SiteName, os.Getenv("SITE_NAME"))
	setIf(&c.SiteURL, os.Getenv("SITE_URL"))
	setIf(&c.Addr, os.Getenv("ADDR"))
	setIf(&c.SiteDir, os.Getenv("SITE_DIR"))
	setIf(&c.DatabasePath, os.Getenv("DATABASE_PATH"))
	setIf(&c.Symbol, os.Getenv("INDEX_SYMBOL"))
	setIf(&c.APIBaseURL, os.Getenv("FINANCIAL_API_BASE_URL"))
	setIf(&c.APIKey, os.Getenv("FINANCIAL_API_KEY"))
	setIf(&c.Schedule, os.Getenv("SCHEDULE"))
	setIf(&c.SourceBranch, os.Getenv("SOURCE_BRANCH"))
	setIf(&c.SourceRemote, os.Getenv("SOURCE_REMOTE"))
	setIf(&c.PublishBranch, os.Getenv("PUBLISH_BRANCH"))
	setIf(&c.PublishRemote, os.Getenv("PUBLISH_REMOTE"))
	setIf(&c.PublishRepoDir, os.Getenv("PUBLISH_REPO_DIR"))
	setIf(&c.CommitPrefix, os.Getenv("COMMIT_PREFIX"))
	setIf(&c.GitUserName, os.Getenv("GIT_USER_NAME"))
	setIf(&c.GitUserEmail, os.Getenv("GIT_USER_EMAIL"))
	setIf(&c.GitToken, os.Getenv("GIT_TOKEN"))
	setIf(&c.HookSecret, os.Getenv("HOOK_SECRET"))
	setIf(&c.AdminPassword, os.Getenv("ADMIN_PASSWORD"))
	setIf(&c.SessionSecret, os.Getenv("SESSION_SECRET"))
	setIf(&c.LogLevel, os.Getenv("LOG_LEVEL"))
	setIf(&c.LogFormat, os.Getenv("LOG_FORMAT"))

	if v := os.Getenv("COOKIE_SECURE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.CookieSecure = b
		}
	}
	if v := os.Getenv("SNAPSHOT_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.SnapshotCacheTTL = d
		}
	}
}
