package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	crashedyet "github.com/Anaethelion/havewecrashedyet"
	"github.com/Anaethelion/havewecrashedyet/pipeline"
)

// version is set at build time via ldflags.
var version = "dev"

// defaultConfigPath is picked up when present; the pipeline file is
// optional, so a missing default is env-only mode, not an error.
const defaultConfigPath = "pipeline.yaml"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootFlags struct {
	configPath string
	siteDir    string
	debug      bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:          "havewecrashedyet",
		Short:        "Market crash status page generator and server",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", defaultConfigPath, "path to the pipeline config file")
	cmd.PersistentFlags().StringVar(&flags.siteDir, "site-dir", "", "override the site workspace directory")
	cmd.PersistentFlags().BoolVar(&flags.debug, "debug", false, "enable debug logging")

	cmd.AddCommand(serveCmd(flags))
	cmd.AddCommand(runCmd(flags))
	cmd.AddCommand(versionCmd())
	return cmd
}

func loadConfig(flags *rootFlags) (crashedyet.Config, error) {
	path := flags.configPath
	if path == defaultConfigPath {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			path = ""
		}
	}
	cfg, err := crashedyet.LoadConfig(path)
	if err != nil {
		return cfg, err
	}
	if flags.siteDir != "" {
		cfg.SiteDir = flags.siteDir
	}
	if flags.debug {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

func serveCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the status page and run the pipeline on schedule",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			app := crashedyet.New(cfg)
			defer app.Close()

			go func() {
				quit := make(chan os.Signal, 1)
				signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
				<-quit
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				_ = app.Echo.Shutdown(ctx)
			}()

			return app.Start()
		},
	}
}

func runCmd(flags *rootFlags) *cobra.Command {
	var detail string

	c := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline once and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			app := crashedyet.New(cfg)
			if err := app.Init(); err != nil {
				return err
			}
			defer app.Close()

			trig := pipeline.Trigger{Kind: pipeline.TriggerManual, Detail: detail}
			res, err := app.RunPipeline(cmd.Context(), trig)
			if err != nil {
				return err
			}
			if !res.OK() {
				return fmt.Errorf("run %s failed: %w", res.ID, res.Err)
			}
			fmt.Printf("run %s finished: %s (%s)\n", res.ID, res.Status.Text, res.Status.Class)
			return nil
		},
	}
	c.Flags().StringVar(&detail, "message", "", "commit message detail for this run")
	return c
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("havewecrashedyet %s\n", version)
		},
	}
}
