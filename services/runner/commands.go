package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/02loveslollipop/corrosight/internal/feed"
	"github.com/02loveslollipop/corrosight/internal/params"
	"github.com/02loveslollipop/corrosight/internal/pipeline"
	"github.com/02loveslollipop/corrosight/internal/store"
	"github.com/02loveslollipop/corrosight/services/runner/internal/config"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "corrosight-runner",
		Short:         "Batch alignment and integrity analysis of ILI runs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newMigrateCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Analyse a dataset once and print the summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			applyFlags(cmd, &cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger := newLogger(cfg)

			prm, err := params.Load(cfg.ParamsPath)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
			defer cancel()

			var (
				src      pipeline.Source
				recorder pipeline.Recorder
			)
			if cfg.DatabaseURL != "" {
				db, err := store.New(ctx, cfg.DatabaseURL)
				if err != nil {
					return err
				}
				defer db.Close()
				if cfg.DryRun {
					logger.Info("dry-run: run history will not be recorded")
				} else {
					recorder = db
				}
				src = store.DatasetSource{Store: db, DatasetID: cfg.DatasetID}
			}
			if cfg.Source == config.SourceFeed {
				src = feed.Source{Client: &http.Client{Timeout: cfg.Timeout}, URL: cfg.FeedURL}
			}

			return execute(ctx, logger, src, prm, recorder, opts, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.Bool("dry-run", false, "Analyse without recording the run")
	flags.String("source", "", "Dataset source (db or feed)")
	flags.String("dataset", "", "Dataset id; defaults to the most recently updated")
	flags.String("feed-url", "", "URL of the JSON dataset feed")
	flags.String("params", "", "Path to a params YAML file")
	flags.Duration("timeout", 0, "Overall execution timeout")
	flags.IntVar(&opts.forecastYear, "forecast", 0, "Also project the latest run to this year")
	flags.IntVar(&opts.top, "top", 10, "Number of dig-list entries to include")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			cfg.Source = config.SourceDB
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
			defer cancel()

			db, err := store.New(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := db.Migrate(ctx); err != nil {
				return err
			}
			newLogger(cfg).Info("schema migrated")
			return nil
		},
	}
}

// applyFlags overlays explicitly set flags on the environment config.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("dry-run") {
		cfg.DryRun, _ = flags.GetBool("dry-run")
	}
	if flags.Changed("source") {
		cfg.Source, _ = flags.GetString("source")
	}
	if flags.Changed("dataset") {
		cfg.DatasetID, _ = flags.GetString("dataset")
	}
	if flags.Changed("feed-url") {
		cfg.FeedURL, _ = flags.GetString("feed-url")
	}
	if flags.Changed("params") {
		cfg.ParamsPath, _ = flags.GetString("params")
	}
	if flags.Changed("timeout") {
		cfg.Timeout, _ = flags.GetDuration("timeout")
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
}
