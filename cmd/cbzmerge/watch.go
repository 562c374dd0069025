package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/cbzmerge/internal/config"
	"github.com/jackzampolin/cbzmerge/internal/merge"
	"github.com/jackzampolin/cbzmerge/internal/progress"
	"github.com/jackzampolin/cbzmerge/internal/watch"
)

var watchNoInitial bool

var watchCmd = &cobra.Command{
	Use:   "watch <inputdir> <output>",
	Short: "Merge again whenever the archives in a directory change",
	Long: `Watch <inputdir> and merge it into <output> every time an archive is
added, changed, removed or renamed. Changes are collected until the
directory has been quiet for the debounce interval (watch.debounce).

A failed merge is logged and watching continues; the previous output stays
in place. The config file is reloaded when it changes, so the next merge
uses the new settings. Stop with Ctrl+C.

Examples:
  cbzmerge watch ./issues ./volume1.cbz
  cbzmerge watch ./incoming ./latest.pdf --debounce=10s`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		inputDir, out := args[0], args[1]
		log := e.logger

		e.config.OnChange(func(cfg *config.Config) {
			if err := config.Validate(cfg); err != nil {
				log.Warn("reloaded config is invalid, keeping previous settings for merges", "error", err)
				return
			}
			log.Info("config reloaded", "file", e.config.ConfigFile())
		})
		e.config.WatchConfig()

		cfg := e.config.Get()
		debounce, err := cfg.Watch.DebounceDuration()
		if err != nil {
			return err
		}

		last := cfg
		w, err := watch.New(watch.Config{
			Dir:        inputDir,
			Extensions: cfg.ArchiveExtensions,
			Ignore:     []string{out},
			Debounce:   debounce,
			RunOnStart: !watchNoInitial,
			Logger:     log,
			Run: func(ctx context.Context) error {
				cfg := e.config.Get()
				if config.Validate(cfg) != nil {
					cfg = last
				}
				last = cfg

				req, err := newRequest(cmd.Flags(), cfg, inputDir, out, log)
				if err != nil {
					return err
				}
				req.Progress = progress.NewLog(log)

				res, err := merge.Run(ctx, req)
				if err != nil {
					return err
				}
				return printer.Print(res)
			},
		})
		if err != nil {
			return err
		}
		if err := w.Watch(cmd.Context()); err != nil {
			return err
		}

		runs, failed := w.Stats()
		log.Info("stopped watching", "merges", runs, "failed", failed)
		return nil
	},
}

func init() {
	addSequenceFlags(watchCmd.Flags())
	addOutputFlags(watchCmd.Flags())
	watchCmd.Flags().String("debounce", "2s", "Quiet period before merging after a change")
	watchCmd.Flags().BoolVar(&watchNoInitial, "no-initial", false, "Do not merge on start, only on changes")

	rootCmd.AddCommand(watchCmd)
}
