package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/cbzmerge/internal/config"
	"github.com/jackzampolin/cbzmerge/internal/home"
	"github.com/jackzampolin/cbzmerge/internal/report"
	"github.com/jackzampolin/cbzmerge/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
	logLevel     string

	printer *report.Printer
)

var rootCmd = &cobra.Command{
	Use:   "cbzmerge",
	Short: "Merge comic book archives into one renumbered .cbz or PDF",
	Long: `cbzmerge merges the pages of several comic book archives (.cbz) into
a single archive or PDF document.

Archives are taken in file name order. Pages are renumbered continuously
across archives, double-page spreads like 18-19.jpg stay together, and
every page number is zero padded to the same width:

  issue1.cbz: 01.jpg 02-03.jpg 04.jpg
  issue2.cbz: 01.jpg 02.jpg
  merged:     01.jpg 02-03.jpg 04.jpg 05.jpg 06.jpg`,
	Version:      version.GitRelease,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.cbzmerge/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "cbzmerge home directory (default: ~/.cbzmerge)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "info", "log level: debug, info, warn or error",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		format, err := report.ParseFormat(outputFormat)
		if err != nil {
			return err
		}
		printer = report.NewPrinter(cmd.OutOrStdout(), format)
		return nil
	}

	rootCmd.AddCommand(versionCmd)
}

// env is what every command works with: the resolved home directory, the
// config manager with flags bound and a logger at the configured level.
type env struct {
	home   *home.Dir
	config *config.Manager
	logger *slog.Logger
}

// loadEnv resolves the home directory and configuration for cmd. Flags set on
// the command line override the config file and environment.
func loadEnv(cmd *cobra.Command) (*env, error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, err
	}

	mgr, err := config.NewManager(cfgFile, h.Path())
	if err != nil {
		return nil, err
	}
	if err := mgr.BindFlags(cmd.Flags()); err != nil {
		return nil, err
	}
	if err := config.Validate(mgr.Get()); err != nil {
		if f := mgr.ConfigFile(); f != "" {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
		return nil, err
	}

	logger, err := newLogger(mgr.Get().LogLevel)
	if err != nil {
		return nil, err
	}
	if f := mgr.ConfigFile(); f != "" {
		logger.Debug("loaded config", "file", f)
	}

	return &env{home: h, config: mgr, logger: logger}, nil
}

// newLogger returns a text logger on stderr, keeping stdout for reports.
func newLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: lvl,
	})), nil
}
