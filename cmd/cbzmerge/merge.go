package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jackzampolin/cbzmerge/internal/config"
	"github.com/jackzampolin/cbzmerge/internal/merge"
	"github.com/jackzampolin/cbzmerge/internal/output"
	"github.com/jackzampolin/cbzmerge/internal/page"
	"github.com/jackzampolin/cbzmerge/internal/progress"
	"github.com/jackzampolin/cbzmerge/internal/sequence"
)

var mergeNoProgress bool

var mergeCmd = &cobra.Command{
	Use:   "merge <inputdir> <output>",
	Short: "Merge the archives in a directory into one .cbz or PDF",
	Long: `Merge every .cbz archive in <inputdir>, in file name order, into <output>.

The output format is taken from --pdf or --format, then from the output
file extension, then from the output_format config key. Image entries whose
names are not page numbers are skipped with a warning (--on-invalid=abort
stops instead). An archive without any page is skipped.

Nothing is written at <output> unless the whole merge succeeds.

Examples:
  cbzmerge merge ./issues ./volume1.cbz
  cbzmerge merge ./issues ./volume1 --pdf
  cbzmerge merge ./issues ./volume1.cbz --on-invalid=abort -o json`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		cfg := e.config.Get()

		req, err := newRequest(cmd.Flags(), cfg, args[0], args[1], e.logger)
		if err != nil {
			return err
		}
		if cfg.Progress && !mergeNoProgress && isatty.IsTerminal(os.Stderr.Fd()) {
			req.Progress = progress.NewBar(os.Stderr)
		} else {
			req.Progress = progress.NewLog(e.logger)
		}

		res, err := merge.Run(cmd.Context(), req)
		if err != nil {
			return err
		}
		return printer.Print(res)
	},
}

func init() {
	addSequenceFlags(mergeCmd.Flags())
	addOutputFlags(mergeCmd.Flags())
	mergeCmd.Flags().BoolVar(&mergeNoProgress, "no-progress", false, "Do not draw a progress bar")

	rootCmd.AddCommand(mergeCmd)
}

// addSequenceFlags registers the flags that change how pages are renumbered.
// Their values reach the config through config.Manager.BindFlags.
func addSequenceFlags(fs *pflag.FlagSet) {
	fs.String("on-invalid", "skip", "Unrecognized page names: skip or abort")
	fs.Bool("strict-spreads", false, "Reject spreads whose second number is not the first plus one")
	fs.Int("min-width", sequence.DefaultMinWidth, "Minimum digits in output page numbers")
	fs.StringSlice("ext", []string{".cbz"}, "Archive extensions to merge")
}

func addOutputFlags(fs *pflag.FlagSet) {
	fs.Bool("pdf", false, "Write a PDF document (same as --format=pdf)")
	fs.String("format", "", "Output format: cbz or pdf (default: from output extension)")
}

// newRequest builds a merge request from the effective config.
func newRequest(fs *pflag.FlagSet, cfg *config.Config, inputDir, out string, logger *slog.Logger) (merge.Request, error) {
	policy, err := sequence.ParseInvalidPolicy(cfg.OnInvalid)
	if err != nil {
		return merge.Request{}, err
	}
	format, err := resolveFormat(fs, cfg, out)
	if err != nil {
		return merge.Request{}, err
	}

	return merge.Request{
		InputDir:   inputDir,
		Extensions: cfg.ArchiveExtensions,
		Output:     out,
		Format:     format,
		Parser:     page.Parser{StrictSpreads: cfg.StrictSpreads},
		OnInvalid:  policy,
		MinWidth:   cfg.MinWidth,
		Logger:     logger,
	}, nil
}

// resolveFormat picks the output format: --pdf, then an explicit --format,
// then the output extension, then the configured default.
func resolveFormat(fs *pflag.FlagSet, cfg *config.Config, out string) (output.Format, error) {
	if pdf, err := fs.GetBool("pdf"); err == nil && pdf {
		return output.FormatPDF, nil
	}
	if f := fs.Lookup("format"); f != nil && f.Changed {
		return output.ParseFormat(f.Value.String())
	}
	if format, ok := output.FormatFromPath(out); ok {
		return format, nil
	}
	format, err := output.ParseFormat(cfg.OutputFormat)
	if err != nil {
		return "", fmt.Errorf("output_format: %w", err)
	}
	return format, nil
}
