package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/cbzmerge/internal/archive"
	"github.com/jackzampolin/cbzmerge/internal/merge"
	"github.com/jackzampolin/cbzmerge/internal/progress"
)

var planCheck bool

// planSummary is what plan --check prints.
type planSummary struct {
	Archives int    `json:"archives" yaml:"archives"`
	Skipped  int    `json:"skipped" yaml:"skipped"`
	Rejected int    `json:"rejected" yaml:"rejected"`
	Pages    int    `json:"pages" yaml:"pages"`
	LastPage int    `json:"last_page" yaml:"last_page"`
	Width    int    `json:"width" yaml:"width"`
	First    string `json:"first" yaml:"first"`
	Last     string `json:"last" yaml:"last"`
	Readable bool   `json:"readable" yaml:"readable"`
}

var planCmd = &cobra.Command{
	Use:   "plan <inputdir>",
	Short: "Show how the archives in a directory would be renumbered",
	Long: `Print the renumbering a merge of <inputdir> would produce, without writing
anything: the archives in merge order, every output page with the archive
entry it comes from, skipped archives and rejected entries.

With --check only a summary is printed, after every planned entry has been
read back from its archive.

Examples:
  cbzmerge plan ./issues
  cbzmerge plan ./issues --check -o json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}

		req, err := newRequest(cmd.Flags(), e.config.Get(), args[0], "", e.logger)
		if err != nil {
			return err
		}
		req.Progress = progress.NewLog(e.logger)

		reader := archive.NewZipReader()
		defer reader.Close()

		plan, err := merge.BuildPlan(cmd.Context(), reader, req)
		if err != nil {
			return err
		}
		if !planCheck {
			return printer.Print(plan)
		}

		if err := plan.Sequence.Validate(); err != nil {
			return err
		}
		for _, p := range plan.Sequence.Pages {
			if err := cmd.Context().Err(); err != nil {
				return err
			}
			if _, err := reader.Read(p.ArchiveRef, p.Entry); err != nil {
				return fmt.Errorf("page %s (%s in %s): %w", p.Filename(), p.Entry, filepath.Base(p.ArchiveRef), err)
			}
		}

		seq := plan.Sequence
		return printer.Print(planSummary{
			Archives: len(plan.Archives) - len(plan.Skipped),
			Skipped:  len(plan.Skipped),
			Rejected: len(plan.Rejected),
			Pages:    seq.Len(),
			LastPage: seq.Last,
			Width:    seq.Width,
			First:    seq.Pages[0].Filename(),
			Last:     seq.Pages[seq.Len()-1].Filename(),
			Readable: true,
		})
	},
}

func init() {
	addSequenceFlags(planCmd.Flags())
	planCmd.Flags().BoolVar(&planCheck, "check", false, "Verify the plan and every page entry, print a summary")

	rootCmd.AddCommand(planCmd)
}
