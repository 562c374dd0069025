// Package merge combines the pages of several comic archives into one
// renumbered .cbz archive or PDF document.
package merge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/cbzmerge/internal/archive"
	"github.com/jackzampolin/cbzmerge/internal/output"
	"github.com/jackzampolin/cbzmerge/internal/page"
	"github.com/jackzampolin/cbzmerge/internal/progress"
	"github.com/jackzampolin/cbzmerge/internal/sequence"
)

// ErrNothingToMerge is returned when no archive contributes a page.
var ErrNothingToMerge = errors.New("nothing to merge")

// Request contains the parameters of a merge.
type Request struct {
	InputDir   string                 // Directory searched for archives (ignored when Archives is set)
	Archives   []string               // Explicit archives, merged in the given order
	Extensions []string               // Archive extensions for discovery (default .cbz)
	Output     string                 // Destination file
	Format     output.Format          // Output format
	Parser     page.Parser            // Page name classification
	OnInvalid  sequence.InvalidPolicy // What to do with unrecognized page names
	MinWidth   int                    // Minimum stem width (default 2)
	Progress   progress.Reporter      // Optional progress observer
	Logger     *slog.Logger           // Optional logger
}

// SkippedArchive is an archive that contributed no pages.
type SkippedArchive struct {
	Archive string `json:"archive" yaml:"archive"`
	Reason  string `json:"reason" yaml:"reason"`
}

// Plan is the renumbering of a merge before any page is written.
type Plan struct {
	Archives []string             `json:"archives" yaml:"archives"`
	Sequence *sequence.Sequence   `json:"sequence" yaml:"sequence"`
	Skipped  []SkippedArchive     `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Rejected []sequence.Rejection `json:"rejected,omitempty" yaml:"rejected,omitempty"`
}

// Result describes a completed merge.
type Result struct {
	RunID    string               `json:"run_id" yaml:"run_id"`
	Output   string               `json:"output" yaml:"output"`
	Format   output.Format        `json:"format" yaml:"format"`
	Archives int                  `json:"archives" yaml:"archives"`
	Pages    int                  `json:"pages" yaml:"pages"`
	Spreads  int                  `json:"spreads" yaml:"spreads"`
	LastPage int                  `json:"last_page" yaml:"last_page"`
	Skipped  []SkippedArchive     `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Rejected []sequence.Rejection `json:"rejected,omitempty" yaml:"rejected,omitempty"`
	Duration string               `json:"duration" yaml:"duration"`
}

func (req *Request) logger() *slog.Logger {
	if req.Logger == nil {
		return slog.Default()
	}
	return req.Logger
}

func (req *Request) reporter() progress.Reporter {
	if req.Progress == nil {
		return progress.Nop{}
	}
	return req.Progress
}

// archives returns the archives to merge in merge order.
func (req *Request) archives() ([]string, error) {
	if len(req.Archives) > 0 {
		return req.Archives, nil
	}
	if req.InputDir == "" {
		return nil, fmt.Errorf("no input directory or archives provided")
	}
	found, err := archive.Discover(req.InputDir, req.Extensions...)
	if err != nil {
		return nil, err
	}
	if req.Output == "" {
		return found, nil
	}

	// A previous merge written into the input directory is not an input.
	paths := found[:0]
	for _, p := range found {
		if !samePath(p, req.Output) {
			paths = append(paths, p)
		}
	}
	return paths, nil
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

// BuildPlan discovers the archives, classifies their entries and computes
// the renumbered sequence. Nothing is written.
func BuildPlan(ctx context.Context, reader archive.Reader, req Request) (*Plan, error) {
	log := req.logger()

	paths, err := req.archives()
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no archives found in %s", ErrNothingToMerge, req.InputDir)
	}
	log.Info("planning merge", "archives", len(paths))

	plan := &Plan{Archives: paths}
	units, err := readUnits(ctx, reader, req, plan)
	if err != nil {
		return nil, err
	}

	plan.Sequence = sequence.Build(units, sequence.Options{MinWidth: req.MinWidth})
	if plan.Sequence.Len() == 0 {
		return nil, fmt.Errorf("%w: no archive contains pages", ErrNothingToMerge)
	}
	if err := plan.Sequence.Validate(); err != nil {
		return nil, fmt.Errorf("invalid page sequence: %w", err)
	}

	log.Info("planned merge",
		"pages", plan.Sequence.Len(),
		"last_page", plan.Sequence.Last,
		"skipped_archives", len(plan.Skipped),
		"rejected_entries", len(plan.Rejected),
	)
	return plan, nil
}

// readUnits lists and classifies every archive of plan in order, recording
// skipped archives and rejected entries on plan.
func readUnits(ctx context.Context, reader archive.Reader, req Request, plan *Plan) ([]sequence.Unit, error) {
	log := req.logger()
	report := req.reporter()
	units := make([]sequence.Unit, 0, len(plan.Archives))

	report.Start("reading archives", len(plan.Archives))
	defer report.Finish()

	for i, ref := range plan.Archives {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		entries, err := reader.List(ref)
		if err != nil {
			return nil, err
		}

		unit, rejected, err := sequence.NewUnit(i, ref, entries, req.Parser, req.OnInvalid)
		for _, r := range rejected {
			log.Warn("skipping page entry", "archive", filepath.Base(ref), "entry", r.Entry, "reason", r.Reason)
		}
		plan.Rejected = append(plan.Rejected, rejected...)

		switch {
		case errors.Is(err, sequence.ErrNoValidPages):
			log.Warn("archive has no valid pages, skipping", "archive", filepath.Base(ref))
			plan.Skipped = append(plan.Skipped, SkippedArchive{Archive: ref, Reason: err.Error()})
		case err != nil:
			return nil, err
		default:
			log.Debug("read archive", "archive", filepath.Base(ref), "pages", len(unit.Pages))
			units = append(units, unit)
		}
		report.Advance(1)
	}
	return units, nil
}

// Run plans the merge and writes the output. On any error the partial
// output is discarded and the destination is left untouched.
func Run(ctx context.Context, req Request) (*Result, error) {
	log := req.logger()
	start := time.Now()
	runID := uuid.New().String()
	log = log.With("run_id", runID)
	req.Logger = log

	if req.Output == "" {
		return nil, fmt.Errorf("no output path provided")
	}
	if req.Format == "" {
		req.Format = output.FormatCBZ
	}

	reader := archive.NewZipReader()
	defer reader.Close()

	plan, err := BuildPlan(ctx, reader, req)
	if err != nil {
		return nil, err
	}

	w, err := output.Open(req.Format, req.Output)
	if err != nil {
		return nil, err
	}

	spreads, err := Materialize(ctx, reader, plan.Sequence, w, req.reporter(), log)
	if err != nil {
		if derr := w.Discard(); derr != nil {
			log.Warn("failed to discard partial output", "error", derr)
		}
		return nil, err
	}
	if err := w.Finalize(); err != nil {
		return nil, err
	}

	log.Info("merge complete", "output", req.Output, "pages", plan.Sequence.Len())

	return &Result{
		RunID:    runID,
		Output:   req.Output,
		Format:   req.Format,
		Archives: len(plan.Archives) - len(plan.Skipped),
		Pages:    plan.Sequence.Len(),
		Spreads:  spreads,
		LastPage: plan.Sequence.Last,
		Skipped:  plan.Skipped,
		Rejected: plan.Rejected,
		Duration: time.Since(start).Round(time.Millisecond).String(),
	}, nil
}

// Materialize copies every page of seq from the archives into w in order.
// It returns the number of spreads written. The writer is neither finalized
// nor discarded.
func Materialize(ctx context.Context, reader archive.Reader, seq *sequence.Sequence, w output.Writer, report progress.Reporter, log *slog.Logger) (int, error) {
	if report == nil {
		report = progress.Nop{}
	}
	if log == nil {
		log = slog.Default()
	}

	spreads := 0
	report.Start("writing pages", seq.Len())
	defer report.Finish()

	for _, p := range seq.Pages {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		data, err := reader.Read(p.ArchiveRef, p.Entry)
		if err != nil {
			return 0, err
		}
		if err := w.WritePage(p.Filename(), p.Spread, data); err != nil {
			return 0, err
		}
		if p.Spread {
			spreads++
		}
		log.Debug("wrote page", "page", p.Filename(), "archive", filepath.Base(p.ArchiveRef), "entry", p.Entry)
		report.Advance(1)
	}
	return spreads, nil
}
