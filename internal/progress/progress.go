// Package progress reports merge progress. Reporters only observe; they
// never influence the merge.
package progress

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// Reporter observes the phases of a merge.
type Reporter interface {
	// Start begins a phase of total steps.
	Start(phase string, total int)
	// Advance records n completed steps of the current phase.
	Advance(n int)
	// Finish ends the current phase.
	Finish()
}

// Nop discards all progress.
type Nop struct{}

func (Nop) Start(string, int) {}
func (Nop) Advance(int)       {}
func (Nop) Finish()           {}

// Func adapts a callback to a Reporter. It is called with the running count
// after every change.
type Func func(phase string, done, total int)

type funcReporter struct {
	fn          Func
	phase       string
	done, total int
}

// FromFunc returns a Reporter that forwards counts to fn.
func FromFunc(fn Func) Reporter {
	return &funcReporter{fn: fn}
}

func (r *funcReporter) Start(phase string, total int) {
	r.phase, r.done, r.total = phase, 0, total
	r.fn(r.phase, r.done, r.total)
}

func (r *funcReporter) Advance(n int) {
	r.done += n
	r.fn(r.phase, r.done, r.total)
}

func (r *funcReporter) Finish() {}

// Log writes phase boundaries at info level and steps at debug level.
type Log struct {
	logger      *slog.Logger
	phase       string
	done, total int
}

// NewLog creates a Reporter backed by logger.
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

func (l *Log) Start(phase string, total int) {
	l.phase, l.done, l.total = phase, 0, total
	l.logger.Info(phase, "total", total)
}

func (l *Log) Advance(n int) {
	l.done += n
	l.logger.Debug(l.phase, "done", l.done, "total", l.total)
}

func (l *Log) Finish() {
	l.logger.Info(l.phase+" done", "count", l.done)
}

// Bar draws a single-line progress bar, redrawn in place with a carriage
// return. Meant for a terminal on stderr.
type Bar struct {
	w           io.Writer
	bar         progress.Model
	label       lipgloss.Style
	phase       string
	done, total int
}

// NewBar creates a Bar that draws to w.
func NewBar(w io.Writer) *Bar {
	return &Bar{
		w:     w,
		bar:   progress.New(progress.WithDefaultGradient(), progress.WithWidth(40), progress.WithoutPercentage()),
		label: lipgloss.NewStyle().Bold(true).Width(24),
	}
}

func (b *Bar) Start(phase string, total int) {
	b.phase, b.done, b.total = phase, 0, total
	b.draw()
}

func (b *Bar) Advance(n int) {
	b.done += n
	b.draw()
}

func (b *Bar) Finish() {
	b.draw()
	fmt.Fprintln(b.w)
}

// Percent returns the completed fraction of the current phase.
func (b *Bar) Percent() float64 {
	if b.total <= 0 {
		return 1
	}
	p := float64(b.done) / float64(b.total)
	if p > 1 {
		return 1
	}
	return p
}

func (b *Bar) draw() {
	fmt.Fprintf(b.w, "\r%s %s %d/%d", b.label.Render(b.phase), b.bar.ViewAs(b.Percent()), b.done, b.total)
}
