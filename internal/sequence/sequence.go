// Package sequence renumbers the pages of several archives into one global
// page sequence.
//
// Numbering starts at 1 and continues across archive boundaries. A single
// page takes one number and a spread takes two ("014-015"). Stems are zero
// padded to a width derived from the highest number of the whole run, so
// sequencing happens in two passes: numbers first, names second.
package sequence

import (
	"fmt"
	"strconv"

	"github.com/jackzampolin/cbzmerge/internal/page"
)

// DefaultMinWidth is the minimum stem width ("01").
const DefaultMinWidth = 2

// Counter is the running page number. It is a value: Advance returns the
// next counter and leaves the receiver untouched.
type Counter struct {
	next int
}

// NewCounter returns a counter positioned at page 1.
func NewCounter() Counter {
	return Counter{next: 1}
}

// Next returns the number the next page will receive.
func (c Counter) Next() int {
	return c.next
}

// Advance assigns a number to one page and returns it with the advanced
// counter.
func (c Counter) Advance(kind page.Kind) (int, Counter) {
	switch kind {
	case page.Spread:
		return c.next, Counter{next: c.next + 2}
	case page.Single:
		return c.next, Counter{next: c.next + 1}
	default:
		panic(fmt.Sprintf("sequence: unknown page kind %v", kind))
	}
}

// Last returns the highest number assigned so far, 0 before any page.
func (c Counter) Last() int {
	return c.next - 1
}

// OutputPage is one page of the merged output.
type OutputPage struct {
	Stem         string `json:"stem" yaml:"stem"`
	Start        int    `json:"start" yaml:"start"`
	Spread       bool   `json:"spread" yaml:"spread"`
	Ext          string `json:"ext" yaml:"ext"`
	ArchiveIndex int    `json:"archive_index" yaml:"archive_index"`
	ArchiveRef   string `json:"archive" yaml:"archive"`
	Entry        string `json:"entry" yaml:"entry"`
}

// Filename returns the output entry name, stem plus original extension.
func (p OutputPage) Filename() string {
	return p.Stem + p.Ext
}

// Sequence is the globally renumbered page list of one merge run.
type Sequence struct {
	Pages []OutputPage `json:"pages" yaml:"pages"`
	Last  int          `json:"last_page" yaml:"last_page"`
	Width int          `json:"width" yaml:"width"`
}

// Options tunes stem rendering.
type Options struct {
	MinWidth int // Minimum digits per number, DefaultMinWidth when <= 0
}

// assignment is a page with its number, before the width is known.
type assignment struct {
	unit  int
	page  page.Page
	start int
}

// Build renumbers the units in the order given. Units without pages
// contribute nothing.
func Build(units []Unit, opts Options) *Sequence {
	// Pass one: thread the counter through every page.
	counter := NewCounter()
	assigned := make([]assignment, 0, countPages(units))
	for ui, u := range units {
		for _, p := range u.Pages {
			var start int
			start, counter = counter.Advance(p.Kind)
			assigned = append(assigned, assignment{unit: ui, page: p, start: start})
		}
	}

	width := Width(counter.Last(), opts.MinWidth)

	// Pass two: render stems at the final width.
	seq := &Sequence{
		Pages: make([]OutputPage, 0, len(assigned)),
		Last:  counter.Last(),
		Width: width,
	}
	for _, a := range assigned {
		u := units[a.unit]
		seq.Pages = append(seq.Pages, OutputPage{
			Stem:         Stem(a.start, a.page.Kind, width),
			Start:        a.start,
			Spread:       a.page.IsSpread(),
			Ext:          a.page.Ext,
			ArchiveIndex: u.Index,
			ArchiveRef:   u.Ref,
			Entry:        a.page.Entry,
		})
	}
	return seq
}

func countPages(units []Unit) int {
	n := 0
	for _, u := range units {
		n += len(u.Pages)
	}
	return n
}

// Width returns the padding width for a run whose highest page number is
// last.
func Width(last, minWidth int) int {
	if minWidth <= 0 {
		minWidth = DefaultMinWidth
	}
	w := len(strconv.Itoa(last))
	if w < minWidth {
		return minWidth
	}
	return w
}

// Stem renders the filename stem of a page starting at n.
func Stem(n int, kind page.Kind, width int) string {
	switch kind {
	case page.Spread:
		return fmt.Sprintf("%0*d-%0*d", width, n, width, n+1)
	case page.Single:
		return fmt.Sprintf("%0*d", width, n)
	default:
		panic(fmt.Sprintf("sequence: unknown page kind %v", kind))
	}
}

// Len returns the number of output pages.
func (s *Sequence) Len() int {
	return len(s.Pages)
}

// Validate checks the numbering invariants: numbers start at 1, increase by
// one per single and two per spread, every stem has the sequence width and
// no stem repeats.
func (s *Sequence) Validate() error {
	next := 1
	seen := make(map[string]struct{}, len(s.Pages))
	for i, p := range s.Pages {
		if p.Start != next {
			return fmt.Errorf("page %d (%s): starts at %d, expected %d", i, p.Stem, p.Start, next)
		}
		kind := page.Single
		if p.Spread {
			kind = page.Spread
		}
		if want := Stem(p.Start, kind, s.Width); p.Stem != want {
			return fmt.Errorf("page %d: stem %q, expected %q", i, p.Stem, want)
		}
		if _, dup := seen[p.Stem]; dup {
			return fmt.Errorf("page %d: duplicate stem %q", i, p.Stem)
		}
		seen[p.Stem] = struct{}{}
		if p.Spread {
			next += 2
		} else {
			next++
		}
	}
	if s.Last != next-1 {
		return fmt.Errorf("last page %d, expected %d", s.Last, next-1)
	}
	return nil
}
