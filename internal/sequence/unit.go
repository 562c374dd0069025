package sequence

import (
	"errors"
	"fmt"

	"github.com/jackzampolin/cbzmerge/internal/page"
)

var (
	// ErrNoValidPages is returned for an archive that yields no pages.
	ErrNoValidPages = errors.New("no valid pages in archive")

	// ErrDuplicateEntry is returned for an entry name that occurs more than
	// once in an archive. Readers resolve entries by name, so only the first
	// occurrence is addressable.
	ErrDuplicateEntry = errors.New("duplicate entry name")
)

// InvalidPolicy decides what happens to an image entry whose name is not a
// page number.
type InvalidPolicy string

const (
	// SkipInvalid drops the entry and records a rejection.
	SkipInvalid InvalidPolicy = "skip"
	// AbortInvalid fails the archive on the first rejected entry.
	AbortInvalid InvalidPolicy = "abort"
)

// ParseInvalidPolicy parses a policy name. The empty string means skip.
func ParseInvalidPolicy(s string) (InvalidPolicy, error) {
	switch InvalidPolicy(s) {
	case "", SkipInvalid:
		return SkipInvalid, nil
	case AbortInvalid:
		return AbortInvalid, nil
	default:
		return "", fmt.Errorf("unknown invalid-entry policy %q (want skip or abort)", s)
	}
}

// Unit is one source archive: its position in the merge and its pages in
// page order.
type Unit struct {
	Index int
	Ref   string
	Pages []page.Page
}

// Rejection records an image entry that could not be classified.
type Rejection struct {
	ArchiveRef string `json:"archive" yaml:"archive"`
	Entry      string `json:"entry" yaml:"entry"`
	Reason     string `json:"reason" yaml:"reason"`
}

// NewUnit classifies the entries of one archive and orders its pages.
//
// Non-image entries are ignored. Image entries the parser rejects, and
// repeats of an entry name already seen, are returned as rejections, or
// abort with the error under AbortInvalid.
// A unit without pages is returned together with ErrNoValidPages.
func NewUnit(index int, ref string, entries []string, parser page.Parser, policy InvalidPolicy) (Unit, []Rejection, error) {
	u := Unit{Index: index, Ref: ref}
	var rejected []Rejection
	seen := make(map[string]struct{}, len(entries))

	for _, entry := range entries {
		if !page.IsImage(entry) {
			continue
		}
		p, err := parser.Parse(entry)
		if err == nil {
			if _, dup := seen[entry]; dup {
				err = fmt.Errorf("%w: %q", ErrDuplicateEntry, entry)
			}
		}
		if err != nil {
			if policy == AbortInvalid {
				return Unit{}, nil, fmt.Errorf("%s: %w", ref, err)
			}
			rejected = append(rejected, Rejection{ArchiveRef: ref, Entry: entry, Reason: err.Error()})
			continue
		}
		seen[entry] = struct{}{}
		u.Pages = append(u.Pages, p)
	}

	if len(u.Pages) == 0 {
		return u, rejected, fmt.Errorf("%s: %w", ref, ErrNoValidPages)
	}

	page.Sort(u.Pages)
	return u, rejected, nil
}
