// Package page classifies archive entry names into comic pages.
package page

import (
	"errors"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	// ErrUnrecognizedName is returned when an image entry is neither a single
	// page ("014.jpg") nor a spread ("018-019.jpg").
	ErrUnrecognizedName = errors.New("unrecognized page name")

	// ErrSpreadMismatch is returned in strict mode when the second number of a
	// spread is not the first plus one.
	ErrSpreadMismatch = errors.New("spread numbers are not consecutive")
)

// Kind is the structural variant of a page.
type Kind int

const (
	Single Kind = iota
	Spread
)

func (k Kind) String() string {
	switch k {
	case Single:
		return "single"
	case Spread:
		return "spread"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ImageExtensions lists the entry extensions treated as page images.
var ImageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp", ".tif", ".tiff"}

var (
	singleRe = regexp.MustCompile(`^(\d+)(\.[A-Za-z0-9]+)$`)
	spreadRe = regexp.MustCompile(`^(\d+)-(\d+)(\.[A-Za-z0-9]+)$`)
)

// Page is a classified archive entry.
type Page struct {
	Entry   string // Full entry name inside the archive
	Kind    Kind
	Number  int    // Leading page number
	Pair    int    // Second number of a spread, 0 for singles
	Printed string // Leading number as written, zero padding kept
	Ext     string // Extension as written, including the dot
}

// IsSpread reports whether the page is a double-page spread.
func (p Page) IsSpread() bool {
	return p.Kind == Spread
}

// Parser classifies entry names.
type Parser struct {
	// StrictSpreads rejects spreads whose numbers are not consecutive.
	StrictSpreads bool
}

// Parse classifies a single entry name. Entries in subfolders are classified
// by their base name. Parse has no side effects.
func (p Parser) Parse(entry string) (Page, error) {
	base := path.Base(entry)
	ext := path.Ext(base)
	if !isImageExt(ext) {
		return Page{}, fmt.Errorf("%w: %q", ErrUnrecognizedName, entry)
	}

	if m := spreadRe.FindStringSubmatch(base); m != nil {
		first, err := strconv.Atoi(m[1])
		if err != nil {
			return Page{}, fmt.Errorf("%w: %q", ErrUnrecognizedName, entry)
		}
		second, err := strconv.Atoi(m[2])
		if err != nil {
			return Page{}, fmt.Errorf("%w: %q", ErrUnrecognizedName, entry)
		}
		if p.StrictSpreads && second != first+1 {
			return Page{}, fmt.Errorf("%w: %q: %w", ErrUnrecognizedName, entry, ErrSpreadMismatch)
		}
		return Page{
			Entry:   entry,
			Kind:    Spread,
			Number:  first,
			Pair:    second,
			Printed: m[1],
			Ext:     m[3],
		}, nil
	}

	if m := singleRe.FindStringSubmatch(base); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return Page{}, fmt.Errorf("%w: %q", ErrUnrecognizedName, entry)
		}
		return Page{
			Entry:   entry,
			Kind:    Single,
			Number:  n,
			Printed: m[1],
			Ext:     m[2],
		}, nil
	}

	return Page{}, fmt.Errorf("%w: %q", ErrUnrecognizedName, entry)
}

// IsImage reports whether an archive entry should be considered a page at
// all. Directories, metadata files and macOS resource forks are not pages.
func IsImage(entry string) bool {
	if entry == "" || strings.HasSuffix(entry, "/") {
		return false
	}
	if strings.HasPrefix(entry, "__MACOSX/") || strings.Contains(entry, "/__MACOSX/") {
		return false
	}
	base := path.Base(entry)
	if strings.HasPrefix(base, "._") || strings.HasPrefix(base, ".") {
		return false
	}
	return isImageExt(path.Ext(base))
}

func isImageExt(ext string) bool {
	ext = strings.ToLower(ext)
	for _, e := range ImageExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Sort orders pages by leading page number. Equal numbers keep their
// listing order.
func Sort(pages []Page) {
	sort.SliceStable(pages, func(i, j int) bool {
		return pages[i].Number < pages[j].Number
	})
}
