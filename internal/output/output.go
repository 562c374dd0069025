// Package output writes merged pages to a .cbz archive or a PDF document.
//
// Writers never touch the destination until Finalize: pages go to a
// temporary file (and staging directory for PDFs) next to the destination,
// which is renamed into place once everything has been written. Discard
// removes the partial output.
package output

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	// ErrWriteFailed is returned when output cannot be written or committed.
	ErrWriteFailed = errors.New("write failed")

	// ErrDecodeFailed is returned when a page image cannot be decoded for
	// document output.
	ErrDecodeFailed = errors.New("decode failed")

	// ErrClosed is returned when writing to a finalized or discarded writer.
	ErrClosed = errors.New("writer closed")
)

// Format is an output container format.
type Format string

const (
	FormatCBZ Format = "cbz"
	FormatPDF Format = "pdf"
)

// ParseFormat parses a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimPrefix(s, "."))) {
	case FormatCBZ:
		return FormatCBZ, nil
	case FormatPDF:
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want cbz or pdf)", s)
	}
}

// FormatFromPath infers the format from the output file extension. ok is
// false when the extension names no known format.
func FormatFromPath(path string) (Format, bool) {
	f, err := ParseFormat(filepath.Ext(path))
	if err != nil {
		return "", false
	}
	return f, true
}

// Writer receives the pages of a merge in output order.
type Writer interface {
	// WritePage stores one page. name is the new entry name (stem plus
	// extension); spread marks a double-page image.
	WritePage(name string, spread bool, data []byte) error

	// Finalize commits the output to its destination.
	Finalize() error

	// Discard drops everything written so far. It is safe to call after
	// Finalize, in which case it does nothing.
	Discard() error
}

// Open creates a writer of the given format for the destination path.
func Open(format Format, path string) (Writer, error) {
	switch format {
	case FormatCBZ:
		return NewCBZWriter(path)
	case FormatPDF:
		return NewPDFWriter(path)
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}
