// Package archive discovers comic archives and reads their entries.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrArchiveUnreadable is returned when an archive cannot be opened.
	ErrArchiveUnreadable = errors.New("archive unreadable")

	// ErrEntryNotFound is returned when an entry is not in its archive.
	ErrEntryNotFound = errors.New("entry not found")
)

// DefaultExtensions are the archive extensions picked up by Discover.
var DefaultExtensions = []string{".cbz"}

// Reader lists and reads archive entries. ref identifies an archive, for the
// zip implementation its file path.
type Reader interface {
	// List returns the entry names of an archive in listing order.
	List(ref string) ([]string, error)

	// Read returns the raw bytes of one entry.
	Read(ref, entry string) ([]byte, error)

	// Close releases any archives held open.
	Close() error
}

// ZipReader reads .cbz (zip) archives from disk. Archives stay open until
// Close so each file is only parsed once per run.
type ZipReader struct {
	mu   sync.Mutex
	open map[string]*zip.ReadCloser
}

// NewZipReader creates a reader for zip based archives.
func NewZipReader() *ZipReader {
	return &ZipReader{open: make(map[string]*zip.ReadCloser)}
}

var _ Reader = (*ZipReader)(nil)

func (r *ZipReader) archive(ref string) (*zip.ReadCloser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if zr, ok := r.open[ref]; ok {
		return zr, nil
	}
	zr, err := zip.OpenReader(ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrArchiveUnreadable, ref, err)
	}
	r.open[ref] = zr
	return zr, nil
}

// List returns the entry names of the archive at ref.
func (r *ZipReader) List(ref string) ([]string, error) {
	zr, err := r.archive(ref)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names, nil
}

// Read returns the decompressed bytes of entry.
func (r *ZipReader) Read(ref, entry string) ([]byte, error) {
	zr, err := r.archive(ref)
	if err != nil {
		return nil, err
	}
	for _, f := range zr.File {
		if f.Name != entry {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: open %s: %v", ErrArchiveUnreadable, ref, entry, err)
		}
		defer rc.Close()

		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: read %s: %v", ErrArchiveUnreadable, ref, entry, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%w: %s in %s", ErrEntryNotFound, entry, ref)
}

// Close closes every archive opened by the reader.
func (r *ZipReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for ref, zr := range r.open {
		if err := zr.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", ref, err))
		}
		delete(r.open, ref)
	}
	return errors.Join(errs...)
}

// Discover returns the archives in dir in merge order: regular files whose
// extension matches one of exts (case-insensitive), sorted lexically by file
// name. With no exts, DefaultExtensions apply. Subdirectories are not
// searched.
func Discover(dir string, exts ...string) ([]string, error) {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if MatchExtension(entry.Name(), exts) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(dir, name)
	}
	return paths, nil
}

// MatchExtension reports whether name ends in one of exts, ignoring case.
func MatchExtension(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return false
	}
	for _, e := range exts {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}
