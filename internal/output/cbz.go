package output

import (
	"archive/zip"
	"fmt"
	"os"
)

// CBZWriter writes pages as entries of a zip archive. Page bytes are stored
// unchanged.
type CBZWriter struct {
	out    *pending
	f      *os.File
	zw     *zip.Writer
	names  map[string]struct{}
	closed bool
}

var _ Writer = (*CBZWriter)(nil)

// NewCBZWriter starts a .cbz archive that will be committed to path.
func NewCBZWriter(path string) (*CBZWriter, error) {
	out, err := newPending(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Create(out.tmp)
	if err != nil {
		return nil, fmt.Errorf("%w: create %s: %v", ErrWriteFailed, out.tmp, err)
	}
	return &CBZWriter{
		out:   out,
		f:     f,
		zw:    zip.NewWriter(f),
		names: make(map[string]struct{}),
	}, nil
}

// WritePage adds one entry named name.
func (w *CBZWriter) WritePage(name string, spread bool, data []byte) error {
	if w.closed {
		return ErrClosed
	}
	if _, dup := w.names[name]; dup {
		return fmt.Errorf("%w: duplicate entry %q", ErrWriteFailed, name)
	}

	ew, err := w.zw.CreateHeader(&zip.FileHeader{
		Name:   name,
		Method: zip.Deflate,
	})
	if err != nil {
		return fmt.Errorf("%w: create entry %s: %v", ErrWriteFailed, name, err)
	}
	if _, err := ew.Write(data); err != nil {
		return fmt.Errorf("%w: write entry %s: %v", ErrWriteFailed, name, err)
	}
	w.names[name] = struct{}{}
	return nil
}

// Finalize closes the archive and moves it to its destination.
func (w *CBZWriter) Finalize() error {
	if w.closed {
		return ErrClosed
	}
	w.closed = true

	if err := w.zw.Close(); err != nil {
		w.f.Close()
		w.out.abandon()
		return fmt.Errorf("%w: finalize archive: %v", ErrWriteFailed, err)
	}
	if err := w.f.Sync(); err != nil {
		w.f.Close()
		w.out.abandon()
		return fmt.Errorf("%w: sync archive: %v", ErrWriteFailed, err)
	}
	if err := w.f.Close(); err != nil {
		w.out.abandon()
		return fmt.Errorf("%w: close archive: %v", ErrWriteFailed, err)
	}
	return w.out.commit()
}

// Discard removes the partial archive.
func (w *CBZWriter) Discard() error {
	if w.closed {
		return nil
	}
	w.closed = true
	_ = w.zw.Close()
	_ = w.f.Close()
	return w.out.abandon()
}
