package output

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// PageResolution is the pixel density assumed for page images, in dots per
// inch. It decides the physical size of PDF pages.
const PageResolution = 100.0

var disableConfigDir sync.Once

// PDFWriter renders every page as one PDF page sized to its image, so a
// spread becomes a single wide page. Each page is imported into its own
// single-page PDF in a staging directory; Finalize merges them.
type PDFWriter struct {
	out    *pending
	stage  string
	conf   *model.Configuration
	pages  []string
	closed bool
}

var _ Writer = (*PDFWriter)(nil)

// NewPDFWriter starts a PDF document that will be committed to path.
func NewPDFWriter(path string) (*PDFWriter, error) {
	disableConfigDir.Do(api.DisableConfigDir)

	out, err := newPending(path)
	if err != nil {
		return nil, err
	}
	stage, err := os.MkdirTemp(filepath.Dir(path), ".cbzmerge-pages-*")
	if err != nil {
		return nil, fmt.Errorf("%w: create staging directory: %v", ErrWriteFailed, err)
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	return &PDFWriter{out: out, stage: stage, conf: conf}, nil
}

// WritePage appends one page. Pages keep call order; name only shows up in
// errors.
func (w *PDFWriter) WritePage(name string, spread bool, data []byte) error {
	if w.closed {
		return ErrClosed
	}

	img, err := preparePageImage(data)
	if err != nil {
		return fmt.Errorf("page %s: %w", name, err)
	}

	n := len(w.pages) + 1
	imgPath := filepath.Join(w.stage, fmt.Sprintf("page_%04d%s", n, img.ext))
	if err := os.WriteFile(imgPath, img.data, 0o644); err != nil {
		return fmt.Errorf("%w: stage page %s: %v", ErrWriteFailed, name, err)
	}
	defer os.Remove(imgPath)

	pdfPath := filepath.Join(w.stage, fmt.Sprintf("page_%04d.pdf", n))
	if err := api.ImportImagesFile([]string{imgPath}, pdfPath, pageImport(img.width, img.height), w.conf); err != nil {
		return fmt.Errorf("%w: import page %s: %v", ErrWriteFailed, name, err)
	}
	w.pages = append(w.pages, pdfPath)
	return nil
}

// pageImport returns an import configuration for a page sized to the image
// at PageResolution. types.Full would size the page at one point per pixel,
// so the image is centered and scaled to fill the page instead; page and
// image share an aspect ratio.
func pageImport(width, height int) *pdfcpu.Import {
	imp := pdfcpu.DefaultImportConfig()
	imp.PageDim = pageDim(width, height)
	imp.UserDim = true
	imp.Pos = types.Center
	imp.Scale = 1
	imp.ScaleAbs = false
	return imp
}

// pageDim converts image pixels to PDF points at PageResolution.
func pageDim(width, height int) *types.Dim {
	return &types.Dim{
		Width:  float64(width) * 72 / PageResolution,
		Height: float64(height) * 72 / PageResolution,
	}
}

// Finalize merges the staged pages into the destination document.
func (w *PDFWriter) Finalize() error {
	if w.closed {
		return ErrClosed
	}
	w.closed = true
	defer os.RemoveAll(w.stage)

	if len(w.pages) == 0 {
		return fmt.Errorf("%w: document has no pages", ErrWriteFailed)
	}

	if err := api.MergeCreateFile(w.pages, w.out.tmp, false, w.conf); err != nil {
		w.out.abandon()
		return fmt.Errorf("%w: merge pages: %v", ErrWriteFailed, err)
	}
	return w.out.commit()
}

// Discard removes staged pages and any partial document.
func (w *PDFWriter) Discard() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := os.RemoveAll(w.stage); err != nil {
		return err
	}
	return w.out.abandon()
}
