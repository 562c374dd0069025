package output

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// pageImage is a page image ready to be embedded in a PDF.
type pageImage struct {
	data   []byte
	ext    string
	width  int
	height int
}

// embeddable lists the decoder formats pdfcpu embeds as they are.
var embeddable = map[string]string{
	"jpeg": ".jpg",
	"png":  ".png",
}

// preparePageImage reads the image header and, for formats pdfcpu cannot
// embed directly, re-encodes the pixels as PNG.
func preparePageImage(data []byte) (*pageImage, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: empty %s image", ErrDecodeFailed, format)
	}

	if ext, ok := embeddable[format]; ok {
		return &pageImage{data: data, ext: ext, width: cfg.Width, height: cfg.Height}, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("%w: re-encode %s as png: %v", ErrDecodeFailed, format, err)
	}
	return &pageImage{data: buf.Bytes(), ext: ".png", width: cfg.Width, height: cfg.Height}, nil
}
