package sink

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jpmckearin/asset-tag/label"
)

// DefaultScale renders one point as four pixels (288 dpi).
const DefaultScale = 4

// Raster renders every page to PNG. A single page is written to Path; page n
// of a multi-page label goes to PagePath(Path, n, count).
type Raster struct {
	Path  string
	Scale float64
}

// Deliver implements Sink. Nothing is written unless every page encoded.
func (r Raster) Deliver(ctx context.Context, l *label.Label) error {
	scale := r.Scale
	if scale <= 0 {
		scale = DefaultScale
	}
	pages, err := l.Rasterize(scale)
	if err != nil {
		return fmt.Errorf("rasterize label: %w", err)
	}

	encoded := make([][]byte, len(pages))
	for i, img := range pages {
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return fmt.Errorf("encode png page %d: %w", i+1, err)
		}
		encoded[i] = buf.Bytes()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for i, data := range encoded {
		if err := writeFile(PagePath(r.Path, i+1, len(encoded)), data); err != nil {
			return err
		}
	}
	return nil
}

// PagePath returns the file for page n (1-based) of count pages:
// path itself when count is 1, otherwise <stem>-<n><ext>.
func PagePath(path string, n, count int) string {
	if count <= 1 {
		return path
	}
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "-" + strconv.Itoa(n) + ext
}
