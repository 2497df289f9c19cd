package renderer

import (
	"context"
	"image"
	"io"

	"github.com/jpmckearin/asset-tag/layout"
)

// Renderer 将布局结果绘制为已封闭的文档，之后可序列化为 PDF 或栅格化为图像。
type Renderer interface {
	Render(ctx context.Context, result *layout.Result) (Document, error)
}

// Document is a finalized drawing. Implementations are read-only once
// Closed reports true and may then be serialized concurrently.
type Document interface {
	PageCount() int
	Closed() bool
	// WritePDF serializes every page, in order, into w.
	WritePDF(w io.Writer, opts PDFOptions) error
	// Rasterize renders each page at scale pixels per point.
	Rasterize(scale float64) ([]image.Image, error)
}

// PDFOptions controls serialization.
type PDFOptions struct {
	// Compress enables Flate compression of content streams.
	Compress bool
}
