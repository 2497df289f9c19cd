package canvasrenderer

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"strings"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	xdraw "golang.org/x/image/draw"

	"github.com/jpmckearin/asset-tag/layout"
	"github.com/jpmckearin/asset-tag/renderer"
)

var (
	// ErrDocumentClosed is returned by drawing calls after Close.
	ErrDocumentClosed = errors.New("document is closed")
	// ErrDocumentOpen is returned when serializing a document that was not closed.
	ErrDocumentOpen = errors.New("document is not closed")
	// ErrInvalidSVG wraps SVG parse failures.
	ErrInvalidSVG = errors.New("invalid svg")
)

var _ renderer.Document = (*Document)(nil)

type page struct {
	canvas *canvas.Canvas
	ctx    *canvas.Context
}

// Document is an append-only drawing surface. Coordinates are millimetres
// from the top-left corner of the current page.
type Document struct {
	mu     sync.Mutex
	meta   layout.DocumentMeta
	pages  []*page
	closed bool
}

// NewDocument returns an empty open document.
func NewDocument(meta layout.DocumentMeta) *Document {
	return &Document{meta: meta}
}

// AddPage starts a new page; following drawing calls target it.
func (d *Document) AddPage(width, height float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDocumentClosed
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid page size %gx%gmm", width, height)
	}
	c := canvas.New(width, height)
	ctx := canvas.NewContext(c)
	ctx.SetCoordSystem(canvas.CartesianIV) // 使坐标与布局保持左上角为原点
	d.pages = append(d.pages, &page{canvas: c, ctx: ctx})
	return nil
}

func (d *Document) current() (*page, error) {
	if d.closed {
		return nil, ErrDocumentClosed
	}
	if len(d.pages) == 0 {
		return nil, fmt.Errorf("no page to draw on")
	}
	return d.pages[len(d.pages)-1], nil
}

// DrawText draws the lines of tb with face. Lines start at tb.Y (top of the
// first line); each baseline sits one ascent below its line top.
func (d *Document) DrawText(face *canvas.FontFace, tb layout.TextBox) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, err := d.current()
	if err != nil {
		return err
	}

	lines := tb.Lines
	if len(lines) == 0 {
		lines = []layout.TextLine{{Content: tb.Content, Width: tb.Width, Height: tb.LineHeight}}
	}

	var textAlign canvas.TextAlign
	var anchorX float64
	switch strings.ToLower(tb.Align) {
	case "center":
		textAlign = canvas.Center
		anchorX = tb.X + tb.Width/2
	case "right", "end":
		textAlign = canvas.Right
		anchorX = tb.X + tb.Width
	default:
		textAlign = canvas.Left
		anchorX = tb.X
	}

	ascent := face.Metrics().Ascent
	cursorY := tb.Y
	for _, line := range lines {
		cursorY += line.GapBefore
		p.ctx.DrawText(anchorX, cursorY+ascent, canvas.NewTextLine(face, line.Content, textAlign))
		h := line.Height
		if h <= 0 {
			h = tb.LineHeight
		}
		cursorY += h
	}
	return nil
}

// DrawSVG parses svg and places it into box according to fit.
func (d *Document) DrawSVG(svg []byte, box layout.Box, fit layout.Fit) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, err := d.current()
	if err != nil {
		return err
	}
	sub, err := canvas.ParseSVG(bytes.NewReader(svg))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSVG, err)
	}
	if sub.W <= 0 || sub.H <= 0 {
		return fmt.Errorf("%w: svg has no size", ErrInvalidSVG)
	}
	pl := fit.Place(box, sub.W, sub.H)
	// 子画布为笛卡尔坐标（原点左下），需要换算到页面底部坐标
	pageH := p.canvas.H
	view := canvas.Identity.
		Translate(pl.X, pageH-pl.Y-sub.H*pl.ScaleY).
		Scale(pl.ScaleX, pl.ScaleY)
	sub.RenderViewTo(p.canvas, view)
	return nil
}

// Close finalizes the document. Calling it again is a no-op.
func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.pages) == 0 && !d.closed {
		return fmt.Errorf("document has no pages")
	}
	d.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (d *Document) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// PageCount returns the number of pages added so far.
func (d *Document) PageCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pages)
}

// PageSize returns the size of page i in millimetres. ok is false when i is
// out of range.
func (d *Document) PageSize(i int) (w, h float64, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i < 0 || i >= len(d.pages) {
		return 0, 0, false
	}
	c := d.pages[i].canvas
	return c.W, c.H, true
}

// WritePDF writes all pages into w. The document must be closed.
func (d *Document) WritePDF(w io.Writer, opts renderer.PDFOptions) error {
	if !d.Closed() {
		return ErrDocumentOpen
	}
	first := d.pages[0].canvas
	pdfOpts := pdf.DefaultOptions
	pdfOpts.Compress = opts.Compress
	writer := pdf.New(w, first.W, first.H, &pdfOpts)
	writer.SetInfo(d.meta.Title, d.meta.Subject, strings.Join(d.meta.Keywords, ", "), d.meta.Author, d.meta.Creator)
	for i, p := range d.pages {
		if i > 0 {
			writer.NewPage(p.canvas.W, p.canvas.H)
		}
		p.canvas.RenderTo(writer)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// Rasterize renders every page on a white background at scale pixels per
// point (scale 4 is 288 DPI).
func (d *Document) Rasterize(scale float64) ([]image.Image, error) {
	if !d.Closed() {
		return nil, ErrDocumentOpen
	}
	if scale <= 0 {
		return nil, fmt.Errorf("invalid raster scale %g", scale)
	}
	out := make([]image.Image, 0, len(d.pages))
	for _, p := range d.pages {
		img := rasterizer.Draw(p.canvas, canvas.DPI(72*scale), canvas.DefaultColorSpace)
		bg := image.NewRGBA(img.Bounds())
		xdraw.Draw(bg, bg.Bounds(), image.White, image.Point{}, xdraw.Src)
		xdraw.Draw(bg, bg.Bounds(), img, img.Bounds().Min, xdraw.Over)
		out = append(out, bg)
	}
	return out, nil
}
