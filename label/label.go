package label

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"

	"github.com/jpmckearin/asset-tag/renderer"
)

// ErrNoDrawing is returned by Rasterize on labels without a document.
var ErrNoDrawing = errors.New("label has no drawing to rasterize")

// Label is a finalized label document plus its serialization options.
type Label struct {
	id       string
	doc      renderer.Document
	compress bool

	once sync.Once
	data []byte
	err  error
}

// New wraps a closed document.
func New(id string, doc renderer.Document, compress bool) *Label {
	return &Label{id: id, doc: doc, compress: compress}
}

// AssetID returns the identifier encoded in the label.
func (l *Label) AssetID() string { return l.id }

// Bytes serializes the label to PDF once and returns the same buffer on
// every call. The returned slice must not be modified.
func (l *Label) Bytes() ([]byte, error) {
	l.once.Do(func() {
		var buf bytes.Buffer
		if err := l.writePDF(&buf); err != nil {
			l.err = err
			return
		}
		l.data = buf.Bytes()
	})
	return l.data, l.err
}

func (l *Label) writePDF(w io.Writer) error {
	if l.doc == nil {
		return fmt.Errorf("serialize label: no document")
	}
	if err := l.doc.WritePDF(w, renderer.PDFOptions{Compress: l.compress}); err != nil {
		return fmt.Errorf("serialize label: %w", err)
	}
	return nil
}

// WriteTo writes the PDF bytes into w.
func (l *Label) WriteTo(w io.Writer) (int64, error) {
	data, err := l.Bytes()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

// Rasterize renders every page at scale pixels per point.
func (l *Label) Rasterize(scale float64) ([]image.Image, error) {
	if l.doc == nil {
		return nil, ErrNoDrawing
	}
	return l.doc.Rasterize(scale)
}

// PageCount returns the number of pages, or 0 for labels without a document.
func (l *Label) PageCount() int {
	if l.doc == nil {
		return 0
	}
	return l.doc.PageCount()
}
