package canvasrenderer

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"io/fs"
	"regexp"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/jpmckearin/asset-tag/dsl"
	"github.com/jpmckearin/asset-tag/internal/assettest"
	"github.com/jpmckearin/asset-tag/layout"
	"github.com/jpmckearin/asset-tag/renderer"
	"github.com/jpmckearin/asset-tag/templates"
)

const assetID = "3fa85f64-5717-4562-b3fc-2c963f66afa6"

var mediaBox = regexp.MustCompile(`/MediaBox\s*\[\s*0\s+0\s+([\d.]+)\s+([\d.]+)\s*\]`)

func defaultLayout(t *testing.T, r *Renderer) *layout.Result {
	t.Helper()
	doc, err := dsl.ParseBytes(templates.DefaultName, templates.Default())
	require.NoError(t, err)
	res, err := layout.Build(doc, layout.BuildOptions{
		Data:       map[string]any{"asset": map[string]any{"id": assetID}},
		Typesetter: r,
	})
	require.NoError(t, err)
	return res
}

func writePDF(t *testing.T, doc renderer.Document, compress bool) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, doc.WritePDF(&buf, renderer.PDFOptions{Compress: compress}))
	return buf.Bytes()
}

func TestRenderDefaultTemplate(t *testing.T) {
	r := NewRenderer(assettest.Dir(t))
	doc, err := r.Render(context.Background(), defaultLayout(t, r))
	require.NoError(t, err)
	assert.True(t, doc.Closed())
	assert.Equal(t, 1, doc.PageCount())

	for _, compress := range []bool{false, true} {
		data := writePDF(t, doc, compress)
		require.True(t, bytes.HasPrefix(data, []byte("%PDF-")), "missing PDF header")

		m := mediaBox.FindSubmatch(data)
		require.NotNil(t, m, "no MediaBox in output")
		w, _ := strconv.ParseFloat(string(m[1]), 64)
		h, _ := strconv.ParseFloat(string(m[2]), 64)
		assert.InDelta(t, 144, w, 0.01)
		assert.InDelta(t, 72, h, 0.01)
	}
}

func TestRenderMissingAssets(t *testing.T) {
	for _, rel := range []string{assettest.FontPath, assettest.LogoPath} {
		t.Run(rel, func(t *testing.T) {
			dir := assettest.Dir(t)
			assettest.Remove(t, dir, rel)
			r := NewRenderer(dir)
			res := defaultLayout(t, NewRenderer(assettest.Dir(t)))

			doc, err := r.Render(context.Background(), res)
			require.Error(t, err)
			assert.Nil(t, doc)
			assert.True(t, errors.Is(err, fs.ErrNotExist), "got %v", err)
		})
	}
}

func TestRenderInvalidLogo(t *testing.T) {
	dir := assettest.Dir(t)
	assettest.Write(t, dir, assettest.LogoPath, []byte("definitely not svg"))
	r := NewRenderer(dir)

	_, err := r.Render(context.Background(), defaultLayout(t, r))
	assert.True(t, errors.Is(err, ErrInvalidSVG), "got %v", err)
}

func TestRenderCanceledContext(t *testing.T) {
	r := NewRenderer(assettest.Dir(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Render(ctx, defaultLayout(t, r))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRenderInjectedResourcesAndFallback(t *testing.T) {
	src := `label T v1 {
  resources {
    font Body { src: "built-in:body" }
    font Broken { src: "nope.ttf"; fallback: "embed:gomono" }
    image Logo { src: "built-in:logo" }
  }
  page 50mm 25mm {
    text Body size 8pt { "built in" }
    text Broken size 8pt at 0 10mm { "fallback" }
    svg Logo box 20mm 10mm fit none
  }
}`
	r := NewRendererWithOptions(Options{
		BaseDir: t.TempDir(),
		Fonts:   map[string]Resource{"body": {Bytes: goregular.TTF}},
		Images:  map[string]Resource{"logo": {Bytes: []byte(assettest.Logo)}},
	})
	parsed, err := dsl.ParseString(src)
	require.NoError(t, err)
	res, err := layout.Build(parsed, layout.BuildOptions{Typesetter: r})
	require.NoError(t, err)

	doc, err := r.Render(context.Background(), res)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(writePDF(t, doc, false), []byte("%PDF-")))
}

func TestRasterizeDrawsQRAtFixedBox(t *testing.T) {
	r := NewRenderer(assettest.Dir(t))
	doc, err := r.Render(context.Background(), defaultLayout(t, r))
	require.NoError(t, err)

	const scale = 4
	images, err := doc.Rasterize(scale)
	require.NoError(t, err)
	require.Len(t, images, 1)

	b := images[0].Bounds()
	assert.InDelta(t, 144*scale, b.Dx(), 1)
	assert.InDelta(t, 72*scale, b.Dy(), 1)

	dark := func(x, y int) bool {
		g := color.GrayModel.Convert(images[0].At(x, y)).(color.Gray)
		return g.Y < 128
	}
	// 右下角在所有元素之外，应为白色背景
	assert.False(t, dark(b.Max.X-2, b.Max.Y-2))
	// 二维码框 (78pt, 1pt) 无留白，左上角定位图案为深色
	assert.True(t, dark(78*scale+3, 1*scale+3))
}

func TestDocumentLifecycle(t *testing.T) {
	doc := NewDocument(layout.DocumentMeta{Title: "t"})
	assert.Error(t, doc.Close(), "closing an empty document")

	_, err := doc.Rasterize(4)
	assert.ErrorIs(t, err, ErrDocumentOpen)

	require.NoError(t, doc.AddPage(50.8, 25.4))
	svg := []byte(assettest.Logo)
	box := layout.Box{X: 1, Y: 1, Width: 20, Height: 10}
	require.NoError(t, doc.DrawSVG(svg, box, layout.DefaultFit))

	var buf bytes.Buffer
	assert.ErrorIs(t, doc.WritePDF(&buf, renderer.PDFOptions{}), ErrDocumentOpen)
	assert.Zero(t, buf.Len())

	require.NoError(t, doc.Close())
	require.NoError(t, doc.Close())
	assert.ErrorIs(t, doc.DrawSVG(svg, box, layout.DefaultFit), ErrDocumentClosed)
	assert.ErrorIs(t, doc.AddPage(10, 10), ErrDocumentClosed)
	assert.Equal(t, 1, doc.PageCount())

	w, h, ok := doc.PageSize(0)
	require.True(t, ok)
	assert.InDelta(t, 50.8, w, 1e-9)
	assert.InDelta(t, 25.4, h, 1e-9)
	_, _, ok = doc.PageSize(1)
	assert.False(t, ok)
	_, _, ok = doc.PageSize(-1)
	assert.False(t, ok)
	require.NoError(t, doc.WritePDF(&buf, renderer.PDFOptions{}))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestDrawSVGRejectsGarbage(t *testing.T) {
	doc := NewDocument(layout.DocumentMeta{})
	require.NoError(t, doc.AddPage(10, 10))
	err := doc.DrawSVG([]byte("<svg"), layout.Box{Width: 1, Height: 1}, layout.DefaultFit)
	assert.ErrorIs(t, err, ErrInvalidSVG)
}
