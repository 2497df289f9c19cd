package label_test

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"go.uber.org/zap/zapcore"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/jpmckearin/asset-tag/internal/assettest"
	"github.com/jpmckearin/asset-tag/label"
	"github.com/jpmckearin/asset-tag/layout"
	canvasrenderer "github.com/jpmckearin/asset-tag/renderer/canvas"
)

const assetID = "3fa85f64-5717-4562-b3fc-2c963f66afa6"

func newComposer(t *testing.T, opts label.Options) *label.Composer {
	t.Helper()
	if opts.AssetsDir == "" {
		opts.AssetsDir = assettest.Dir(t)
	}
	c, err := label.NewComposer(opts)
	require.NoError(t, err)
	return c
}

func TestComposeProducesPDF(t *testing.T) {
	c := newComposer(t, label.Options{})

	for _, id := range []string{assetID, "A", strings.Repeat("Z", 120)} {
		l, err := c.Compose(context.Background(), id)
		require.NoError(t, err, id)
		assert.Equal(t, id, l.AssetID())
		assert.Equal(t, 1, l.PageCount())

		data, err := l.Bytes()
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))

		again, err := l.Bytes()
		require.NoError(t, err)
		assert.Same(t, &data[0], &again[0], "Bytes should return the memoized buffer")
	}
}

func TestComposeUncompressedIsDeterministic(t *testing.T) {
	c := newComposer(t, label.Options{})
	a, err := c.Compose(context.Background(), assetID)
	require.NoError(t, err)
	b, err := c.Compose(context.Background(), assetID)
	require.NoError(t, err)

	ab, err := a.Bytes()
	require.NoError(t, err)
	bb, err := b.Bytes()
	require.NoError(t, err)
	assert.Equal(t, ab, bb)
}

func TestComposeCompressed(t *testing.T) {
	plain := newComposer(t, label.Options{})
	packed := newComposer(t, label.Options{Compress: true})
	assert.NotEqual(t, plain.Digest(), packed.Digest())
	assert.True(t, packed.Compress())

	l, err := packed.Compose(context.Background(), assetID)
	require.NoError(t, err)
	data, err := l.Bytes()
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
	assert.Contains(t, string(data), "FlateDecode")
}

func TestWriteToMatchesBytes(t *testing.T) {
	l, err := newComposer(t, label.Options{}).Compose(context.Background(), assetID)
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := l.WriteTo(&buf)
	require.NoError(t, err)
	data, _ := l.Bytes()
	assert.Equal(t, int64(len(data)), n)
	assert.Equal(t, data, buf.Bytes())
}

func TestComposeIdentifierValidation(t *testing.T) {
	c := newComposer(t, label.Options{})
	_, err := c.Compose(context.Background(), "   ")
	assert.ErrorIs(t, err, label.ErrEmptyAssetID)

	strict := newComposer(t, label.Options{StrictUUID: true})
	_, err = strict.Compose(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, label.ErrInvalidAssetID)

	l, err := strict.Compose(context.Background(), strings.ToUpper(assetID))
	require.NoError(t, err)
	assert.Equal(t, assetID, l.AssetID())
}

func TestComposeMissingAssets(t *testing.T) {
	for _, rel := range []string{assettest.FontPath, assettest.LogoPath} {
		t.Run(rel, func(t *testing.T) {
			core, logs := observer.New(zapcore.WarnLevel)
			dir := assettest.Dir(t)
			assettest.Remove(t, dir, rel)
			c := newComposer(t, label.Options{AssetsDir: dir, Logger: zap.New(core)})

			l, err := c.Compose(context.Background(), assetID)
			require.Error(t, err)
			assert.Nil(t, l)
			assert.True(t, errors.Is(err, fs.ErrNotExist), "got %v", err)
			assert.Equal(t, 1, logs.FilterMessage("compose failed").Len())
		})
	}
}

func TestComposeNoticesRemovedFont(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	dir := assettest.Dir(t)
	c := newComposer(t, label.Options{AssetsDir: dir, Logger: zap.New(core)})

	_, err := c.Compose(context.Background(), assetID)
	require.NoError(t, err)

	assettest.Remove(t, dir, assettest.FontPath)
	l, err := c.Compose(context.Background(), assetID)
	require.Error(t, err)
	assert.Nil(t, l)
	assert.True(t, errors.Is(err, fs.ErrNotExist), "got %v", err)
	assert.Equal(t, 1, logs.FilterMessage("compose failed").Len())

	// 恢复字体后无需重建 composer
	assettest.Write(t, dir, assettest.FontPath, goregular.TTF)
	_, err = c.Compose(context.Background(), assetID)
	assert.NoError(t, err)
}

func TestComposeMalformedLogo(t *testing.T) {
	dir := assettest.Dir(t)
	assettest.Write(t, dir, assettest.LogoPath, []byte("<<not svg>>"))
	_, err := newComposer(t, label.Options{AssetsDir: dir}).Compose(context.Background(), assetID)
	assert.ErrorIs(t, err, canvasrenderer.ErrInvalidSVG)
}

func TestComposeConcurrent(t *testing.T) {
	c := newComposer(t, label.Options{})
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l, err := c.Compose(context.Background(), assetID)
			if err == nil {
				_, err = l.Bytes()
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestLayoutEndToEnd(t *testing.T) {
	res, err := newComposer(t, label.Options{}).Layout(assetID)
	require.NoError(t, err)
	page := res.Pages[0]

	texts := page.Texts()
	require.Len(t, texts, 2)
	assert.Equal(t, "PROPERTY OF", texts[0].Content)
	assert.Equal(t, "SPRING HILL HAWKS", texts[1].Content)

	codes := page.Codes()
	require.Len(t, codes, 1)
	assert.Equal(t, assetID, codes[0].Content)
	assert.InDelta(t, 78*layout.PtToMm, codes[0].Box.X, 1e-9)
	assert.InDelta(t, 58*layout.PtToMm, codes[0].Box.Width, 1e-9)
}

func TestQRCode(t *testing.T) {
	svg, err := newComposer(t, label.Options{}).QRCode(assetID)
	require.NoError(t, err)
	assert.Contains(t, string(svg), `width="70"`)
	assert.Contains(t, string(svg), `fill="#000000"`)

	_, err = newComposer(t, label.Options{}).QRCode("")
	assert.ErrorIs(t, err, label.ErrEmptyAssetID)
}

func TestQRCodeLayoutError(t *testing.T) {
	src := []byte(`label Broken v1 {
  page 2in 1in {
    text Body size 7pt at 2mm 2mm { "${asset.id}" }
    qr "${asset.id}" at 1in 0 box 1in 1in
  }
}`)
	c := newComposer(t, label.Options{Template: src})
	svg, err := c.QRCode(assetID)
	require.Error(t, err)
	assert.Nil(t, svg)
	assert.Contains(t, err.Error(), "layout label "+assetID)
	assert.Contains(t, err.Error(), `undeclared font "Body"`)
}

func TestCustomTemplate(t *testing.T) {
	src := []byte(`label Mini v1 {
  resources { font Body { src: "embed:gobold" } }
  page 2in 1in {
    text size 7pt at 2mm 2mm { "#${asset.short}" }
    qr "${asset.id}" at 1in 0 box 1in 1in
  }
}`)
	c := newComposer(t, label.Options{Template: src, TemplateName: "mini.label", AssetsDir: t.TempDir()})
	res, err := c.Layout(assetID)
	require.NoError(t, err)
	assert.Equal(t, "#3fa85f64", res.Pages[0].Texts()[0].Content)

	l, err := c.Compose(context.Background(), assetID)
	require.NoError(t, err)
	_, err = l.Bytes()
	require.NoError(t, err)

	_, err = label.NewComposer(label.Options{Template: []byte("label {")})
	assert.Error(t, err)
}

func TestSerializeOpenDocument(t *testing.T) {
	doc := canvasrenderer.NewDocument(layout.DocumentMeta{})
	require.NoError(t, doc.AddPage(10, 10))
	_, err := label.New("x", doc, false).Bytes()
	require.Error(t, err)
	assert.ErrorIs(t, err, canvasrenderer.ErrDocumentOpen)
	assert.Contains(t, err.Error(), "serialize label")
}

func TestLabelWithoutDocument(t *testing.T) {
	l := label.New("x", nil, false)
	_, err := l.Bytes()
	assert.ErrorContains(t, err, "no document")
	_, err = l.Rasterize(4)
	assert.ErrorIs(t, err, label.ErrNoDrawing)
	assert.Zero(t, l.PageCount())
}

func TestTemplateDigestStable(t *testing.T) {
	a := label.TemplateDigest([]byte("x"), false, false)
	assert.Equal(t, a, label.TemplateDigest([]byte("x"), false, false))
	assert.NotEqual(t, a, label.TemplateDigest([]byte("x"), false, true))
	assert.Len(t, a, 64)
}
