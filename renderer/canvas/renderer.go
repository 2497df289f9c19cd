package canvasrenderer

import (
	"context"
	"crypto/sha256"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tdewolff/canvas"

	"github.com/jpmckearin/asset-tag/fonts"
	"github.com/jpmckearin/asset-tag/layout"
	"github.com/jpmckearin/asset-tag/qrsvg"
	"github.com/jpmckearin/asset-tag/renderer"
)

// Renderer draws layout results via github.com/tdewolff/canvas.
type Renderer struct {
	baseDir string

	// injected resources
	fontBlobs  map[string][]byte // by unique name
	imageBlobs map[string][]byte // by unique name

	// parsed families keyed by name, style and content hash; the font file
	// itself is read again on every use
	fontMu       sync.Mutex
	fontFamilies map[string]*canvas.FontFamily
}

var (
	_ renderer.Renderer = (*Renderer)(nil)
	_ layout.Typesetter = (*Renderer)(nil)
)

// Options configures the canvas renderer.
type Options struct {
	BaseDir string
	Fonts   map[string]Resource // built-in fonts accessible via built-in:<name>
	Images  map[string]Resource // built-in images accessible via built-in:<name>
}

// Resource can be provided either by Bytes or by Path.
type Resource struct {
	Bytes []byte
	Path  string
}

// NewRenderer creates a canvas-based renderer rooted at baseDir for resolving assets.
func NewRenderer(baseDir string) *Renderer { return NewRendererWithOptions(Options{BaseDir: baseDir}) }

// NewRendererWithOptions creates a renderer with injected resources and optional baseDir.
func NewRendererWithOptions(opts Options) *Renderer {
	r := &Renderer{
		baseDir:      opts.BaseDir,
		fontBlobs:    map[string][]byte{},
		imageBlobs:   map[string][]byte{},
		fontFamilies: map[string]*canvas.FontFamily{},
	}
	ingest := func(dst map[string][]byte, src map[string]Resource) {
		for name, res := range src {
			if name == "" {
				continue
			}
			if len(res.Bytes) > 0 {
				dst[name] = res.Bytes
				continue
			}
			if res.Path != "" {
				// 读取失败时留空，真正使用时再报错
				if data, err := os.ReadFile(res.Path); err == nil && len(data) > 0 {
					dst[name] = data
				}
			}
		}
	}
	ingest(r.fontBlobs, opts.Fonts)
	ingest(r.imageBlobs, opts.Images)
	return r
}

// drawStep is one element with everything it needs already loaded.
type drawStep struct {
	text *layout.TextBox
	face *canvas.FontFace
	svg  []byte
	box  layout.Box
	fit  layout.Fit
}

// Render lays every page onto a new Document and closes it. All fonts, SVG
// sources and QR symbols are loaded before the document is created, so an
// unreadable asset fails the call without producing a partial document.
func (r *Renderer) Render(ctx context.Context, result *layout.Result) (renderer.Document, error) {
	return r.RenderDocument(ctx, result)
}

// RenderDocument is Render returning the concrete document type.
func (r *Renderer) RenderDocument(ctx context.Context, result *layout.Result) (*Document, error) {
	if result == nil {
		return nil, fmt.Errorf("layout result is nil")
	}
	if len(result.Pages) == 0 {
		return nil, fmt.Errorf("layout result has no pages")
	}

	pages := make([][]drawStep, len(result.Pages))
	for i, pg := range result.Pages {
		steps, err := r.prepare(pg, result.Resources)
		if err != nil {
			return nil, err
		}
		pages[i] = steps
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc := NewDocument(result.Meta)
	for i, pg := range result.Pages {
		if err := doc.AddPage(pg.Width, pg.Height); err != nil {
			return nil, err
		}
		for _, step := range pages[i] {
			var err error
			if step.text != nil {
				err = doc.DrawText(step.face, *step.text)
			} else {
				err = doc.DrawSVG(step.svg, step.box, step.fit)
			}
			if err != nil {
				return nil, err
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	if err := doc.Close(); err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *Renderer) prepare(pg layout.Page, resources layout.ResourceSet) ([]drawStep, error) {
	steps := make([]drawStep, 0, len(pg.Elements))
	svgCache := map[string][]byte{}
	for _, el := range pg.Elements {
		switch {
		case el.Text != nil:
			font, ok := resources.Fonts[el.Text.Font]
			if !ok {
				return nil, fmt.Errorf("text uses undeclared font %q", el.Text.Font)
			}
			face, err := r.fontFace(font, toPt(el.Text.FontSize), el.Text.Color)
			if err != nil {
				return nil, err
			}
			steps = append(steps, drawStep{text: el.Text, face: face})
		case el.Vector != nil:
			data, ok := svgCache[el.Vector.Src]
			if !ok {
				var err error
				if data, err = r.loadImageBytes(el.Vector.Src); err != nil {
					return nil, err
				}
				svgCache[el.Vector.Src] = data
			}
			steps = append(steps, drawStep{svg: data, box: el.Vector.Box, fit: el.Vector.Fit})
		case el.Code != nil:
			cb := el.Code
			data, err := qrsvg.Generate(qrsvg.Options{
				Content:    cb.Content,
				Padding:    cb.Padding,
				Width:      cb.Size,
				Height:     cb.Size,
				Color:      cb.Color.Hex(),
				Background: cb.Background.Hex(),
				ECL:        cb.ECL,
				Encoder:    cb.Encoder,
			})
			if err != nil {
				return nil, fmt.Errorf("generate qr code: %w", err)
			}
			steps = append(steps, drawStep{svg: data, box: cb.Box, fit: cb.Fit})
		}
	}
	return steps, nil
}

// LayoutLines 实现 layout.Typesetter 接口，使用贪心换行算法。
// 约定：fontSize/lineHeight 入参均为毫米（mm）。渲染器内部与字体系统交互使用 pt，并在边界做 mm↔pt 换算。
func (r *Renderer) LayoutLines(content string, width float64, font layout.FontResource, fontSize, lineHeight float64) ([]layout.TextLine, error) {
	face, err := r.fontFace(font, toPt(fontSize), layout.Black)
	if err != nil {
		return nil, err
	}
	lines := greedyWrap(content, width, face)
	for i := range lines {
		lines[i].Height = lineHeight
	}
	return lines, nil
}

func (r *Renderer) fontFace(font layout.FontResource, sizePt float64, col layout.Color) (*canvas.FontFace, error) {
	family, style, err := r.ensureFontFamily(font)
	if err != nil {
		return nil, err
	}
	return family.Face(sizePt, colorFromLayout(col), style, canvas.FontNormal), nil
}

func (r *Renderer) ensureFontFamily(font layout.FontResource) (*canvas.FontFamily, canvas.FontStyle, error) {
	style := parseFontStyle(font.Style)
	family, err := r.loadFamily(font.Name, font.Src, style)
	if err != nil && font.Fallback != "" {
		// 仅在模板显式声明 fallback 时降级
		if fb, fbErr := r.loadFamily(font.Name+"-fallback", font.Fallback, style); fbErr == nil {
			family, err = fb, nil
		}
	}
	if err != nil {
		return nil, canvas.FontRegular, fmt.Errorf("load font %s: %w", font.Name, err)
	}
	return family, style, nil
}

// loadFamily reads src on every call so a removed or replaced font file is
// noticed by the next label; only the parsed family is reused.
func (r *Renderer) loadFamily(name, src string, style canvas.FontStyle) (*canvas.FontFamily, error) {
	data, err := r.loadFontBytes(src)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(data)
	key := fmt.Sprintf("%s|%d|%x", name, style, sum[:12])

	r.fontMu.Lock()
	defer r.fontMu.Unlock()
	if family, ok := r.fontFamilies[key]; ok {
		return family, nil
	}
	family := canvas.NewFontFamily(name)
	if err := family.LoadFont(data, 0, style); err != nil {
		return nil, err
	}
	r.fontFamilies[key] = family
	return family, nil
}

func (r *Renderer) loadFontBytes(src string) ([]byte, error) {
	if src == "" {
		return nil, fmt.Errorf("font has no src")
	}
	if name, ok := builtinName(src); ok {
		if blob, ok := r.fontBlobs[name]; ok {
			return blob, nil
		}
		return nil, fmt.Errorf("no built-in font resource %q", name)
	}
	if strings.HasPrefix(src, "embed:") {
		return fonts.Load(src)
	}
	path, err := r.resolvePath(src)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font: %w", err)
	}
	return data, nil
}

func (r *Renderer) loadImageBytes(src string) ([]byte, error) {
	if name, ok := builtinName(src); ok {
		if blob, ok := r.imageBlobs[name]; ok {
			return blob, nil
		}
		return nil, fmt.Errorf("no built-in image resource %q", name)
	}
	path, err := r.resolvePath(src)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return data, nil
}

func (r *Renderer) resolvePath(src string) (string, error) {
	if filepath.IsAbs(src) {
		return src, nil
	}
	if r.baseDir == "" {
		return filepath.Clean(src), nil
	}
	return filepath.Join(r.baseDir, src), nil
}

func builtinName(src string) (string, bool) {
	for _, prefix := range []string{"built-in:", "builtin:"} {
		if strings.HasPrefix(src, prefix) {
			return strings.TrimPrefix(src, prefix), true
		}
	}
	return "", false
}

func parseFontStyle(style string) canvas.FontStyle {
	s := strings.ToLower(style)
	result := canvas.FontRegular
	switch {
	case strings.Contains(s, "black"):
		result = canvas.FontBlack
	case strings.Contains(s, "extrabold"):
		result = canvas.FontExtraBold
	case strings.Contains(s, "semibold"), strings.Contains(s, "demibold"):
		result = canvas.FontSemiBold
	case strings.Contains(s, "bold"):
		result = canvas.FontBold
	case strings.Contains(s, "medium"):
		result = canvas.FontMedium
	case strings.Contains(s, "light"):
		result = canvas.FontLight
	}
	if strings.Contains(s, "italic") || strings.Contains(s, "oblique") {
		result |= canvas.FontItalic
	}
	return result
}

func colorFromLayout(c layout.Color) color.Color {
	return canvas.RGBA(float64(c.R)/255.0, float64(c.G)/255.0, float64(c.B)/255.0, 1.0)
}

// toPt 将毫米(mm)转换为点(pt)。
func toPt(mm float64) float64 { return mm * layout.MmToPt }
