// Package label composes asset tag labels: it binds an asset identifier into
// the label template, lays it out and draws it into a finalized document.
package label

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jpmckearin/asset-tag/dsl"
	"github.com/jpmckearin/asset-tag/layout"
	"github.com/jpmckearin/asset-tag/qrsvg"
	canvasrenderer "github.com/jpmckearin/asset-tag/renderer/canvas"
	"github.com/jpmckearin/asset-tag/templates"
)

var (
	// ErrEmptyAssetID is returned for identifiers that are empty after trimming.
	ErrEmptyAssetID = errors.New("asset id is empty")
	// ErrInvalidAssetID is returned in strict mode for identifiers that are not UUIDs.
	ErrInvalidAssetID = errors.New("asset id is not a valid UUID")
)

// Options configures a Composer.
type Options struct {
	// Template is the label template source. Empty means the built-in template.
	Template     []byte
	TemplateName string
	// AssetsDir resolves relative font and image paths named by the template.
	AssetsDir string
	// Compress enables Flate compression of the PDF content streams.
	Compress bool
	// StrictUUID requires identifiers to parse as UUIDs.
	StrictUUID bool
	// Fonts and Images are in-memory resources addressable as built-in:<name>.
	Fonts  map[string][]byte
	Images map[string][]byte
	Logger *zap.Logger
}

// Composer turns asset identifiers into labels. It is safe for concurrent use:
// every Compose call draws into its own document and only the font cache is
// shared.
type Composer struct {
	template *dsl.Document
	renderer *canvasrenderer.Renderer
	compress bool
	strict   bool
	digest   string
	log      *zap.Logger
}

// NewComposer parses the template and prepares the renderer.
func NewComposer(opts Options) (*Composer, error) {
	src, name := opts.Template, opts.TemplateName
	if len(src) == 0 {
		src, name = templates.Default(), templates.DefaultName
	}
	if name == "" {
		name = "template"
	}
	doc, err := dsl.ParseBytes(name, src)
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Composer{
		template: doc,
		renderer: canvasrenderer.NewRendererWithOptions(canvasrenderer.Options{
			BaseDir: opts.AssetsDir,
			Fonts:   resources(opts.Fonts),
			Images:  resources(opts.Images),
		}),
		compress: opts.Compress,
		strict:   opts.StrictUUID,
		digest:   TemplateDigest(src, opts.Compress, opts.StrictUUID),
		log:      log.Named("composer"),
	}, nil
}

func resources(in map[string][]byte) map[string]canvasrenderer.Resource {
	out := make(map[string]canvasrenderer.Resource, len(in))
	for name, data := range in {
		out[name] = canvasrenderer.Resource{Bytes: data}
	}
	return out
}

// Compose renders the label for id and returns it finalized. Missing or
// unreadable assets fail the call before any bytes exist.
func (c *Composer) Compose(ctx context.Context, id string) (*Label, error) {
	start := time.Now()
	id, err := NormalizeID(id, c.strict)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res, err := c.layout(id)
	if err != nil {
		return nil, c.failed(id, err)
	}
	doc, err := c.renderer.RenderDocument(ctx, res)
	if err != nil {
		return nil, c.failed(id, err)
	}

	c.log.Debug("label composed",
		zap.String("asset_id", id),
		zap.Int("pages", doc.PageCount()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return New(id, doc, c.compress), nil
}

func (c *Composer) failed(id string, err error) error {
	c.log.Warn("compose failed", zap.String("asset_id", id), zap.Error(err))
	return fmt.Errorf("compose label %s: %w", id, err)
}

// Layout returns the laid-out label without drawing it.
func (c *Composer) Layout(id string) (*layout.Result, error) {
	id, err := NormalizeID(id, c.strict)
	if err != nil {
		return nil, err
	}
	return c.layout(id)
}

func (c *Composer) layout(id string) (*layout.Result, error) {
	res, err := layout.Build(c.template, layout.BuildOptions{
		Data:       BindingData(id),
		Typesetter: c.renderer,
	})
	if err != nil {
		return nil, fmt.Errorf("layout label %s: %w", id, err)
	}
	return res, nil
}

// QRCode returns the QR symbol for id as SVG, using the settings of the first
// qr element of the template (or the generator defaults when there is none).
// A template that does not lay out is an error.
func (c *Composer) QRCode(id string) ([]byte, error) {
	id, err := NormalizeID(id, c.strict)
	if err != nil {
		return nil, err
	}
	res, err := layout.Build(c.template, layout.BuildOptions{Data: BindingData(id)})
	if err != nil {
		return nil, fmt.Errorf("layout label %s: %w", id, err)
	}
	opts := qrsvg.Options{Content: id}
	if cb, ok := firstCode(res); ok {
		opts = qrsvg.Options{
			Content:    cb.Content,
			Padding:    cb.Padding,
			Width:      cb.Size,
			Height:     cb.Size,
			Color:      cb.Color.Hex(),
			Background: cb.Background.Hex(),
			ECL:        cb.ECL,
			Encoder:    cb.Encoder,
		}
	}
	return qrsvg.Generate(opts)
}

func firstCode(res *layout.Result) (layout.CodeBox, bool) {
	for _, p := range res.Pages {
		if codes := p.Codes(); len(codes) > 0 {
			return codes[0], true
		}
	}
	return layout.CodeBox{}, false
}

// Digest identifies the template and the options that affect output bytes.
func (c *Composer) Digest() string { return c.digest }

// StrictUUID reports whether identifiers must be UUIDs.
func (c *Composer) StrictUUID() bool { return c.strict }

// Compress reports whether labels from this composer are compressed.
func (c *Composer) Compress() bool { return c.compress }

// TemplateDigest is a stable SHA-256 over the template source and the flags
// that change rendered output.
func TemplateDigest(src []byte, compress, strict bool) string {
	h := sha256.New()
	h.Write(src)
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatBool(compress)))
	h.Write([]byte(strconv.FormatBool(strict)))
	return hex.EncodeToString(h.Sum(nil))
}

// NormalizeID trims id and, in strict mode, returns its canonical UUID form.
func NormalizeID(id string, strict bool) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrEmptyAssetID
	}
	if !strict {
		return id, nil
	}
	u, err := uuid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidAssetID, id)
	}
	return u.String(), nil
}

// BindingData is the data exposed to template placeholders.
func BindingData(id string) map[string]any {
	short := id
	if len(short) > 8 {
		short = short[:8]
	}
	return map[string]any{
		"asset": map[string]any{
			"id":    id,
			"short": short,
		},
	}
}
