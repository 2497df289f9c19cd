// Package qrsvg renders QR symbols as standalone SVG documents.
//
// The output is a background rectangle plus one rectangle per horizontal run
// of dark modules, scaled so that the symbol and its padding fill the
// requested width and height.
package qrsvg

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrEmptyContent is returned when there is nothing to encode.
var ErrEmptyContent = errors.New("qrsvg: empty content")

// ErrContentTooLong is returned when content exceeds the symbol capacity at
// the requested error correction level.
var ErrContentTooLong = errors.New("qrsvg: content too long for a QR symbol")

var colorPattern = regexp.MustCompile(`^#(?:[0-9A-Fa-f]{3}|[0-9A-Fa-f]{6})$`)

// Options mirrors the knobs of the label template's qr command.
type Options struct {
	Content    string
	Padding    int     // quiet zone in modules
	Width      float64 // user units
	Height     float64
	Color      string // #rgb or #rrggbb
	Background string
	ECL        string // L, M, Q or H
	Encoder    string // skip2 (default) or boombuler
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = 256
	}
	if o.Height <= 0 {
		o.Height = o.Width
	}
	if o.Color == "" {
		o.Color = "#000000"
	}
	if o.Background == "" {
		o.Background = "#ffffff"
	}
	if o.ECL == "" {
		o.ECL = "M"
	}
	if o.Encoder == "" {
		o.Encoder = EncoderSkip2
	}
	return o
}

// Generate encodes opts.Content and returns the SVG document.
func Generate(opts Options) ([]byte, error) {
	opts = opts.withDefaults()
	if opts.Padding < 0 {
		return nil, fmt.Errorf("qrsvg: negative padding %d", opts.Padding)
	}
	for _, c := range []string{opts.Color, opts.Background} {
		if !colorPattern.MatchString(c) {
			return nil, fmt.Errorf("qrsvg: invalid color %q", c)
		}
	}
	m, err := Modules(opts)
	if err != nil {
		return nil, err
	}
	return render(m, opts), nil
}

// Modules returns the module matrix for opts without a quiet zone.
func Modules(opts Options) (Matrix, error) {
	opts = opts.withDefaults()
	if strings.TrimSpace(opts.Content) == "" {
		return nil, ErrEmptyContent
	}
	level, err := ParseLevel(opts.ECL)
	if err != nil {
		return nil, err
	}
	enc, err := encoderFor(opts.Encoder)
	if err != nil {
		return nil, err
	}
	m, err := enc.Encode(opts.Content, level)
	if err != nil {
		return nil, fmt.Errorf("%w: %d bytes at level %s: %w", ErrContentTooLong, len(opts.Content), level, err)
	}
	return m, nil
}

func render(m Matrix, opts Options) []byte {
	n := m.Size()
	total := float64(n + 2*opts.Padding)
	xs := opts.Width / total
	ys := opts.Height / total

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<?xml version="1.0" standalone="yes"?>`+"\n")
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" version="1.1" width="%s" height="%s" viewBox="0 0 %s %s">`+"\n",
		num(opts.Width), num(opts.Height), num(opts.Width), num(opts.Height))
	fmt.Fprintf(&buf, `<rect x="0" y="0" width="%s" height="%s" fill="%s" shape-rendering="crispEdges"/>`+"\n",
		num(opts.Width), num(opts.Height), opts.Background)

	for y := 0; y < n; y++ {
		for x := 0; x < n; {
			if !m[y][x] {
				x++
				continue
			}
			run := 1
			for x+run < n && m[y][x+run] {
				run++
			}
			fmt.Fprintf(&buf, `<rect x="%s" y="%s" width="%s" height="%s" fill="%s" shape-rendering="crispEdges"/>`+"\n",
				num(float64(x+opts.Padding)*xs), num(float64(y+opts.Padding)*ys),
				num(float64(run)*xs), num(ys), opts.Color)
			x += run
		}
	}
	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
