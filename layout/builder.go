package layout

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jpmckearin/asset-tag/binding"
	"github.com/jpmckearin/asset-tag/dsl"
)

const (
	defaultFontSizePt   = 10.0
	defaultLineFactor   = 1.2
	defaultQRPadding    = 4
	defaultQRSize       = 256.0
	defaultQRCorrection = "M"
)

// pagePresets are named page sizes in millimetres.
var pagePresets = map[string][2]float64{
	"ASSET-TAG": {144 * PtToMm, 72 * PtToMm},
	"A4":        {210, 297},
	"A5":        {148, 210},
	"A6":        {105, 148},
	"4X6":       {101.6, 152.4},
}

// Build 根据模板 AST 与绑定数据生成每一页的绝对布局。
func Build(doc *dsl.Document, opts BuildOptions) (*Result, error) {
	if doc == nil {
		return nil, fmt.Errorf("layout: template is empty")
	}
	res, err := collectResources(doc)
	if err != nil {
		return nil, err
	}
	sections := doc.Pages()
	if len(sections) == 0 {
		return nil, fmt.Errorf("layout: template %s has no page section", doc.Name)
	}

	result := &Result{
		Resources: res,
		Meta:      collectMeta(doc, opts.Data),
	}
	for _, section := range sections {
		page, err := buildPage(section, res, opts)
		if err != nil {
			return nil, err
		}
		result.Pages = append(result.Pages, page)
	}
	return result, nil
}

func buildPage(section *dsl.Section, res ResourceSet, opts BuildOptions) (Page, error) {
	width, height, rest, err := resolvePageSize(section.Params)
	if err != nil {
		return Page{}, fmt.Errorf("%s: %w", section.Pos, err)
	}
	margin, err := resolveMargin(rest)
	if err != nil {
		return Page{}, fmt.Errorf("%s: %w", section.Pos, err)
	}
	page := Page{Width: width, Height: height, Margin: margin}
	if section.Block == nil {
		return page, nil
	}

	for _, stmt := range section.Block.Statements {
		if stmt.Command == nil {
			continue
		}
		cmd := stmt.Command
		var el Element
		switch cmd.Name {
		case "text":
			tb, err := handleText(cmd, page, res, opts)
			if err != nil {
				return Page{}, err
			}
			el = Element{Kind: KindText, Text: &tb}
		case "svg", "image":
			vb, err := handleVector(cmd, page, res)
			if err != nil {
				return Page{}, err
			}
			el = Element{Kind: KindVector, Vector: &vb}
		case "qr":
			cb, err := handleCode(cmd, page, opts)
			if err != nil {
				return Page{}, err
			}
			el = Element{Kind: KindCode, Code: &cb}
		default:
			return Page{}, fmt.Errorf("%s: unknown command %q", cmd.Pos, cmd.Name)
		}
		page.Elements = append(page.Elements, el)
	}
	return page, nil
}

func handleText(cmd *dsl.Command, page Page, res ResourceSet, opts BuildOptions) (TextBox, error) {
	args, err := scanArgs(cmd, "size", "at", "width", "color", "align", "line-height")
	if err != nil {
		return TextBox{}, err
	}

	fontName := res.DefaultFont
	content := extractText(cmd.Block)
	for _, p := range args.positional {
		switch p.Type {
		case "Ident":
			fontName = p.Value
		case "String":
			if content != "" {
				content += "\n"
			}
			content += p.Value
		}
	}
	font, ok := res.Fonts[fontName]
	if !ok {
		return TextBox{}, fmt.Errorf("%s: text uses undeclared font %q", cmd.Pos, fontName)
	}

	size := defaultFontSizePt * PtToMm
	if v, ok := args.one("size"); ok {
		if size, err = args.length(v, page.Height); err != nil {
			return TextBox{}, err
		}
	}
	lineHeight := size * defaultLineFactor
	if v, ok := args.one("line-height"); ok {
		// 纯数字视为倍数，带单位视为绝对值
		if f, perr := strconv.ParseFloat(v.Value, 64); perr == nil {
			lineHeight = size * f
		} else if lineHeight, err = args.length(v, size); err != nil {
			return TextBox{}, err
		}
	}

	x, y := page.Margin.Left, page.Margin.Top
	if pair, ok := args.pair("at"); ok {
		if x, err = args.length(pair[0], page.Width); err != nil {
			return TextBox{}, err
		}
		if y, err = args.length(pair[1], page.Height); err != nil {
			return TextBox{}, err
		}
	}

	width := page.Width - page.Margin.Right - x
	if v, ok := args.one("width"); ok {
		if width, err = args.length(v, page.Width); err != nil {
			return TextBox{}, err
		}
	}
	if width < 0 {
		width = 0
	}

	col := Black
	if v, ok := args.one("color"); ok {
		if col, err = ParseColor(v.Value); err != nil {
			return TextBox{}, fmt.Errorf("%s: %w", v.Pos, err)
		}
	}

	tb := TextBox{
		Content:    binding.Interpolate(content, opts.Data),
		X:          x,
		Y:          y,
		Width:      width,
		Font:       fontName,
		FontSize:   size,
		LineHeight: lineHeight,
		Color:      col,
	}
	if v, ok := args.one("align"); ok {
		tb.Align = strings.ToLower(v.Value)
	}

	if opts.Typesetter != nil {
		lines, err := opts.Typesetter.LayoutLines(tb.Content, tb.Width, font, tb.FontSize, tb.LineHeight)
		if err != nil {
			return TextBox{}, fmt.Errorf("%s: typeset text: %w", cmd.Pos, err)
		}
		tb.Lines = lines
	} else {
		tb.Lines = []TextLine{{Content: tb.Content, Height: tb.LineHeight}}
	}
	return tb, nil
}

func handleVector(cmd *dsl.Command, page Page, res ResourceSet) (VectorBox, error) {
	args, err := scanArgs(cmd, "at", "box", "fit")
	if err != nil {
		return VectorBox{}, err
	}
	var vb VectorBox
	for _, p := range args.positional {
		switch p.Type {
		case "Ident":
			img, ok := res.Images[p.Value]
			if !ok {
				return VectorBox{}, fmt.Errorf("%s: svg uses undeclared image %q", p.Pos, p.Value)
			}
			vb.Image, vb.Src = img.Name, img.Src
		case "String":
			vb.Src = p.Value
		}
	}
	if vb.Src == "" {
		return VectorBox{}, fmt.Errorf("%s: svg needs an image name or a source path", cmd.Pos)
	}
	if vb.Box, err = args.box(page); err != nil {
		return VectorBox{}, err
	}
	if vb.Fit, err = args.fit(); err != nil {
		return VectorBox{}, err
	}
	return vb, nil
}

func handleCode(cmd *dsl.Command, page Page, opts BuildOptions) (CodeBox, error) {
	args, err := scanArgs(cmd, "at", "box", "fit", "ecl", "padding", "size", "color", "background", "encoder")
	if err != nil {
		return CodeBox{}, err
	}
	cb := CodeBox{
		ECL:        defaultQRCorrection,
		Padding:    defaultQRPadding,
		Size:       defaultQRSize,
		Color:      Black,
		Background: White,
	}
	for _, p := range args.positional {
		if p.Type == "String" {
			cb.Content = binding.Interpolate(p.Value, opts.Data)
		}
	}
	if strings.TrimSpace(cb.Content) == "" {
		return CodeBox{}, fmt.Errorf("%s: qr content is empty", cmd.Pos)
	}
	if cb.Box, err = args.box(page); err != nil {
		return CodeBox{}, err
	}
	if cb.Fit, err = args.fit(); err != nil {
		return CodeBox{}, err
	}
	if v, ok := args.one("ecl"); ok {
		cb.ECL = strings.ToUpper(v.Value)
		if !strings.Contains("LMQH", cb.ECL) || len(cb.ECL) != 1 {
			return CodeBox{}, fmt.Errorf("%s: invalid error correction level %q", v.Pos, v.Value)
		}
	}
	if v, ok := args.one("padding"); ok {
		n, perr := strconv.Atoi(v.Value)
		if perr != nil || n < 0 {
			return CodeBox{}, fmt.Errorf("%s: invalid padding %q", v.Pos, v.Value)
		}
		cb.Padding = n
	}
	if v, ok := args.one("size"); ok {
		f, perr := strconv.ParseFloat(v.Value, 64)
		if perr != nil || f <= 0 {
			return CodeBox{}, fmt.Errorf("%s: invalid size %q", v.Pos, v.Value)
		}
		cb.Size = f
	}
	if v, ok := args.one("color"); ok {
		if cb.Color, err = ParseColor(v.Value); err != nil {
			return CodeBox{}, fmt.Errorf("%s: %w", v.Pos, err)
		}
	}
	if v, ok := args.one("background"); ok {
		if cb.Background, err = ParseColor(v.Value); err != nil {
			return CodeBox{}, fmt.Errorf("%s: %w", v.Pos, err)
		}
	}
	if v, ok := args.one("encoder"); ok {
		cb.Encoder = v.Value
	}
	return cb, nil
}

func collectResources(doc *dsl.Document) (ResourceSet, error) {
	res := ResourceSet{
		Fonts:  map[string]FontResource{},
		Images: map[string]ImageResource{},
	}
	for _, section := range doc.SectionsOf("resources") {
		for _, stmt := range section.Block.Statements {
			cmd := stmt.Command
			if cmd == nil {
				continue
			}
			if len(cmd.Args) == 0 {
				return res, fmt.Errorf("%s: %s resource needs a name", cmd.Pos, cmd.Name)
			}
			name := cmd.Args[0].Value
			attrs := assignments(cmd.Block)
			switch cmd.Name {
			case "font":
				font := FontResource{Name: name, Src: attrs["src"], Style: attrs["style"], Fallback: attrs["fallback"]}
				if font.Src == "" {
					return res, fmt.Errorf("%s: font %s has no src", cmd.Pos, name)
				}
				res.Fonts[name] = font
				if res.DefaultFont == "" {
					res.DefaultFont = name
				}
			case "image":
				img := ImageResource{Name: name, Src: attrs["src"]}
				if img.Src == "" {
					return res, fmt.Errorf("%s: image %s has no src", cmd.Pos, name)
				}
				res.Images[name] = img
			default:
				return res, fmt.Errorf("%s: unknown resource kind %q", cmd.Pos, cmd.Name)
			}
		}
	}
	return res, nil
}

func collectMeta(doc *dsl.Document, data any) DocumentMeta {
	meta := DocumentMeta{Creator: "asset-tag"}
	for _, section := range doc.SectionsOf("meta") {
		for _, stmt := range section.Block.Statements {
			if stmt.Assignment == nil {
				continue
			}
			val := stmt.Assignment.Value
			switch strings.ToLower(stmt.Assignment.Key) {
			case "title":
				meta.Title = binding.Interpolate(val.Text(), data)
			case "author":
				meta.Author = binding.Interpolate(val.Text(), data)
			case "subject":
				meta.Subject = binding.Interpolate(val.Text(), data)
			case "creator":
				meta.Creator = binding.Interpolate(val.Text(), data)
			case "keywords":
				meta.Keywords = val.Strings()
			}
		}
	}
	return meta
}

// resolvePageSize reads "<w> <h>" or a preset name (optionally "landscape")
// and returns the remaining params.
func resolvePageSize(params []*dsl.Lexeme) (float64, float64, []*dsl.Lexeme, error) {
	preset := pagePresets["ASSET-TAG"]
	if len(params) == 0 || params[0].Value == "margin" {
		return preset[0], preset[1], params, nil
	}
	first := params[0]
	if first.Type == "Ident" {
		size, ok := pagePresets[strings.ToUpper(first.Value)]
		if !ok {
			return 0, 0, nil, fmt.Errorf("unknown page size %q", first.Value)
		}
		rest := params[1:]
		if len(rest) > 0 && rest[0].Value == "landscape" {
			size[0], size[1] = size[1], size[0]
			rest = rest[1:]
		}
		return size[0], size[1], rest, nil
	}
	if len(params) < 2 {
		return 0, 0, nil, fmt.Errorf("page size needs width and height")
	}
	w, err := ParseLength(params[0].Value)
	if err != nil {
		return 0, 0, nil, err
	}
	h, err := ParseLength(params[1].Value)
	if err != nil {
		return 0, 0, nil, err
	}
	if w.Unit == UnitPercent || h.Unit == UnitPercent || w.Value <= 0 || h.Value <= 0 {
		return 0, 0, nil, fmt.Errorf("invalid page size %s %s", params[0].Value, params[1].Value)
	}
	return w.ToMM(), h.ToMM(), params[2:], nil
}

// resolveMargin applies CSS shorthand: 1 value for all sides, 2 for
// vertical/horizontal, 3 for top/horizontal/bottom, 4 for top/right/bottom/left.
func resolveMargin(params []*dsl.Lexeme) (Margin, error) {
	var margin Margin
	for i := 0; i < len(params); i++ {
		if params[i].Value != "margin" {
			return Margin{}, fmt.Errorf("unexpected page parameter %q", params[i].Value)
		}
		var vals []float64
		for i+1 < len(params) && params[i+1].Type == "Number" && len(vals) < 4 {
			i++
			l, err := ParseLength(params[i].Value)
			if err != nil {
				return Margin{}, err
			}
			vals = append(vals, l.ToMM())
		}
		switch len(vals) {
		case 1:
			margin = Margin{Top: vals[0], Right: vals[0], Bottom: vals[0], Left: vals[0]}
		case 2:
			margin = Margin{Top: vals[0], Right: vals[1], Bottom: vals[0], Left: vals[1]}
		case 3:
			margin = Margin{Top: vals[0], Right: vals[1], Bottom: vals[2], Left: vals[1]}
		case 4:
			margin = Margin{Top: vals[0], Right: vals[1], Bottom: vals[2], Left: vals[3]}
		default:
			return Margin{}, fmt.Errorf("margin needs 1 to 4 lengths")
		}
	}
	return margin, nil
}

func assignments(block *dsl.Block) map[string]string {
	out := map[string]string{}
	if block == nil {
		return out
	}
	for _, stmt := range block.Statements {
		if stmt.Assignment != nil {
			out[stmt.Assignment.Key] = stmt.Assignment.Value.Text()
		}
	}
	return out
}

func extractText(block *dsl.Block) string {
	if block == nil {
		return ""
	}
	var parts []string
	for _, stmt := range block.Statements {
		if stmt.Text != nil {
			parts = append(parts, string(*stmt.Text))
		}
	}
	return strings.Join(parts, "\n")
}

// ParseColor accepts #rgb, #rrggbb, #rrggbbaa (alpha ignored), black and white.
func ParseColor(value string) (Color, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	switch v {
	case "black":
		return Black, nil
	case "white":
		return White, nil
	}
	hex := strings.TrimPrefix(v, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 8 {
		hex = hex[:6]
	}
	if len(hex) != 6 || !strings.HasPrefix(v, "#") {
		return Color{}, fmt.Errorf("invalid color %q", value)
	}
	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid color %q", value)
	}
	return Color{R: int(n >> 16 & 0xff), G: int(n >> 8 & 0xff), B: int(n & 0xff)}, nil
}

// Hex formats the color as #rrggbb.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
