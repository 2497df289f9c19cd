package layout

// 该文件定义布局结果与资源描述，供布局计算、渲染与调试 JSON 共用。
// All coordinates are millimetres from the top-left corner of the page.

// Result holds the laid-out pages and the resources they reference.
type Result struct {
	Pages     []Page       `json:"pages"`
	Resources ResourceSet  `json:"resources"`
	Meta      DocumentMeta `json:"meta"`
}

// ResourceSet records the fonts and images declared by the template.
type ResourceSet struct {
	Fonts  map[string]FontResource  `json:"fonts"`
	Images map[string]ImageResource `json:"images"`
	// DefaultFont is the first declared font; text without a font name uses it.
	DefaultFont string `json:"defaultFont,omitempty"`
}

// FontResource describes a font. Src is a path (relative to the asset
// directory), an absolute path, or embed:<name> for a built-in font.
type FontResource struct {
	Name     string `json:"name"`
	Src      string `json:"src"`
	Style    string `json:"style,omitempty"`
	Fallback string `json:"fallback,omitempty"`
}

// ImageResource is a vector image (SVG) declared in resources.
type ImageResource struct {
	Name string `json:"name"`
	Src  string `json:"src"`
}

// Color uses 0-255 RGB components.
type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// Black and White are the defaults for text and QR backgrounds.
var (
	Black = Color{}
	White = Color{R: 255, G: 255, B: 255}
)

// Page is a page size, its margins and the elements to draw in order.
type Page struct {
	Width    float64   `json:"width"`
	Height   float64   `json:"height"`
	Margin   Margin    `json:"margin"`
	Elements []Element `json:"elements"`
}

// Texts returns the text boxes of the page in draw order.
func (p Page) Texts() []TextBox {
	var out []TextBox
	for _, el := range p.Elements {
		if el.Text != nil {
			out = append(out, *el.Text)
		}
	}
	return out
}

// Vectors returns the SVG boxes of the page in draw order.
func (p Page) Vectors() []VectorBox {
	var out []VectorBox
	for _, el := range p.Elements {
		if el.Vector != nil {
			out = append(out, *el.Vector)
		}
	}
	return out
}

// Codes returns the QR boxes of the page in draw order.
func (p Page) Codes() []CodeBox {
	var out []CodeBox
	for _, el := range p.Elements {
		if el.Code != nil {
			out = append(out, *el.Code)
		}
	}
	return out
}

// ElementKind tags the populated field of an Element.
type ElementKind string

const (
	KindText   ElementKind = "text"
	KindVector ElementKind = "svg"
	KindCode   ElementKind = "qr"
)

// Element is one drawing step. Exactly one of Text, Vector or Code is set.
type Element struct {
	Kind   ElementKind `json:"kind"`
	Text   *TextBox    `json:"text,omitempty"`
	Vector *VectorBox  `json:"vector,omitempty"`
	Code   *CodeBox    `json:"code,omitempty"`
}

// Margin in millimetres.
type Margin struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// Box is an absolute rectangle.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// TextBox is a positioned run of text. Y is the top of the first line.
type TextBox struct {
	Content    string     `json:"content"`
	X          float64    `json:"x"`
	Y          float64    `json:"y"`
	Width      float64    `json:"width"`
	Font       string     `json:"font"`
	FontSize   float64    `json:"fontSize"` // mm
	LineHeight float64    `json:"lineHeight"`
	Color      Color      `json:"color"`
	Align      string     `json:"align,omitempty"`
	Lines      []TextLine `json:"lines,omitempty"`
}

// TextLine is one line produced by the Typesetter.
type TextLine struct {
	Content   string  `json:"content"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	GapBefore float64 `json:"gapBefore,omitempty"`
}

// VectorBox places an SVG image into Box using Fit.
type VectorBox struct {
	Image string `json:"image"` // resource name
	Src   string `json:"src"`
	Box   Box    `json:"box"`
	Fit   Fit    `json:"fit"`
}

// CodeBox places a QR symbol for Content into Box using Fit.
type CodeBox struct {
	Content    string  `json:"content"`
	Box        Box     `json:"box"`
	Fit        Fit     `json:"fit"`
	ECL        string  `json:"ecl"`
	Padding    int     `json:"padding"`
	Size       float64 `json:"size"` // nominal SVG width/height in user units
	Color      Color   `json:"color"`
	Background Color   `json:"background"`
	Encoder    string  `json:"encoder,omitempty"`
}

// DocumentMeta is written into the PDF info dictionary.
type DocumentMeta struct {
	Title    string   `json:"title"`
	Author   string   `json:"author"`
	Subject  string   `json:"subject"`
	Creator  string   `json:"creator"`
	Keywords []string `json:"keywords"`
}
