package layout

// BuildOptions configures the layout stage.
type BuildOptions struct {
	// Data is bound into ${...} placeholders of text and QR content.
	Data any
	// Typesetter breaks text into lines. Optional: without it every text box
	// is a single unmeasured line.
	Typesetter Typesetter
}

// Typesetter breaks text into drawable lines under a width constraint.
// All lengths are millimetres.
type Typesetter interface {
	LayoutLines(content string, width float64, font FontResource, fontSize float64, lineHeight float64) ([]TextLine, error)
}
