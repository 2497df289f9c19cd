package layout

import (
	"fmt"
	"strings"
)

// Align is one axis of an SVG preserveAspectRatio alignment.
type Align string

const (
	AlignMin Align = "Min"
	AlignMid Align = "Mid"
	AlignMax Align = "Max"
)

// Fit follows SVG preserveAspectRatio: alignment on each axis plus meet, or
// Stretch for "none".
type Fit struct {
	Stretch bool  `json:"stretch,omitempty"`
	X       Align `json:"x,omitempty"`
	Y       Align `json:"y,omitempty"`
}

// DefaultFit is "xMidYMid meet".
var DefaultFit = Fit{X: AlignMid, Y: AlignMid}

// String renders the fit in preserveAspectRatio syntax.
func (f Fit) String() string {
	if f.Stretch {
		return "none"
	}
	return fmt.Sprintf("x%sY%s meet", f.X, f.Y)
}

// ParseFit parses a preserveAspectRatio value. "slice" is rejected because
// rendered content is not clipped to its box.
func ParseFit(value string) (Fit, error) {
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return DefaultFit, nil
	}
	if len(fields) > 2 {
		return Fit{}, fmt.Errorf("invalid fit %q", value)
	}
	if fields[0] == "none" {
		return Fit{Stretch: true}, nil
	}
	if len(fields) == 2 && fields[1] != "meet" {
		return Fit{}, fmt.Errorf("unsupported fit mode %q (only meet and none)", fields[1])
	}
	align := fields[0]
	if len(align) != 8 || align[0] != 'x' || align[4] != 'Y' {
		return Fit{}, fmt.Errorf("invalid fit alignment %q", align)
	}
	x, err := parseAlign(align[1:4])
	if err != nil {
		return Fit{}, err
	}
	y, err := parseAlign(align[5:8])
	if err != nil {
		return Fit{}, err
	}
	return Fit{X: x, Y: y}, nil
}

func parseAlign(s string) (Align, error) {
	switch Align(s) {
	case AlignMin, AlignMid, AlignMax:
		return Align(s), nil
	}
	return "", fmt.Errorf("invalid fit alignment %q", s)
}

// Placement is where content of a given size lands inside a box.
type Placement struct {
	X, Y           float64 // top-left of the placed content
	ScaleX, ScaleY float64
}

// Place scales content of size w×h into box. With meet the aspect ratio is
// preserved and residual space is distributed according to the alignment.
func (f Fit) Place(box Box, w, h float64) Placement {
	if w <= 0 || h <= 0 {
		return Placement{X: box.X, Y: box.Y, ScaleX: 1, ScaleY: 1}
	}
	if f.Stretch {
		return Placement{X: box.X, Y: box.Y, ScaleX: box.Width / w, ScaleY: box.Height / h}
	}
	s := box.Width / w
	if sy := box.Height / h; sy < s {
		s = sy
	}
	return Placement{
		X:      box.X + alignOffset(box.Width-w*s, f.X),
		Y:      box.Y + alignOffset(box.Height-h*s, f.Y),
		ScaleX: s,
		ScaleY: s,
	}
}

func alignOffset(residual float64, a Align) float64 {
	switch a {
	case AlignMid, "":
		return residual / 2
	case AlignMax:
		return residual
	default:
		return 0
	}
}
