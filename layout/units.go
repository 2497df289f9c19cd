package layout

import (
	"fmt"
	"strconv"
	"strings"
)

// Unit is the unit a template length was written in.
type Unit int

const (
	UnitNone Unit = iota // plain numbers; lengths read them as points
	UnitMM
	UnitCM
	UnitIN
	UnitPT
	UnitPercent
)

// Conversion constants between pt and mm (1in = 72pt = 25.4mm).
const (
	PtToMm = 25.4 / 72
	MmToPt = 72 / 25.4
)

// String returns the unit suffix used in templates.
func (u Unit) String() string {
	switch u {
	case UnitMM:
		return "mm"
	case UnitCM:
		return "cm"
	case UnitIN:
		return "in"
	case UnitPT:
		return "pt"
	case UnitPercent:
		return "%"
	default:
		return ""
	}
}

// Length preserves a numeric value with its unit.
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

func (l Length) IsZero() bool { return l.Value == 0 }

// ToMM converts the length to millimetres. Unit-less values are points,
// since label sizes are traditionally given in points.
func (l Length) ToMM() float64 {
	switch l.Unit {
	case UnitMM:
		return l.Value
	case UnitCM:
		return l.Value * 10
	case UnitIN:
		return l.Value * 25.4
	default:
		return l.Value * PtToMm
	}
}

// ToPT converts the length to points.
func (l Length) ToPT() float64 { return l.ToMM() * MmToPt }

// Resolve converts to millimetres, treating percentages relative to reference (mm).
func (l Length) Resolve(reference float64) float64 {
	if l.Unit == UnitPercent {
		return reference * l.Value / 100
	}
	return l.ToMM()
}

// ParseLength parses "12pt", "2.5mm", "1in", "50%" or a plain number.
func ParseLength(value string) (Length, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return Length{}, fmt.Errorf("empty length")
	}
	unit := UnitNone
	for _, suf := range []struct {
		s string
		u Unit
	}{{"mm", UnitMM}, {"cm", UnitCM}, {"in", UnitIN}, {"pt", UnitPT}, {"%", UnitPercent}} {
		if strings.HasSuffix(v, suf.s) {
			unit = suf.u
			v = strings.TrimSpace(strings.TrimSuffix(v, suf.s))
			break
		}
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return Length{}, fmt.Errorf("invalid length %q", value)
	}
	return Length{Value: f, Unit: unit}, nil
}

// MustLength parses value and panics on error. Intended for constants in tests.
func MustLength(value string) Length {
	l, err := ParseLength(value)
	if err != nil {
		panic(err)
	}
	return l
}
