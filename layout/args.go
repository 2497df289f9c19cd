package layout

import (
	"fmt"
	"strings"

	"github.com/jpmckearin/asset-tag/dsl"
)

// keywordArity is the number of values each command keyword consumes.
var keywordArity = map[string]int{
	"at":          2,
	"box":         2,
	"size":        1,
	"fit":         1,
	"ecl":         1,
	"padding":     1,
	"color":       1,
	"background":  1,
	"width":       1,
	"align":       1,
	"encoder":     1,
	"line-height": 1,
}

// argSet splits command arguments into leading positional lexemes and
// keyword groups such as `at 10pt 6pt`.
type argSet struct {
	cmd        *dsl.Command
	positional []*dsl.Lexeme
	keyed      map[string][]*dsl.Lexeme
}

func scanArgs(cmd *dsl.Command, allowed ...string) (*argSet, error) {
	set := &argSet{cmd: cmd, keyed: map[string][]*dsl.Lexeme{}}
	allow := make(map[string]bool, len(allowed))
	for _, k := range allowed {
		allow[k] = true
	}
	for i := 0; i < len(cmd.Args); i++ {
		arg := cmd.Args[i]
		arity, isKeyword := keywordArity[arg.Value]
		if arg.Type != "Ident" || !isKeyword {
			if len(set.keyed) > 0 {
				return nil, fmt.Errorf("%s: unexpected argument %q to %s", arg.Pos, arg.Value, cmd.Name)
			}
			set.positional = append(set.positional, arg)
			continue
		}
		if !allow[arg.Value] {
			return nil, fmt.Errorf("%s: %s does not accept %q", arg.Pos, cmd.Name, arg.Value)
		}
		if _, dup := set.keyed[arg.Value]; dup {
			return nil, fmt.Errorf("%s: %q given twice", arg.Pos, arg.Value)
		}
		if i+arity >= len(cmd.Args) {
			return nil, fmt.Errorf("%s: %q needs %d value(s)", arg.Pos, arg.Value, arity)
		}
		set.keyed[arg.Value] = cmd.Args[i+1 : i+1+arity]
		i += arity
	}
	return set, nil
}

func (a *argSet) one(key string) (*dsl.Lexeme, bool) {
	vals, ok := a.keyed[key]
	if !ok || len(vals) == 0 {
		return nil, false
	}
	return vals[0], true
}

func (a *argSet) pair(key string) ([2]*dsl.Lexeme, bool) {
	vals, ok := a.keyed[key]
	if !ok || len(vals) < 2 {
		return [2]*dsl.Lexeme{}, false
	}
	return [2]*dsl.Lexeme{vals[0], vals[1]}, true
}

// length resolves a lexeme to millimetres; percentages are relative to reference.
func (a *argSet) length(v *dsl.Lexeme, reference float64) (float64, error) {
	l, err := ParseLength(v.Value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", v.Pos, err)
	}
	return l.Resolve(reference), nil
}

// box reads the required `box w h` and optional `at x y` (default: top-left margin).
func (a *argSet) box(page Page) (Box, error) {
	size, ok := a.pair("box")
	if !ok {
		return Box{}, fmt.Errorf("%s: %s needs a box", a.cmd.Pos, a.cmd.Name)
	}
	b := Box{X: page.Margin.Left, Y: page.Margin.Top}
	var err error
	if at, ok := a.pair("at"); ok {
		if b.X, err = a.length(at[0], page.Width); err != nil {
			return Box{}, err
		}
		if b.Y, err = a.length(at[1], page.Height); err != nil {
			return Box{}, err
		}
	}
	if b.Width, err = a.length(size[0], page.Width); err != nil {
		return Box{}, err
	}
	if b.Height, err = a.length(size[1], page.Height); err != nil {
		return Box{}, err
	}
	if b.Width <= 0 || b.Height <= 0 {
		return Box{}, fmt.Errorf("%s: %s box must be positive", a.cmd.Pos, a.cmd.Name)
	}
	return b, nil
}

func (a *argSet) fit() (Fit, error) {
	v, ok := a.one("fit")
	if !ok {
		return DefaultFit, nil
	}
	f, err := ParseFit(strings.TrimSpace(v.Value))
	if err != nil {
		return Fit{}, fmt.Errorf("%s: %w", v.Pos, err)
	}
	return f, nil
}
