// Package dsl parses label templates.
//
//	label <Name> <version> {
//	  meta { key: value ... }
//	  resources { font <Name> { src: "..." } image <Name> { src: "..." } }
//	  page <size> [margin ...] { <command> <args...> [{ ... }] }
//	}
package dsl

import (
	"fmt"
	"os"
	"strconv"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var labelLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `[ \t\r]+`},
	{Name: "Newline", Pattern: `\n+`},
	{Name: "BlockComment", Pattern: `/\*[^*]*\*+(?:[^/*][^*]*\*+)*/`},
	{Name: "LineComment", Pattern: `//[^\n]*`},
	// 颜色必须排在 # 注释之前
	{Name: "Color", Pattern: `#(?:[0-9A-Fa-f]{8}|[0-9A-Fa-f]{6}|[0-9A-Fa-f]{3})\b`},
	{Name: "HashComment", Pattern: `#[^\n]*`},
	{Name: "Number", Pattern: `-?(?:\d+\.\d+|\.\d+|\d+)(?:pt|mm|cm|in|%)?`},
	{Name: "String", Pattern: `"(?:\\.|[^"])*"`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_-]*`},
	{Name: "Symbol", Pattern: `[][(),.=;:]`},
	{Name: "LBrace", Pattern: `{`},
	{Name: "RBrace", Pattern: `}`},
})

// kinds maps lexer token types back to rule names.
var kinds = func() map[lexer.TokenType]string {
	out := map[lexer.TokenType]string{}
	for name, tt := range labelLexer.Symbols() {
		out[tt] = name
	}
	return out
}()

var parser = participle.MustBuild[Document](
	participle.Lexer(labelLexer),
	participle.Elide("Whitespace", "LineComment", "BlockComment", "HashComment"),
)

// Document is a parsed label template.
type Document struct {
	Pos      lexer.Position `parser:"" json:"-"`
	Name     string         `parser:"Newline* 'label' @Ident"`
	Version  string         `parser:"@Ident"`
	Sections []*Section     `parser:"'{' Newline* ( @@ Newline* )* '}' Newline*"`
}

// Section is a meta, resources or page section. Only pages take params.
type Section struct {
	Pos    lexer.Position `parser:"" json:"-"`
	Type   string         `parser:"@( 'meta' | 'resources' | 'page' )"`
	Params []*Lexeme      `parser:"@@*"`
	Block  *Block         `parser:"@@"`
}

// Kind returns the section type.
func (s *Section) Kind() string {
	if s == nil {
		return "unknown"
	}
	return s.Type
}

// SectionsOf returns the sections of one type in declaration order.
func (d *Document) SectionsOf(kind string) []*Section {
	if d == nil {
		return nil
	}
	var out []*Section
	for _, s := range d.Sections {
		if s.Type == kind {
			out = append(out, s)
		}
	}
	return out
}

// Pages returns the page sections.
func (d *Document) Pages() []*Section { return d.SectionsOf("page") }

// Block is a braced list of statements separated by newlines or ';'.
type Block struct {
	Statements []*Statement `parser:"'{' Newline* ( @@ ( ';' | Newline )* )* '}'"`
}

// Statement is an assignment, a command or a bare string.
type Statement struct {
	Assignment *Assignment `parser:"  @@"`
	Command    *Command    `parser:"| @@"`
	Text       *Quoted     `parser:"| @String"`
}

// Assignment is `key: value`.
type Assignment struct {
	Key   string `parser:"@Ident"`
	Value *Value `parser:"':' Newline* @@"`
}

// Command is a name, its arguments and an optional block.
type Command struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Name  string         `parser:"@Ident"`
	Args  []*Lexeme      `parser:"@@*"`
	Block *Block         `parser:"( Newline* @@ )?"`
}

// Value is a single atom or a bracketed list of atoms.
type Value struct {
	List []*Atom `parser:"  '[' Newline* ( @@ ( ',' | ';' | Newline )* )* ']'"`
	Atom *Atom   `parser:"| @@"`
}

// Atom is a string, number, color or identifier.
type Atom struct {
	Str  *Quoted `parser:"  @String"`
	Word *string `parser:"| @( Number | Color | Ident )"`
}

func (a *Atom) text() string {
	switch {
	case a == nil:
		return ""
	case a.Str != nil:
		return string(*a.Str)
	case a.Word != nil:
		return *a.Word
	}
	return ""
}

// Text returns a scalar value as text; lists yield their first item.
func (v *Value) Text() string {
	if v == nil {
		return ""
	}
	if v.Atom != nil {
		return v.Atom.text()
	}
	if len(v.List) > 0 {
		return v.List[0].text()
	}
	return ""
}

// Strings returns the non-empty items of a list, or the scalar alone.
func (v *Value) Strings() []string {
	if v == nil {
		return nil
	}
	items := v.List
	if v.Atom != nil {
		items = []*Atom{v.Atom}
	}
	var out []string
	for _, it := range items {
		if s := it.text(); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Quoted is a string literal with its quotes removed.
type Quoted string

// Capture implements participle.Capture.
func (q *Quoted) Capture(values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("empty string capture")
	}
	s, err := strconv.Unquote(values[0])
	if err != nil {
		return err
	}
	*q = Quoted(s)
	return nil
}

// Lexeme is one raw command argument. Type is the token kind (Ident, Number,
// String, Color, Symbol); Value is unquoted for strings, Raw never is.
type Lexeme struct {
	Type  string         `json:"type"`
	Value string         `json:"value"`
	Raw   string         `json:"raw"`
	Pos   lexer.Position `json:"-"`
}

// Parse implements participle.Parseable. Arguments run until the end of the
// line, a ';' or a brace.
func (l *Lexeme) Parse(lex *lexer.PeekingLexer) error {
	tok := lex.Peek()
	if tok == nil || tok.EOF() {
		return participle.NextMatch
	}
	kind := kinds[tok.Type]
	switch {
	case kind == "Newline", kind == "LBrace", kind == "RBrace":
		return participle.NextMatch
	case kind == "Symbol" && tok.Value == ";":
		return participle.NextMatch
	}
	tok = lex.Next()

	value := tok.Value
	if kind == "String" {
		s, err := strconv.Unquote(tok.Value)
		if err != nil {
			return fmt.Errorf("%s: %w", tok.Pos, err)
		}
		value = s
	}
	*l = Lexeme{Type: kind, Value: value, Raw: tok.Value, Pos: tok.Pos}
	return nil
}

func check(doc *Document) (*Document, error) {
	for _, s := range doc.Sections {
		if s.Type != "page" && len(s.Params) > 0 {
			return nil, fmt.Errorf("%s: %s section takes no parameters", s.Pos, s.Type)
		}
	}
	return doc, nil
}

// ParseString parses a template held in memory.
func ParseString(input string) (*Document, error) {
	return ParseBytes("", []byte(input))
}

// ParseBytes parses data, reporting positions against filename.
func ParseBytes(filename string, data []byte) (*Document, error) {
	doc, err := parser.ParseBytes(filename, data)
	if err != nil {
		return nil, err
	}
	return check(doc)
}

// ParseFile reads and parses the template at path.
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template %s: %w", path, err)
	}
	return ParseBytes(path, data)
}
