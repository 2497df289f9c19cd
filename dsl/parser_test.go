package dsl_test

import (
	"strings"
	"testing"

	"github.com/jpmckearin/asset-tag/dsl"
	"github.com/jpmckearin/asset-tag/templates"
)

const sampleDSL = `
label Shelf v2 {
  meta {
    title: "Shelf label"
    keywords: [
      "storage"
      "shelf"
    ]
  }

  resources {
    font Body {
      src: "embed:goregular"
    }
    image Logo { src: "logo.svg" }
  }

  page 2in 1in margin 2mm {
    text Body size 9pt at 4pt 4pt { "Shelf ${asset.id}" }
    svg Logo at 0 0 box 1in 1in; qr "${asset.id}" at 1in 0 box 1in 1in ecl Q
  }
}
`

func TestParseDocument(t *testing.T) {
	doc, err := dsl.ParseString(sampleDSL)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if doc.Name != "Shelf" || doc.Version != "v2" {
		t.Fatalf("unexpected header: %s %s", doc.Name, doc.Version)
	}
	if len(doc.Sections) != 3 {
		t.Fatalf("expected 3 sections, got %d", len(doc.Sections))
	}
	kinds := []string{doc.Sections[0].Kind(), doc.Sections[1].Kind(), doc.Sections[2].Kind()}
	if strings.Join(kinds, ",") != "meta,resources,page" {
		t.Fatalf("unexpected section kinds: %v", kinds)
	}

	meta := doc.Sections[0]
	title := meta.Block.Statements[0].Assignment
	if title == nil || title.Key != "title" || title.Value.Text() != "Shelf label" {
		t.Fatalf("expected title assignment, got %+v", meta.Block.Statements[0])
	}
	keywords := meta.Block.Statements[1].Assignment
	if got := keywords.Value.Strings(); len(got) != 2 || got[1] != "shelf" {
		t.Fatalf("unexpected keywords: %v", got)
	}

	res := doc.Sections[1]
	if len(res.Block.Statements) != 2 {
		t.Fatalf("expected 2 resources, got %d", len(res.Block.Statements))
	}
	image := res.Block.Statements[1].Command
	if image == nil || image.Name != "image" || image.Block == nil {
		t.Fatalf("single-line image block not parsed: %+v", res.Block.Statements[1])
	}

	pages := doc.Pages()
	if len(pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(pages))
	}
	page := pages[0]
	if got := lexemeValues(page.Params); got != "2in 1in margin 2mm" {
		t.Fatalf("unexpected page params: %s", got)
	}
	if len(page.Block.Statements) != 3 {
		t.Fatalf("expected 3 page statements (semicolon separated), got %d", len(page.Block.Statements))
	}

	text := page.Block.Statements[0].Command
	if text.Name != "text" || text.Args[0].Value != "Body" {
		t.Fatalf("unexpected text command: %+v", text)
	}
	if text.Block == nil || text.Block.Statements[0].Text == nil {
		t.Fatalf("text command missing literal content")
	}
	if got := string(*text.Block.Statements[0].Text); got != "Shelf ${asset.id}" {
		t.Fatalf("unexpected text literal: %q", got)
	}

	qr := page.Block.Statements[2].Command
	if qr.Name != "qr" || qr.Args[0].Type != "String" || qr.Args[0].Value != "${asset.id}" {
		t.Fatalf("unexpected qr command: %+v", qr.Args)
	}
	if qr.Args[0].Raw != `"${asset.id}"` {
		t.Fatalf("raw token should keep quotes, got %s", qr.Args[0].Raw)
	}
}

func TestParseDefaultTemplate(t *testing.T) {
	doc, err := dsl.ParseBytes(templates.DefaultName, templates.Default())
	if err != nil {
		t.Fatalf("default template does not parse: %v", err)
	}
	if doc.Name != "AssetTag" {
		t.Fatalf("unexpected template name %s", doc.Name)
	}
	pages := doc.Pages()
	if len(pages) != 1 {
		t.Fatalf("expected exactly one page, got %d", len(pages))
	}
	var names []string
	for _, st := range pages[0].Block.Statements {
		if st.Command != nil {
			names = append(names, st.Command.Name)
		}
	}
	// 绘制顺序与原始标签保持一致
	if got := strings.Join(names, ","); got != "text,svg,text,qr" {
		t.Fatalf("unexpected draw order: %s", got)
	}
	qr := pages[0].Block.Statements[3].Command
	var colors []string
	for _, a := range qr.Args {
		if a.Type == "Color" {
			colors = append(colors, a.Value)
		}
	}
	if strings.Join(colors, " ") != "#000000 #ffffff" {
		t.Fatalf("colors not lexed as Color tokens: %v", colors)
	}
}

func TestParseRejectsUnterminatedBlock(t *testing.T) {
	if _, err := dsl.ParseString("label Broken v1 {\n page 10mm 10mm {\n"); err == nil {
		t.Fatalf("expected parse error for unterminated block")
	}
}

func TestParseRejectsParamsOnMeta(t *testing.T) {
	if _, err := dsl.ParseString("label X v1 {\n meta 10mm { title: \"x\" }\n}"); err == nil {
		t.Fatalf("expected error for meta section parameters")
	}
}

func TestParseScalarKeywords(t *testing.T) {
	doc, err := dsl.ParseString("label X v1 {\n meta { keywords: tag }\n}")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	v := doc.SectionsOf("meta")[0].Block.Statements[0].Assignment.Value
	if got := v.Strings(); len(got) != 1 || got[0] != "tag" {
		t.Fatalf("unexpected keywords: %v", got)
	}
}

func TestParseFileMissing(t *testing.T) {
	if _, err := dsl.ParseFile(t.TempDir() + "/missing.label"); err == nil {
		t.Fatalf("expected error for missing template file")
	}
}

func lexemeValues(parts []*dsl.Lexeme) string {
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		values = append(values, p.Value)
	}
	return strings.Join(values, " ")
}
