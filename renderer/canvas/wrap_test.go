package canvasrenderer

import (
	"testing"

	"github.com/jpmckearin/asset-tag/layout"
)

var bodyFont = layout.FontResource{Name: "Body", Src: "embed:goregular"}

func TestLayoutLinesGreedyWrapsText(t *testing.T) {
	r := NewRenderer(".")

	// 这里的宽度/字号/行高均为 mm
	fontSizeMM := 12 * layout.PtToMm
	lineHeightMM := fontSizeMM * 1.2

	lines, err := r.LayoutLines("hello world again", 10, bodyFont, fontSizeMM, lineHeightMM)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) < 2 {
		t.Fatalf("expected wrapping into multiple lines, got %d", len(lines))
	}
	for i, ln := range lines {
		if ln.Height != lineHeightMM {
			t.Fatalf("line %d height = %g, want %g", i, ln.Height, lineHeightMM)
		}
	}
}

func TestGreedyWrapHonorsNewlines(t *testing.T) {
	r := NewRenderer(".")
	fontSizeMM := 12 * layout.PtToMm

	lines, err := r.LayoutLines("foo\n\nbar", 100, bodyFont, fontSizeMM, fontSizeMM*1.2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines including blank, got %d", len(lines))
	}
	if lines[1].Content != "" {
		t.Fatalf("expected middle line to be blank, got %q", lines[1].Content)
	}
}

// TestGreedyWrapWidthLimit 验证每行宽度不超过限制（mm）。
func TestGreedyWrapWidthLimit(t *testing.T) {
	r := NewRenderer(".")
	fontSizeMM := 12 * layout.PtToMm

	limit := 30.0
	content := "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	lines, err := r.LayoutLines(content, limit, bodyFont, fontSizeMM, fontSizeMM*1.2)
	if err != nil {
		t.Fatalf("LayoutLines error: %v", err)
	}
	if len(lines) < 2 {
		t.Fatalf("expected the long word to be split, got %d line(s)", len(lines))
	}
	for i, ln := range lines {
		if ln.Width-limit > 1e-6 {
			t.Fatalf("line %d width exceeds limit: width=%g limit=%g", i, ln.Width, limit)
		}
	}
}

// 当第一行宽度与容器宽度恰好相等且后面紧跟一个显式换行时，不应产生额外的空行。
func TestNoBlankLineWhenEqualWidthThenNewline(t *testing.T) {
	r := NewRenderer(".")
	fontSizeMM := 12 * layout.PtToMm

	first := "SAMPLE-A"
	measured, err := r.LayoutLines(first, 1e6, bodyFont, fontSizeMM, fontSizeMM)
	if err != nil {
		t.Fatalf("measure error: %v", err)
	}
	if len(measured) != 1 || measured[0].Width <= 0 {
		t.Fatalf("unexpected measurement: %+v", measured)
	}

	lines, err := r.LayoutLines(first+"\n"+first, measured[0].Width, bodyFont, fontSizeMM, fontSizeMM)
	if err != nil {
		t.Fatalf("LayoutLines error: %v", err)
	}
	if got := len(lines); got != 2 {
		t.Fatalf("expected 2 lines without blank, got %d", got)
	}
	if lines[0].Content != first || lines[1].Content != first {
		t.Fatalf("unexpected lines: %+v", lines)
	}
}

func TestLayoutLinesUnknownFont(t *testing.T) {
	r := NewRenderer(t.TempDir())
	_, err := r.LayoutLines("x", 10, layout.FontResource{Name: "Missing", Src: "missing.ttf"}, 3, 3)
	if err == nil {
		t.Fatalf("expected error for missing font")
	}
}
