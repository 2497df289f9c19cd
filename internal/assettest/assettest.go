// Package assettest writes the font and logo files the default template
// expects into a temporary asset directory.
package assettest

import (
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/font/gofont/goregular"
)

// Paths used by the default template, relative to the asset directory.
const (
	FontPath = "src/fonts/Stencilia-A.ttf"
	LogoPath = "src/images/hawks-logo.svg"
)

// Logo is a small two-colour SVG with a 2:1 aspect ratio.
const Logo = `<svg xmlns="http://www.w3.org/2000/svg" width="100" height="50" viewBox="0 0 100 50">
  <rect x="0" y="0" width="100" height="50" fill="#1d3c6e"/>
  <circle cx="50" cy="25" r="20" fill="#f2b705"/>
</svg>
`

// Dir creates a temporary asset directory holding the default font and logo.
func Dir(t testing.TB) string {
	t.Helper()
	dir := t.TempDir()
	Write(t, dir, FontPath, goregular.TTF)
	Write(t, dir, LogoPath, []byte(Logo))
	return dir
}

// Write stores data at dir/rel, creating parent directories.
func Write(t testing.TB, dir, rel string, data []byte) {
	t.Helper()
	path := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// Remove deletes dir/rel.
func Remove(t testing.TB, dir, rel string) {
	t.Helper()
	if err := os.Remove(filepath.Join(dir, rel)); err != nil {
		t.Fatalf("remove %s: %v", rel, err)
	}
}
