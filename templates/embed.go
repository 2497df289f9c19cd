// Package templates holds the label templates compiled into the binary.
package templates

import (
	_ "embed"
	"fmt"
	"os"
)

// DefaultName is the file name reported for the built-in template.
const DefaultName = "asset-tag.label"

//go:embed asset-tag.label
var defaultTemplate []byte

// Default returns a copy of the built-in asset tag template.
func Default() []byte {
	out := make([]byte, len(defaultTemplate))
	copy(out, defaultTemplate)
	return out
}

// Load returns the template at path, or the built-in one when path is empty.
func Load(path string) (name string, data []byte, err error) {
	if path == "" {
		return DefaultName, Default(), nil
	}
	data, err = os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("read template %s: %w", path, err)
	}
	return path, data, nil
}
