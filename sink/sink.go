// Package sink delivers finished labels: to a file, to PNG, to a printer or
// to object storage.
package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jpmckearin/asset-tag/label"
)

// Sink consumes a finished label.
type Sink interface {
	Deliver(ctx context.Context, l *label.Label) error
}

// File writes the PDF bytes to Path, creating parent directories and
// overwriting any previous file.
type File struct {
	Path string
}

// Deliver implements Sink.
func (f File) Deliver(ctx context.Context, l *label.Label) error {
	data, err := l.Bytes()
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return writeFile(f.Path, data)
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
