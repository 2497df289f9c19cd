package sink

import (
	"context"

	"github.com/jpmckearin/asset-tag/label"
	"github.com/jpmckearin/asset-tag/printer"
)

// Print forwards the PDF bytes to a named printer. Without Wait the job is
// queued on the spooler and failures go to its error handler.
type Print struct {
	Spooler     *printer.Spooler
	Printer     string
	ContentType string
	Wait        bool
}

// Deliver implements Sink.
func (p Print) Deliver(ctx context.Context, l *label.Label) error {
	data, err := l.Bytes()
	if err != nil {
		return err
	}
	contentType := p.ContentType
	if contentType == "" {
		contentType = "PDF"
	}
	job := printer.Job{
		Printer:     p.Printer,
		ContentType: contentType,
		Name:        "asset-tag " + l.AssetID(),
		Data:        data,
	}
	if p.Wait {
		_, err := p.Spooler.Print(ctx, job)
		return err
	}
	return p.Spooler.Submit(ctx, job)
}
