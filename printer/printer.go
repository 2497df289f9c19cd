// Package printer sends finished label documents to a printer, either over
// IPP or by writing straight to a device file.
package printer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/OpenPrinting/goipp"
)

// ErrUnsupportedContentType is returned for jobs whose content type has no
// known document format.
var ErrUnsupportedContentType = errors.New("unsupported content type")

// Job is one document destined for a named printer.
type Job struct {
	Printer     string
	ContentType string // PDF, PNG or RAW
	Name        string
	Data        []byte
}

// Client delivers a job and returns the printer-assigned job id.
type Client interface {
	Print(ctx context.Context, job Job) (int, error)
}

// MIMEType maps a declared content type to its document-format.
func MIMEType(contentType string) (string, error) {
	switch strings.ToUpper(strings.TrimSpace(contentType)) {
	case "PDF":
		return "application/pdf", nil
	case "PNG":
		return "image/png", nil
	case "RAW":
		return "application/octet-stream", nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedContentType, contentType)
}

// StatusError is an IPP response with a non-successful status code.
type StatusError struct {
	Status  goipp.Status
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("ipp: %s: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("ipp: %s", e.Status)
}

func validate(job Job) (string, error) {
	if strings.TrimSpace(job.Printer) == "" {
		return "", errors.New("printer name is empty")
	}
	if len(job.Data) == 0 {
		return "", errors.New("print job has no data")
	}
	return MIMEType(job.ContentType)
}
