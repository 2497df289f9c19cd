package printer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/OpenPrinting/goipp"
)

// IPPClient submits Print-Job requests to an IPP server such as CUPS.
type IPPClient struct {
	base   *url.URL
	user   string
	client *http.Client
	reqID  atomic.Uint32
}

// IPPOption configures an IPPClient.
type IPPOption func(*IPPClient)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) IPPOption {
	return func(i *IPPClient) { i.client = c }
}

// WithUser sets requesting-user-name.
func WithUser(user string) IPPOption {
	return func(i *IPPClient) { i.user = user }
}

// NewIPPClient returns a client for the server at baseURL
// (http://host:631 or ipp://host:631).
func NewIPPClient(baseURL string, opts ...IPPOption) (*IPPClient, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse printer uri: %w", err)
	}
	switch u.Scheme {
	case "ipp":
		u.Scheme = "http"
	case "ipps":
		u.Scheme = "https"
	case "http", "https":
	default:
		return nil, fmt.Errorf("unsupported printer uri scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("printer uri %q has no host", baseURL)
	}

	c := &IPPClient{base: u, user: "assettag", client: http.DefaultClient}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *IPPClient) printerURL(name string) string {
	return c.base.JoinPath("printers", name).String()
}

// Print sends job and returns the job-id assigned by the server.
func (c *IPPClient) Print(ctx context.Context, job Job) (int, error) {
	format, err := validate(job)
	if err != nil {
		return 0, err
	}
	target := c.printerURL(job.Printer)
	name := job.Name
	if name == "" {
		name = "asset-tag"
	}

	req := goipp.NewRequest(goipp.DefaultVersion, goipp.OpPrintJob, c.reqID.Add(1))
	req.Operation.Add(goipp.MakeAttribute("attributes-charset", goipp.TagCharset, goipp.String("utf-8")))
	req.Operation.Add(goipp.MakeAttribute("attributes-natural-language", goipp.TagLanguage, goipp.String("en-US")))
	req.Operation.Add(goipp.MakeAttribute("printer-uri", goipp.TagURI, goipp.String(target)))
	req.Operation.Add(goipp.MakeAttribute("requesting-user-name", goipp.TagName, goipp.String(c.user)))
	req.Operation.Add(goipp.MakeAttribute("job-name", goipp.TagName, goipp.String(name)))
	req.Operation.Add(goipp.MakeAttribute("document-format", goipp.TagMimeType, goipp.String(format)))

	head, err := req.EncodeBytes()
	if err != nil {
		return 0, fmt.Errorf("encode ipp request: %w", err)
	}
	body := io.MultiReader(bytes.NewReader(head), bytes.NewReader(job.Data))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target, body)
	if err != nil {
		return 0, err
	}
	httpReq.ContentLength = int64(len(head) + len(job.Data))
	httpReq.Header.Set("Content-Type", goipp.ContentType)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("send print job to %s: %w", job.Printer, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("send print job to %s: http status %s", job.Printer, resp.Status)
	}

	var rsp goipp.Message
	if err := rsp.Decode(resp.Body); err != nil {
		return 0, fmt.Errorf("decode ipp response: %w", err)
	}
	// 0x0000-0x00ff are successful-ok-* codes
	if status := goipp.Status(rsp.Code); status >= 0x0100 {
		return 0, &StatusError{Status: status, Message: statusMessage(rsp)}
	}
	return jobID(rsp), nil
}

func statusMessage(m goipp.Message) string {
	for _, attr := range m.Operation {
		if attr.Name == "status-message" && len(attr.Values) > 0 {
			return attr.Values[0].V.String()
		}
	}
	return ""
}

func jobID(m goipp.Message) int {
	for _, attr := range m.Job {
		if attr.Name != "job-id" || len(attr.Values) == 0 {
			continue
		}
		if v, ok := attr.Values[0].V.(goipp.Integer); ok {
			return int(v)
		}
	}
	return 0
}
