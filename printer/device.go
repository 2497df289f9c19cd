package printer

import (
	"context"
	"fmt"
	"os"
)

// DeviceClient writes documents directly to a character device such as
// /dev/usb/lp0. The printer must understand the document format natively.
type DeviceClient struct {
	path string
}

// NewDeviceClient returns a client writing to path.
func NewDeviceClient(path string) *DeviceClient {
	return &DeviceClient{path: path}
}

// Print writes the job data to the device. Device writes carry no job id.
func (d *DeviceClient) Print(ctx context.Context, job Job) (int, error) {
	if _, err := validate(job); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	f, err := os.OpenFile(d.path, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return 0, fmt.Errorf("open printer device: %w", err)
	}
	if _, err := f.Write(job.Data); err != nil {
		f.Close()
		return 0, fmt.Errorf("write printer device: %w", err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("close printer device: %w", err)
	}
	return 0, nil
}
