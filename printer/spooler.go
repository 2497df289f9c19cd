package printer

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Spooler dispatches print jobs. Submit returns immediately and reports
// failures to the error handler; Print blocks for the result.
type Spooler struct {
	client  Client
	timeout time.Duration
	log     *zap.Logger
	onError func(Job, error)
	onDone  func(Job, error)

	wg sync.WaitGroup
}

// SpoolerOption configures a Spooler.
type SpoolerOption func(*Spooler)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) SpoolerOption {
	return func(s *Spooler) {
		if l != nil {
			s.log = l
		}
	}
}

// WithTimeout bounds every job. Zero disables the bound.
func WithTimeout(d time.Duration) SpoolerOption {
	return func(s *Spooler) { s.timeout = d }
}

// WithErrorHandler is called for every failed asynchronous job.
func WithErrorHandler(fn func(Job, error)) SpoolerOption {
	return func(s *Spooler) { s.onError = fn }
}

// WithResultHandler is called after every job, synchronous or not, with its
// error (nil on success).
func WithResultHandler(fn func(Job, error)) SpoolerOption {
	return func(s *Spooler) { s.onDone = fn }
}

// NewSpooler returns a spooler sending jobs through client.
func NewSpooler(client Client, opts ...SpoolerOption) *Spooler {
	s := &Spooler{client: client, timeout: 30 * time.Second, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.Named("spooler")
	return s
}

// Submit validates job and sends it in the background. Only validation errors
// are returned; the job outlives cancellation of ctx.
func (s *Spooler) Submit(ctx context.Context, job Job) error {
	if _, err := validate(job); err != nil {
		return err
	}
	ctx = context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := s.Print(ctx, job); err != nil && s.onError != nil {
			s.onError(job, err)
		}
	}()
	return nil
}

// Print sends job and waits for the printer's answer.
func (s *Spooler) Print(ctx context.Context, job Job) (int, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	start := time.Now()
	id, err := s.client.Print(ctx, job)
	if s.onDone != nil {
		s.onDone(job, err)
	}
	if err != nil {
		s.log.Error("print failed",
			zap.String("printer", job.Printer),
			zap.String("job", job.Name),
			zap.Error(err),
		)
		return 0, err
	}
	s.log.Debug("print job accepted",
		zap.String("printer", job.Printer),
		zap.String("job", job.Name),
		zap.Int("job_id", id),
		zap.Int("bytes", len(job.Data)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return id, nil
}

// Wait blocks until all submitted jobs have finished.
func (s *Spooler) Wait() { s.wg.Wait() }
