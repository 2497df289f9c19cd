// Package service combines the composer with the render cache and metrics.
// The CLI and the HTTP server both go through it.
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jpmckearin/asset-tag/cache"
	"github.com/jpmckearin/asset-tag/label"
	"github.com/jpmckearin/asset-tag/metrics"
	"github.com/jpmckearin/asset-tag/sink"
)

// Service renders labels.
type Service struct {
	composer *label.Composer
	cache    *cache.Cache
	metrics  *metrics.Metrics
	log      *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithCache enables the render cache for PDF requests.
func WithCache(c *cache.Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithMetrics records compose and cache metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// New returns a service around composer.
func New(composer *label.Composer, opts ...Option) *Service {
	s := &Service{composer: composer, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.Named("service")
	return s
}

// Composer returns the underlying composer.
func (s *Service) Composer() *label.Composer { return s.composer }

// Label composes a fresh label for id.
func (s *Service) Label(ctx context.Context, id string) (*label.Label, error) {
	start := time.Now()
	l, err := s.composer.Compose(ctx, id)
	if s.metrics != nil {
		s.metrics.ObserveCompose(time.Since(start), err)
	}
	return l, err
}

// PDF returns the serialized label for id, from the cache when possible.
func (s *Service) PDF(ctx context.Context, id string) ([]byte, error) {
	id, err := label.NormalizeID(id, s.composer.StrictUUID())
	if err != nil {
		return nil, err
	}
	digest := s.composer.Digest()
	if s.cache != nil {
		data, hit := s.cache.Get(ctx, digest, id)
		if s.metrics != nil {
			s.metrics.CacheHit(hit)
		}
		if hit {
			return data, nil
		}
	}

	l, err := s.Label(ctx, id)
	if err != nil {
		return nil, err
	}
	data, err := l.Bytes()
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(ctx, digest, id, data)
	}
	return data, nil
}

// Deliver composes id once and hands the label to every sink in order,
// stopping at the first failure.
func (s *Service) Deliver(ctx context.Context, id string, sinks ...sink.Sink) error {
	l, err := s.Label(ctx, id)
	if err != nil {
		return err
	}
	for _, sk := range sinks {
		if err := sk.Deliver(ctx, l); err != nil {
			s.log.Warn("deliver failed", zap.String("asset_id", l.AssetID()), zap.Error(err))
			return err
		}
	}
	return nil
}

// QRCode returns the QR symbol of id as SVG.
func (s *Service) QRCode(id string) ([]byte, error) { return s.composer.QRCode(id) }
