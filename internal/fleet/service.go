// Package fleet holds the FarmTrack domain services: the tractor and
// implement registry, the operation lifecycle, the append-only logbook of
// telemetry, fuel and alerts, and reporting.
package fleet

import (
	"context"
	"time"

	"github.com/Shahid-khan015/FarmTrack/internal/db"
	"github.com/Shahid-khan015/FarmTrack/internal/events"
	log "github.com/sirupsen/logrus"
)

const defaultPublishTimeout = 3 * time.Second

// Service implements the fleet operations on top of a Store.
type Service struct {
	store          db.Store
	publisher      events.Publisher
	now            func() time.Time
	publishTimeout time.Duration
	resolution     time.Duration
	logger         *log.Entry
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets the lifecycle event publisher.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithPublishTimeout bounds each publish call.
func WithPublishTimeout(d time.Duration) Option {
	return func(s *Service) { s.publishTimeout = d }
}

// NewService creates a fleet service. Events are logged unless a publisher is given.
func NewService(store db.Store, opts ...Option) *Service {
	s := &Service{
		store:          store,
		publisher:      events.NewLogPublisher(),
		now:            time.Now,
		publishTimeout: defaultPublishTimeout,
		resolution:     db.TimeResolution(store),
		logger:         log.WithField("component", "fleet"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// clock returns the current local time at the store's resolution.
func (s *Service) clock() time.Time {
	return s.now().Local().Truncate(s.resolution)
}

// stamp normalizes a client supplied timestamp, defaulting to now.
func (s *Service) stamp(ts *time.Time) time.Time {
	if ts == nil || ts.IsZero() {
		return s.clock()
	}
	return ts.Local().Truncate(s.resolution)
}

// publish delivers e best-effort; failures are logged and never returned.
func (s *Service) publish(ctx context.Context, e events.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"kind":       e.Kind,
			"tractor_id": e.TractorID,
		}).Warn("Failed to publish lifecycle event")
	}
}
