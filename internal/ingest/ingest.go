// Package ingest routes raw records arriving from field controllers to the
// handlers that decode and persist them.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Record is one incoming payload from a site controller. Route names the
// record stream ("device.upsert", "event.open", ...); Payload is the raw
// JSON body handed to the handler untouched.
type Record struct {
	Route      string
	Payload    json.RawMessage
	ReceivedAt time.Time
}

// HandlerFunc processes a record and returns a result.
type HandlerFunc func(Record) (any, error)

// Option configures handler registration.
type Option func(*config)

type config struct {
	bufferSize int
	blocking   bool
	logged     bool
}

// Buffered makes the handler async with a queue of the given size.
func Buffered(size int) Option {
	return func(c *config) {
		c.bufferSize = size
	}
}

// Blocking makes a buffered handler block when the queue is full instead of dropping.
func Blocking() Option {
	return func(c *config) {
		c.blocking = true
	}
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

// Router fans incoming records out to registered handlers.
type Router struct {
	handlers map[string]HandlerFunc
	log      zerolog.Logger

	// OTEL metrics
	queueSize metric.Int64ObservableGauge
	processed metric.Int64Counter
	dropped   metric.Int64Counter

	// Track buffers for gauge callback
	mu      sync.RWMutex
	buffers map[string]chan Record
}

// New creates a new Router with the given logger.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(log zerolog.Logger) (*Router, error) {
	r := &Router{
		handlers: make(map[string]HandlerFunc),
		buffers:  make(map[string]chan Record),
		log:      log.With().Str("component", "ingest").Logger(),
	}

	m := meter()

	var err error

	r.queueSize, err = m.Int64ObservableGauge(
		"ingest.queue.size",
		metric.WithDescription("Current number of records in queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			r.mu.RLock()
			defer r.mu.RUnlock()
			for route, buf := range r.buffers {
				o.ObserveInt64(r.queueSize, int64(len(buf)),
					metric.WithAttributes(attribute.String("route", route)))
			}
			return nil
		},
		r.queueSize,
	)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	r.processed, err = m.Int64Counter(
		"ingest.records.processed",
		metric.WithDescription("Total records processed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	r.dropped, err = m.Int64Counter(
		"ingest.records.dropped",
		metric.WithDescription("Total records dropped due to full queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	return r, nil
}

// Register adds a handler for the given route with optional configuration.
func (r *Router) Register(route string, h HandlerFunc, opts ...Option) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := h

	if cfg.bufferSize > 0 {
		handler = r.withBuffer(route, cfg.bufferSize, cfg.blocking, handler)
	}

	if cfg.logged {
		handler = r.withLogging(route, handler)
	}

	r.handlers[route] = handler
}

// Dispatch routes a record to its registered handler.
func (r *Router) Dispatch(rec Record) (any, error) {
	h, ok := r.handlers[rec.Route]
	if !ok {
		return nil, fmt.Errorf("unknown route: %s", rec.Route)
	}
	return h(rec)
}

// HasHandler returns true if a handler is registered for the route.
func (r *Router) HasHandler(route string) bool {
	_, ok := r.handlers[route]
	return ok
}

func (r *Router) withBuffer(route string, size int, blocking bool, h HandlerFunc) HandlerFunc {
	buffer := make(chan Record, size)

	r.mu.Lock()
	r.buffers[route] = buffer
	r.mu.Unlock()

	routeAttr := attribute.String("route", route)

	go func() {
		for rec := range buffer {
			h(rec)
			r.processed.Add(context.Background(), 1, metric.WithAttributes(routeAttr))
		}
	}()

	if blocking {
		return func(rec Record) (any, error) {
			buffer <- rec
			return "queued", nil
		}
	}

	return func(rec Record) (any, error) {
		select {
		case buffer <- rec:
			return "queued", nil
		default:
			r.dropped.Add(context.Background(), 1, metric.WithAttributes(routeAttr))
			return nil, fmt.Errorf("queue full: %s", route)
		}
	}
}

func (r *Router) withLogging(route string, h HandlerFunc) HandlerFunc {
	return func(rec Record) (any, error) {
		start := time.Now()
		r.log.Debug().Str("route", route).Int("bytes", len(rec.Payload)).Msg("Handling record")

		result, err := h(rec)

		if err != nil {
			r.log.Error().Err(err).Str("route", route).Dur("duration", time.Since(start)).Msg("Record failed")
		} else {
			r.log.Debug().Str("route", route).Dur("duration", time.Since(start)).Msg("Record complete")
		}

		return result, err
	}
}
