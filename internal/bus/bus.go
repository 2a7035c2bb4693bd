package bus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/memomap/memomap/internal/event"
)

// Handler consumes one event. A returned error is reported to the logger when
// the subscription is Logged; it never aborts delivery to later subscribers.
type Handler func(event.Event) error

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures a subscription.
type Option func(*config)

type config struct {
	bufferSize int
	blocking   bool
	logged     bool
}

// Buffered makes the subscriber async with a queue of the given size.
// Buffered subscribers fall outside the synchronous delivery guarantee.
func Buffered(size int) Option {
	return func(c *config) {
		c.bufferSize = size
	}
}

// Blocking makes a buffered subscriber block when the queue is full instead
// of dropping.
func Blocking() Option {
	return func(c *config) {
		c.blocking = true
	}
}

// Logged adds debug logging around the subscriber.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

// Bus routes events to topic subscribers. Publish is synchronous: every
// unbuffered subscriber for the event's topic runs, in the order it
// subscribed, before Publish returns. There is no replay and no wildcard
// matching; publishing to a topic with no subscribers is a silent no-op.
type Bus struct {
	logger Logger

	// OTEL metrics
	queueSize   metric.Int64ObservableGauge
	published   metric.Int64Counter
	dropped     metric.Int64Counter
	subscribers metric.Int64ObservableGauge

	mu      sync.RWMutex
	subs    map[string][]Handler
	buffers []chan event.Event
}

// New creates a Bus with the given logger.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger) (*Bus, error) {
	b := &Bus{
		subs:   make(map[string][]Handler),
		logger: logger,
	}

	m := meter()

	var err error

	b.queueSize, err = m.Int64ObservableGauge(
		"bus.queue.size",
		metric.WithDescription("Current number of events queued for buffered subscribers"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}

	b.subscribers, err = m.Int64ObservableGauge(
		"bus.subscribers",
		metric.WithDescription("Current number of subscribers per topic"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating subscriber gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			b.mu.RLock()
			defer b.mu.RUnlock()
			queued := 0
			for _, buf := range b.buffers {
				queued += len(buf)
			}
			o.ObserveInt64(b.queueSize, int64(queued))
			for topic, handlers := range b.subs {
				o.ObserveInt64(b.subscribers, int64(len(handlers)),
					metric.WithAttributes(attribute.String("topic", topic)))
			}
			return nil
		},
		b.queueSize, b.subscribers,
	)
	if err != nil {
		return nil, fmt.Errorf("registering gauge callback: %w", err)
	}

	b.published, err = m.Int64Counter(
		"bus.events.published",
		metric.WithDescription("Total events published"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating published counter: %w", err)
	}

	b.dropped, err = m.Int64Counter(
		"bus.events.dropped",
		metric.WithDescription("Total events dropped due to full subscriber queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	return b, nil
}

// Subscribe adds a handler for the given topic with optional configuration.
// Handlers run in subscription order on every Publish of that topic.
func (b *Bus) Subscribe(topic string, h Handler, opts ...Option) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := h

	if cfg.bufferSize > 0 {
		handler = b.withBuffer(topic, cfg.bufferSize, cfg.blocking, handler)
	}

	if cfg.logged {
		handler = b.withLogging(topic, handler)
	}

	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], handler)
	b.mu.Unlock()
}

// Publish delivers the event to every subscriber of its topic.
// Fire-and-forget: subscriber errors do not propagate to the publisher.
func (b *Bus) Publish(e event.Event) {
	topic := e.Topic()

	b.mu.RLock()
	handlers := b.subs[topic]
	b.mu.RUnlock()

	b.published.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("topic", topic)))

	for _, h := range handlers {
		h(e)
	}
}

// HasSubscribers reports whether any handler is registered for the topic.
func (b *Bus) HasSubscribers(topic string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic]) > 0
}

func (b *Bus) withBuffer(topic string, size int, blocking bool, h Handler) Handler {
	buffer := make(chan event.Event, size)

	b.mu.Lock()
	b.buffers = append(b.buffers, buffer)
	b.mu.Unlock()

	topicAttr := attribute.String("topic", topic)

	go func() {
		for e := range buffer {
			h(e)
		}
	}()

	if blocking {
		return func(e event.Event) error {
			buffer <- e
			return nil
		}
	}

	return func(e event.Event) error {
		select {
		case buffer <- e:
			return nil
		default:
			b.dropped.Add(context.Background(), 1, metric.WithAttributes(topicAttr))
			return fmt.Errorf("subscriber queue full: %s", topic)
		}
	}
}

func (b *Bus) withLogging(topic string, h Handler) Handler {
	return func(e event.Event) error {
		start := time.Now()
		b.logger.Debug("delivering event", "topic", topic)

		err := h(e)

		if err != nil {
			b.logger.Error("subscriber failed", "topic", topic, "duration", time.Since(start), "error", err)
		} else {
			b.logger.Debug("delivery complete", "topic", topic, "duration", time.Since(start))
		}

		return err
	}
}
