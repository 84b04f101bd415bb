// Package bus is the in-process publish/subscribe primitive. It offers two
// delivery modes with different unit-of-work semantics:
//
//   - inline: the handler runs synchronously inside the caller's unit of work;
//     its error propagates to the publisher and can abort the write.
//   - after-commit: the handler runs only once the unit of work carried by the
//     context has committed, outside any transaction, and its error is logged
//     and swallowed. If the unit of work rolls back the handler never runs.
//
// Events are best-effort and volatile: nothing is persisted and nothing is
// redelivered after a restart.
package bus

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"maintrack/internal/events"
	"maintrack/internal/platform/metrics"
	"maintrack/pkg/platform/tx"
)

// Handler consumes a dispatched event.
type Handler func(ctx context.Context, e events.Event) error

type subscriber struct {
	name string
	fn   Handler
}

// Bus dispatches domain events to registered subscribers. Subscribe before
// the first publish; registration is not synchronized against dispatch.
type Bus struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer

	inline      []subscriber
	afterCommit []subscriber

	wg sync.WaitGroup
}

func New(logger *slog.Logger, m *metrics.Metrics) *Bus {
	return &Bus{
		logger:  logger,
		metrics: m,
		tracer:  otel.Tracer("maintrack/events/bus"),
	}
}

// SubscribeInline registers a handler invoked synchronously during
// PublishInline, in registration order, inside the caller's unit of work.
func (b *Bus) SubscribeInline(name string, h Handler) {
	b.inline = append(b.inline, subscriber{name: name, fn: h})
}

// SubscribeAfterCommit registers a handler invoked after the publishing unit
// of work commits. Handlers are independent subscribers: no relative order is
// guaranteed and they may run concurrently.
func (b *Bus) SubscribeAfterCommit(name string, h Handler) {
	b.afterCommit = append(b.afterCommit, subscriber{name: name, fn: h})
}

// PublishInline runs all inline handlers for e. The first handler error
// aborts the remaining handlers and propagates to the publisher.
func (b *Bus) PublishInline(ctx context.Context, e events.Event) error {
	for _, sub := range b.inline {
		if err := sub.fn(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// PublishAfterCommit schedules e for dispatch once the unit of work carried
// by ctx commits. Without an active unit of work the event is dispatched
// immediately; the caller asserts the write is already durable.
func (b *Bus) PublishAfterCommit(ctx context.Context, e events.Event) {
	if b.metrics != nil {
		b.metrics.EventsPublished.WithLabelValues(string(e.Type)).Inc()
	}
	if tx.AfterCommit(ctx, func(hookCtx context.Context) { b.dispatch(hookCtx, e) }) {
		return
	}
	b.dispatch(context.WithoutCancel(ctx), e)
}

// dispatch fans e out to every after-commit subscriber, each in its own
// goroutine. Handler errors and panics are contained here; they must never
// reach the publisher.
func (b *Bus) dispatch(ctx context.Context, e events.Event) {
	for _, sub := range b.afterCommit {
		b.wg.Add(1)
		go func(sub subscriber) {
			defer b.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					b.logger.ErrorContext(ctx, "event handler panicked",
						"handler", sub.name,
						"event_type", string(e.Type),
						"ticket_id", e.TicketID.String(),
						"panic", r,
					)
					if b.metrics != nil {
						b.metrics.EventHandlerFailures.WithLabelValues(sub.name).Inc()
					}
				}
			}()

			spanCtx, span := b.tracer.Start(ctx, "bus.dispatch",
				trace.WithAttributes(
					attribute.String("event.type", string(e.Type)),
					attribute.String("event.handler", sub.name),
				))
			defer span.End()

			if err := sub.fn(spanCtx, e); err != nil {
				span.RecordError(err)
				b.logger.ErrorContext(spanCtx, "event handler failed",
					"handler", sub.name,
					"event_type", string(e.Type),
					"ticket_id", e.TicketID.String(),
					"error", err,
				)
				if b.metrics != nil {
					b.metrics.EventHandlerFailures.WithLabelValues(sub.name).Inc()
				}
			}
		}(sub)
	}
}

// Wait blocks until all in-flight after-commit dispatches finish. Used by
// shutdown and tests; publishers never need it.
func (b *Bus) Wait() {
	b.wg.Wait()
}
