// Package stream holds the registry of live push subscriptions and fans
// committed ticket events out to them. Delivery is at-most-once per
// connection: a failed push removes the subscription, nothing is retried.
package stream

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"maintrack/internal/events"
	streammetrics "maintrack/internal/stream/metrics"
	id "maintrack/pkg/domain"
	dErrors "maintrack/pkg/domain-errors"
)

// pushTimeout bounds a single push so one dead client cannot pin a fan-out
// worker indefinitely.
const pushTimeout = 5 * time.Second

// Conn is one live push connection. Push must be safe to fail: any error
// leads to removal of the owning subscription. The registry releases the
// connection exactly once via Close.
type Conn interface {
	Push(ctx context.Context, env events.Envelope) error
	Close() error
}

// Scope carries the optional scoping identifiers accepted at subscribe time.
// They are recorded but not yet applied to filtering: events carry only the
// ticket id, and scoping by department or author would need the full entity
// snapshot. Pass-through is deliberate; see the module documentation.
type Scope struct {
	Department string
	Author     string
}

// RemoveReason says why a subscription left the registry.
type RemoveReason string

const (
	ReasonCompleted    RemoveReason = "completed"
	ReasonTimedOut     RemoveReason = "timed_out"
	ReasonFailed       RemoveReason = "failed"
	ReasonUnsubscribed RemoveReason = "unsubscribed"
	ReasonShutdown     RemoveReason = "shutdown"
)

// Subscription is one registry entry. The filter is immutable after
// subscribe; writeMu serializes all pushes on the underlying connection so a
// heartbeat and an event are never written concurrently.
type Subscription struct {
	ID        id.SubscriptionID
	Filter    map[events.Type]struct{}
	Scope     Scope
	CreatedAt time.Time

	conn      Conn
	writeMu   sync.Mutex
	closeOnce sync.Once
}

// matches reports whether the subscription wants events of type t.
// A nil filter matches every type.
func (s *Subscription) matches(t events.Type) bool {
	if s.Filter == nil {
		return true
	}
	_, ok := s.Filter[t]
	return ok
}

// push serializes writes per connection and bounds each with pushTimeout.
func (s *Subscription) push(ctx context.Context, env events.Envelope) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	pushCtx, cancel := context.WithTimeout(ctx, pushTimeout)
	defer cancel()
	return s.conn.Push(pushCtx, env)
}

func (s *Subscription) close() {
	s.closeOnce.Do(func() { _ = s.conn.Close() })
}

// Registry owns the mutable set of live subscriptions. It is an injected
// component whose lifecycle is tied to application start and stop.
type Registry struct {
	logger  *slog.Logger
	metrics *streammetrics.Metrics

	maxSubscriptions  int
	heartbeatInterval time.Duration
	fanoutWorkers     int

	mu   sync.RWMutex
	subs map[id.SubscriptionID]*Subscription
}

func NewRegistry(logger *slog.Logger, m *streammetrics.Metrics, maxSubscriptions int, heartbeatInterval time.Duration, fanoutWorkers int) *Registry {
	if fanoutWorkers < 1 {
		fanoutWorkers = 1
	}
	return &Registry{
		logger:            logger,
		metrics:           m,
		maxSubscriptions:  maxSubscriptions,
		heartbeatInterval: heartbeatInterval,
		fanoutWorkers:     fanoutWorkers,
		subs:              make(map[id.SubscriptionID]*Subscription),
	}
}

// Subscribe registers conn under a fresh subscription id and pushes the INIT
// event. At the capacity limit it rejects without creating any state. An INIT
// push failure removes the subscription immediately and surfaces the error.
func (r *Registry) Subscribe(ctx context.Context, filter map[events.Type]struct{}, scope Scope, conn Conn) (*Subscription, error) {
	sub := &Subscription{
		ID:        id.SubscriptionID(uuid.New()),
		Filter:    filter,
		Scope:     scope,
		CreatedAt: time.Now(),
		conn:      conn,
	}

	r.mu.Lock()
	if len(r.subs) >= r.maxSubscriptions {
		r.mu.Unlock()
		return nil, dErrors.New(dErrors.CodeCapacityExceeded, "maximum concurrent subscriptions reached")
	}
	r.subs[sub.ID] = sub
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.ActiveSubscriptions.Inc()
	}

	if err := sub.push(ctx, events.InitEnvelope(sub.ID.String())); err != nil {
		r.Remove(sub.ID, ReasonFailed)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to initialize subscription")
	}

	r.logger.InfoContext(ctx, "subscription opened",
		"subscription_id", sub.ID.String(),
		"filtered", filter != nil,
		"active", r.ActiveCount(),
	)
	return sub, nil
}

// OnEvent is the after-commit bus handler: it pushes e to every active
// subscription whose filter matches. Push failures never propagate; the
// affected subscriptions are removed after the fan-out pass completes.
func (r *Registry) OnEvent(ctx context.Context, e events.Event) error {
	env, err := events.NewEnvelope(e)
	if err != nil {
		return err
	}
	r.broadcast(ctx, env, func(s *Subscription) bool { return s.matches(e.Type) })
	return nil
}

// Run drives the periodic heartbeat until ctx is cancelled.
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(r.heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Heartbeat(ctx)
		}
	}
}

// Heartbeat pushes a keep-alive to every active subscription. Failures are
// handled exactly like event push failures.
func (r *Registry) Heartbeat(ctx context.Context) {
	r.broadcast(ctx, events.HeartbeatEnvelope(), func(*Subscription) bool { return true })
}

// broadcast snapshots the active subscriptions, pushes env to each matching
// one concurrently, and removes the failed ones in a second pass.
func (r *Registry) broadcast(ctx context.Context, env events.Envelope, want func(*Subscription) bool) {
	start := time.Now()

	r.mu.RLock()
	snapshot := make([]*Subscription, 0, len(r.subs))
	for _, sub := range r.subs {
		if want(sub) {
			snapshot = append(snapshot, sub)
		}
	}
	r.mu.RUnlock()

	var (
		failedMu sync.Mutex
		failed   []id.SubscriptionID
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.fanoutWorkers)
	for _, sub := range snapshot {
		g.Go(func() error {
			if err := sub.push(gctx, env); err != nil {
				if r.metrics != nil {
					r.metrics.Pushes.WithLabelValues("failed").Inc()
				}
				r.logger.WarnContext(gctx, "push failed, removing subscription",
					"subscription_id", sub.ID.String(),
					"event", env.Event,
					"error", err,
				)
				failedMu.Lock()
				failed = append(failed, sub.ID)
				failedMu.Unlock()
				return nil
			}
			if r.metrics != nil {
				r.metrics.Pushes.WithLabelValues("ok").Inc()
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, subID := range failed {
		r.Remove(subID, ReasonFailed)
	}

	if r.metrics != nil {
		r.metrics.ObserveFanout(start)
	}
}

// Remove transitions a subscription to a terminal state: it leaves the
// registry, its connection is released exactly once, and the active count
// drops by one. Removing an unknown id is a no-op, so the completion,
// timeout, error, and unsubscribe paths can all converge here safely.
func (r *Registry) Remove(subID id.SubscriptionID, reason RemoveReason) {
	r.mu.Lock()
	sub, ok := r.subs[subID]
	if ok {
		delete(r.subs, subID)
	}
	r.mu.Unlock()
	if !ok {
		return
	}

	sub.close()
	if r.metrics != nil {
		r.metrics.ActiveSubscriptions.Dec()
		r.metrics.Removals.WithLabelValues(string(reason)).Inc()
	}
	r.logger.Info("subscription removed",
		"subscription_id", subID.String(),
		"reason", string(reason),
		"lifetime_ms", time.Since(sub.CreatedAt).Milliseconds(),
	)
}

// ActiveCount returns the number of active subscriptions.
func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// Shutdown terminates every live subscription.
func (r *Registry) Shutdown(ctx context.Context) {
	r.mu.RLock()
	ids := make([]id.SubscriptionID, 0, len(r.subs))
	for subID := range r.subs {
		ids = append(ids, subID)
	}
	r.mu.RUnlock()

	for _, subID := range ids {
		r.Remove(subID, ReasonShutdown)
	}
	r.logger.InfoContext(ctx, "live update registry shut down", "closed", len(ids))
}
