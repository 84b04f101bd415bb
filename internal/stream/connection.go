package stream

import (
	"context"

	"maintrack/internal/events"
	"maintrack/pkg/platform/sentinel"
)

// sseConn bridges the registry to one server-sent-events HTTP response. The
// registry pushes envelopes into a buffered channel; the HTTP handler
// goroutine drains it and owns all writes to the ResponseWriter, since the
// writer is not safe for use from other goroutines.
type sseConn struct {
	out  chan events.Envelope
	done chan struct{}
}

func newSSEConn(buffer int) *sseConn {
	return &sseConn{
		out:  make(chan events.Envelope, buffer),
		done: make(chan struct{}),
	}
}

// Push hands env to the writer goroutine. A full buffer means the client is
// not keeping up and the connection is treated as failed rather than letting
// the fan-out block on it.
func (c *sseConn) Push(ctx context.Context, env events.Envelope) error {
	select {
	case <-c.done:
		return sentinel.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	select {
	case c.out <- env:
		return nil
	default:
		return sentinel.ErrCapacity
	}
}

// Close signals the writer goroutine to stop. Safe to call once; the registry
// guarantees that via its per-subscription close guard.
func (c *sseConn) Close() error {
	close(c.done)
	return nil
}
