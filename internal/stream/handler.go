package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"maintrack/internal/events"
	"maintrack/internal/platform/middleware"
	"maintrack/internal/transport/http/shared"
	dErrors "maintrack/pkg/domain-errors"
)

// connBuffer is the per-connection envelope backlog. A client that lags this
// far behind the fan-out is dropped.
const connBuffer = 32

// Handler exposes the live event stream over server-sent events.
type Handler struct {
	logger              *slog.Logger
	registry            *Registry
	jwtValidator        middleware.JWTValidator
	subscriptionTimeout time.Duration
}

func NewHandler(registry *Registry, logger *slog.Logger, jwtValidator middleware.JWTValidator, subscriptionTimeout time.Duration) *Handler {
	return &Handler{
		logger:              logger,
		registry:            registry,
		jwtValidator:        jwtValidator,
		subscriptionTimeout: subscriptionTimeout,
	}
}

// Register registers the event stream routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(gr chi.Router) {
		gr.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		gr.Get("/events/stream", h.handleStream)
		gr.Get("/events/status", h.handleStatus)
	})
}

type statusResponse struct {
	ActiveSubscriptions int `json:"activeSubscriptions"`
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	shared.WriteJSON(w, http.StatusOK, statusResponse{ActiveSubscriptions: h.registry.ActiveCount()})
}

// handleStream upgrades the request to a server-sent-events stream and holds
// it open until the client disconnects, the subscription lifetime expires, or
// the registry drops the connection.
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	flusher, ok := w.(http.Flusher)
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "streaming not supported"))
		return
	}

	filter, err := events.ParseTypes(r.URL.Query().Get("types"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	scope := Scope{
		Department: r.URL.Query().Get("department"),
		Author:     r.URL.Query().Get("author"),
	}

	conn := newSSEConn(connBuffer)
	sub, err := h.registry.Subscribe(ctx, filter, scope, conn)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeCapacityExceeded) {
			shared.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "failed to open subscription",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to open subscription"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	lifetime, cancel := context.WithTimeout(ctx, h.subscriptionTimeout)
	defer cancel()

	for {
		select {
		case env := <-conn.out:
			if err := writeSSE(w, env); err != nil {
				h.registry.Remove(sub.ID, ReasonFailed)
				return
			}
			flusher.Flush()
		case <-conn.done:
			// Removed by the registry, nothing left to clean up here.
			return
		case <-lifetime.Done():
			reason := ReasonUnsubscribed
			if errors.Is(lifetime.Err(), context.DeadlineExceeded) {
				reason = ReasonTimedOut
			}
			h.registry.Remove(sub.ID, reason)
			return
		}
	}
}

func writeSSE(w http.ResponseWriter, env events.Envelope) error {
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", env.Event, env.Data)
	return err
}
