package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"maintrack/internal/notification/models"
	"maintrack/internal/platform/middleware"
	"maintrack/internal/transport/http/shared"
	id "maintrack/pkg/domain"
	dErrors "maintrack/pkg/domain-errors"
)

// Service defines the notification operations the transport needs.
type Service interface {
	ListForUser(ctx context.Context, user id.UserID, entitledModules []string) ([]models.Notification, error)
	MarkRead(ctx context.Context, user id.UserID, notificationID id.NotificationID) error
}

// Handler serves the notification endpoints.
type Handler struct {
	logger        *slog.Logger
	notifications Service
	jwtValidator  middleware.JWTValidator
}

func New(notifications Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:        logger,
		notifications: notifications,
		jwtValidator:  jwtValidator,
	}
}

// Register registers the notification routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(gr chi.Router) {
		gr.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		gr.Get("/notifications", h.handleList)
		gr.Post("/notifications/{notificationID}/read", h.handleMarkRead)
	})
}

type notificationResponse struct {
	ID        string    `json:"id"`
	Module    *string   `json:"module,omitempty"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Link      *string   `json:"link,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	Read      bool      `json:"read"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := id.ParseUserID(middleware.GetUserID(ctx))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid user identity"))
		return
	}

	listed, err := h.notifications.ListForUser(ctx, userID, middleware.GetModules(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list notifications",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to list notifications"))
		return
	}

	out := make([]notificationResponse, 0, len(listed))
	for _, n := range listed {
		out = append(out, notificationResponse{
			ID:        n.ID.String(),
			Module:    n.Module,
			Type:      string(n.Type),
			Title:     n.Title,
			Message:   n.Message,
			Link:      n.Link,
			CreatedAt: n.CreatedAt,
			Read:      n.Read,
		})
	}
	shared.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := id.ParseUserID(middleware.GetUserID(ctx))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid user identity"))
		return
	}

	notificationID, err := id.ParseNotificationID(chi.URLParam(r, "notificationID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := h.notifications.MarkRead(ctx, userID, notificationID); err != nil {
		if dErrors.Is(err, dErrors.CodeNotFound) {
			shared.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "failed to mark notification read",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to mark notification read"))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
