package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"maintrack/internal/platform/middleware"
	"maintrack/internal/ticket/models"
	"maintrack/internal/ticket/service"
	"maintrack/internal/transport/http/shared"
	id "maintrack/pkg/domain"
	dErrors "maintrack/pkg/domain-errors"
)

// Service defines the ticket operations the transport needs.
type Service interface {
	Create(ctx context.Context, in service.CreateInput) (*models.Ticket, error)
	ChangeStatus(ctx context.Context, ticketID id.TicketID, raw string) (*models.Ticket, error)
	Delete(ctx context.Context, ticketID id.TicketID) error
}

// Handler serves the ticket write endpoints.
type Handler struct {
	logger       *slog.Logger
	tickets      Service
	jwtValidator middleware.JWTValidator
}

func New(tickets Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		tickets:      tickets,
		jwtValidator: jwtValidator,
	}
}

// Register registers the ticket routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(gr chi.Router) {
		gr.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		gr.Post("/tickets", h.handleCreate)
		gr.Post("/tickets/{ticketID}/status", h.handleChangeStatus)
		gr.Delete("/tickets/{ticketID}", h.handleDelete)
	})
}

type createRequest struct {
	Number      string `json:"number"`
	MachineID   string `json:"machineId"`
	Department  string `json:"department"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

type changeStatusRequest struct {
	Status string `json:"status"`
}

type ticketResponse struct {
	ID          string     `json:"id"`
	Number      string     `json:"number"`
	MachineID   string     `json:"machineId"`
	Department  string     `json:"department"`
	Type        string     `json:"type"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	AcceptedAt  *time.Time `json:"acceptedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func toResponse(t *models.Ticket) ticketResponse {
	return ticketResponse{
		ID:          t.ID.String(),
		Number:      t.Number,
		MachineID:   t.MachineID.String(),
		Department:  t.Department,
		Type:        t.Type,
		Description: t.Description,
		Status:      string(t.Status),
		AcceptedAt:  t.AcceptedAt,
		CompletedAt: t.CompletedAt,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	reportedBy, err := id.ParseUserID(middleware.GetUserID(ctx))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid user identity"))
		return
	}

	var machineID id.MachineID
	if req.MachineID != "" {
		parsed, err := id.ParseTicketID(req.MachineID)
		if err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "machine id is not a valid UUID"))
			return
		}
		machineID = id.MachineID(parsed)
	}

	created, err := h.tickets.Create(ctx, service.CreateInput{
		Number:      req.Number,
		MachineID:   machineID,
		Department:  req.Department,
		Type:        req.Type,
		Description: req.Description,
		Status:      req.Status,
		ReportedBy:  reportedBy,
	})
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to create ticket")
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toResponse(created))
}

func (h *Handler) handleChangeStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ticketID, err := id.ParseTicketID(chi.URLParam(r, "ticketID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req changeStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	updated, err := h.tickets.ChangeStatus(ctx, ticketID, req.Status)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to change ticket status")
		return
	}
	shared.WriteJSON(w, http.StatusOK, toResponse(updated))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ticketID, err := id.ParseTicketID(chi.URLParam(r, "ticketID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := h.tickets.Delete(ctx, ticketID); err != nil {
		h.writeServiceError(ctx, w, err, "failed to delete ticket")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeServiceError logs internals and passes coded errors through.
func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, err error, msg string) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg,
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, msg))
		return
	}
	shared.WriteError(w, err)
}
