// Package service is the ticket write collaborator. In the full deployment
// ticket writes live in the surrounding CRUD service; this service is the
// seam that service plugs into, and it doubles as the local write path: every
// mutation runs inside a unit of work and publishes its event after commit.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"maintrack/internal/events"
	"maintrack/internal/status"
	"maintrack/internal/ticket/models"
	id "maintrack/pkg/domain"
	dErrors "maintrack/pkg/domain-errors"
	"maintrack/pkg/platform/sentinel"
	"maintrack/pkg/platform/tx"
)

// Store persists ticket snapshots.
type Store interface {
	FindByID(ctx context.Context, ticketID id.TicketID) (*models.Ticket, error)
	Save(ctx context.Context, t models.Ticket) error
	Delete(ctx context.Context, ticketID id.TicketID) error
}

// Publisher schedules an event for dispatch once the enclosing unit of work
// commits.
type Publisher interface {
	PublishAfterCommit(ctx context.Context, e events.Event)
}

// CreateInput carries the fields of a new ticket.
type CreateInput struct {
	Number      string
	MachineID   id.MachineID
	Department  string
	Type        string
	Description string
	Status      string
	ReportedBy  id.UserID
}

type Service struct {
	logger *slog.Logger
	store  Store
	bus    Publisher
	mgr    tx.Manager
}

func New(store Store, bus Publisher, mgr tx.Manager, logger *slog.Logger) *Service {
	return &Service{
		logger: logger,
		store:  store,
		bus:    bus,
		mgr:    mgr,
	}
}

// Create persists a new ticket and publishes CREATED after commit. The raw
// status is normalized; unknown tokens fall back to OPEN.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Ticket, error) {
	if strings.TrimSpace(in.Number) == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "ticket number is required")
	}
	if in.MachineID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "machine id is required")
	}
	if in.ReportedBy.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "reporter is required")
	}

	now := time.Now()
	t := models.Ticket{
		ID:          id.TicketID(uuid.New()),
		Number:      strings.TrimSpace(in.Number),
		MachineID:   in.MachineID,
		Department:  in.Department,
		Type:        in.Type,
		Description: in.Description,
		Status:      status.TicketStatusOrDefault(in.Status),
		ReportedBy:  in.ReportedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.mgr.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.Save(txCtx, t); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "persist ticket")
		}
		s.bus.PublishAfterCommit(txCtx, events.NewCreated(t.ID))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ChangeStatus normalizes the raw status token, applies the transition, and
// publishes UPDATED with the status field after commit. DONE ends the
// lifecycle: further transitions are rejected.
func (s *Service) ChangeStatus(ctx context.Context, ticketID id.TicketID, raw string) (*models.Ticket, error) {
	next, ok := status.NormalizeTicket(raw)
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unrecognized status %q", raw)
	}

	var updated models.Ticket
	err := s.mgr.RunInTx(ctx, func(txCtx context.Context) error {
		t, err := s.store.FindByID(txCtx, ticketID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "ticket not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "fetch ticket")
		}
		if t.Status.IsTerminal() {
			return dErrors.New(dErrors.CodeInvariantViolation, "ticket is already completed")
		}
		if t.Status == next {
			updated = *t
			return nil
		}

		now := time.Now()
		t.Status = next
		t.UpdatedAt = now
		if next == status.TicketInProgress && t.AcceptedAt == nil {
			t.AcceptedAt = &now
		}
		if next == status.TicketDone {
			t.CompletedAt = &now
		}

		if err := s.store.Save(txCtx, *t); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "persist ticket")
		}
		updated = *t
		s.bus.PublishAfterCommit(txCtx, events.NewUpdated(t.ID, []string{events.FieldStatus}))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes a ticket and publishes DELETED after commit.
func (s *Service) Delete(ctx context.Context, ticketID id.TicketID) error {
	return s.mgr.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.store.FindByID(txCtx, ticketID); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "ticket not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "fetch ticket")
		}
		if err := s.store.Delete(txCtx, ticketID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "delete ticket")
		}
		s.bus.PublishAfterCommit(txCtx, events.NewDeleted(ticketID))
		return nil
	})
}
