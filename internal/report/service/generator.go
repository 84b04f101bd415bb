// Package service derives a maintenance report when a ticket reaches its
// terminal status. Generation is idempotent per source ticket.
package service

//go:generate mockgen -source=generator.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"maintrack/internal/events"
	reportmetrics "maintrack/internal/report/metrics"
	"maintrack/internal/report/models"
	"maintrack/internal/status"
	ticketmodels "maintrack/internal/ticket/models"
	id "maintrack/pkg/domain"
	dErrors "maintrack/pkg/domain-errors"
	"maintrack/pkg/platform/sentinel"
)

// Store persists derived reports. Create must reject a second report for the
// same source ticket with sentinel.ErrConflict.
type Store interface {
	Create(ctx context.Context, r models.DerivedReport) error
	FindBySourceTicket(ctx context.Context, ticketID id.TicketID) (*models.DerivedReport, error)
}

// TicketReader re-fetches ticket snapshots; events carry only ids.
type TicketReader interface {
	FindByID(ctx context.Context, ticketID id.TicketID) (*ticketmodels.Ticket, error)
}

// Generator turns terminal ticket transitions into derived reports. OnEvent
// is registered as an after-commit bus subscriber.
type Generator struct {
	logger  *slog.Logger
	store   Store
	tickets TicketReader
	metrics *reportmetrics.Metrics
}

func NewGenerator(store Store, tickets TicketReader, logger *slog.Logger, m *reportmetrics.Metrics) *Generator {
	return &Generator{
		logger:  logger,
		store:   store,
		tickets: tickets,
		metrics: m,
	}
}

// OnEvent reacts to a committed ticket event. Only status updates that land
// on a terminal status produce a report; everything else is ignored.
func (g *Generator) OnEvent(ctx context.Context, e events.Event) error {
	if e.Type != events.TypeUpdated || !e.HasChangedField(events.FieldStatus) {
		return nil
	}

	t, err := g.tickets.FindByID(ctx, e.TicketID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// Deleted between commit and dispatch; nothing to derive.
			g.skip(ctx, "ticket_gone", e.TicketID)
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "fetch ticket for report generation")
	}

	if !t.Status.IsTerminal() {
		return nil
	}

	return g.generate(ctx, t)
}

// generate creates the report for a completed ticket. The duplicate check is
// a fast path only; the store's uniqueness guarantee is what actually makes
// concurrent generation safe.
func (g *Generator) generate(ctx context.Context, t *ticketmodels.Ticket) error {
	if _, err := g.store.FindBySourceTicket(ctx, t.ID); err == nil {
		g.skip(ctx, "already_exists", t.ID)
		return nil
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "check existing report")
	}

	// Legacy tickets may miss the lifecycle timestamps; fall back so the
	// report always carries a closed work window.
	now := time.Now()
	finished := t.CompletedAt
	if finished == nil {
		finished = &now
	}
	started := t.AcceptedAt
	if started == nil {
		started = finished
	}

	r := models.DerivedReport{
		ID:             id.ReportID(uuid.New()),
		SourceTicketID: t.ID,
		MachineID:      t.MachineID,
		Description:    t.Description,
		Status:         status.ReportCompleted,
		StartedAt:      started,
		FinishedAt:     finished,
		CreatedAt:      now,
	}
	if err := g.store.Create(ctx, r); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			g.skip(ctx, "already_exists", t.ID)
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "persist derived report")
	}

	if g.metrics != nil {
		g.metrics.IncrementGenerated()
	}
	g.logger.InfoContext(ctx, "derived report generated",
		"report_id", r.ID.String(),
		"ticket_id", t.ID.String(),
		"machine_id", t.MachineID.String(),
	)
	return nil
}

func (g *Generator) skip(ctx context.Context, reason string, ticketID id.TicketID) {
	if g.metrics != nil {
		g.metrics.IncrementSkipped(reason)
	}
	g.logger.DebugContext(ctx, "report generation skipped",
		"reason", reason,
		"ticket_id", ticketID.String(),
	)
}
