package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"maintrack/internal/events"
	"maintrack/internal/report/service/mocks"
	reportstore "maintrack/internal/report/store"
	"maintrack/internal/status"
	ticketmodels "maintrack/internal/ticket/models"
	ticketstore "maintrack/internal/ticket/store"
	id "maintrack/pkg/domain"
	"maintrack/pkg/platform/sentinel"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func doneTicket() ticketmodels.Ticket {
	accepted := time.Now().Add(-2 * time.Hour)
	completed := time.Now().Add(-5 * time.Minute)
	return ticketmodels.Ticket{
		ID:          id.TicketID(uuid.New()),
		Number:      "ZG-2024-0042",
		MachineID:   id.MachineID(uuid.New()),
		Department:  "Produkcja",
		Type:        "FAILURE",
		Description: "Hydraulic press leaking oil",
		Status:      status.TicketDone,
		ReportedBy:  id.UserID(uuid.New()),
		AcceptedAt:  &accepted,
		CompletedAt: &completed,
	}
}

func statusUpdate(ticketID id.TicketID) events.Event {
	return events.NewUpdated(ticketID, []string{events.FieldStatus})
}

func TestOnEvent_TerminalStatusGeneratesReport(t *testing.T) {
	tickets := ticketstore.NewInMemory()
	reports := reportstore.NewInMemory()
	ticket := doneTicket()
	require.NoError(t, tickets.Save(context.Background(), ticket))

	g := NewGenerator(reports, tickets, discardLogger(), nil)
	require.NoError(t, g.OnEvent(context.Background(), statusUpdate(ticket.ID)))

	r, err := reports.FindBySourceTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, r.SourceTicketID)
	assert.Equal(t, ticket.MachineID, r.MachineID)
	assert.Equal(t, ticket.Description, r.Description)
	assert.Equal(t, status.ReportCompleted, r.Status)
	assert.Equal(t, ticket.AcceptedAt, r.StartedAt)
	assert.Equal(t, ticket.CompletedAt, r.FinishedAt)
}

func TestOnEvent_RepeatedTerminalEventCreatesOneReport(t *testing.T) {
	tickets := ticketstore.NewInMemory()
	reports := reportstore.NewInMemory()
	ticket := doneTicket()
	require.NoError(t, tickets.Save(context.Background(), ticket))

	g := NewGenerator(reports, tickets, discardLogger(), nil)
	require.NoError(t, g.OnEvent(context.Background(), statusUpdate(ticket.ID)))
	require.NoError(t, g.OnEvent(context.Background(), statusUpdate(ticket.ID)))
	require.NoError(t, g.OnEvent(context.Background(), statusUpdate(ticket.ID)))

	assert.Equal(t, 1, reports.Count(), "double-fired terminal events must not duplicate the report")
}

func TestOnEvent_MissingTimestampsFallBack(t *testing.T) {
	tickets := ticketstore.NewInMemory()
	reports := reportstore.NewInMemory()
	ticket := doneTicket()
	ticket.AcceptedAt = nil
	ticket.CompletedAt = nil
	require.NoError(t, tickets.Save(context.Background(), ticket))

	g := NewGenerator(reports, tickets, discardLogger(), nil)
	require.NoError(t, g.OnEvent(context.Background(), statusUpdate(ticket.ID)))

	r, err := reports.FindBySourceTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, r.StartedAt)
	require.NotNil(t, r.FinishedAt)
	assert.Equal(t, *r.FinishedAt, *r.StartedAt, "with no lifecycle timestamps the window collapses to generation time")
}

func TestOnEvent_NonTerminalStatusIgnored(t *testing.T) {
	tickets := ticketstore.NewInMemory()
	reports := reportstore.NewInMemory()
	ticket := doneTicket()
	ticket.Status = status.TicketInProgress
	require.NoError(t, tickets.Save(context.Background(), ticket))

	g := NewGenerator(reports, tickets, discardLogger(), nil)
	require.NoError(t, g.OnEvent(context.Background(), statusUpdate(ticket.ID)))
	assert.Equal(t, 0, reports.Count())
}

func TestOnEvent_CancelledIsNotTerminal(t *testing.T) {
	tickets := ticketstore.NewInMemory()
	reports := reportstore.NewInMemory()
	ticket := doneTicket()
	ticket.Status = status.TicketCancelled
	require.NoError(t, tickets.Save(context.Background(), ticket))

	g := NewGenerator(reports, tickets, discardLogger(), nil)
	require.NoError(t, g.OnEvent(context.Background(), statusUpdate(ticket.ID)))
	assert.Equal(t, 0, reports.Count(), "cancelled tickets must not produce reports")
}

func TestOnEvent_IgnoresIrrelevantEvents(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	tickets := mocks.NewMockTicketReader(ctrl)
	// No expectations: neither store nor reader may be touched.

	g := NewGenerator(store, tickets, discardLogger(), nil)
	ticketID := id.TicketID(uuid.New())

	require.NoError(t, g.OnEvent(context.Background(), events.NewCreated(ticketID)))
	require.NoError(t, g.OnEvent(context.Background(), events.NewDeleted(ticketID)))
	require.NoError(t, g.OnEvent(context.Background(), events.NewUpdated(ticketID, []string{"description"})))
}

func TestOnEvent_TicketGoneIsNotAnError(t *testing.T) {
	tickets := ticketstore.NewInMemory()
	reports := reportstore.NewInMemory()

	g := NewGenerator(reports, tickets, discardLogger(), nil)
	require.NoError(t, g.OnEvent(context.Background(), statusUpdate(id.TicketID(uuid.New()))))
	assert.Equal(t, 0, reports.Count())
}

func TestGenerate_ConcurrentConflictIsSwallowed(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	tickets := mocks.NewMockTicketReader(ctrl)

	ticket := doneTicket()
	tickets.EXPECT().FindByID(gomock.Any(), ticket.ID).Return(&ticket, nil)
	// Not found on the fast-path check, then a unique violation on insert:
	// another generator won the race.
	store.EXPECT().FindBySourceTicket(gomock.Any(), ticket.ID).Return(nil, sentinel.ErrNotFound)
	store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(sentinel.ErrConflict)

	g := NewGenerator(store, tickets, discardLogger(), nil)
	require.NoError(t, g.OnEvent(context.Background(), statusUpdate(ticket.ID)))
}

func TestGenerate_StoreFailurePropagates(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	tickets := mocks.NewMockTicketReader(ctrl)

	ticket := doneTicket()
	tickets.EXPECT().FindByID(gomock.Any(), ticket.ID).Return(&ticket, nil)
	store.EXPECT().FindBySourceTicket(gomock.Any(), ticket.ID).Return(nil, sentinel.ErrNotFound)
	store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("connection reset"))

	g := NewGenerator(store, tickets, discardLogger(), nil)
	assert.Error(t, g.OnEvent(context.Background(), statusUpdate(ticket.ID)))
}
