// Package fanout wires the full event pipeline together in memory and drives
// it through the ticket write path: mutate inside a unit of work, publish
// after commit, then observe notifications, derived reports, and live push
// deliveries.
package fanout

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maintrack/internal/events"
	"maintrack/internal/events/bus"
	notifservice "maintrack/internal/notification/service"
	notifstore "maintrack/internal/notification/store"
	reportservice "maintrack/internal/report/service"
	reportstore "maintrack/internal/report/store"
	"maintrack/internal/status"
	"maintrack/internal/stream"
	ticketmodels "maintrack/internal/ticket/models"
	ticketservice "maintrack/internal/ticket/service"
	ticketstore "maintrack/internal/ticket/store"
	id "maintrack/pkg/domain"
	"maintrack/pkg/platform/tx"
	"maintrack/pkg/testutil"
)

type pipeline struct {
	bus      *bus.Bus
	tickets  *ticketservice.Service
	reports  *reportstore.InMemory
	registry *stream.Registry
	notifSvc *notifservice.Service
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tickets := ticketstore.NewInMemory()
	notifs := notifstore.NewInMemory()
	reports := reportstore.NewInMemory()

	notifSvc := notifservice.New(notifs, tickets, logger, nil, []string{"Czesci"})
	generator := reportservice.NewGenerator(reports, tickets, logger, nil)
	registry := stream.NewRegistry(logger, nil, 100, time.Minute, 4)

	b := bus.New(logger, nil)
	b.SubscribeAfterCommit("notifications", notifSvc.OnEvent)
	b.SubscribeAfterCommit("reports", generator.OnEvent)
	b.SubscribeAfterCommit("stream", registry.OnEvent)

	return &pipeline{
		bus:      b,
		tickets:  ticketservice.New(tickets, b, tx.NewInMemoryManager(), logger),
		reports:  reports,
		registry: registry,
		notifSvc: notifSvc,
	}
}

func (p *pipeline) create(t *testing.T) *ticketmodels.Ticket {
	t.Helper()
	created, err := p.tickets.Create(context.Background(), ticketservice.CreateInput{
		Number:      "ZG-2024-0042",
		MachineID:   id.MachineID(uuid.New()),
		Department:  "Produkcja",
		Type:        "FAILURE",
		Description: "Hydraulic press leaking oil",
		Status:      "nowe",
		ReportedBy:  id.UserID(uuid.New()),
	})
	require.NoError(t, err)
	p.bus.Wait()
	return created
}

func (p *pipeline) changeStatus(t *testing.T, ticketID id.TicketID, raw string) {
	t.Helper()
	_, err := p.tickets.ChangeStatus(context.Background(), ticketID, raw)
	require.NoError(t, err)
	p.bus.Wait()
}

// recordingConn collects pushed envelopes for assertions.
type recordingConn struct {
	mu    sync.Mutex
	names []string
}

func (c *recordingConn) Push(_ context.Context, env events.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names = append(c.names, env.Event)
	return nil
}

func (c *recordingConn) Close() error { return nil }

func (c *recordingConn) events() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

func TestTicketLifecycleFansOutEverywhere(t *testing.T) {
	p := newPipeline(t)
	user := id.UserID(uuid.New())

	conn := &recordingConn{}
	_, err := p.registry.Subscribe(context.Background(), nil, stream.Scope{}, conn)
	require.NoError(t, err)

	var ticket *ticketmodels.Ticket
	testutil.Given(t, "a new failure ticket is committed", func(t *testing.T) {
		ticket = p.create(t)
	})

	testutil.Then(t, "a module-wide notification is visible to entitled users", func(t *testing.T) {
		listed, err := p.notifSvc.ListForUser(context.Background(), user, []string{"Tickets"})
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Contains(t, listed[0].Title, ticket.Number)
		assert.Equal(t, 0, p.reports.Count(), "no derived report may exist yet")
	})

	testutil.When(t, "the ticket moves through its lifecycle to a terminal status", func(t *testing.T) {
		p.changeStatus(t, ticket.ID, "W-Toku")
		p.changeStatus(t, ticket.ID, "ZAKOŃCZONE")
	})

	testutil.Then(t, "exactly one derived report is generated", func(t *testing.T) {
		require.Equal(t, 1, p.reports.Count())
		r, err := p.reports.FindBySourceTicket(context.Background(), ticket.ID)
		require.NoError(t, err)
		assert.Equal(t, status.ReportCompleted, r.Status)
		assert.Equal(t, ticket.MachineID, r.MachineID)
		assert.NotNil(t, r.StartedAt)
		assert.NotNil(t, r.FinishedAt)
	})

	testutil.Then(t, "the live subscription saw every committed event", func(t *testing.T) {
		assert.Equal(t, []string{events.StreamInit, "CREATED", "UPDATED", "UPDATED"}, conn.events())
	})

	testutil.Then(t, "status notifications accumulated alongside the creation one", func(t *testing.T) {
		listed, err := p.notifSvc.ListForUser(context.Background(), user, []string{"Tickets"})
		require.NoError(t, err)
		assert.Len(t, listed, 3)
	})
}

func TestTerminalTransitionStaysIdempotent(t *testing.T) {
	p := newPipeline(t)
	ticket := p.create(t)
	p.changeStatus(t, ticket.ID, "DONE")

	// A duplicate UPDATED event, e.g. a redelivered dispatch, finds the
	// report already present.
	p.bus.PublishAfterCommit(context.Background(), events.NewUpdated(ticket.ID, []string{events.FieldStatus}))
	p.bus.Wait()

	assert.Equal(t, 1, p.reports.Count(), "re-fired terminal events must not duplicate the report")
}

func TestRolledBackWriteLeavesNoTrace(t *testing.T) {
	p := newPipeline(t)
	user := id.UserID(uuid.New())
	mgr := tx.NewInMemoryManager()

	err := mgr.RunInTx(context.Background(), func(ctx context.Context) error {
		p.bus.PublishAfterCommit(ctx, events.NewCreated(id.TicketID(uuid.New())))
		return assert.AnError
	})
	require.Error(t, err)
	p.bus.Wait()

	listed, err := p.notifSvc.ListForUser(context.Background(), user, []string{"Tickets"})
	require.NoError(t, err)
	assert.Empty(t, listed, "a rolled-back write must not notify anyone")
	assert.Equal(t, 0, p.reports.Count())
}

func TestExcludedModuleNeverNotifies(t *testing.T) {
	p := newPipeline(t)
	user := id.UserID(uuid.New())

	created, err := p.notifSvc.CreateModuleNotification(context.Background(), "Części",
		"PARTS_LOW", "Low stock", "Bearing 6204 below minimum", nil)
	require.NoError(t, err)
	assert.Nil(t, created)

	listed, err := p.notifSvc.ListForUser(context.Background(), user, []string{"Tickets", "Czesci"})
	require.NoError(t, err)
	assert.Empty(t, listed)
}
