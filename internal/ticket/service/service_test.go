package service

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maintrack/internal/events"
	"maintrack/internal/events/bus"
	"maintrack/internal/status"
	"maintrack/internal/ticket/store"
	id "maintrack/pkg/domain"
	dErrors "maintrack/pkg/domain-errors"
	"maintrack/pkg/platform/tx"
)

type fixture struct {
	svc       *Service
	bus       *bus.Bus
	store     *store.InMemory
	published *atomic.Int32
	lastEvent *atomic.Value
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	b := bus.New(logger, nil)

	var published atomic.Int32
	var last atomic.Value
	b.SubscribeAfterCommit("recorder", func(ctx context.Context, e events.Event) error {
		published.Add(1)
		last.Store(e)
		return nil
	})

	st := store.NewInMemory()
	return &fixture{
		svc:       New(st, b, tx.NewInMemoryManager(), logger),
		bus:       b,
		store:     st,
		published: &published,
		lastEvent: &last,
	}
}

func validInput() CreateInput {
	return CreateInput{
		Number:      "ZG-2024-0042",
		MachineID:   id.MachineID(uuid.New()),
		Department:  "Produkcja",
		Type:        "FAILURE",
		Description: "Hydraulic press leaking oil",
		Status:      "nowe",
		ReportedBy:  id.UserID(uuid.New()),
	}
}

func TestCreate_PersistsAndPublishesAfterCommit(t *testing.T) {
	f := newFixture(t)

	created, err := f.svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	f.bus.Wait()

	assert.Equal(t, status.TicketOpen, created.Status, "Polish token must normalize to OPEN")
	stored, err := f.store.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Number, stored.Number)

	assert.Equal(t, int32(1), f.published.Load())
	e := f.lastEvent.Load().(events.Event)
	assert.Equal(t, events.TypeCreated, e.Type)
	assert.Equal(t, created.ID, e.TicketID)
}

func TestCreate_RejectsMissingFields(t *testing.T) {
	f := newFixture(t)

	in := validInput()
	in.Number = "  "
	_, err := f.svc.Create(context.Background(), in)
	assert.True(t, dErrors.Is(err, dErrors.CodeInvalidInput))

	in = validInput()
	in.MachineID = id.MachineID{}
	_, err = f.svc.Create(context.Background(), in)
	assert.True(t, dErrors.Is(err, dErrors.CodeInvalidInput))

	f.bus.Wait()
	assert.Equal(t, int32(0), f.published.Load(), "rejected creates must not publish")
}

func TestChangeStatus_NormalizesAndStampsLifecycle(t *testing.T) {
	f := newFixture(t)
	created, err := f.svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	updated, err := f.svc.ChangeStatus(context.Background(), created.ID, "W-Toku")
	require.NoError(t, err)
	assert.Equal(t, status.TicketInProgress, updated.Status)
	require.NotNil(t, updated.AcceptedAt)

	updated, err = f.svc.ChangeStatus(context.Background(), created.ID, "ZAKOŃCZONE")
	require.NoError(t, err)
	assert.Equal(t, status.TicketDone, updated.Status)
	require.NotNil(t, updated.CompletedAt)

	f.bus.Wait()
	assert.Equal(t, int32(3), f.published.Load())
	e := f.lastEvent.Load().(events.Event)
	assert.Equal(t, events.TypeUpdated, e.Type)
	assert.True(t, e.HasChangedField(events.FieldStatus))
}

func TestChangeStatus_RejectsUnknownToken(t *testing.T) {
	f := newFixture(t)
	created, err := f.svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	_, err = f.svc.ChangeStatus(context.Background(), created.ID, "???")
	assert.True(t, dErrors.Is(err, dErrors.CodeInvalidInput))
}

func TestChangeStatus_DoneIsTerminal(t *testing.T) {
	f := newFixture(t)
	created, err := f.svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	_, err = f.svc.ChangeStatus(context.Background(), created.ID, "DONE")
	require.NoError(t, err)

	_, err = f.svc.ChangeStatus(context.Background(), created.ID, "OPEN")
	assert.True(t, dErrors.Is(err, dErrors.CodeInvariantViolation),
		"completed tickets must not transition again")
}

func TestChangeStatus_SameStatusIsNoOp(t *testing.T) {
	f := newFixture(t)
	created, err := f.svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	f.bus.Wait()
	before := f.published.Load()

	updated, err := f.svc.ChangeStatus(context.Background(), created.ID, "OPEN")
	require.NoError(t, err)
	assert.Equal(t, status.TicketOpen, updated.Status)

	f.bus.Wait()
	assert.Equal(t, before, f.published.Load(), "no-op transitions must not publish")
}

func TestDelete_PublishesDeleted(t *testing.T) {
	f := newFixture(t)
	created, err := f.svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(context.Background(), created.ID))
	f.bus.Wait()

	e := f.lastEvent.Load().(events.Event)
	assert.Equal(t, events.TypeDeleted, e.Type)

	err = f.svc.Delete(context.Background(), created.ID)
	assert.True(t, dErrors.Is(err, dErrors.CodeNotFound))
}

func TestChangeStatus_UnknownTicketReturnsNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ChangeStatus(context.Background(), id.TicketID(uuid.New()), "DONE")
	assert.True(t, dErrors.Is(err, dErrors.CodeNotFound))
}
