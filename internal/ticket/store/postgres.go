package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"maintrack/internal/status"
	"maintrack/internal/ticket/models"
	id "maintrack/pkg/domain"
	"maintrack/pkg/platform/sentinel"
	txcontext "maintrack/pkg/platform/tx"
)

// Postgres persists ticket snapshots in the tickets table shared with the
// surrounding CRUD service. Writes join an enclosing SQL transaction when one
// is carried by the context.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) execer(ctx context.Context) dbExecutor {
	if sqlTx, ok := txcontext.From(ctx); ok {
		return sqlTx
	}
	return s.db
}

func (s *Postgres) FindByID(ctx context.Context, ticketID id.TicketID) (*models.Ticket, error) {
	query := `
		SELECT id, number, machine_id, department, type, description, status,
		       reported_by, assigned_to, accepted_at, completed_at, created_at, updated_at
		FROM tickets
		WHERE id = $1
	`
	var (
		t          models.Ticket
		rawID      uuid.UUID
		machine    uuid.UUID
		reportedBy uuid.UUID
		assignedTo uuid.NullUUID
		rawStatus  string
	)
	err := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(ticketID)).Scan(
		&rawID, &t.Number, &machine, &t.Department, &t.Type, &t.Description, &rawStatus,
		&reportedBy, &assignedTo, &t.AcceptedAt, &t.CompletedAt, &t.CreatedAt, &t.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find ticket: %w", err)
	}

	t.ID = id.TicketID(rawID)
	t.MachineID = id.MachineID(machine)
	t.ReportedBy = id.UserID(reportedBy)
	if assignedTo.Valid {
		assignee := id.UserID(assignedTo.UUID)
		t.AssignedTo = &assignee
	}
	// Legacy rows may carry raw Polish tokens; normalize on read.
	t.Status = status.TicketStatusOrDefault(rawStatus)
	return &t, nil
}

// Save upserts a ticket snapshot.
func (s *Postgres) Save(ctx context.Context, t models.Ticket) error {
	var assignedTo any
	if t.AssignedTo != nil {
		assignedTo = uuid.UUID(*t.AssignedTo)
	}
	query := `
		INSERT INTO tickets (id, number, machine_id, department, type, description, status,
		                     reported_by, assigned_to, accepted_at, completed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			description = EXCLUDED.description,
			assigned_to = EXCLUDED.assigned_to,
			accepted_at = EXCLUDED.accepted_at,
			completed_at = EXCLUDED.completed_at,
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(t.ID), t.Number, uuid.UUID(t.MachineID), t.Department, t.Type, t.Description,
		string(t.Status), uuid.UUID(t.ReportedBy), assignedTo, t.AcceptedAt, t.CompletedAt,
		t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save ticket: %w", err)
	}
	return nil
}

// Delete removes a ticket. Missing ids are a no-op.
func (s *Postgres) Delete(ctx context.Context, ticketID id.TicketID) error {
	_, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM tickets WHERE id = $1`, uuid.UUID(ticketID))
	if err != nil {
		return fmt.Errorf("delete ticket: %w", err)
	}
	return nil
}
