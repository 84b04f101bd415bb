package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"maintrack/internal/report/models"
	"maintrack/internal/status"
	id "maintrack/pkg/domain"
	"maintrack/pkg/platform/sentinel"
	txcontext "maintrack/pkg/platform/tx"
)

// Postgres persists derived reports. The derived_reports table carries a
// unique index on source_ticket_id, which makes generation idempotent even
// when two generators race on the same terminal event.
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

func (s *Postgres) Create(ctx context.Context, r models.DerivedReport) error {
	query := `
		INSERT INTO derived_reports (id, source_ticket_id, machine_id, description, status, started_at, finished_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(r.ID), uuid.UUID(r.SourceTicketID), uuid.UUID(r.MachineID),
		r.Description, string(r.Status), r.StartedAt, r.FinishedAt, r.CreatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert derived report: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, reportID id.ReportID) (*models.DerivedReport, error) {
	query := `
		SELECT id, source_ticket_id, machine_id, description, status, started_at, finished_at, created_at
		FROM derived_reports
		WHERE id = $1
	`
	return s.scanOne(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(reportID)))
}

func (s *Postgres) FindBySourceTicket(ctx context.Context, ticketID id.TicketID) (*models.DerivedReport, error) {
	query := `
		SELECT id, source_ticket_id, machine_id, description, status, started_at, finished_at, created_at
		FROM derived_reports
		WHERE source_ticket_id = $1
	`
	return s.scanOne(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(ticketID)))
}

func (s *Postgres) scanOne(row *sql.Row) (*models.DerivedReport, error) {
	var (
		r        models.DerivedReport
		rawID    uuid.UUID
		ticketID uuid.UUID
		machine  uuid.UUID
		rawState string
	)
	err := row.Scan(&rawID, &ticketID, &machine, &r.Description, &rawState, &r.StartedAt, &r.FinishedAt, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan derived report: %w", err)
	}
	r.ID = id.ReportID(rawID)
	r.SourceTicketID = id.TicketID(ticketID)
	r.MachineID = id.MachineID(machine)
	r.Status = status.ReportStatus(rawState)
	return &r, nil
}
