// Package models holds the ticket snapshot as this core sees it. Ticket
// writes happen in the surrounding CRUD service; the core only re-reads the
// current state when reacting to an event, since events carry ids, not
// snapshots.
package models

import (
	"time"

	"maintrack/internal/status"
	id "maintrack/pkg/domain"
)

// Ticket is a read snapshot of a maintenance ticket.
type Ticket struct {
	ID          id.TicketID
	Number      string
	MachineID   id.MachineID
	Department  string
	Type        string
	Description string
	Status      status.TicketStatus
	ReportedBy  id.UserID
	AssignedTo  *id.UserID
	AcceptedAt  *time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
