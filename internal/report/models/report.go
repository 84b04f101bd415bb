// Package models holds the derived maintenance report produced when a ticket
// reaches its terminal status.
package models

import (
	"time"

	"maintrack/internal/status"
	id "maintrack/pkg/domain"
)

// DerivedReport is the maintenance report generated from a completed ticket.
// At most one report exists per source ticket.
type DerivedReport struct {
	ID             id.ReportID
	SourceTicketID id.TicketID
	MachineID      id.MachineID
	Description    string
	Status         status.ReportStatus
	StartedAt      *time.Time
	FinishedAt     *time.Time
	CreatedAt      time.Time
}
