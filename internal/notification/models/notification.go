package models

import (
	"time"

	id "maintrack/pkg/domain"
)

// Module names used for module-wide notifications. The module is a scoping
// key: stores hold its folded form so legacy spellings compare equal.
const (
	ModuleTickets = "Tickets"
	ModuleParts   = "Czesci"
)

// Type classifies a notification.
type Type string

const (
	TypeTicketCreated Type = "TICKET_CREATED"
	TypeStatusChanged Type = "STATUS_CHANGED"
)

// Notification is a persisted message for one user (TargetUser set) or a
// whole module (TargetUser nil, Module set). Created only by the fan-out
// service; the read flag is flipped later through MarkRead.
type Notification struct {
	ID         id.NotificationID
	TargetUser *id.UserID
	Module     *string
	Type       Type
	Title      string
	Message    string
	Link       *string
	CreatedAt  time.Time
	Read       bool
}

// IsModuleWide reports whether the notification addresses a module rather
// than a single user.
func (n Notification) IsModuleWide() bool { return n.TargetUser == nil }
