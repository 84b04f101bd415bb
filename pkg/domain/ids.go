// Package domain defines strongly typed identifiers shared across modules.
// Distinct ID types keep a TicketID from ever being passed where a UserID is
// expected; the compiler enforces the distinction.
package domain

import (
	"github.com/google/uuid"

	dErrors "maintrack/pkg/domain-errors"
)

type (
	// TicketID identifies a maintenance ticket (the primary tracked entity).
	TicketID uuid.UUID
	// MachineID identifies the machine a ticket refers to.
	MachineID uuid.UUID
	// UserID identifies a person in the surrounding registry.
	UserID uuid.UUID
	// NotificationID identifies a persisted notification.
	NotificationID uuid.UUID
	// ReportID identifies a derived maintenance report.
	ReportID uuid.UUID
	// SubscriptionID identifies one live push connection.
	SubscriptionID uuid.UUID
	// AttachmentID identifies a file attached to a ticket.
	AttachmentID uuid.UUID
)

func (id TicketID) String() string       { return uuid.UUID(id).String() }
func (id MachineID) String() string      { return uuid.UUID(id).String() }
func (id UserID) String() string         { return uuid.UUID(id).String() }
func (id NotificationID) String() string { return uuid.UUID(id).String() }
func (id ReportID) String() string       { return uuid.UUID(id).String() }
func (id SubscriptionID) String() string { return uuid.UUID(id).String() }
func (id AttachmentID) String() string   { return uuid.UUID(id).String() }

func (id TicketID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id MachineID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// parseUUID enforces the shared invariant: IDs must be valid, non-nil UUIDs.
func parseUUID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id is required")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id is not a valid UUID")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be the nil UUID")
	}
	return parsed, nil
}

// ParseTicketID parses a ticket identifier from untrusted input.
func ParseTicketID(raw string) (TicketID, error) {
	parsed, err := parseUUID(raw)
	return TicketID(parsed), err
}

// ParseUserID parses a user identifier from untrusted input.
func ParseUserID(raw string) (UserID, error) {
	parsed, err := parseUUID(raw)
	return UserID(parsed), err
}

// ParseNotificationID parses a notification identifier from untrusted input.
func ParseNotificationID(raw string) (NotificationID, error) {
	parsed, err := parseUUID(raw)
	return NotificationID(parsed), err
}
