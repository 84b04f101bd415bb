// Package events defines the immutable domain events emitted by ticket writes
// and the envelope DTO used on the wire. Events are created once per mutation,
// dispatched, and discarded; nothing in this package is persisted.
package events

import (
	"fmt"
	"strings"
	"time"

	id "maintrack/pkg/domain"
	dErrors "maintrack/pkg/domain-errors"
)

// Type identifies what happened to a ticket.
type Type string

const (
	TypeCreated           Type = "CREATED"
	TypeUpdated           Type = "UPDATED"
	TypeDeleted           Type = "DELETED"
	TypeAttachmentAdded   Type = "ATTACHMENT_ADDED"
	TypeAttachmentRemoved Type = "ATTACHMENT_REMOVED"
)

// Stream-only event names. These never appear as Event.Type; they exist only
// as envelope names on a live subscription.
const (
	StreamInit      = "INIT"
	StreamHeartbeat = "HEARTBEAT"
)

// AllTypes lists every dispatchable event type in declaration order.
var AllTypes = []Type{TypeCreated, TypeUpdated, TypeDeleted, TypeAttachmentAdded, TypeAttachmentRemoved}

var validTypes = func() map[Type]struct{} {
	m := make(map[Type]struct{}, len(AllTypes))
	for _, t := range AllTypes {
		m[t] = struct{}{}
	}
	return m
}()

// Valid reports whether t is a known event type.
func (t Type) Valid() bool {
	_, ok := validTypes[t]
	return ok
}

// Event describes one ticket mutation. Instances are values and treated as
// immutable after construction; constructors copy incoming slices.
type Event struct {
	Type          Type             `json:"type"`
	TicketID      id.TicketID      `json:"ticketId"`
	Timestamp     time.Time        `json:"timestamp"`
	ChangedFields []string         `json:"changedFields,omitempty"`
	AttachmentID  *id.AttachmentID `json:"attachmentId,omitempty"`
}

// FieldStatus is the changed-field name that gates status reactions.
const FieldStatus = "status"

// HasChangedField reports whether name is among the event's changed fields.
func (e Event) HasChangedField(name string) bool {
	for _, f := range e.ChangedFields {
		if f == name {
			return true
		}
	}
	return false
}

// NewCreated builds a CREATED event for a ticket.
func NewCreated(ticketID id.TicketID) Event {
	return Event{Type: TypeCreated, TicketID: ticketID, Timestamp: time.Now()}
}

// NewUpdated builds an UPDATED event carrying the names of changed fields.
// The order of changedFields is preserved; names may repeat.
func NewUpdated(ticketID id.TicketID, changedFields []string) Event {
	copied := make([]string, len(changedFields))
	copy(copied, changedFields)
	return Event{Type: TypeUpdated, TicketID: ticketID, Timestamp: time.Now(), ChangedFields: copied}
}

// NewDeleted builds a DELETED event for a ticket.
func NewDeleted(ticketID id.TicketID) Event {
	return Event{Type: TypeDeleted, TicketID: ticketID, Timestamp: time.Now()}
}

// NewAttachmentAdded builds an ATTACHMENT_ADDED event.
func NewAttachmentAdded(ticketID id.TicketID, attachmentID id.AttachmentID) Event {
	return Event{Type: TypeAttachmentAdded, TicketID: ticketID, Timestamp: time.Now(), AttachmentID: &attachmentID}
}

// NewAttachmentRemoved builds an ATTACHMENT_REMOVED event.
func NewAttachmentRemoved(ticketID id.TicketID, attachmentID id.AttachmentID) Event {
	return Event{Type: TypeAttachmentRemoved, TicketID: ticketID, Timestamp: time.Now(), AttachmentID: &attachmentID}
}

// ParseTypes parses a comma-separated list of event-type names into a filter
// set. Empty input yields a nil set, meaning match-all. Unknown names are
// rejected before any resource is allocated.
func ParseTypes(csv string) (map[Type]struct{}, error) {
	csv = strings.TrimSpace(csv)
	if csv == "" {
		return nil, nil
	}
	filter := make(map[Type]struct{})
	for _, part := range strings.Split(csv, ",") {
		name := Type(strings.ToUpper(strings.TrimSpace(part)))
		if name == "" {
			continue
		}
		if !name.Valid() {
			return nil, dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("unknown event type %q", string(name)))
		}
		filter[name] = struct{}{}
	}
	if len(filter) == 0 {
		return nil, nil
	}
	return filter, nil
}
