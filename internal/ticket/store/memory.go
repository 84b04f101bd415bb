// Package store provides the in-memory ticket store. In production the
// ticket registry lives in the surrounding CRUD service; this store backs
// local development and tests, and doubles as the write collaborator in the
// end-to-end scenarios.
package store

import (
	"context"
	"sync"

	"maintrack/internal/ticket/models"
	id "maintrack/pkg/domain"
	"maintrack/pkg/platform/sentinel"
)

type InMemory struct {
	mu      sync.RWMutex
	tickets map[id.TicketID]models.Ticket
}

func NewInMemory() *InMemory {
	return &InMemory{tickets: make(map[id.TicketID]models.Ticket)}
}

// FindByID returns a copy of the ticket snapshot.
func (s *InMemory) FindByID(_ context.Context, ticketID id.TicketID) (*models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tickets[ticketID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &t, nil
}

// Save upserts a ticket snapshot.
func (s *InMemory) Save(_ context.Context, t models.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickets[t.ID] = t
	return nil
}

// Delete removes a ticket. Missing ids are a no-op.
func (s *InMemory) Delete(_ context.Context, ticketID id.TicketID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tickets, ticketID)
	return nil
}
