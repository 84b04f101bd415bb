package store

import (
	"context"
	"sync"

	"maintrack/internal/report/models"
	id "maintrack/pkg/domain"
	"maintrack/pkg/platform/sentinel"
)

// InMemory keeps derived reports in a mutex-guarded map and enforces the
// one-report-per-ticket rule the same way the postgres store's unique index
// does.
type InMemory struct {
	mu       sync.RWMutex
	reports  map[id.ReportID]models.DerivedReport
	byTicket map[id.TicketID]id.ReportID
}

func NewInMemory() *InMemory {
	return &InMemory{
		reports:  make(map[id.ReportID]models.DerivedReport),
		byTicket: make(map[id.TicketID]id.ReportID),
	}
}

func (s *InMemory) Create(_ context.Context, r models.DerivedReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.reports[r.ID]; exists {
		return sentinel.ErrConflict
	}
	if _, exists := s.byTicket[r.SourceTicketID]; exists {
		return sentinel.ErrConflict
	}
	s.reports[r.ID] = r
	s.byTicket[r.SourceTicketID] = r.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, reportID id.ReportID) (*models.DerivedReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[reportID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := r
	return &out, nil
}

func (s *InMemory) FindBySourceTicket(_ context.Context, ticketID id.TicketID) (*models.DerivedReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reportID, ok := s.byTicket[ticketID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := s.reports[reportID]
	return &out, nil
}

// Count returns the number of stored reports. Test helper.
func (s *InMemory) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reports)
}
