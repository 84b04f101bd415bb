package store

import (
	"context"
	"sync"

	"maintrack/internal/notification/models"
	id "maintrack/pkg/domain"
	"maintrack/pkg/platform/sentinel"
)

// InMemory keeps notifications in a mutex-guarded map. Used in tests and
// single-node development setups.
type InMemory struct {
	mu            sync.RWMutex
	notifications map[id.NotificationID]models.Notification
}

func NewInMemory() *InMemory {
	return &InMemory{notifications: make(map[id.NotificationID]models.Notification)}
}

func (s *InMemory) Create(_ context.Context, n models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.notifications[n.ID]; exists {
		return sentinel.ErrConflict
	}
	s.notifications[n.ID] = n
	return nil
}

// ListForUser returns the user's personal notifications.
func (s *InMemory) ListForUser(_ context.Context, userID id.UserID) ([]models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Notification
	for _, n := range s.notifications {
		if n.TargetUser != nil && *n.TargetUser == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

// ListForModules returns module-wide notifications whose folded module key is
// in foldedModules.
func (s *InMemory) ListForModules(_ context.Context, foldedModules []string) ([]models.Notification, error) {
	wanted := make(map[string]struct{}, len(foldedModules))
	for _, m := range foldedModules {
		wanted[m] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Notification
	for _, n := range s.notifications {
		if n.TargetUser != nil || n.Module == nil {
			continue
		}
		if _, ok := wanted[*n.Module]; ok {
			out = append(out, n)
		}
	}
	return out, nil
}

// MarkRead flips the read flag of one of the user's personal notifications.
// Module-wide notifications carry no per-user read state.
func (s *InMemory) MarkRead(_ context.Context, userID id.UserID, notificationID id.NotificationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[notificationID]
	if !ok || n.TargetUser == nil || *n.TargetUser != userID {
		return sentinel.ErrNotFound
	}
	n.Read = true
	s.notifications[notificationID] = n
	return nil
}

// Replace overwrites an existing notification. Test helper.
func (s *InMemory) Replace(_ context.Context, n models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.notifications[n.ID]; !exists {
		return sentinel.ErrNotFound
	}
	s.notifications[n.ID] = n
	return nil
}

// Count returns the number of stored notifications. Test helper.
func (s *InMemory) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.notifications)
}
