// Package service turns committed ticket events into persisted notifications
// and answers the merged per-user notification query.
package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"maintrack/internal/events"
	notifmetrics "maintrack/internal/notification/metrics"
	"maintrack/internal/notification/models"
	"maintrack/internal/status"
	ticketmodels "maintrack/internal/ticket/models"
	id "maintrack/pkg/domain"
	dErrors "maintrack/pkg/domain-errors"

	"github.com/google/uuid"
)

// Store persists notifications. Module-wide rows carry the folded module key.
type Store interface {
	Create(ctx context.Context, n models.Notification) error
	ListForUser(ctx context.Context, userID id.UserID) ([]models.Notification, error)
	ListForModules(ctx context.Context, foldedModules []string) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID id.UserID, notificationID id.NotificationID) error
}

// TicketReader re-fetches ticket snapshots; events carry only ids.
type TicketReader interface {
	FindByID(ctx context.Context, ticketID id.TicketID) (*ticketmodels.Ticket, error)
}

// Service is the notification fan-out. OnEvent is registered as an
// after-commit bus subscriber.
type Service struct {
	logger   *slog.Logger
	store    Store
	tickets  TicketReader
	metrics  *notifmetrics.Metrics
	excluded map[string]struct{}
}

func New(store Store, tickets TicketReader, logger *slog.Logger, m *notifmetrics.Metrics, excludedModules []string) *Service {
	excluded := make(map[string]struct{}, len(excludedModules))
	for _, module := range excludedModules {
		if folded := status.Fold(module); folded != "" {
			excluded[folded] = struct{}{}
		}
	}
	return &Service{
		logger:   logger,
		store:    store,
		tickets:  tickets,
		metrics:  m,
		excluded: excluded,
	}
}

// OnEvent reacts to a committed ticket event. Runs outside the originating
// unit of work; errors are logged by the bus and never reach the publisher.
func (s *Service) OnEvent(ctx context.Context, e events.Event) error {
	switch e.Type {
	case events.TypeCreated:
		return s.onTicketCreated(ctx, e)
	case events.TypeUpdated:
		if !e.HasChangedField(events.FieldStatus) {
			return nil
		}
		return s.onStatusChanged(ctx, e)
	default:
		return nil
	}
}

func (s *Service) onTicketCreated(ctx context.Context, e events.Event) error {
	t, err := s.tickets.FindByID(ctx, e.TicketID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "fetch ticket for created notification")
	}

	link := ticketLink(t.ID)
	_, err = s.CreateModuleNotification(ctx, models.ModuleTickets, models.TypeTicketCreated,
		fmt.Sprintf("New %s ticket %s", t.Type, t.Number),
		fmt.Sprintf("%s: %s", t.Department, t.Description),
		&link,
	)
	return err
}

func (s *Service) onStatusChanged(ctx context.Context, e events.Event) error {
	t, err := s.tickets.FindByID(ctx, e.TicketID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "fetch ticket for status notification")
	}

	link := ticketLink(t.ID)
	_, err = s.CreateModuleNotification(ctx, models.ModuleTickets, models.TypeStatusChanged,
		fmt.Sprintf("Ticket %s is now %s", t.Number, t.Status),
		fmt.Sprintf("%s: %s", t.Department, t.Description),
		&link,
	)
	return err
}

// CreateModuleNotification persists a module-wide notification. Excluded
// modules are skipped silently: the returned notification is nil and no
// record is created. Exclusion matching is case- and accent-insensitive.
func (s *Service) CreateModuleNotification(ctx context.Context, module string, typ models.Type, title, message string, link *string) (*models.Notification, error) {
	folded := status.Fold(module)
	if _, skip := s.excluded[folded]; skip {
		if s.metrics != nil {
			s.metrics.IncrementExcluded()
		}
		s.logger.DebugContext(ctx, "notification skipped for excluded module", "module", module)
		return nil, nil
	}

	n := models.Notification{
		ID:        id.NotificationID(uuid.New()),
		Module:    &folded,
		Type:      typ,
		Title:     title,
		Message:   message,
		Link:      link,
		CreatedAt: time.Now(),
	}
	if err := s.store.Create(ctx, n); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "persist module notification")
	}
	if s.metrics != nil {
		s.metrics.IncrementCreated("module")
	}
	return &n, nil
}

// CreateUserNotification persists a notification addressed to one user.
func (s *Service) CreateUserNotification(ctx context.Context, user id.UserID, typ models.Type, title, message string, link *string) (*models.Notification, error) {
	if user.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "target user is required")
	}
	n := models.Notification{
		ID:         id.NotificationID(uuid.New()),
		TargetUser: &user,
		Type:       typ,
		Title:      title,
		Message:    message,
		Link:       link,
		CreatedAt:  time.Now(),
	}
	if err := s.store.Create(ctx, n); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "persist user notification")
	}
	if s.metrics != nil {
		s.metrics.IncrementCreated("user")
	}
	return &n, nil
}

// ListForUser merges personal notifications with module-wide ones for every
// module the user is entitled to, minus excluded modules, deduplicated by id
// and sorted newest first.
func (s *Service) ListForUser(ctx context.Context, user id.UserID, entitledModules []string) ([]models.Notification, error) {
	personal, err := s.store.ListForUser(ctx, user)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list personal notifications")
	}

	var foldedModules []string
	for _, module := range entitledModules {
		folded := status.Fold(module)
		if folded == "" {
			continue
		}
		if _, skip := s.excluded[folded]; skip {
			continue
		}
		foldedModules = append(foldedModules, folded)
	}

	var moduleWide []models.Notification
	if len(foldedModules) > 0 {
		moduleWide, err = s.store.ListForModules(ctx, foldedModules)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list module notifications")
		}
	}

	seen := make(map[id.NotificationID]struct{}, len(personal)+len(moduleWide))
	merged := make([]models.Notification, 0, len(personal)+len(moduleWide))
	for _, n := range append(personal, moduleWide...) {
		if _, dup := seen[n.ID]; dup {
			continue
		}
		seen[n.ID] = struct{}{}
		merged = append(merged, n)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})
	return merged, nil
}

// MarkRead flips the read flag of one of the user's notifications.
func (s *Service) MarkRead(ctx context.Context, user id.UserID, notificationID id.NotificationID) error {
	if err := s.store.MarkRead(ctx, user, notificationID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeNotFound, "notification not found")
	}
	if s.metrics != nil {
		s.metrics.IncrementRead()
	}
	return nil
}

func ticketLink(ticketID id.TicketID) string {
	return "/tickets/" + ticketID.String()
}
